package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"supportbot/support/dialog"
)

// TranscriptLimit is the rendering-surface cap for a transcript text block.
const TranscriptLimit = 4096

// RenderTranscript concatenates a conversation's entries into one
// role-labeled text block plus the captioned photos to deliver as a
// separate batch. The text is truncated to TranscriptLimit keeping the
// earliest entries. An empty history renders a placeholder.
func RenderTranscript(userID int64, entries []dialog.Entry) (string, []Photo) {
	if len(entries) == 0 {
		return "Dialog is empty.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dialog with user ID %d:\n\n", userID)

	var photos []Photo
	for _, e := range entries {
		prefix := "[User]"
		if e.Role == dialog.RoleOperator {
			prefix = "[Operator]"
		}
		if t := e.Body.Text(); t != "" {
			fmt.Fprintf(&b, "%s:\n%s\n\n", prefix, t)
		}
		if e.Body.HasPhoto() {
			photos = append(photos, Photo{Ref: e.Body.Photo(), Caption: prefix + " (photo)"})
		}
	}

	return truncateUTF8(b.String(), TranscriptLimit), photos
}

// truncateUTF8 cuts s to at most limit bytes without splitting a rune.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
