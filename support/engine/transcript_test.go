package engine

import (
	"strings"
	"testing"

	"supportbot/support/dialog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTranscriptEmpty(t *testing.T) {
	text, photos := RenderTranscript(100, nil)
	assert.Equal(t, "Dialog is empty.", text)
	assert.Empty(t, photos)
}

func TestRenderTranscriptTextAndPhotos(t *testing.T) {
	entries := []dialog.Entry{
		{Role: dialog.RoleUser, Body: dialog.TextBody("my printer is on fire")},
		{Role: dialog.RoleOperator, Body: dialog.TextBody("unplug it")},
		{Role: dialog.RoleUser, Body: dialog.TextBody("done")},
		{Role: dialog.RoleUser, Body: dialog.PhotoBody("file-1")},
	}

	text, photos := RenderTranscript(100, entries)

	assert.Contains(t, text, "Dialog with user ID 100")
	assert.Contains(t, text, "[User]:\nmy printer is on fire")
	assert.Contains(t, text, "[Operator]:\nunplug it")
	assert.Contains(t, text, "[User]:\ndone")
	require.Len(t, photos, 1)
	assert.Equal(t, "file-1", photos[0].Ref)
	assert.Equal(t, "[User] (photo)", photos[0].Caption)
}

func TestRenderTranscriptTruncationKeepsEarliest(t *testing.T) {
	long := strings.Repeat("a", 5000)
	entries := []dialog.Entry{
		{Role: dialog.RoleUser, Body: dialog.TextBody("first entry marker")},
		{Role: dialog.RoleUser, Body: dialog.TextBody(long)},
	}

	text, _ := RenderTranscript(100, entries)

	assert.LessOrEqual(t, len(text), TranscriptLimit)
	assert.Contains(t, text, "first entry marker")
	// Only a prefix of the long entry survives, nothing is reordered.
	assert.True(t, strings.HasSuffix(text, "a"))
}

func TestTruncateUTF8DoesNotSplitRunes(t *testing.T) {
	s := strings.Repeat("я", 100)
	out := truncateUTF8(s, 101)
	assert.LessOrEqual(t, len(out), 101)
	assert.Equal(t, strings.Repeat("я", 50), out)
}
