package dialog

import "time"

// Role identifies who authored a dialog entry.
type Role string

const (
	RoleUser     Role = "user"
	RoleOperator Role = "operator"
)

// Status is the lifecycle marker of a conversation.
type Status string

const (
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
)

// ValidStatus reports whether s is a known conversation status.
func ValidStatus(s Status) bool {
	return s == StatusPending || s == StatusResolved
}

// Placeholders applied at ingestion so display text is never empty.
const (
	NoUsername = "no username"
	NoName     = "no name"
)

// Body is the message payload of an entry or inbound event.
// A body holds text, a photo reference, or both; the zero value is empty.
type Body struct {
	text  string
	photo string
}

// TextBody builds a text-only body.
func TextBody(text string) Body {
	return Body{text: text}
}

// PhotoBody builds a photo-only body. The ref is a transport-specific handle.
func PhotoBody(ref string) Body {
	return Body{photo: ref}
}

// TextAndPhoto builds a body carrying both text and a photo reference.
func TextAndPhoto(text, ref string) Body {
	return Body{text: text, photo: ref}
}

// Text returns the text part, empty if none.
func (b Body) Text() string { return b.text }

// Photo returns the photo reference, empty if none.
func (b Body) Photo() string { return b.photo }

// HasPhoto reports whether the body carries a photo reference.
func (b Body) HasPhoto() bool { return b.photo != "" }

// Empty reports a bodyless message. Empty bodies are rejected before
// any persistence or delivery happens.
func (b Body) Empty() bool { return b.text == "" && b.photo == "" }

// Entry is one persisted message of a conversation.
// Entries are immutable once written and totally ordered by ID.
type Entry struct {
	ID        int64
	UserID    int64
	Username  string
	FullName  string
	Role      Role
	Body      Body
	CreatedAt time.Time
}
