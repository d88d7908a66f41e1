package dialog

import "sync"

// FocusRegister remembers which user the operator is currently replying to.
// Single-slot, process-local: a restart loses focus and the operator has to
// reopen a dialog. Focus is only ever overwritten, never auto-cleared.
type FocusRegister struct {
	mu     sync.Mutex
	userID int64
	set    bool
}

// NewFocusRegister returns an empty register.
func NewFocusRegister() *FocusRegister {
	return &FocusRegister{}
}

// Set points the register at userID. Idempotent.
func (f *FocusRegister) Set(userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userID = userID
	f.set = true
}

// Current returns the focused user id, false if none was set this
// process lifetime.
func (f *FocusRegister) Current() (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userID, f.set
}
