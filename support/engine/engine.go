package engine

import (
	"context"
	"fmt"
	"strconv"

	"supportbot/core/logger"
	"supportbot/support/dialog"
	"log/slog"
)

// Action is one inline button attached to an outbound message.
// ID is the callback key, Data its payload.
type Action struct {
	Label string
	ID    string
	Data  string
}

// Photo is one image scheduled for a batch send, with its display caption.
type Photo struct {
	Ref     string
	Caption string
}

// MessageRef is an opaque handle to a previously sent message,
// usable with EditMessageText. Nil means no editable message exists
// and plain sends are used instead.
type MessageRef any

// Messenger is the outbound capability set the engine depends on.
type Messenger interface {
	SendText(ctx context.Context, target int64, text string) error
	SendPhoto(ctx context.Context, target int64, photoRef string) error
	SendTextWithActions(ctx context.Context, target int64, text string, actions [][]Action) (MessageRef, error)
	EditMessageText(ctx context.Context, ref MessageRef, text string, actions [][]Action) error
	SendPhotoBatch(ctx context.Context, target int64, photos []Photo) error
}

// Store is the persistence surface the engine depends on.
type Store interface {
	Append(ctx context.Context, e dialog.Entry) (int64, error)
	History(ctx context.Context, userID int64) ([]dialog.Entry, error)
	SetStatus(ctx context.Context, userID int64, status dialog.Status) error
	GetStatus(ctx context.Context, userID int64) (dialog.Status, error)
}

// FocusRegister tracks the conversation selected for the next operator reply.
type FocusRegister interface {
	Set(userID int64)
	Current() (int64, bool)
}

// Callback keys understood by the bot surface.
const (
	ActionOpenDialog = "dialog"
	ActionSetStatus  = "status"
	ActionCancel     = "cancel"
)

// Engine implements the conversation routing logic: forwards user messages
// to the operator, routes operator replies back through the focus register,
// and keeps the dialog history and per-user status in the store.
type Engine struct {
	store      Store
	focus      FocusRegister
	messenger  Messenger
	operatorID int64
}

// New builds an Engine. The operatorID is the single authorized operator
// identity all notifications are addressed to.
func New(store Store, focus FocusRegister, messenger Messenger, operatorID int64) *Engine {
	return &Engine{
		store:      store,
		focus:      focus,
		messenger:  messenger,
		operatorID: operatorID,
	}
}

// HandleUserMessage persists an inbound user message and notifies the
// operator. Persistence completes before any send is attempted, so a
// delivery failure never loses the message from history. A failed primary
// notification is reported to the user instead of a success acknowledgment.
func (e *Engine) HandleUserMessage(ctx context.Context, userID int64, username, fullName string, body dialog.Body) error {
	if body.Empty() {
		return nil
	}
	if username == "" {
		username = dialog.NoUsername
	}
	if fullName == "" {
		fullName = dialog.NoName
	}

	entry := dialog.Entry{
		UserID:   userID,
		Username: username,
		FullName: fullName,
		Role:     dialog.RoleUser,
		Body:     body,
	}
	entryID, err := e.store.Append(ctx, entry)
	if err != nil {
		return fmt.Errorf("user message: %w", err)
	}

	notice := fmt.Sprintf("[User @%s | ID %d]:\n%s", username, userID, body.Text())
	actions := [][]Action{{
		{Label: "Open dialog", ID: ActionOpenDialog, Data: strconv.FormatInt(userID, 10)},
	}}

	if _, err := e.messenger.SendTextWithActions(ctx, e.operatorID, notice, actions); err != nil {
		e.logDelivery(ctx, "notify_operator", userID, err)
		e.sendBestEffort(ctx, userID, "Failed to deliver your message, please try again.")
		return nil
	}
	if body.HasPhoto() {
		if err := e.messenger.SendPhoto(ctx, e.operatorID, body.Photo()); err != nil {
			e.logDelivery(ctx, "notify_operator_photo", userID, err)
			e.sendBestEffort(ctx, userID, "Failed to deliver your message, please try again.")
			return nil
		}
	}

	logger.ENG.Info("user message forwarded",
		slog.String("event", "user_message"),
		slog.Int64("dialog_user_id", userID),
		slog.Int64("entry_id", entryID),
		slog.Bool("photo", body.HasPhoto()),
	)

	e.sendBestEffort(ctx, userID, "Your message has been forwarded to support.")
	return nil
}

// HandleOperatorReply routes the operator's message to the focused user.
// With no focus set the reply is silently dropped; only a warning is
// logged. An empty body is rejected with a validation reply.
func (e *Engine) HandleOperatorReply(ctx context.Context, body dialog.Body) error {
	userID, ok := e.focus.Current()
	if !ok {
		logger.ENG.Warn("reply dropped",
			slog.String("event", "reply.no_focus"),
		)
		return nil
	}
	if body.Empty() {
		e.sendBestEffort(ctx, e.operatorID, "Cannot send an empty reply.")
		return nil
	}

	entry := dialog.Entry{
		UserID:   userID,
		Username: "operator",
		FullName: "Operator",
		Role:     dialog.RoleOperator,
		Body:     body,
	}
	entryID, err := e.store.Append(ctx, entry)
	if err != nil {
		return fmt.Errorf("operator reply: %w", err)
	}

	if body.Text() != "" {
		if err := e.messenger.SendText(ctx, userID, "[Operator]:\n"+body.Text()); err != nil {
			e.logDelivery(ctx, "forward_reply", userID, err)
			e.sendBestEffort(ctx, e.operatorID, fmt.Sprintf("Failed to deliver the reply to user %d.", userID))
			return nil
		}
	}
	if body.HasPhoto() {
		if err := e.messenger.SendPhoto(ctx, userID, body.Photo()); err != nil {
			e.logDelivery(ctx, "forward_reply_photo", userID, err)
			e.sendBestEffort(ctx, e.operatorID, fmt.Sprintf("Failed to deliver the reply to user %d.", userID))
			return nil
		}
	}

	logger.ENG.Info("operator reply forwarded",
		slog.String("event", "operator_reply"),
		slog.Int64("dialog_user_id", userID),
		slog.Int64("entry_id", entryID),
		slog.Bool("photo", body.HasPhoto()),
	)

	e.sendBestEffort(ctx, e.operatorID, "Reply sent to the user.")
	return nil
}

// OpenDialog focuses the conversation and renders its transcript to the
// operator. With a non-nil ref the transcript replaces the originating
// menu message and carries status actions; without one (the /dialog
// command path) it is sent as a plain reply.
func (e *Engine) OpenDialog(ctx context.Context, ref MessageRef, userID int64) error {
	e.focus.Set(userID)

	entries, err := e.store.History(ctx, userID)
	if err != nil {
		return fmt.Errorf("open dialog: %w", err)
	}

	text, photos := RenderTranscript(userID, entries)

	var actions [][]Action
	if ref != nil {
		uid := strconv.FormatInt(userID, 10)
		actions = [][]Action{{
			{Label: "Resolved", ID: ActionSetStatus, Data: string(dialog.StatusResolved) + "|" + uid},
			{Label: "Back", ID: ActionCancel},
		}}
		if err := e.messenger.EditMessageText(ctx, ref, text, actions); err != nil {
			return fmt.Errorf("open dialog: %w", err)
		}
	} else {
		if err := e.messenger.SendText(ctx, e.operatorID, text); err != nil {
			return fmt.Errorf("open dialog: %w", err)
		}
	}

	if len(photos) > 0 {
		if err := e.messenger.SendPhotoBatch(ctx, e.operatorID, photos); err != nil {
			e.logDelivery(ctx, "transcript_photos", userID, err)
		}
	}

	logger.ENG.Info("dialog opened",
		slog.String("event", "open_dialog"),
		slog.Int64("dialog_user_id", userID),
		slog.Int("entries", len(entries)),
		slog.Int("photos", len(photos)),
	)
	return nil
}

// SetStatus writes the conversation status and, on resolution, notifies
// the user best-effort. The confirmation replaces the originating menu
// message when a ref is present.
func (e *Engine) SetStatus(ctx context.Context, ref MessageRef, userID int64, status dialog.Status) error {
	if err := e.store.SetStatus(ctx, userID, status); err != nil {
		return fmt.Errorf("set status: %w", err)
	}

	if status == dialog.StatusResolved {
		notice := "Your support dialog has been closed. Thank you for reaching out!"
		if err := e.messenger.SendText(ctx, userID, notice); err != nil {
			e.logDelivery(ctx, "resolution_notice", userID, err)
		}
	}

	confirm := fmt.Sprintf("Status of dialog with ID %d updated to '%s'.", userID, status)
	if ref != nil {
		if err := e.messenger.EditMessageText(ctx, ref, confirm, nil); err != nil {
			return fmt.Errorf("set status: %w", err)
		}
	} else {
		if err := e.messenger.SendText(ctx, e.operatorID, confirm); err != nil {
			return fmt.Errorf("set status: %w", err)
		}
	}

	logger.ENG.Info("status changed",
		slog.String("event", "set_status"),
		slog.Int64("dialog_user_id", userID),
		slog.String("dialog_status", string(status)),
	)
	return nil
}

// Cancel replaces a rendered menu with a neutral message. No stored
// state is touched; edit failures are logged and swallowed.
func (e *Engine) Cancel(ctx context.Context, ref MessageRef) error {
	if ref == nil {
		return nil
	}
	if err := e.messenger.EditMessageText(ctx, ref, "Back to menu.", nil); err != nil {
		e.logDelivery(ctx, "cancel_menu", 0, err)
	}
	return nil
}

func (e *Engine) sendBestEffort(ctx context.Context, target int64, text string) {
	if err := e.messenger.SendText(ctx, target, text); err != nil {
		e.logDelivery(ctx, "acknowledgment", target, err)
	}
}

func (e *Engine) logDelivery(ctx context.Context, stage string, userID int64, err error) {
	attrs := []slog.Attr{
		slog.String("event", "delivery.failed"),
		slog.String("stage", stage),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	}
	if userID != 0 {
		attrs = append(attrs, slog.Int64("dialog_user_id", userID))
	}
	logger.ENG.LogAttrs(ctx, slog.LevelWarn, "delivery failed", attrs...)
}
