package bot

import (
	"strconv"
	"strings"

	"supportbot/core/telegram/callbacks"
	tghelpers "supportbot/core/telegram/helpers"
	"supportbot/support/dialog"
	"supportbot/support/engine"

	tele "gopkg.in/telebot.v4"
)

// Handlers binds telebot updates to engine operations.
type Handlers struct {
	engine     *engine.Engine
	operatorID int64
}

// NewHandlers wires the engine into the bot handler surface.
func NewHandlers(eng *engine.Engine, operatorID int64) *Handlers {
	return &Handlers{engine: eng, operatorID: operatorID}
}

// Start greets a user opening the bot.
func (h *Handlers) Start(c tele.Context) error {
	return c.Send("Hi! Describe your question and an operator will reply soon.")
}

// DialogCommand handles /dialog <user_id>: opens the dialog as a plain
// reply and sets focus as a side effect.
func (h *Handlers) DialogCommand(c tele.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return c.Send("Usage: /dialog <user_id>")
	}
	uid, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
	if err != nil {
		return c.Send("Invalid user id.")
	}

	ctx := tghelpers.BuildContext(c)
	return h.engine.OpenDialog(ctx, nil, uid)
}

// Text routes plain text: the operator's messages become focused replies,
// everyone else's become support requests.
func (h *Handlers) Text(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	body := dialog.TextBody(c.Text())
	if sender.ID == h.operatorID {
		return h.engine.HandleOperatorReply(ctx, body)
	}
	return h.engine.HandleUserMessage(ctx, sender.ID, sender.Username, senderFullName(sender), body)
}

// Photo routes photo messages the same way as Text, carrying the caption
// as the text part of the body.
func (h *Handlers) Photo(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	sender := c.Sender()
	msg := c.Message()
	if sender == nil || msg == nil || msg.Photo == nil {
		return nil
	}

	body := dialog.TextAndPhoto(msg.Caption, msg.Photo.FileID)
	if sender.ID == h.operatorID {
		return h.engine.HandleOperatorReply(ctx, body)
	}
	return h.engine.HandleUserMessage(ctx, sender.ID, sender.Username, senderFullName(sender), body)
}

// OpenDialogCallback handles the "Open dialog" button under an operator
// notification. Payload: the user id.
func (h *Handlers) OpenDialogCallback(c tele.Context) error {
	uid, err := callbacks.PayloadInt64(c)
	if err != nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	return h.engine.OpenDialog(ctx, c.Message(), uid)
}

// StatusCallback handles the status buttons. Payload: "<status>|<user_id>".
func (h *Handlers) StatusCallback(c tele.Context) error {
	parts, err := callbacks.PayloadParts(c, "|")
	if err != nil || len(parts) != 2 {
		return nil
	}
	status := dialog.Status(parts[0])
	if !dialog.ValidStatus(status) {
		return nil
	}
	uid, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	return h.engine.SetStatus(ctx, c.Message(), uid, status)
}

// CancelCallback dismisses a rendered menu.
func (h *Handlers) CancelCallback(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return h.engine.Cancel(ctx, c.Message())
}

func senderFullName(u *tele.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	return name
}
