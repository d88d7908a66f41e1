package bot

import (
	"context"
	"fmt"
	"sync"

	"supportbot/core/telegram/keyboard"
	"supportbot/support/engine"

	tele "gopkg.in/telebot.v4"
)

// Messenger implements engine.Messenger over a telebot client.
// The bot handle is bound after the runtime starts; sends before that fail.
type Messenger struct {
	mu  sync.RWMutex
	bot *tele.Bot
}

// NewMessenger returns an unbound Messenger.
func NewMessenger() *Messenger {
	return &Messenger{}
}

// Bind attaches the running bot client.
func (m *Messenger) Bind(bot *tele.Bot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bot = bot
}

func (m *Messenger) client() (*tele.Bot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.bot == nil {
		return nil, fmt.Errorf("messenger: bot is not bound")
	}
	return m.bot, nil
}

// SendText delivers a plain text message.
func (m *Messenger) SendText(_ context.Context, target int64, text string) error {
	bot, err := m.client()
	if err != nil {
		return err
	}
	_, err = bot.Send(tele.ChatID(target), text)
	return err
}

// SendPhoto delivers a single photo by its file reference.
func (m *Messenger) SendPhoto(_ context.Context, target int64, photoRef string) error {
	bot, err := m.client()
	if err != nil {
		return err
	}
	_, err = bot.Send(tele.ChatID(target), &tele.Photo{File: tele.File{FileID: photoRef}})
	return err
}

// SendTextWithActions delivers text with an inline keyboard and returns
// the sent message as an editable handle.
func (m *Messenger) SendTextWithActions(_ context.Context, target int64, text string, actions [][]engine.Action) (engine.MessageRef, error) {
	bot, err := m.client()
	if err != nil {
		return nil, err
	}
	msg, err := bot.Send(tele.ChatID(target), text, actionsMarkup(actions))
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// EditMessageText replaces the text (and keyboard) of a previously sent message.
func (m *Messenger) EditMessageText(_ context.Context, ref engine.MessageRef, text string, actions [][]engine.Action) error {
	bot, err := m.client()
	if err != nil {
		return err
	}
	editable, ok := ref.(tele.Editable)
	if !ok {
		return fmt.Errorf("messenger: ref %T is not editable", ref)
	}
	if markup := actionsMarkup(actions); markup != nil {
		_, err = bot.Edit(editable, text, markup)
	} else {
		_, err = bot.Edit(editable, text)
	}
	return err
}

// SendPhotoBatch delivers photos as a single album.
func (m *Messenger) SendPhotoBatch(_ context.Context, target int64, photos []engine.Photo) error {
	if len(photos) == 0 {
		return nil
	}
	bot, err := m.client()
	if err != nil {
		return err
	}
	album := make(tele.Album, 0, len(photos))
	for _, p := range photos {
		album = append(album, &tele.Photo{
			File:    tele.File{FileID: p.Ref},
			Caption: p.Caption,
		})
	}
	_, err = bot.SendAlbum(tele.ChatID(target), album)
	return err
}

func actionsMarkup(actions [][]engine.Action) *tele.ReplyMarkup {
	if len(actions) == 0 {
		return nil
	}
	rows := make([][]keyboard.InlineBtn, 0, len(actions))
	for _, row := range actions {
		btns := make([]keyboard.InlineBtn, 0, len(row))
		for _, a := range row {
			btns = append(btns, keyboard.InlineBtn{Text: a.Label, Unique: a.ID, Data: a.Data})
		}
		rows = append(rows, btns)
	}
	return keyboard.InlineButtonsRows(rows...)
}
