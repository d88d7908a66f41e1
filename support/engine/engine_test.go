package engine

import (
	"context"
	"errors"
	"testing"

	"supportbot/support/dialog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const operatorID int64 = 9000

type memStore struct {
	entries   []dialog.Entry
	status    map[int64]dialog.Status
	nextID    int64
	appendErr error
}

func newMemStore() *memStore {
	return &memStore{status: make(map[int64]dialog.Status)}
}

func (m *memStore) Append(_ context.Context, e dialog.Entry) (int64, error) {
	if m.appendErr != nil {
		return 0, m.appendErr
	}
	m.nextID++
	e.ID = m.nextID
	m.entries = append(m.entries, e)
	return e.ID, nil
}

func (m *memStore) History(_ context.Context, userID int64) ([]dialog.Entry, error) {
	var out []dialog.Entry
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) SetStatus(_ context.Context, userID int64, s dialog.Status) error {
	m.status[userID] = s
	return nil
}

func (m *memStore) GetStatus(_ context.Context, userID int64) (dialog.Status, error) {
	if s, ok := m.status[userID]; ok {
		return s, nil
	}
	return dialog.StatusPending, nil
}

type sentText struct {
	target int64
	text   string
}

type sentActions struct {
	target  int64
	text    string
	actions [][]Action
}

type edit struct {
	ref     MessageRef
	text    string
	actions [][]Action
}

type batch struct {
	target int64
	photos []Photo
}

type fakeMessenger struct {
	texts   []sentText
	photos  []sentText
	menus   []sentActions
	edits   []edit
	batches []batch

	failActions error
	failTextTo  map[int64]error
}

func (f *fakeMessenger) SendText(_ context.Context, target int64, text string) error {
	if err := f.failTextTo[target]; err != nil {
		return err
	}
	f.texts = append(f.texts, sentText{target, text})
	return nil
}

func (f *fakeMessenger) SendPhoto(_ context.Context, target int64, ref string) error {
	f.photos = append(f.photos, sentText{target, ref})
	return nil
}

func (f *fakeMessenger) SendTextWithActions(_ context.Context, target int64, text string, actions [][]Action) (MessageRef, error) {
	if f.failActions != nil {
		return nil, f.failActions
	}
	f.menus = append(f.menus, sentActions{target, text, actions})
	return len(f.menus), nil
}

func (f *fakeMessenger) EditMessageText(_ context.Context, ref MessageRef, text string, actions [][]Action) error {
	f.edits = append(f.edits, edit{ref, text, actions})
	return nil
}

func (f *fakeMessenger) SendPhotoBatch(_ context.Context, target int64, photos []Photo) error {
	f.batches = append(f.batches, batch{target, photos})
	return nil
}

func newEngine() (*Engine, *memStore, *fakeMessenger, *dialog.FocusRegister) {
	store := newMemStore()
	msgr := &fakeMessenger{}
	focus := dialog.NewFocusRegister()
	return New(store, focus, msgr, operatorID), store, msgr, focus
}

func TestHandleUserMessageOrdering(t *testing.T) {
	e, store, _, _ := newEngine()
	ctx := context.Background()

	for _, text := range []string{"first", "second", "third"} {
		require.NoError(t, e.HandleUserMessage(ctx, 100, "alice", "Alice", dialog.TextBody(text)))
	}

	history, err := store.History(ctx, 100)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "first", history[0].Body.Text())
	assert.Equal(t, "second", history[1].Body.Text())
	assert.Equal(t, "third", history[2].Body.Text())
	assert.Less(t, history[0].ID, history[1].ID)
	assert.Less(t, history[1].ID, history[2].ID)
}

func TestHandleUserMessageNotifiesOperator(t *testing.T) {
	e, _, msgr, _ := newEngine()

	require.NoError(t, e.HandleUserMessage(context.Background(), 100, "alice", "Alice", dialog.TextBody("help me")))

	require.Len(t, msgr.menus, 1)
	assert.Equal(t, operatorID, msgr.menus[0].target)
	assert.Equal(t, "[User @alice | ID 100]:\nhelp me", msgr.menus[0].text)
	require.Len(t, msgr.menus[0].actions, 1)
	require.Len(t, msgr.menus[0].actions[0], 1)
	assert.Equal(t, ActionOpenDialog, msgr.menus[0].actions[0][0].ID)
	assert.Equal(t, "100", msgr.menus[0].actions[0][0].Data)

	require.Len(t, msgr.texts, 1)
	assert.Equal(t, int64(100), msgr.texts[0].target)
	assert.Equal(t, "Your message has been forwarded to support.", msgr.texts[0].text)
}

func TestHandleUserMessagePlaceholders(t *testing.T) {
	e, store, _, _ := newEngine()
	ctx := context.Background()

	require.NoError(t, e.HandleUserMessage(ctx, 100, "", "", dialog.TextBody("hi")))

	history, err := store.History(ctx, 100)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, dialog.NoUsername, history[0].Username)
	assert.Equal(t, dialog.NoName, history[0].FullName)
}

func TestHandleUserMessageEmptyBodyNoOp(t *testing.T) {
	e, store, msgr, _ := newEngine()

	require.NoError(t, e.HandleUserMessage(context.Background(), 100, "alice", "Alice", dialog.Body{}))

	assert.Empty(t, store.entries)
	assert.Empty(t, msgr.texts)
	assert.Empty(t, msgr.menus)
}

func TestHandleUserMessagePhotoForwardedSeparately(t *testing.T) {
	e, _, msgr, _ := newEngine()

	require.NoError(t, e.HandleUserMessage(context.Background(), 100, "alice", "Alice", dialog.TextAndPhoto("look", "file-1")))

	require.Len(t, msgr.menus, 1)
	require.Len(t, msgr.photos, 1)
	assert.Equal(t, operatorID, msgr.photos[0].target)
	assert.Equal(t, "file-1", msgr.photos[0].text)
}

func TestHandleUserMessagePersistsBeforeNotify(t *testing.T) {
	e, store, msgr, _ := newEngine()
	msgr.failActions = errors.New("telegram down")

	require.NoError(t, e.HandleUserMessage(context.Background(), 100, "alice", "Alice", dialog.TextBody("hi")))

	// Entry is durable even though the operator notification failed.
	require.Len(t, store.entries, 1)

	// The user gets a failure acknowledgment, not a success one.
	require.Len(t, msgr.texts, 1)
	assert.Equal(t, int64(100), msgr.texts[0].target)
	assert.Contains(t, msgr.texts[0].text, "Failed to deliver")
}

func TestHandleUserMessageStorageFailure(t *testing.T) {
	e, store, msgr, _ := newEngine()
	store.appendErr = errors.New("db gone")

	err := e.HandleUserMessage(context.Background(), 100, "alice", "Alice", dialog.TextBody("hi"))
	require.Error(t, err)

	// No outbound traffic on storage failure.
	assert.Empty(t, msgr.texts)
	assert.Empty(t, msgr.menus)
}

func TestOperatorReplyRoutedThroughFocus(t *testing.T) {
	e, store, msgr, _ := newEngine()
	ctx := context.Background()

	require.NoError(t, e.OpenDialog(ctx, nil, 100))
	require.NoError(t, e.HandleOperatorReply(ctx, dialog.TextBody("we are on it")))

	history, err := store.History(ctx, 100)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	last := history[len(history)-1]
	assert.Equal(t, dialog.RoleOperator, last.Role)
	assert.Equal(t, "we are on it", last.Body.Text())

	var forwarded bool
	for _, s := range msgr.texts {
		if s.target == 100 && s.text == "[Operator]:\nwe are on it" {
			forwarded = true
		}
	}
	assert.True(t, forwarded, "reply should be forwarded to the focused user")
}

func TestOperatorReplyNoFocusIsNoOp(t *testing.T) {
	e, store, msgr, _ := newEngine()

	require.NoError(t, e.HandleOperatorReply(context.Background(), dialog.TextBody("hello?")))

	assert.Empty(t, store.entries)
	assert.Empty(t, msgr.texts)
	assert.Empty(t, msgr.photos)
}

func TestOperatorReplyEmptyBodyValidation(t *testing.T) {
	e, store, msgr, focus := newEngine()
	focus.Set(100)

	require.NoError(t, e.HandleOperatorReply(context.Background(), dialog.Body{}))

	assert.Empty(t, store.entries)
	require.Len(t, msgr.texts, 1)
	assert.Equal(t, operatorID, msgr.texts[0].target)
	assert.Contains(t, msgr.texts[0].text, "empty")
}

func TestOperatorReplyDeliveryFailureAck(t *testing.T) {
	e, store, msgr, focus := newEngine()
	focus.Set(100)
	msgr.failTextTo = map[int64]error{100: errors.New("blocked")}

	require.NoError(t, e.HandleOperatorReply(context.Background(), dialog.TextBody("hi")))

	// Entry persisted, operator told about the failure.
	require.Len(t, store.entries, 1)
	require.Len(t, msgr.texts, 1)
	assert.Equal(t, operatorID, msgr.texts[0].target)
	assert.Contains(t, msgr.texts[0].text, "Failed to deliver")
}

func TestFocusPersistsAcrossReplies(t *testing.T) {
	e, store, _, _ := newEngine()
	ctx := context.Background()

	require.NoError(t, e.OpenDialog(ctx, nil, 100))
	require.NoError(t, e.HandleOperatorReply(ctx, dialog.TextBody("one")))
	require.NoError(t, e.HandleOperatorReply(ctx, dialog.TextBody("two")))

	history, err := store.History(ctx, 100)
	require.NoError(t, err)
	require.Len(t, history, 2)
}

func TestStatusDefaultsPendingWithEntries(t *testing.T) {
	e, store, _, _ := newEngine()
	ctx := context.Background()

	require.NoError(t, e.HandleUserMessage(ctx, 100, "alice", "Alice", dialog.TextBody("hi")))

	status, err := store.GetStatus(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, dialog.StatusPending, status)
}

func TestResolvedDoesNotAutoReopen(t *testing.T) {
	e, store, msgr, _ := newEngine()
	ctx := context.Background()

	require.NoError(t, e.SetStatus(ctx, nil, 100, dialog.StatusResolved))

	status, err := store.GetStatus(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, dialog.StatusResolved, status)

	// A new user message keeps the resolved status untouched.
	require.NoError(t, e.HandleUserMessage(ctx, 100, "alice", "Alice", dialog.TextBody("still broken")))

	status, err = store.GetStatus(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, dialog.StatusResolved, status)

	var notified bool
	for _, s := range msgr.texts {
		if s.target == 100 && s.text == "Your support dialog has been closed. Thank you for reaching out!" {
			notified = true
		}
	}
	assert.True(t, notified, "user should receive the resolution notice")
}

func TestSetStatusNoticeFailureSwallowed(t *testing.T) {
	e, _, msgr, _ := newEngine()
	msgr.failTextTo = map[int64]error{100: errors.New("blocked")}

	// Notice delivery fails but the status change still succeeds.
	require.NoError(t, e.SetStatus(context.Background(), nil, 100, dialog.StatusResolved))

	var confirmed bool
	for _, s := range msgr.texts {
		if s.target == operatorID {
			confirmed = true
		}
	}
	assert.True(t, confirmed, "operator should still get the confirmation")
}

func TestSetStatusEditsMenuWhenRefPresent(t *testing.T) {
	e, _, msgr, _ := newEngine()

	ref := MessageRef("menu-1")
	require.NoError(t, e.SetStatus(context.Background(), ref, 100, dialog.StatusResolved))

	require.Len(t, msgr.edits, 1)
	assert.Equal(t, ref, msgr.edits[0].ref)
	assert.Contains(t, msgr.edits[0].text, "updated to 'resolved'")
}

func TestOpenDialogRendersTranscriptWithActions(t *testing.T) {
	e, _, msgr, focus := newEngine()
	ctx := context.Background()

	require.NoError(t, e.HandleUserMessage(ctx, 100, "alice", "Alice", dialog.TextBody("hi")))
	require.NoError(t, e.HandleUserMessage(ctx, 100, "alice", "Alice", dialog.PhotoBody("file-1")))

	ref := MessageRef("menu-1")
	require.NoError(t, e.OpenDialog(ctx, ref, 100))

	id, ok := focus.Current()
	require.True(t, ok)
	assert.Equal(t, int64(100), id)

	require.Len(t, msgr.edits, 1)
	assert.Contains(t, msgr.edits[0].text, "Dialog with user ID 100")
	require.Len(t, msgr.edits[0].actions, 1)
	require.Len(t, msgr.edits[0].actions[0], 2)
	assert.Equal(t, ActionSetStatus, msgr.edits[0].actions[0][0].ID)
	assert.Equal(t, "resolved|100", msgr.edits[0].actions[0][0].Data)
	assert.Equal(t, ActionCancel, msgr.edits[0].actions[0][1].ID)

	require.Len(t, msgr.batches, 1)
	assert.Equal(t, []Photo{{Ref: "file-1", Caption: "[User] (photo)"}}, msgr.batches[0].photos)
}

func TestOpenDialogPlainReplyWithoutRef(t *testing.T) {
	e, _, msgr, _ := newEngine()
	ctx := context.Background()

	require.NoError(t, e.HandleUserMessage(ctx, 100, "alice", "Alice", dialog.TextBody("hi")))
	msgr.texts = nil

	require.NoError(t, e.OpenDialog(ctx, nil, 100))

	assert.Empty(t, msgr.edits)
	require.Len(t, msgr.texts, 1)
	assert.Equal(t, operatorID, msgr.texts[0].target)
	assert.Contains(t, msgr.texts[0].text, "Dialog with user ID 100")
}

func TestOpenDialogEmptyHistory(t *testing.T) {
	e, _, msgr, _ := newEngine()

	require.NoError(t, e.OpenDialog(context.Background(), nil, 100))

	require.Len(t, msgr.texts, 1)
	assert.Equal(t, "Dialog is empty.", msgr.texts[0].text)
	assert.Empty(t, msgr.batches)
}

func TestCancelEditsMenuOnly(t *testing.T) {
	e, store, msgr, _ := newEngine()

	ref := MessageRef("menu-1")
	require.NoError(t, e.Cancel(context.Background(), ref))

	require.Len(t, msgr.edits, 1)
	assert.Equal(t, "Back to menu.", msgr.edits[0].text)
	assert.Empty(t, msgr.edits[0].actions)
	assert.Empty(t, store.entries)
	assert.Empty(t, store.status)
}
