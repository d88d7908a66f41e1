package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"

	tele "gopkg.in/telebot.v4"
)

type stubContext struct {
	tele.Context
	sender *tele.User
}

func (s *stubContext) Sender() *tele.User { return s.sender }

func TestAdminOnlyMiddlewarePassesAdmin(t *testing.T) {
	called := false
	h := AdminOnlyMiddleware(AdminOptions{AdminID: 42})(func(tele.Context) error {
		called = true
		return nil
	})

	err := h(&stubContext{sender: &tele.User{ID: 42}})
	assert.NoError(t, err)
	assert.True(t, called)
}

func TestAdminOnlyMiddlewareDropsOthersSilently(t *testing.T) {
	called := false
	h := AdminOnlyMiddleware(AdminOptions{AdminID: 42})(func(tele.Context) error {
		called = true
		return nil
	})

	err := h(&stubContext{sender: &tele.User{ID: 7}})
	assert.NoError(t, err)
	assert.False(t, called, "non-admin must not reach the handler")
}

func TestAdminOnlyMiddlewareCustomReject(t *testing.T) {
	rejected := false
	h := AdminOnlyMiddleware(AdminOptions{
		AdminID:  42,
		OnReject: func(tele.Context) error { rejected = true; return nil },
	})(func(tele.Context) error { return nil })

	assert.NoError(t, h(&stubContext{sender: &tele.User{ID: 7}}))
	assert.True(t, rejected)
}
