package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBodyVariants(t *testing.T) {
	tests := []struct {
		name     string
		body     Body
		text     string
		photo    string
		empty    bool
		hasPhoto bool
	}{
		{name: "zero value", body: Body{}, empty: true},
		{name: "text only", body: TextBody("hello"), text: "hello"},
		{name: "photo only", body: PhotoBody("file-1"), photo: "file-1", hasPhoto: true},
		{name: "text and photo", body: TextAndPhoto("hi", "file-2"), text: "hi", photo: "file-2", hasPhoto: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.text, tt.body.Text())
			assert.Equal(t, tt.photo, tt.body.Photo())
			assert.Equal(t, tt.empty, tt.body.Empty())
			assert.Equal(t, tt.hasPhoto, tt.body.HasPhoto())
		})
	}
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusPending))
	assert.True(t, ValidStatus(StatusResolved))
	assert.False(t, ValidStatus(Status("archived")))
	assert.False(t, ValidStatus(Status("")))
}
