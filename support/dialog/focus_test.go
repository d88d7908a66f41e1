package dialog

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFocusRegisterEmptyByDefault(t *testing.T) {
	f := NewFocusRegister()
	_, ok := f.Current()
	assert.False(t, ok)
}

func TestFocusRegisterOverwrite(t *testing.T) {
	f := NewFocusRegister()

	f.Set(42)
	id, ok := f.Current()
	require.True(t, ok)
	assert.Equal(t, int64(42), id)

	f.Set(7)
	id, ok = f.Current()
	require.True(t, ok)
	assert.Equal(t, int64(7), id)
}

func TestFocusRegisterConcurrentAccess(t *testing.T) {
	f := NewFocusRegister()
	ids := []int64{1, 2, 3, 4, 5}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			f.Set(id)
			_, _ = f.Current()
		}(id)
	}
	wg.Wait()

	id, ok := f.Current()
	require.True(t, ok)
	assert.Contains(t, ids, id)
}
