package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ PreferenceStore = (*InMemoryPreferences)(nil)

func TestInMemoryPreferences_GetAndPut(t *testing.T) {
	s := NewInMemoryPreferences()
	ctx := context.Background()

	prefs, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, prefs)

	require.NoError(t, s.Put(ctx, "sess-1", map[string]string{"contact": "email"}))
	require.NoError(t, s.Put(ctx, "sess-1", map[string]string{"budget": "1500"}))

	prefs, err = s.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"contact": "email", "budget": "1500"}, prefs)
}

func TestInMemoryPreferences_CopyOnRead(t *testing.T) {
	s := NewInMemoryPreferences()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "sess-1", map[string]string{"contact": "email"}))
	prefs, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	prefs["contact"] = "phone"

	fresh, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "email", fresh["contact"])
}

func TestInMemoryPreferences_ConcurrentPuts(t *testing.T) {
	s := NewInMemoryPreferences()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Put(ctx, "sess-1", map[string]string{"contact": "email"}))
		}()
	}
	wg.Wait()

	prefs, err := s.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "email", prefs["contact"])
}
