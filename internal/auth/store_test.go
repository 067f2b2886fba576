package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTokenStoreSetGetDel(t *testing.T) {
	st := NewMemoryTokenStore()
	ctx := context.Background()

	v, err := st.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, st.Set(ctx, "k", "v", time.Minute))
	v, err = st.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	require.NoError(t, st.Del(ctx, "k"))
	v, err = st.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestMemoryTokenStoreExpiry(t *testing.T) {
	st := NewMemoryTokenStore()
	ctx := context.Background()

	base := time.Now()
	st.now = func() time.Time { return base }
	require.NoError(t, st.Set(ctx, "k", "v", time.Minute))

	st.now = func() time.Time { return base.Add(59 * time.Second) }
	v, err := st.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	st.now = func() time.Time { return base.Add(61 * time.Second) }
	v, err = st.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestMemoryTokenStoreIncrWindow(t *testing.T) {
	st := NewMemoryTokenStore()
	ctx := context.Background()

	base := time.Now()
	st.now = func() time.Time { return base }

	for want := int64(1); want <= 3; want++ {
		n, err := st.Incr(ctx, "rate", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	// The window keeps its original expiry across increments.
	st.now = func() time.Time { return base.Add(59 * time.Minute) }
	n, err := st.Incr(ctx, "rate", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	// Once the window lapses the counter starts over.
	st.now = func() time.Time { return base.Add(2 * time.Hour) }
	n, err = st.Incr(ctx, "rate", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
