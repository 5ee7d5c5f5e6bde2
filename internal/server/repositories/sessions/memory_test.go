package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/passgate/internal/common"
	"github.com/dmitrijs2005/passgate/internal/server/models"
)

func TestMemoryStore_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(time.Hour)

	s := &models.Session{}
	s.Set("/auth", "u-1")
	require.NoError(t, st.Save(ctx, s))
	require.Len(t, s.ID, idBytes*2)
	assert.False(t, s.ExpiresAt.IsZero())

	got, err := st.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.Values["/auth"])

	got.Values["/auth"] = "changed"
	again, err := st.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "u-1", again.Values["/auth"])

	require.NoError(t, st.Delete(ctx, s.ID))
	_, err = st.Get(ctx, s.ID)
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestMemoryStore_KeepsIDOnResave(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(time.Hour)

	s := &models.Session{}
	require.NoError(t, st.Save(ctx, s))
	id := s.ID

	s.Set("/auth", "u-2")
	require.NoError(t, st.Save(ctx, s))
	assert.Equal(t, id, s.ID)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	s := &models.Session{}
	require.NoError(t, st.Save(ctx, s))

	now = now.Add(2 * time.Minute)
	_, err := st.Get(ctx, s.ID)
	assert.True(t, errors.Is(err, common.ErrorNotFound))
	assert.NoError(t, st.Ping(ctx))
}
