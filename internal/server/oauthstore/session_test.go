package oauthstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tumbsky/tumbsky/internal/common"
)

func TestSQLSessionStore_OverwriteAndStamp(t *testing.T) {
	repo := newFakeSessionRepo()
	s := NewSQLSessionStore(repo, testSealer(t))
	ctx := context.Background()

	t1 := time.UnixMilli(1000)
	s.now = func() time.Time { return t1 }
	require.NoError(t, s.Set(ctx, "did:plc:a", []byte("v1")))

	t2 := time.UnixMilli(2000)
	s.now = func() time.Time { return t2 }
	require.NoError(t, s.Set(ctx, "did:plc:a", []byte("v2")))

	require.Len(t, repo.rows, 1)
	assert.Equal(t, t2, repo.rows["did:plc:a"].UpdatedAt)
	assert.NotContains(t, repo.rows["did:plc:a"].Session, "v2")

	got, err := s.Get(ctx, "did:plc:a")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
}

func TestSQLSessionStore_MissingAndDelete(t *testing.T) {
	repo := newFakeSessionRepo()
	s := NewSQLSessionStore(repo, nil)
	ctx := context.Background()

	_, err := s.Get(ctx, "did:plc:none")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, s.Set(ctx, "did:plc:a", []byte("v")))
	require.NoError(t, s.Set(ctx, "did:plc:b", []byte("v")))
	require.NoError(t, s.Delete(ctx, "did:plc:a"))
	_, err = s.Get(ctx, "did:plc:a")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, s.Clear(ctx))
	assert.Empty(t, repo.rows)
}

func TestSQLSessionStore_Unsealable(t *testing.T) {
	repo := newFakeSessionRepo()
	require.NoError(t, NewSQLSessionStore(repo, nil).Set(context.Background(), "did:plc:a", []byte("plain")))

	_, err := NewSQLSessionStore(repo, testSealer(t)).Get(context.Background(), "did:plc:a")
	assert.ErrorIs(t, err, common.ErrCorruptRecord)
}
