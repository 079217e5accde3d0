package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPing(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.Ping(context.Background()))
}

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	path := t.TempDir() + "/jobs.db"

	first, err := New(path)
	require.NoError(t, err)
	user := createTestUser(t, first, "persist@example.com")
	require.NoError(t, first.Close())

	second, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })

	got, err := second.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "persist@example.com", got.Email)
}

func TestMillisRoundTrip(t *testing.T) {
	in := time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.FixedZone("CEST", 2*60*60))

	out := fromMillis(toMillis(in))

	assert.Equal(t, time.UTC, out.Location())
	assert.True(t, out.Equal(in.Truncate(time.Millisecond)))
}
