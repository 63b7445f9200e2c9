package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/ldap-sync/internal/syncer"
)

// The synchronizer addresses columns through sync tags; the models must
// expose the fields the default configuration relies on.
func TestModelSyncTags(t *testing.T) {
	for _, field := range []string{"username", "first_name", "last_name", "email", "is_active"} {
		assert.True(t, syncer.HasField[User](field), "User must expose %q", field)
	}
	assert.True(t, syncer.HasField[Group]("name"))
	assert.True(t, syncer.HasField[Group]("description"))
	assert.False(t, syncer.HasField[Group]("is_active"),
		"groups have no active flag, so SUSPEND must degrade for them")

	assert.Equal(t, int64(7), syncer.RecordID(&User{ID: 7}))
	assert.Equal(t, int64(9), syncer.RecordID(&Group{ID: 9}))
}

func TestEntityStoreRejectsUnknownFields(t *testing.T) {
	ctx := context.Background()
	s := NewEntityStore[User](nil)

	_, err := s.FilterByFieldIn(ctx, "username; DROP TABLE users", []string{"x"})
	require.Error(t, err)

	err = s.BulkUpdateFlag(ctx, []int64{1}, "no_such_field", false)
	require.Error(t, err)
}

func TestEntityStoreShortCircuitsEmptyBatches(t *testing.T) {
	ctx := context.Background()
	s := NewEntityStore[User](nil)

	// None of these may touch the database handle.
	require.NoError(t, s.BulkCreate(ctx, nil))
	require.NoError(t, s.BulkDelete(ctx, nil))
	require.NoError(t, s.BulkUpdateFlag(ctx, nil, "is_active", false))

	recs, err := s.FilterByFieldIn(ctx, "username", nil)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestDSN(t *testing.T) {
	cfg := &DBConfig{Host: "db.example.org", Port: 3306, User: "sync", Password: "s3cret", Name: "directory"}
	assert.Equal(t, "sync:s3cret@tcp(db.example.org:3306)/directory?parseTime=true&charset=utf8mb4", cfg.DSN())
}
