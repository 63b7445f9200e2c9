package syncer

import (
	"context"
	"time"

	"github.com/isometry/ldap-sync/internal/ldap"
)

// EntrySource yields the complete remote entry set for one pass. The
// directory client's paged search satisfies this through a small adapter.
type EntrySource interface {
	Entries(ctx context.Context) ([]ldap.Entry, error)
}

// EntrySourceFunc adapts a function to an EntrySource.
type EntrySourceFunc func(ctx context.Context) ([]ldap.Entry, error)

func (f EntrySourceFunc) Entries(ctx context.Context) ([]ldap.Entry, error) {
	return f(ctx)
}

// StaticEntries returns an EntrySource over a fixed entry slice.
func StaticEntries(entries []ldap.Entry) EntrySource {
	return EntrySourceFunc(func(context.Context) ([]ldap.Entry, error) {
		return entries, nil
	})
}

// Store is the local-store surface the synchronizer reads and writes
// through. T is the record struct; all operations deal in pointers so
// updates mutate in place.
//
// Write failures are not caught by the synchronizer: they propagate and
// abort the remaining pass.
type Store[T any] interface {
	// GetAll returns every record of the entity type, in no particular order.
	GetAll(ctx context.Context) ([]*T, error)

	// Update persists changes to a single existing record.
	Update(ctx context.Context, rec *T) error

	// BulkCreate persists a batch of new records in one store operation.
	// Assigned identities are not reliably reflected back into recs.
	BulkCreate(ctx context.Context, recs []*T) error

	// FilterByFieldIn returns records whose tagged field is in values.
	FilterByFieldIn(ctx context.Context, field string, values []string) ([]*T, error)

	// BulkUpdateFlag sets a boolean field on all identified records.
	BulkUpdateFlag(ctx context.Context, ids []int64, field string, value bool) error

	// BulkDelete removes all identified records.
	BulkDelete(ctx context.Context, ids []int64) error
}

// SyncRecord is the durable link between a local record's polymorphic
// identity and the distinguished name that produced it.
type SyncRecord struct {
	EntityType        string
	EntityID          int64
	DistinguishedName string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SyncRecordStore persists cross-references. Uniqueness on
// (distinguishedName, entityType, entityID) is enforced by the store.
type SyncRecordStore interface {
	// Find returns the sync record for an identity, or (nil, nil) when none
	// exists.
	Find(ctx context.Context, entityType string, entityID int64) (*SyncRecord, error)

	// Upsert creates or rewrites the sync record for an identity. Any write
	// to an existing record advances UpdatedAt, even when the distinguished
	// name is unchanged.
	Upsert(ctx context.Context, entityType string, entityID int64, dn string) error

	// FindByDN resolves a distinguished name to at most one identity.
	// Returns (nil, nil) when none exists and MultipleResultsError when the
	// lookup is ambiguous.
	FindByDN(ctx context.Context, entityType, dn string) (*SyncRecord, error)

	// FindByDNs returns the sync records matching any of the given
	// distinguished names.
	FindByDNs(ctx context.Context, entityType string, dns []string) ([]SyncRecord, error)
}

// MembershipStore replaces a group's member set wholesale.
type MembershipStore interface {
	ReplaceMembers(ctx context.Context, groupID int64, memberIDs []int64) error
}
