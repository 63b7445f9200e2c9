package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/isometry/ldap-sync/internal/ldap"
)

// DefaultSuspendField is the tagged field SUSPEND clears unless the rule
// configures another.
const DefaultSuspendField = "is_active"

// Config assembles one synchronization pass. New validates it completely, so
// a constructed Synchronizer cannot fail on missing configuration mid-run.
type Config[T any] struct {
	// Entries supplies the remote entry set. Required.
	Entries EntrySource

	// Records optionally supplies the local record set keyed by unique
	// field value. When nil, every record of the entity type is loaded from
	// the store at the start of the pass.
	Records map[string]*T

	// Store is the local store surface for the entity type. Required.
	Store Store[T]

	// SyncRecords persists the cross-reference between local identities and
	// distinguished names. Required.
	SyncRecords SyncRecordStore

	// EntityType names the local entity, e.g. "user". Required.
	EntityType string

	// AttributeMap is the remote-attribute to local-field correspondence.
	// Required; must map some attribute onto UniqueField.
	AttributeMap AttributeMap

	// UniqueField is the local field whose value matches remote entries to
	// local records. Required.
	UniqueField string

	// Exempt lists unique-field values never created, updated or removed.
	Exempt []string

	// ExemptFunc optionally extends Exempt at run time.
	ExemptFunc func(ctx context.Context) ([]string, error)

	// Removal is the policy applied to orphaned records. Ignored when
	// RemovalFunc is set.
	Removal RemovalAction

	// RemovalFunc, when set, receives the orphaned record set instead of a
	// built-in policy.
	RemovalFunc func(ctx context.Context, orphans []*T) error

	// SuspendField is the boolean field RemovalSuspend clears. Defaults to
	// DefaultSuspendField.
	SuspendField string

	// ChunkSize bounds bulk store operations. Defaults to DefaultChunkSize.
	ChunkSize int

	// FailOnEmpty aborts the pass when the directory returns no entries,
	// protecting the local set from a misconfigured search.
	FailOnEmpty bool

	// NewRecordHook runs on each staged record before bulk create, e.g. to
	// mark passwords unusable on directory-managed accounts.
	NewRecordHook func(rec *T)

	// Logger receives run progress. Defaults to the standard logger.
	Logger *logrus.Logger
}

// Result reports the outcome of one pass.
type Result struct {
	RunID     string
	Processed int // remote entries mapped and matched
	Created   int // records staged and bulk-created
	Updated   int // existing records whose fields changed
	Skipped   int // entries dropped for missing required attributes
	Orphaned  int // local records with no matching entry (exempt excluded)
	Removed   int // orphans acted on by the removal policy
}

// Synchronizer reconciles one entity type against the directory.
type Synchronizer[T any] struct {
	cfg     Config[T]
	removal RemovalKind
	log     *logrus.Logger
}

// New validates the configuration and returns a Synchronizer.
func New[T any](cfg Config[T]) (*Synchronizer[T], error) {
	if cfg.Entries == nil {
		return nil, &ConfigError{Setting: "entries", Reason: "an entry source is required"}
	}
	if cfg.Store == nil {
		return nil, &ConfigError{Setting: "store", Reason: "a local store is required"}
	}
	if cfg.SyncRecords == nil {
		return nil, &ConfigError{Setting: "sync_records", Reason: "a sync record store is required"}
	}
	if cfg.EntityType == "" {
		return nil, &ConfigError{Setting: "entity_type", Reason: "an entity type is required"}
	}
	if len(cfg.AttributeMap) == 0 {
		return nil, &ConfigError{Setting: "attribute_map", Reason: "an attribute map is required"}
	}
	if cfg.UniqueField == "" {
		return nil, &ConfigError{Setting: "unique_field", Reason: "a unique field is required"}
	}
	if !cfg.AttributeMap.HasLocalField(cfg.UniqueField) {
		return nil, &ConfigError{Setting: "unique_field", Reason: fmt.Sprintf("attribute map does not populate %q", cfg.UniqueField)}
	}
	if !HasField[T](cfg.UniqueField) {
		return nil, &ConfigError{Setting: "unique_field", Reason: fmt.Sprintf("record type has no %q field", cfg.UniqueField)}
	}
	if cfg.ChunkSize < 0 {
		return nil, &ConfigError{Setting: "chunk_size", Reason: "must not be negative"}
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.SuspendField == "" {
		cfg.SuspendField = DefaultSuspendField
	}

	removal := cfg.Removal.Kind()
	if cfg.RemovalFunc != nil {
		removal = RemovalCustom
	}

	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Synchronizer[T]{cfg: cfg, removal: removal, log: log}, nil
}

// Sync performs one reconciliation pass. Recoverable per-entry failures are
// logged and counted; any store failure aborts the remaining pass without
// rolling back earlier writes.
func (s *Synchronizer[T]) Sync(ctx context.Context) (*Result, error) {
	result := &Result{RunID: runID()}
	log := s.log.WithFields(logrus.Fields{
		"run_id": result.RunID,
		"entity": s.cfg.EntityType,
	})

	exempt, err := s.exemptSet(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.cfg.Entries.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieving directory entries: %w", err)
	}
	log.WithField("entries", len(entries)).Debug("retrieved directory entries")

	if s.cfg.FailOnEmpty && countSearchEntries(entries) == 0 {
		return nil, &SyncError{Reason: "the directory search returned no entries"}
	}

	local, err := s.localRecords(ctx)
	if err != nil {
		return nil, err
	}
	log.WithField("records", len(local)).Debug("loaded local records")

	// Pass state: unique name -> DN, and records staged for creation.
	// Discarded when the pass ends.
	dnByName := make(map[string]string)
	var staged []*T

	for i := range entries {
		entry := &entries[i]
		if entry.Kind != ldap.KindSearchEntry {
			continue
		}

		vm, err := GenerateValueMap(s.cfg.AttributeMap, entry.Attributes)
		if err != nil {
			var missing *MissingFieldError
			if errors.As(err, &missing) {
				log.WithFields(logrus.Fields{
					"dn":        entry.DN,
					"attribute": missing.Attribute,
				}).Error("entry is missing a required attribute, skipping")
				result.Skipped++
				continue
			}
			return nil, err
		}

		uniqueName := vm[s.cfg.UniqueField].String()
		if uniqueName == "" {
			log.WithField("dn", entry.DN).Warn("entry has an empty unique field value, skipping")
			result.Skipped++
			continue
		}

		// Recorded unconditionally, exempt names included: membership
		// lookups must still resolve them.
		dnByName[uniqueName] = entry.DN
		result.Processed++

		rec, ok := local[uniqueName]
		if !ok {
			if exempt[uniqueName] {
				continue
			}
			newRec, err := NewRecord[T](vm)
			if err != nil {
				return nil, err
			}
			if s.cfg.NewRecordHook != nil {
				s.cfg.NewRecordHook(newRec)
			}
			staged = append(staged, newRec)
			continue
		}

		delete(local, uniqueName) // seen
		if exempt[uniqueName] {
			continue
		}

		changed, err := RecordChanged(rec, vm)
		if err != nil {
			return nil, err
		}
		if changed {
			if err := ApplyValueMap(rec, vm); err != nil {
				return nil, err
			}
			if err := s.cfg.Store.Update(ctx, rec); err != nil {
				return nil, fmt.Errorf("updating %s %q: %w", s.cfg.EntityType, uniqueName, err)
			}
			result.Updated++
		}

		if err := s.refreshSyncRecord(ctx, rec, entry.DN); err != nil {
			return nil, err
		}
	}

	if err := s.createStaged(ctx, staged, dnByName, log); err != nil {
		return nil, err
	}
	result.Created = len(staged)

	orphans := make([]*T, 0, len(local))
	for name, rec := range local {
		if exempt[name] {
			continue
		}
		orphans = append(orphans, rec)
	}
	result.Orphaned = len(orphans)

	removed, err := s.applyRemoval(ctx, orphans, log)
	if err != nil {
		return nil, err
	}
	result.Removed = removed

	log.WithFields(logrus.Fields{
		"processed": result.Processed,
		"created":   result.Created,
		"updated":   result.Updated,
		"skipped":   result.Skipped,
		"orphaned":  result.Orphaned,
		"removed":   result.Removed,
	}).Info("synchronization pass complete")

	return result, nil
}

// exemptSet resolves the static and callable exemption lists into one set.
func (s *Synchronizer[T]) exemptSet(ctx context.Context) (map[string]bool, error) {
	exempt := make(map[string]bool, len(s.cfg.Exempt))
	for _, name := range s.cfg.Exempt {
		exempt[name] = true
	}
	if s.cfg.ExemptFunc != nil {
		names, err := s.cfg.ExemptFunc(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolving exemption list: %w", err)
		}
		for _, name := range names {
			exempt[name] = true
		}
	}
	return exempt, nil
}

// localRecords returns the configured record set, or loads every record of
// the entity type keyed by unique field value.
func (s *Synchronizer[T]) localRecords(ctx context.Context) (map[string]*T, error) {
	if s.cfg.Records != nil {
		// Copy: the walk consumes the map.
		local := make(map[string]*T, len(s.cfg.Records))
		for name, rec := range s.cfg.Records {
			local[name] = rec
		}
		return local, nil
	}

	recs, err := s.cfg.Store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading local %s records: %w", s.cfg.EntityType, err)
	}
	local := make(map[string]*T, len(recs))
	for _, rec := range recs {
		name, err := FieldString(rec, s.cfg.UniqueField)
		if err != nil {
			return nil, err
		}
		local[name] = rec
	}
	return local, nil
}

// refreshSyncRecord creates the cross-reference for an identity, or rewrites
// it when the directory entry moved to a new distinguished name.
func (s *Synchronizer[T]) refreshSyncRecord(ctx context.Context, rec *T, dn string) error {
	id := RecordID(rec)
	if id == 0 {
		return nil
	}
	existing, err := s.cfg.SyncRecords.Find(ctx, s.cfg.EntityType, id)
	if err != nil {
		return fmt.Errorf("looking up sync record for %s %d: %w", s.cfg.EntityType, id, err)
	}
	if existing != nil && existing.DistinguishedName == dn {
		return nil
	}
	if err := s.cfg.SyncRecords.Upsert(ctx, s.cfg.EntityType, id, dn); err != nil {
		return fmt.Errorf("writing sync record for %s %d: %w", s.cfg.EntityType, id, err)
	}
	return nil
}

// createStaged persists staged records in chunks, re-fetches their assigned
// identities, and links each to the distinguished name captured during the
// walk. Bulk create does not reliably return assigned identities, hence the
// re-fetch keyed on the unique field.
func (s *Synchronizer[T]) createStaged(ctx context.Context, staged []*T, dnByName map[string]string, log *logrus.Entry) error {
	if len(staged) == 0 {
		return nil
	}

	log.WithField("count", len(staged)).Debug("bulk creating staged records")
	if err := chunkedCreate(ctx, s.cfg.Store, staged, s.cfg.ChunkSize); err != nil {
		return fmt.Errorf("bulk creating %s records: %w", s.cfg.EntityType, err)
	}

	names := make([]string, 0, len(staged))
	for _, rec := range staged {
		name, err := FieldString(rec, s.cfg.UniqueField)
		if err != nil {
			return err
		}
		names = append(names, name)
	}

	fetched, err := chunkedLookup(ctx, s.cfg.Store, s.cfg.UniqueField, names, s.cfg.ChunkSize)
	if err != nil {
		return fmt.Errorf("re-fetching created %s records: %w", s.cfg.EntityType, err)
	}
	if len(fetched) < len(staged) {
		// Another writer may have raced us. Proceed with the partial
		// cross-reference set; the next pass repairs the remainder.
		log.WithFields(logrus.Fields{
			"created": len(staged),
			"fetched": len(fetched),
		}).Warn("re-fetch returned fewer records than were created")
	}

	for _, rec := range fetched {
		name, err := FieldString(rec, s.cfg.UniqueField)
		if err != nil {
			return err
		}
		dn, ok := dnByName[name]
		if !ok {
			continue
		}
		id := RecordID(rec)
		if id == 0 {
			continue
		}
		if err := s.cfg.SyncRecords.Upsert(ctx, s.cfg.EntityType, id, dn); err != nil {
			return fmt.Errorf("writing sync record for %s %d: %w", s.cfg.EntityType, id, err)
		}
	}
	return nil
}

// applyRemoval acts on orphaned records per the configured policy and
// returns how many records it affected.
func (s *Synchronizer[T]) applyRemoval(ctx context.Context, orphans []*T, log *logrus.Entry) (int, error) {
	if len(orphans) == 0 {
		return 0, nil
	}

	switch s.removal {
	case RemovalCustom:
		if err := s.cfg.RemovalFunc(ctx, orphans); err != nil {
			return 0, fmt.Errorf("custom removal handler: %w", err)
		}
		return len(orphans), nil

	case RemovalSuspend:
		if !HasField[T](s.cfg.SuspendField) {
			log.WithFields(logrus.Fields{
				"count": len(orphans),
				"field": s.cfg.SuspendField,
			}).Warn("removal action is SUSPEND but the entity type has no active flag, leaving orphans untouched")
			return 0, nil
		}
		ids := recordIDs(orphans)
		if err := s.cfg.Store.BulkUpdateFlag(ctx, ids, s.cfg.SuspendField, false); err != nil {
			return 0, fmt.Errorf("suspending orphaned %s records: %w", s.cfg.EntityType, err)
		}
		log.WithField("count", len(ids)).Info("suspended orphaned records")
		return len(ids), nil

	case RemovalDelete:
		ids := recordIDs(orphans)
		if err := s.cfg.Store.BulkDelete(ctx, ids); err != nil {
			return 0, fmt.Errorf("deleting orphaned %s records: %w", s.cfg.EntityType, err)
		}
		log.WithField("count", len(ids)).Info("deleted orphaned records")
		return len(ids), nil

	default:
		log.WithField("count", len(orphans)).Info("removal action is NOTHING, ignoring orphaned records")
		return 0, nil
	}
}

func recordIDs[T any](recs []*T) []int64 {
	ids := make([]int64, 0, len(recs))
	for _, rec := range recs {
		if id := RecordID(rec); id != 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

func countSearchEntries(entries []ldap.Entry) int {
	n := 0
	for i := range entries {
		if entries[i].Kind == ldap.KindSearchEntry {
			n++
		}
	}
	return n
}

// runID generates the short identifier that tags every log record of a pass.
func runID() string {
	return uuid.NewString()[:8]
}
