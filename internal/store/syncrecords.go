package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/isometry/ldap-sync/internal/syncer"
)

// SyncRecords is the gorm-backed syncer.SyncRecordStore.
type SyncRecords struct {
	db *gorm.DB
}

// NewSyncRecords wraps db in a sync record store.
func NewSyncRecords(db *gorm.DB) *SyncRecords {
	return &SyncRecords{db: db}
}

func (s *SyncRecords) Find(ctx context.Context, entityType string, entityID int64) (*syncer.SyncRecord, error) {
	var rec SyncRecord
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toSyncer(&rec), nil
}

// Upsert rewrites the distinguished name for an identity, advancing
// UpdatedAt even when the name is unchanged: the touch is what marks the
// record as seen in the current pass.
func (s *SyncRecords) Upsert(ctx context.Context, entityType string, entityID int64, dn string) error {
	var rec SyncRecord
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = SyncRecord{
			EntityType:        entityType,
			EntityID:          entityID,
			DistinguishedName: dn,
		}
		return s.db.WithContext(ctx).Create(&rec).Error
	}
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&rec).Updates(map[string]any{
		"distinguished_name": dn,
		"updated_at":         time.Now(),
	}).Error
}

func (s *SyncRecords) FindByDN(ctx context.Context, entityType, dn string) (*syncer.SyncRecord, error) {
	var recs []SyncRecord
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND distinguished_name = ?", entityType, dn).
		Limit(2).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	switch len(recs) {
	case 0:
		return nil, nil
	case 1:
		return toSyncer(&recs[0]), nil
	default:
		return nil, &syncer.MultipleResultsError{DistinguishedName: dn, Count: len(recs)}
	}
}

func (s *SyncRecords) FindByDNs(ctx context.Context, entityType string, dns []string) ([]syncer.SyncRecord, error) {
	if len(dns) == 0 {
		return nil, nil
	}
	var recs []SyncRecord
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND distinguished_name IN ?", entityType, dns).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	out := make([]syncer.SyncRecord, 0, len(recs))
	for i := range recs {
		out = append(out, *toSyncer(&recs[i]))
	}
	return out, nil
}

func toSyncer(rec *SyncRecord) *syncer.SyncRecord {
	return &syncer.SyncRecord{
		EntityType:        rec.EntityType,
		EntityID:          rec.EntityID,
		DistinguishedName: rec.DistinguishedName,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
}
