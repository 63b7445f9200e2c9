package store

import (
	"context"

	"gorm.io/gorm"
)

// Memberships is the gorm-backed syncer.MembershipStore. Each group's member
// set is replaced in a single transaction, so readers never observe a
// half-written membership list.
type Memberships struct {
	db *gorm.DB
}

// NewMemberships wraps db in a membership store.
func NewMemberships(db *gorm.DB) *Memberships {
	return &Memberships{db: db}
}

func (m *Memberships) ReplaceMembers(ctx context.Context, groupID int64, memberIDs []int64) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&GroupMember{}).Error; err != nil {
			return err
		}
		if len(memberIDs) == 0 {
			return nil
		}
		rows := make([]GroupMember, 0, len(memberIDs))
		for _, id := range memberIDs {
			rows = append(rows, GroupMember{GroupID: groupID, UserID: id})
		}
		return tx.Create(&rows).Error
	})
}
