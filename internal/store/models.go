package store

import "time"

// User is a directory-managed local account. Fields tagged `sync` are
// visible to the synchronizer; the tag value doubles as the column name.
type User struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:150;uniqueIndex;not null" sync:"username" json:"username"`
	FirstName string    `gorm:"size:150" sync:"first_name" json:"first_name"`
	LastName  string    `gorm:"size:150" sync:"last_name" json:"last_name"`
	Email     string    `gorm:"size:254" sync:"email" json:"email"`
	IsActive  bool      `gorm:"not null;default:true" sync:"is_active" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Group is a directory-managed local group. Deliberately has no active
// flag: a SUSPEND removal action on groups degrades to NOTHING.
type Group struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:150;uniqueIndex;not null" sync:"name" json:"name"`
	Description string    `gorm:"type:text" sync:"description" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// GroupMember links a user into a group. Membership rows are replaced
// wholesale by the membership pass.
type GroupMember struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	GroupID   int64     `gorm:"not null;uniqueIndex:idx_group_member" json:"group_id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_group_member" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// SyncRecord links a local record's polymorphic identity to the
// distinguished name that produced it. There is no practical upper bound on
// DN length, but the composite uniqueness constraint needs an indexable
// column.
type SyncRecord struct {
	ID                int64     `gorm:"primaryKey" json:"id"`
	EntityType        string    `gorm:"size:64;not null;uniqueIndex:idx_sync_identity,priority:1" json:"entity_type"`
	EntityID          int64     `gorm:"not null;uniqueIndex:idx_sync_identity,priority:2" json:"entity_id"`
	DistinguishedName string    `gorm:"size:512;not null;uniqueIndex:idx_sync_identity,priority:3" json:"distinguished_name"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
