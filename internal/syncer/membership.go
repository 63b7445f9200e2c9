package syncer

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/isometry/ldap-sync/internal/ldap"
)

// DefaultMemberAttribute is the directory attribute carrying group members.
const DefaultMemberAttribute = "member"

// DefaultMemberFilterTemplate matches groups containing a member DN.
const DefaultMemberFilterTemplate = "(member=%s)"

// MembershipConfig assembles a group-membership pass. It runs after user and
// group synchronization and relies entirely on the cross-references those
// passes recorded.
type MembershipConfig struct {
	// Entries supplies group entries carrying the member attribute. Required.
	Entries EntrySource

	// SyncRecords resolves distinguished names to local identities. Required.
	SyncRecords SyncRecordStore

	// Memberships replaces each group's member set. Required.
	Memberships MembershipStore

	// GroupEntityType and UserEntityType name the cross-referenced entities.
	// Default "group" and "user".
	GroupEntityType string
	UserEntityType  string

	// MemberAttribute is the attribute carrying member DNs. Default
	// DefaultMemberAttribute.
	MemberAttribute string

	// ChunkSize bounds DN lookup batches. Defaults to DefaultChunkSize.
	ChunkSize int

	// Logger receives run progress. Defaults to the standard logger.
	Logger *logrus.Logger
}

// MembershipResult reports the outcome of one membership pass.
type MembershipResult struct {
	RunID          string
	GroupsSynced   int // groups whose member set was replaced
	GroupsSkipped  int // groups without a sync record or member data
	MembersLinked  int // memberships written across all groups
	MembersUnknown int // member DNs with no user sync record
}

// MembershipSynchronizer reconciles directory group membership into local
// membership rows.
type MembershipSynchronizer struct {
	cfg MembershipConfig
	log *logrus.Logger
}

// NewMembership validates the configuration and returns a
// MembershipSynchronizer.
func NewMembership(cfg MembershipConfig) (*MembershipSynchronizer, error) {
	if cfg.Entries == nil {
		return nil, &ConfigError{Setting: "entries", Reason: "an entry source is required"}
	}
	if cfg.SyncRecords == nil {
		return nil, &ConfigError{Setting: "sync_records", Reason: "a sync record store is required"}
	}
	if cfg.Memberships == nil {
		return nil, &ConfigError{Setting: "memberships", Reason: "a membership store is required"}
	}
	if cfg.GroupEntityType == "" {
		cfg.GroupEntityType = "group"
	}
	if cfg.UserEntityType == "" {
		cfg.UserEntityType = "user"
	}
	if cfg.MemberAttribute == "" {
		cfg.MemberAttribute = DefaultMemberAttribute
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MembershipSynchronizer{cfg: cfg, log: log}, nil
}

// Sync replaces each synchronized group's member set with the local users
// matching the group's member DNs. Groups the previous passes never linked
// are skipped; ambiguous DN lookups abort the pass.
func (m *MembershipSynchronizer) Sync(ctx context.Context) (*MembershipResult, error) {
	result := &MembershipResult{RunID: runID()}
	log := m.log.WithFields(logrus.Fields{
		"run_id": result.RunID,
		"entity": "membership",
	})

	entries, err := m.cfg.Entries.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieving group entries: %w", err)
	}

	for i := range entries {
		entry := &entries[i]
		if entry.Kind != ldap.KindSearchEntry {
			continue
		}

		group, err := m.cfg.SyncRecords.FindByDN(ctx, m.cfg.GroupEntityType, entry.DN)
		if err != nil {
			return nil, fmt.Errorf("resolving group %q: %w", entry.DN, err)
		}
		if group == nil {
			log.WithField("dn", entry.DN).Info("skipping group without a sync record")
			result.GroupsSkipped++
			continue
		}

		members, ok := entry.Attributes[m.cfg.MemberAttribute]
		if !ok {
			log.WithField("dn", entry.DN).Info("skipping group without membership data")
			result.GroupsSkipped++
			continue
		}

		memberIDs, err := m.resolveMembers(ctx, members)
		if err != nil {
			return nil, fmt.Errorf("resolving members of %q: %w", entry.DN, err)
		}
		if unknown := len(members) - len(memberIDs); unknown > 0 {
			log.WithFields(logrus.Fields{
				"dn":      entry.DN,
				"unknown": unknown,
			}).Debug("some member DNs have no local user")
			result.MembersUnknown += unknown
		}

		if err := m.cfg.Memberships.ReplaceMembers(ctx, group.EntityID, memberIDs); err != nil {
			return nil, fmt.Errorf("replacing members of %q: %w", entry.DN, err)
		}
		result.GroupsSynced++
		result.MembersLinked += len(memberIDs)
	}

	log.WithFields(logrus.Fields{
		"groups_synced":   result.GroupsSynced,
		"groups_skipped":  result.GroupsSkipped,
		"members_linked":  result.MembersLinked,
		"members_unknown": result.MembersUnknown,
	}).Info("membership pass complete")

	return result, nil
}

// resolveMembers translates member DNs into local user identities through
// the sync record store, in chunks.
func (m *MembershipSynchronizer) resolveMembers(ctx context.Context, memberDNs []string) ([]int64, error) {
	var ids []int64
	for _, chunk := range chunks(memberDNs, m.cfg.ChunkSize) {
		records, err := m.cfg.SyncRecords.FindByDNs(ctx, m.cfg.UserEntityType, chunk)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			ids = append(ids, rec.EntityID)
		}
	}
	return ids, nil
}

// MemberFilter expands a membership filter template with a filter-escaped
// member DN, e.g. MemberFilter("(member=%s)", dn).
func MemberFilter(template, memberDN string) string {
	if template == "" {
		template = DefaultMemberFilterTemplate
	}
	return fmt.Sprintf(template, ldap.EscapeFilterValue(memberDN))
}
