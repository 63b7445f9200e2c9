// Package runner wires configuration, the directory client and the
// relational store into runnable synchronization passes.
package runner

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/isometry/ldap-sync/internal/config"
	"github.com/isometry/ldap-sync/internal/ldap"
	"github.com/isometry/ldap-sync/internal/store"
	"github.com/isometry/ldap-sync/internal/syncer"
)

// Entity type names recorded in sync records.
const (
	EntityUser  = "user"
	EntityGroup = "group"
)

// Runner owns the database handle and builds a fresh directory connection
// per pass.
type Runner struct {
	cfg *config.Config
	db  *gorm.DB
	log *logrus.Logger
}

// New opens the database and ensures the schema is current.
func New(cfg *config.Config, log *logrus.Logger) (*Runner, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	db, err := store.Open(cfg.Database.DB())
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &Runner{cfg: cfg, db: db, log: log}, nil
}

// Close releases the database connection pool.
func (r *Runner) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SyncUsers runs the user pass. Returns (nil, nil) when the users section is
// disabled.
func (r *Runner) SyncUsers(ctx context.Context) (*syncer.Result, error) {
	if !r.cfg.Users.Enabled {
		r.log.Info("user synchronization is disabled")
		return nil, nil
	}
	var result *syncer.Result
	err := r.withClient(ctx, func(client *ldap.Client) error {
		s, err := newSynchronizer[store.User](r, client, &r.cfg.Users, EntityUser, newUserHook)
		if err != nil {
			return err
		}
		result, err = s.Sync(ctx)
		return err
	})
	return result, err
}

// SyncGroups runs the group pass. Returns (nil, nil) when the groups section
// is disabled.
func (r *Runner) SyncGroups(ctx context.Context) (*syncer.Result, error) {
	if !r.cfg.Groups.Enabled {
		r.log.Info("group synchronization is disabled")
		return nil, nil
	}
	var result *syncer.Result
	err := r.withClient(ctx, func(client *ldap.Client) error {
		s, err := newSynchronizer[store.Group](r, client, &r.cfg.Groups, EntityGroup, nil)
		if err != nil {
			return err
		}
		result, err = s.Sync(ctx)
		return err
	})
	return result, err
}

// SyncMembership runs the membership pass against the group rule's search,
// requesting only the member attribute. Returns (nil, nil) when disabled.
func (r *Runner) SyncMembership(ctx context.Context) (*syncer.MembershipResult, error) {
	if !r.cfg.Membership.Enabled {
		r.log.Info("membership synchronization is disabled")
		return nil, nil
	}
	rule := &r.cfg.Groups
	scope, err := ldap.ParseScope(rule.Scope)
	if err != nil {
		return nil, err
	}
	var result *syncer.MembershipResult
	err = r.withClient(ctx, func(client *ldap.Client) error {
		req := &ldap.SearchRequest{
			BaseDN:     rule.Base,
			Scope:      scope,
			Filter:     rule.Filter,
			Attributes: []string{r.cfg.Membership.MemberAttribute},
		}
		m, err := syncer.NewMembership(syncer.MembershipConfig{
			Entries: syncer.EntrySourceFunc(func(ctx context.Context) ([]ldap.Entry, error) {
				return client.Search(ctx, req)
			}),
			SyncRecords:     store.NewSyncRecords(r.db),
			Memberships:     store.NewMemberships(r.db),
			GroupEntityType: EntityGroup,
			UserEntityType:  EntityUser,
			MemberAttribute: r.cfg.Membership.MemberAttribute,
			ChunkSize:       rule.ChunkSize,
			Logger:          r.log,
		})
		if err != nil {
			return err
		}
		result, err = m.Sync(ctx)
		return err
	})
	return result, err
}

// SyncAll runs the enabled passes in dependency order: users, then groups,
// then membership.
func (r *Runner) SyncAll(ctx context.Context) error {
	if _, err := r.SyncUsers(ctx); err != nil {
		return fmt.Errorf("user sync: %w", err)
	}
	if _, err := r.SyncGroups(ctx); err != nil {
		return fmt.Errorf("group sync: %w", err)
	}
	if _, err := r.SyncMembership(ctx); err != nil {
		return fmt.Errorf("membership sync: %w", err)
	}
	return nil
}

// GroupsForMember searches the directory for groups that carry memberDN as a
// member, narrowing the configured group filter with the membership filter
// template. The DN is filter-escaped before substitution.
func (r *Runner) GroupsForMember(ctx context.Context, memberDN string) ([]ldap.Entry, error) {
	rule := &r.cfg.Groups
	scope, err := ldap.ParseScope(rule.Scope)
	if err != nil {
		return nil, err
	}
	filter := fmt.Sprintf("(&%s%s)",
		rule.Filter, syncer.MemberFilter(r.cfg.Membership.FilterTemplate, memberDN))

	var entries []ldap.Entry
	err = r.withClient(ctx, func(client *ldap.Client) error {
		entries, err = client.Search(ctx, &ldap.SearchRequest{
			BaseDN:     rule.Base,
			Scope:      scope,
			Filter:     filter,
			Attributes: syncer.AttributeMap(rule.Attributes).Attributes(),
		})
		return err
	})
	return entries, err
}

// withClient connects a fresh directory client for the duration of fn.
func (r *Runner) withClient(ctx context.Context, fn func(*ldap.Client) error) error {
	client, err := ldap.NewClient(r.cfg.LDAP.Connection(), logrus.NewEntry(r.log))
	if err != nil {
		return err
	}
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

// newSynchronizer assembles one reconciliation pass from a rule section.
func newSynchronizer[T any](r *Runner, client *ldap.Client, rule *config.SyncRuleConfig, entityType string, hook func(*T)) (*syncer.Synchronizer[T], error) {
	scope, err := ldap.ParseScope(rule.Scope)
	if err != nil {
		return nil, err
	}
	removal, err := syncer.ParseRemovalAction(rule.Removal)
	if err != nil {
		return nil, err
	}
	attrMap := syncer.AttributeMap(rule.Attributes)
	req := &ldap.SearchRequest{
		BaseDN:     rule.Base,
		Scope:      scope,
		Filter:     rule.Filter,
		Attributes: attrMap.Attributes(),
	}
	return syncer.New(syncer.Config[T]{
		Entries: syncer.EntrySourceFunc(func(ctx context.Context) ([]ldap.Entry, error) {
			return client.Search(ctx, req)
		}),
		Store:         store.NewEntityStore[T](r.db),
		SyncRecords:   store.NewSyncRecords(r.db),
		EntityType:    entityType,
		AttributeMap:  attrMap,
		UniqueField:   rule.UniqueField,
		Exempt:        rule.Exempt,
		Removal:       removal,
		SuspendField:  rule.SuspendField,
		ChunkSize:     rule.ChunkSize,
		FailOnEmpty:   rule.FailOnEmpty,
		NewRecordHook: hook,
		Logger:        r.log,
	})
}

// newUserHook marks directory-created accounts active. Passwords are never
// synchronized, so these accounts authenticate against the directory only.
func newUserHook(u *store.User) {
	u.IsActive = true
}
