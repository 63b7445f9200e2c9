package config

import (
	"time"

	"github.com/isometry/ldap-sync/internal/ldap"
	"github.com/isometry/ldap-sync/internal/store"
)

// Config is the complete application configuration, loaded from a YAML file
// with LDAP_SYNC_* environment overrides.
type Config struct {
	LDAP       LDAPConfig       `mapstructure:"ldap"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Users      SyncRuleConfig   `mapstructure:"users"`
	Groups     SyncRuleConfig   `mapstructure:"groups"`
	Membership MembershipConfig `mapstructure:"membership"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// LDAPConfig describes the directory connection.
type LDAPConfig struct {
	URLs    []string      `mapstructure:"urls" validate:"required,min=1,dive,startswith=ldap"`
	Timeout time.Duration `mapstructure:"timeout" default:"30s"`

	BindDN       string `mapstructure:"bind_dn"`
	BindPassword string `mapstructure:"bind_password"`

	Kerberos KerberosConfig `mapstructure:"kerberos"`

	StartTLS           bool   `mapstructure:"start_tls"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
	CACertFile         string `mapstructure:"ca_cert_file"`

	// PageSize must exceed 1: a page size of 1 turns the paged results
	// control into a pathological one-entry-per-round-trip search.
	PageSize int `mapstructure:"page_size" default:"500" validate:"gt=1"`

	MaxRetries     int           `mapstructure:"max_retries" default:"3" validate:"gte=0"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff" default:"500ms"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff" default:"30s"`
	BackoffFactor  float64       `mapstructure:"backoff_factor" default:"2.0" validate:"gte=1"`
}

// KerberosConfig holds GSSAPI bind settings. A non-empty realm selects
// Kerberos authentication.
type KerberosConfig struct {
	Realm  string `mapstructure:"realm"`
	Keytab string `mapstructure:"keytab"`
	CCache string `mapstructure:"ccache"`
	Config string `mapstructure:"config"`
	SPN    string `mapstructure:"spn"`
}

// DatabaseConfig describes the relational store.
type DatabaseConfig struct {
	Host     string `mapstructure:"host" default:"127.0.0.1"`
	Port     int    `mapstructure:"port" default:"3306" validate:"gte=1,lte=65535"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name" validate:"required"`

	MaxOpenConns    int           `mapstructure:"max_open_conns" default:"10"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" default:"5"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" default:"30m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" default:"5m"`
}

// SyncRuleConfig describes one synchronization pass (users or groups).
type SyncRuleConfig struct {
	Enabled bool `mapstructure:"enabled"`

	Base   string `mapstructure:"base" validate:"required"`
	Filter string `mapstructure:"filter" validate:"required"`
	Scope  string `mapstructure:"scope" default:"subtree" validate:"oneof=base one onelevel sub subtree"`

	// Attributes maps directory attribute names to local field names.
	Attributes  map[string]string `mapstructure:"attributes" validate:"required,min=1"`
	UniqueField string            `mapstructure:"unique_field" validate:"required"`

	Exempt []string `mapstructure:"exempt"`

	Removal      string `mapstructure:"removal" default:"NOTHING" validate:"oneof=NOTHING SUSPEND DELETE nothing suspend delete"`
	SuspendField string `mapstructure:"suspend_field"`

	ChunkSize   int  `mapstructure:"chunk_size" default:"50" validate:"gt=0"`
	FailOnEmpty bool `mapstructure:"fail_on_empty"`
}

// MembershipConfig describes the group membership pass. It reuses the group
// rule's search settings, optionally narrowed to groups containing a given
// member via FilterTemplate.
type MembershipConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	MemberAttribute string `mapstructure:"member_attribute" default:"member"`
	FilterTemplate  string `mapstructure:"filter_template" default:"(member=%s)"`
}

// LoggingConfig describes log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" default:"text" validate:"oneof=text json"`

	// File enables rotated file output alongside stderr when set.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" default:"100"`
	MaxBackups int    `mapstructure:"max_backups" default:"5"`
	MaxAgeDays int    `mapstructure:"max_age_days" default:"30"`
	Compress   bool   `mapstructure:"compress"`
}

// Connection translates the LDAP section into the directory client's
// configuration.
func (c *LDAPConfig) Connection() *ldap.ConnectionConfig {
	return &ldap.ConnectionConfig{
		URLs:               c.URLs,
		Timeout:            c.Timeout,
		BindDN:             c.BindDN,
		BindPassword:       c.BindPassword,
		KerberosRealm:      c.Kerberos.Realm,
		KerberosKeytab:     c.Kerberos.Keytab,
		KerberosCCache:     c.Kerberos.CCache,
		KerberosConfig:     c.Kerberos.Config,
		KerberosSPN:        c.Kerberos.SPN,
		StartTLS:           c.StartTLS,
		InsecureSkipVerify: c.InsecureSkipVerify,
		TLSCACertFile:      c.CACertFile,
		PageSize:           c.PageSize,
		MaxRetries:         c.MaxRetries,
		InitialBackoff:     c.InitialBackoff,
		MaxBackoff:         c.MaxBackoff,
		BackoffFactor:      c.BackoffFactor,
	}
}

// DB translates the database section into the store's configuration.
func (c *DatabaseConfig) DB() *store.DBConfig {
	return &store.DBConfig{
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		Name:            c.Name,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
	}
}
