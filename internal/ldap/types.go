package ldap

import (
	"crypto/tls"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// ConnectionConfig holds configuration for the directory connection.
type ConnectionConfig struct {
	// Connection settings
	URLs    []string      // ldap:// or ldaps:// URLs, tried in order
	Timeout time.Duration // Dial and per-operation timeout

	// Authentication settings
	BindDN       string // DN, UPN or SAM-style account for simple bind
	BindPassword string // Password for simple bind

	// Kerberos settings (GSSAPI bind when Realm is set)
	KerberosRealm  string
	KerberosKeytab string // Path to keytab file
	KerberosCCache string // Path to credential cache
	KerberosConfig string // Path to krb5.conf (default /etc/krb5.conf)
	KerberosSPN    string // Explicit service principal, overrides ldap/<host>

	// TLS settings
	StartTLS           bool        // Upgrade ldap:// connections with StartTLS
	InsecureSkipVerify bool        // Skip certificate validation (not recommended)
	TLSCACertFile      string      // Path to a PEM bundle of additional trusted CAs
	TLSConfig          *tls.Config // Custom TLS configuration (overrides the above)

	// Search settings
	PageSize int // Entries per page for paged searches; must be > 1

	// Retry settings for transient directory failures
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// DefaultConfig returns a secure default configuration.
func DefaultConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Timeout:        30 * time.Second,
		PageSize:       500,
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

// AuthMethod defines authentication method types.
type AuthMethod int

const (
	AuthMethodSimpleBind AuthMethod = iota // Username/password authentication
	AuthMethodKerberos                     // GSSAPI/Kerberos authentication
	AuthMethodAnonymous                    // Unauthenticated bind
)

// String returns string representation of authentication method.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodSimpleBind:
		return "simple"
	case AuthMethodKerberos:
		return "kerberos"
	case AuthMethodAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// GetAuthMethod determines the authentication method from the configuration.
func (c *ConnectionConfig) GetAuthMethod() AuthMethod {
	if c.KerberosRealm != "" {
		return AuthMethodKerberos
	}
	if c.BindDN != "" {
		return AuthMethodSimpleBind
	}
	return AuthMethodAnonymous
}

// SearchScope defines LDAP search scope.
type SearchScope int

const (
	ScopeBaseObject SearchScope = iota
	ScopeSingleLevel
	ScopeWholeSubtree
)

// String returns the scope name as used in configuration files.
func (s SearchScope) String() string {
	switch s {
	case ScopeBaseObject:
		return "base"
	case ScopeSingleLevel:
		return "one"
	case ScopeWholeSubtree:
		return "subtree"
	default:
		return "unknown"
	}
}

// ParseScope converts a configuration string into a SearchScope.
func ParseScope(s string) (SearchScope, error) {
	switch s {
	case "", "subtree", "sub":
		return ScopeWholeSubtree, nil
	case "base":
		return ScopeBaseObject, nil
	case "one", "onelevel":
		return ScopeSingleLevel, nil
	default:
		return 0, &ConfigError{Setting: "scope", Reason: "must be one of base, one, subtree"}
	}
}

// SearchRequest encapsulates a paged directory search.
type SearchRequest struct {
	BaseDN     string
	Scope      SearchScope
	Filter     string
	Attributes []string // nil or empty = all attributes
	PageSize   int      // 0 = ConnectionConfig.PageSize
}

// EntryKind discriminates items in a directory result stream. Servers may
// interleave referral/continuation markers with genuine entries; only
// KindSearchEntry items are valid synchronization input.
type EntryKind int

const (
	KindSearchEntry EntryKind = iota
	KindReferral
)

// Entry is a single directory result with normalized attributes. Binary
// attributes such as objectSid and objectGUID are already converted to their
// string representations.
type Entry struct {
	Kind       EntryKind
	DN         string
	Attributes map[string][]string
}

// GetAttributeValue returns the first value of the named attribute, or "".
func (e *Entry) GetAttributeValue(name string) string {
	values := e.Attributes[name]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func (s SearchScope) ldapScope() int {
	switch s {
	case ScopeBaseObject:
		return ldap.ScopeBaseObject
	case ScopeSingleLevel:
		return ldap.ScopeSingleLevel
	default:
		return ldap.ScopeWholeSubtree
	}
}
