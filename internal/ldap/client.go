package ldap

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/sirupsen/logrus"
)

// conn is the subset of *ldap.Conn the client relies on. Narrowed to an
// interface so search and paging behavior can be tested without a server.
type conn interface {
	Bind(username, password string) error
	UnauthenticatedBind(username string) error
	GSSAPIBind(client ldap.GSSAPIClient, servicePrincipal, authzID string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	SetTimeout(d time.Duration)
	Close() error
}

// Client is a directory client scoped to one synchronization pass. It owns a
// single connection; callers needing pooling wrap it at the collaborator
// boundary.
type Client struct {
	cfg  *ConnectionConfig
	log  *logrus.Entry
	conn conn
	host string // host of the URL that accepted the connection

	dial func(rawURL string, cfg *ConnectionConfig) (conn, error)
}

// NewClient validates the configuration and returns an unconnected client.
func NewClient(cfg *ConnectionConfig, log *logrus.Entry) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if len(cfg.URLs) == 0 {
		return nil, &ConfigError{Setting: "urls", Reason: "at least one directory URL is required"}
	}
	if cfg.PageSize <= 1 {
		return nil, &ConfigError{Setting: "page_size", Reason: "must be greater than 1"}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{cfg: cfg, log: log, dial: dialConn}, nil
}

// Connect establishes and authenticates the directory connection, trying each
// configured URL in order.
func (c *Client) Connect(ctx context.Context) error {
	var lastErr error
	for _, rawURL := range c.cfg.URLs {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		cn, err := c.dial(rawURL, c.cfg)
		if err != nil {
			c.log.WithFields(logrus.Fields{
				"url":   rawURL,
				"error": err.Error(),
			}).Warn("directory connection failed")
			lastErr = err
			continue
		}
		host, _ := hostOfURL(rawURL)
		c.conn = cn
		c.host = host
		if err := c.authenticate(); err != nil {
			_ = cn.Close()
			c.conn = nil
			return WrapError("bind", err)
		}
		c.log.WithFields(logrus.Fields{
			"url":         rawURL,
			"auth_method": c.cfg.GetAuthMethod().String(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("directory connection established")
		return nil
	}
	return WrapError("connect", lastErr)
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Search performs a paged search and returns the complete, de-paged result
// set. A fresh paging control is issued per call, so every call starts from
// the first page regardless of earlier continuations. The relative order of
// entries across pages is whatever the server produced.
func (c *Client) Search(ctx context.Context, req *SearchRequest) ([]Entry, error) {
	if c.conn == nil {
		return nil, WrapError("search", fmt.Errorf("client is not connected"))
	}
	pageSize := req.PageSize
	if pageSize == 0 {
		pageSize = c.cfg.PageSize
	}
	if pageSize <= 1 {
		return nil, &ConfigError{Setting: "page_size", Reason: "must be greater than 1"}
	}

	fields := logrus.Fields{
		"base_dn":   req.BaseDN,
		"filter":    req.Filter,
		"scope":     req.Scope.String(),
		"page_size": pageSize,
	}
	c.log.WithFields(fields).Debug("starting paged search")

	start := time.Now()
	paging := ldap.NewControlPaging(uint32(pageSize))
	var entries []Entry

	for page := 1; ; page++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		ldapReq := ldap.NewSearchRequest(
			req.BaseDN,
			req.Scope.ldapScope(),
			ldap.NeverDerefAliases,
			0, // no size limit when paging
			int(c.cfg.Timeout.Seconds()),
			false,
			req.Filter,
			req.Attributes,
			[]ldap.Control{paging},
		)

		var result *ldap.SearchResult
		err := c.withRetry(ctx, func() error {
			var searchErr error
			result, searchErr = c.conn.Search(ldapReq)
			return searchErr
		})
		if err != nil {
			return nil, WrapError("paged_search", err)
		}

		for _, raw := range result.Entries {
			entries = append(entries, entryFromLDAP(raw))
		}
		for _, ref := range result.Referrals {
			entries = append(entries, Entry{Kind: KindReferral, DN: ref})
		}

		c.log.WithFields(logrus.Fields{
			"page":            page,
			"entries_in_page": len(result.Entries),
			"total_entries":   len(entries),
		}).Debug("completed search page")

		ctrl := ldap.FindControl(result.Controls, ldap.ControlTypePaging)
		response, ok := ctrl.(*ldap.ControlPaging)
		if !ok || len(response.Cookie) == 0 {
			break
		}
		paging.SetCookie(response.Cookie)
	}

	c.log.WithFields(logrus.Fields{
		"base_dn":       req.BaseDN,
		"filter":        req.Filter,
		"total_entries": len(entries),
		"duration_ms":   time.Since(start).Milliseconds(),
	}).Debug("paged search completed")

	return entries, nil
}

// authenticate binds using the configured method.
func (c *Client) authenticate() error {
	switch c.cfg.GetAuthMethod() {
	case AuthMethodKerberos:
		return performKerberosAuth(c.conn, c.cfg, c.host)
	case AuthMethodSimpleBind:
		return c.conn.Bind(c.cfg.BindDN, c.cfg.BindPassword)
	default:
		return c.conn.UnauthenticatedBind("")
	}
}

// withRetry executes an operation, retrying transient failures with
// exponential backoff. Non-retryable failures propagate immediately.
func (c *Client) withRetry(ctx context.Context, operation func() error) error {
	var lastErr error
	backoff := c.cfg.InitialBackoff

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return lastErr
		}

		c.log.WithFields(logrus.Fields{
			"attempt":    attempt + 1,
			"backoff_ms": backoff.Milliseconds(),
			"error":      err.Error(),
		}).Debug("retrying directory operation")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff = min(time.Duration(float64(backoff)*c.cfg.BackoffFactor), c.cfg.MaxBackoff)
		}
	}
	return lastErr
}

// dialConn establishes a raw connection to a single directory URL.
func dialConn(rawURL string, cfg *ConnectionConfig) (conn, error) {
	tlsCfg := cfg.TLSConfig
	if tlsCfg == nil {
		tlsCfg = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		}
		if cfg.TLSCACertFile != "" {
			pem, err := os.ReadFile(cfg.TLSCACertFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read CA certificate: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("no certificates parsed from %s", cfg.TLSCACertFile)
			}
			tlsCfg.RootCAs = pool
		}
	}

	cn, err := ldap.DialURL(rawURL, ldap.DialWithTLSConfig(tlsCfg))
	if err != nil {
		return nil, WrapError("dial", err)
	}
	cn.SetTimeout(cfg.Timeout)

	parsed, err := url.Parse(rawURL)
	if err == nil && parsed.Scheme == "ldap" && cfg.StartTLS {
		if err := cn.StartTLS(tlsCfg); err != nil {
			_ = cn.Close()
			return nil, WrapError("starttls", err)
		}
	}
	return cn, nil
}

func hostOfURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid directory URL %q: %w", rawURL, err)
	}
	return parsed.Hostname(), nil
}
