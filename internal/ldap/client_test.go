package ldap

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn serves canned entries page by page, driving the paged results
// control exactly as a directory server would: the cookie encodes the next
// offset, and the final page carries an empty cookie.
type fakeConn struct {
	entries []*ldap.Entry

	searches  int
	pageSizes []uint32
	failures  int
	failWith  error

	boundDN string
	closed  bool
}

func (f *fakeConn) Bind(username, password string) error {
	f.boundDN = username
	return nil
}

func (f *fakeConn) UnauthenticatedBind(username string) error {
	f.boundDN = ""
	return nil
}

func (f *fakeConn) GSSAPIBind(ldap.GSSAPIClient, string, string) error {
	return fmt.Errorf("not implemented")
}

func (f *fakeConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	f.searches++
	if f.failures > 0 {
		f.failures--
		return nil, f.failWith
	}

	var paging *ldap.ControlPaging
	for _, ctrl := range req.Controls {
		if p, ok := ctrl.(*ldap.ControlPaging); ok {
			paging = p
		}
	}
	if paging == nil {
		return nil, fmt.Errorf("search request is missing the paging control")
	}
	f.pageSizes = append(f.pageSizes, paging.PagingSize)

	start := 0
	if len(paging.Cookie) > 0 {
		start, _ = strconv.Atoi(string(paging.Cookie))
	}
	end := min(start+int(paging.PagingSize), len(f.entries))

	response := ldap.NewControlPaging(paging.PagingSize)
	if end < len(f.entries) {
		response.SetCookie([]byte(strconv.Itoa(end)))
	}
	return &ldap.SearchResult{
		Entries:  f.entries[start:end],
		Controls: []ldap.Control{response},
	}, nil
}

func (f *fakeConn) SetTimeout(time.Duration) {}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func fakeEntries(n int) []*ldap.Entry {
	entries := make([]*ldap.Entry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, &ldap.Entry{
			DN: fmt.Sprintf("cn=user%02d,dc=example,dc=org", i),
			Attributes: []*ldap.EntryAttribute{
				{Name: "cn", Values: []string{fmt.Sprintf("user%02d", i)}},
			},
		})
	}
	return entries
}

func testClient(t *testing.T, cfg *ConnectionConfig, fake *fakeConn) *Client {
	t.Helper()
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if len(cfg.URLs) == 0 {
		cfg.URLs = []string{"ldap://dc01.example.org"}
	}
	c, err := NewClient(cfg, nil)
	require.NoError(t, err)
	c.conn = fake
	return c
}

func TestNewClientValidatesConfig(t *testing.T) {
	var cfgErr *ConfigError

	_, err := NewClient(&ConnectionConfig{PageSize: 500}, nil)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "urls", cfgErr.Setting)

	_, err = NewClient(&ConnectionConfig{URLs: []string{"ldap://dc01"}, PageSize: 1}, nil)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "page_size", cfgErr.Setting)
}

func TestSearchPagesThroughAllEntries(t *testing.T) {
	fake := &fakeConn{entries: fakeEntries(14)}
	client := testClient(t, nil, fake)

	entries, err := client.Search(context.Background(), &SearchRequest{
		BaseDN:   "dc=example,dc=org",
		Filter:   "(objectClass=person)",
		PageSize: 5,
	})
	require.NoError(t, err)

	assert.Len(t, entries, 14)
	assert.Equal(t, 3, fake.searches, "14 entries at page size 5 is three round trips")
	assert.Equal(t, []uint32{5, 5, 5}, fake.pageSizes)
	for i, entry := range entries {
		assert.Equal(t, fake.entries[i].DN, entry.DN, "server order is preserved across pages")
		assert.Equal(t, KindSearchEntry, entry.Kind)
	}
}

func TestSearchRestartsPagingPerCall(t *testing.T) {
	fake := &fakeConn{entries: fakeEntries(6)}
	client := testClient(t, nil, fake)
	req := &SearchRequest{BaseDN: "dc=example,dc=org", Filter: "(objectClass=*)", PageSize: 4}

	first, err := client.Search(context.Background(), req)
	require.NoError(t, err)
	second, err := client.Search(context.Background(), req)
	require.NoError(t, err)

	assert.Len(t, first, 6)
	assert.Len(t, second, 6, "a repeated search starts from the first page")
}

func TestSearchRejectsPageSizeOfOne(t *testing.T) {
	client := testClient(t, nil, &fakeConn{})

	_, err := client.Search(context.Background(), &SearchRequest{
		BaseDN:   "dc=example,dc=org",
		Filter:   "(objectClass=*)",
		PageSize: 1,
	})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "page_size", cfgErr.Setting)
}

func TestSearchRequiresConnection(t *testing.T) {
	client, err := NewClient(&ConnectionConfig{URLs: []string{"ldap://dc01"}, PageSize: 500}, nil)
	require.NoError(t, err)

	_, err = client.Search(context.Background(), &SearchRequest{BaseDN: "dc=example,dc=org", Filter: "(objectClass=*)"})
	require.Error(t, err)
}

func TestSearchRetriesTransientFailures(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URLs = []string{"ldap://dc01.example.org"}
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond

	fake := &fakeConn{
		entries:  fakeEntries(3),
		failures: 1,
		failWith: ldap.NewError(ldap.LDAPResultBusy, fmt.Errorf("server busy")),
	}
	client := testClient(t, cfg, fake)

	entries, err := client.Search(context.Background(), &SearchRequest{
		BaseDN: "dc=example,dc=org",
		Filter: "(objectClass=*)",
	})
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, 2, fake.searches, "the busy response is retried once")
}

func TestSearchDoesNotRetryFatalFailures(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URLs = []string{"ldap://dc01.example.org"}
	cfg.InitialBackoff = time.Millisecond

	fake := &fakeConn{
		entries:  fakeEntries(3),
		failures: 1,
		failWith: ldap.NewError(ldap.LDAPResultInsufficientAccessRights, fmt.Errorf("denied")),
	}
	client := testClient(t, cfg, fake)

	_, err := client.Search(context.Background(), &SearchRequest{
		BaseDN: "dc=example,dc=org",
		Filter: "(objectClass=*)",
	})
	require.Error(t, err)
	assert.Equal(t, 1, fake.searches)
}

func TestSearchHonorsContextCancellation(t *testing.T) {
	fake := &fakeConn{entries: fakeEntries(3)}
	client := testClient(t, nil, fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Search(ctx, &SearchRequest{BaseDN: "dc=example,dc=org", Filter: "(objectClass=*)"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fake.searches)
}

func TestConnectTriesURLsInOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URLs = []string{"ldap://down.example.org", "ldap://dc02.example.org"}
	cfg.BindDN = "cn=sync,dc=example,dc=org"
	cfg.BindPassword = "secret"

	client, err := NewClient(cfg, nil)
	require.NoError(t, err)

	fake := &fakeConn{}
	var dialed []string
	client.dial = func(rawURL string, _ *ConnectionConfig) (conn, error) {
		dialed = append(dialed, rawURL)
		if rawURL == "ldap://down.example.org" {
			return nil, fmt.Errorf("connection refused")
		}
		return fake, nil
	}

	require.NoError(t, client.Connect(context.Background()))
	assert.Equal(t, cfg.URLs, dialed)
	assert.Equal(t, "cn=sync,dc=example,dc=org", fake.boundDN)

	require.NoError(t, client.Close())
	assert.True(t, fake.closed)
}

func TestConnectFailsWhenAllURLsAreDown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URLs = []string{"ldap://down1.example.org", "ldap://down2.example.org"}

	client, err := NewClient(cfg, nil)
	require.NoError(t, err)
	client.dial = func(string, *ConnectionConfig) (conn, error) {
		return nil, fmt.Errorf("connection refused")
	}

	require.Error(t, client.Connect(context.Background()))
}
