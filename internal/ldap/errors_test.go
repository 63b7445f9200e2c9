package ldap

import (
	"fmt"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapError(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, WrapError("search", nil))
	})

	t.Run("ldap result codes are categorized", func(t *testing.T) {
		err := WrapError("search", ldap.NewError(ldap.LDAPResultBusy, fmt.Errorf("busy")))
		wrapped, ok := err.(*Error)
		require.True(t, ok)
		assert.Equal(t, "search", wrapped.Operation)
		assert.Equal(t, ErrorCategoryServer, wrapped.Category)
		assert.Equal(t, uint16(ldap.LDAPResultBusy), wrapped.LDAPCode)
		assert.True(t, wrapped.IsRetryable())
	})

	t.Run("credential failures are not retryable", func(t *testing.T) {
		err := WrapError("bind", ldap.NewError(ldap.LDAPResultInvalidCredentials, fmt.Errorf("bad password")))
		wrapped, ok := err.(*Error)
		require.True(t, ok)
		assert.Equal(t, ErrorCategoryAuthentication, wrapped.Category)
		assert.False(t, wrapped.IsRetryable())
	})

	t.Run("generic network failures are retryable", func(t *testing.T) {
		err := WrapError("dial", fmt.Errorf("connection refused"))
		wrapped, ok := err.(*Error)
		require.True(t, ok)
		assert.Equal(t, ErrorCategoryConnection, wrapped.Category)
		assert.True(t, wrapped.IsRetryable())
	})

	t.Run("already wrapped keeps its operation", func(t *testing.T) {
		inner := WrapError("dial", fmt.Errorf("connection refused"))
		outer := WrapError("connect", inner)
		wrapped, ok := outer.(*Error)
		require.True(t, ok)
		assert.Equal(t, "dial", wrapped.Operation)
	})
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.True(t, IsRetryableError(ldap.NewError(ldap.LDAPResultUnavailable, fmt.Errorf("down"))))
	assert.False(t, IsRetryableError(ldap.NewError(ldap.LDAPResultNoSuchObject, fmt.Errorf("missing"))))
	assert.True(t, IsRetryableError(fmt.Errorf("network timeout")))
	assert.False(t, IsRetryableError(fmt.Errorf("syntax error")))
}
