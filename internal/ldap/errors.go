package ldap

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// ConfigError reports an invalid connection or search setting. It is raised
// before any directory traffic is generated.
type ConfigError struct {
	Setting string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid ldap configuration: %s: %s", e.Setting, e.Reason)
}

// ErrorCategory represents different categories of directory errors.
type ErrorCategory string

const (
	ErrorCategoryConnection     ErrorCategory = "connection"
	ErrorCategoryAuthentication ErrorCategory = "authentication"
	ErrorCategoryPermission     ErrorCategory = "permission"
	ErrorCategoryNotFound       ErrorCategory = "not_found"
	ErrorCategoryServer         ErrorCategory = "server"
	ErrorCategoryUnknown        ErrorCategory = "unknown"
)

// Error provides enhanced error information for directory operations.
type Error struct {
	Operation string        // The operation that failed
	Category  ErrorCategory // Error category
	LDAPCode  uint16        // LDAP result code, 0 if not an LDAP-level failure
	Retryable bool          // Whether the error is transient
	Cause     error         // Underlying error
}

func (e *Error) Error() string {
	if e.LDAPCode > 0 {
		return fmt.Sprintf("ldap %s failed (code %d): %v", e.Operation, e.LDAPCode, e.Cause)
	}
	return fmt.Sprintf("ldap %s failed: %v", e.Operation, e.Cause)
}

func (e *Error) IsRetryable() bool {
	return e.Retryable
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WrapError wraps an error with operation context and categorization.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if wrapped, ok := err.(*Error); ok {
		if wrapped.Operation == "" {
			wrapped.Operation = operation
		}
		return wrapped
	}

	wrapped := &Error{
		Operation: operation,
		Category:  ErrorCategoryUnknown,
		Cause:     err,
	}
	if ldapErr, ok := err.(*ldap.Error); ok {
		wrapped.LDAPCode = ldapErr.ResultCode
		wrapped.Category = categorizeCode(ldapErr.ResultCode)
		wrapped.Retryable = isCodeRetryable(ldapErr.ResultCode)
	} else {
		wrapped.Category = categorizeGeneric(err)
		wrapped.Retryable = wrapped.Category == ErrorCategoryConnection
	}
	return wrapped
}

// IsRetryableError reports whether an error is worth retrying at the
// connection boundary. The synchronization core itself never retries.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if wrapped, ok := err.(*Error); ok {
		return wrapped.IsRetryable()
	}
	if ldapErr, ok := err.(*ldap.Error); ok {
		return isCodeRetryable(ldapErr.ResultCode)
	}
	return categorizeGeneric(err) == ErrorCategoryConnection
}

func categorizeCode(code uint16) ErrorCategory {
	switch code {
	case ldap.LDAPResultInvalidCredentials,
		ldap.LDAPResultInappropriateAuthentication,
		ldap.LDAPResultStrongAuthRequired:
		return ErrorCategoryAuthentication
	case ldap.LDAPResultInsufficientAccessRights,
		ldap.LDAPResultUnwillingToPerform:
		return ErrorCategoryPermission
	case ldap.LDAPResultNoSuchObject,
		ldap.LDAPResultNoSuchAttribute,
		ldap.LDAPResultUndefinedAttributeType:
		return ErrorCategoryNotFound
	case ldap.LDAPResultServerDown,
		ldap.LDAPResultUnavailable,
		ldap.LDAPResultBusy,
		ldap.LDAPResultTimeLimitExceeded,
		ldap.LDAPResultAdminLimitExceeded:
		return ErrorCategoryServer
	case ldap.LDAPResultConnectError,
		ldap.LDAPResultProtocolError:
		return ErrorCategoryConnection
	default:
		return ErrorCategoryUnknown
	}
}

func isCodeRetryable(code uint16) bool {
	switch code {
	case ldap.LDAPResultBusy,
		ldap.LDAPResultUnavailable,
		ldap.LDAPResultServerDown,
		ldap.LDAPResultTimeLimitExceeded,
		ldap.LDAPResultConnectError:
		return true
	default:
		return false
	}
}

func categorizeGeneric(err error) ErrorCategory {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "broken pipe"):
		return ErrorCategoryConnection
	case strings.Contains(errStr, "credentials") ||
		strings.Contains(errStr, "authentication"):
		return ErrorCategoryAuthentication
	case strings.Contains(errStr, "permission") ||
		strings.Contains(errStr, "access") ||
		strings.Contains(errStr, "denied"):
		return ErrorCategoryPermission
	default:
		return ErrorCategoryUnknown
	}
}
