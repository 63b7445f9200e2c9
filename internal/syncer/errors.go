package syncer

import "fmt"

// ConfigError reports a missing or invalid synchronizer setting. Raised by
// New before any directory or store traffic.
type ConfigError struct {
	Setting string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid synchronizer configuration: %s: %s", e.Setting, e.Reason)
}

// MissingFieldError reports a remote entry lacking an attribute the
// attribute map requires. Recoverable: the entry is skipped, the run
// continues.
type MissingFieldError struct {
	Attribute string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("entry is missing required attribute %q", e.Attribute)
}

// ValueMapError reports a value map that cannot be applied to the local
// record type, typically because a mapped field does not exist on it.
// Fatal to the run.
type ValueMapError struct {
	RecordType string
	Field      string
	Reason     string
}

func (e *ValueMapError) Error() string {
	return fmt.Sprintf("unable to apply value map: %s.%s: %s", e.RecordType, e.Field, e.Reason)
}

// MultipleResultsError reports a point lookup by distinguished name that
// matched more than one record where identity requires uniqueness.
type MultipleResultsError struct {
	DistinguishedName string
	Count             int
}

func (e *MultipleResultsError) Error() string {
	return fmt.Sprintf("expected at most one sync record for %q, found %d", e.DistinguishedName, e.Count)
}

// SyncError reports a condition that aborts a pass, such as an empty remote
// result set when the rule requires entries.
type SyncError struct {
	Reason string
}

func (e *SyncError) Error() string {
	return "sync failed: " + e.Reason
}
