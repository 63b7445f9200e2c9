package syncer

import "strings"

// RemovalKind enumerates the built-in policies for local records that had no
// matching remote entry.
type RemovalKind int

const (
	// RemovalNothing leaves orphaned records untouched.
	RemovalNothing RemovalKind = iota
	// RemovalSuspend clears the entity's active flag. Degrades to
	// RemovalNothing with a warning when the entity type has no such flag.
	RemovalSuspend
	// RemovalDelete bulk-deletes orphaned records.
	RemovalDelete
	// RemovalCustom hands the orphaned record set to a caller-supplied
	// function (Config.RemovalFunc).
	RemovalCustom
)

// RemovalAction is the configured removal policy.
type RemovalAction struct {
	kind RemovalKind
}

var (
	RemoveNothing = RemovalAction{kind: RemovalNothing}
	RemoveSuspend = RemovalAction{kind: RemovalSuspend}
	RemoveDelete  = RemovalAction{kind: RemovalDelete}
)

// Kind returns the policy discriminator.
func (a RemovalAction) Kind() RemovalKind {
	return a.kind
}

func (a RemovalAction) String() string {
	switch a.kind {
	case RemovalSuspend:
		return "SUSPEND"
	case RemovalDelete:
		return "DELETE"
	case RemovalCustom:
		return "CUSTOM"
	default:
		return "NOTHING"
	}
}

// ParseRemovalAction converts a configuration string into a RemovalAction.
func ParseRemovalAction(s string) (RemovalAction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NOTHING":
		return RemoveNothing, nil
	case "SUSPEND":
		return RemoveSuspend, nil
	case "DELETE":
		return RemoveDelete, nil
	default:
		return RemovalAction{}, &ConfigError{Setting: "removal_action", Reason: "must be one of NOTHING, SUSPEND, DELETE"}
	}
}
