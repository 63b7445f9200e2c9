package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRemovalAction(t *testing.T) {
	tests := []struct {
		in   string
		want RemovalAction
	}{
		{"NOTHING", RemoveNothing},
		{"nothing", RemoveNothing},
		{"", RemoveNothing},
		{" suspend ", RemoveSuspend},
		{"SUSPEND", RemoveSuspend},
		{"Delete", RemoveDelete},
	}
	for _, tt := range tests {
		got, err := ParseRemovalAction(tt.in)
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}

	_, err := ParseRemovalAction("purge")
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestRemovalActionString(t *testing.T) {
	assert.Equal(t, "NOTHING", RemoveNothing.String())
	assert.Equal(t, "SUSPEND", RemoveSuspend.String())
	assert.Equal(t, "DELETE", RemoveDelete.String())
}
