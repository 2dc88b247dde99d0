package decision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticStepFailure(t *testing.T) {
	tests := []struct {
		name       string
		configured FailureChoice
		want       FailureChoice
	}{
		{"continue", FailureContinue, FailureContinue},
		{"pause", FailurePause, FailurePause},
		{"cancel", FailureCancel, FailureCancel},
		{"zero value falls back to cancel", "", FailureCancel},
		{"garbage falls back to cancel", "retry", FailureCancel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Static{OnStepFailure: tt.configured}
			got, err := p.AskStepFailure(context.Background(), StepFailure{StepID: "s1"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStaticRollbackConflict(t *testing.T) {
	tests := []struct {
		name       string
		configured ConflictChoice
		want       ConflictChoice
	}{
		{"proceed", ConflictProceed, ConflictProceed},
		{"abort", ConflictAbort, ConflictAbort},
		{"zero value falls back to abort", "", ConflictAbort},
		{"garbage falls back to abort", "merge", ConflictAbort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Static{OnRollbackConflict: tt.configured}
			got, err := p.AskRollbackConflict(context.Background(), RollbackConflict{CheckpointID: "cp1"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
