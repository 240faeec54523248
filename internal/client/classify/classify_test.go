package classify

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vterekhov/recordsync/internal/client/remote"
)

func TestClassify_NilIsOK(t *testing.T) {
	res := Classify(nil, OpSave)
	require.Equal(t, OK, res.Outcome)
	require.NoError(t, res.Err)
}

func TestClassify_Table(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		op      Op
		outcome Outcome
		resync  bool
	}{
		{"timeout is recoverable", remote.ErrTimeout, OpSave, Recoverable, false},
		{"unavailable is recoverable", remote.ErrUnavailable, OpFetch, Recoverable, false},
		{"zone busy is recoverable", remote.ErrZoneBusy, OpZoneCreate, Recoverable, false},
		{"quota is user visible", remote.ErrQuota, OpSave, UserVisible, false},
		{"conflict is user visible", remote.ErrConflict, OpSave, UserVisible, false},
		{"permission is user visible", remote.ErrPermission, OpShare, UserVisible, false},
		{"expired token forces resync", remote.ErrExpiredToken, OpChanges, Ignorable, true},
		{"not found is log only", remote.ErrNotFound, OpFetch, Ignorable, false},
		{"unknown write failure surfaces", errors.New("boom"), OpDelete, UserVisible, false},
		{"unknown read failure is log only", errors.New("boom"), OpQuery, Ignorable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Classify(tt.err, tt.op)
			require.Equal(t, tt.outcome, res.Outcome)
			require.Equal(t, tt.resync, res.Resync)
			require.Error(t, res.Err)
		})
	}
}

func TestClassify_SeesThroughOperationWrappers(t *testing.T) {
	err := &SaveError{Names: []string{"p1"}, Err: fmt.Errorf("saving: %w", remote.ErrTimeout)}
	res := Classify(err, OpSave, "p1")
	require.Equal(t, Recoverable, res.Outcome)
	require.Equal(t, []string{"p1"}, res.FailedNames)
}

func TestClassify_PartialFailureListsIdentities(t *testing.T) {
	err := &SaveError{Err: &remote.PartialError{Failed: map[string]string{
		"p2": "conflict",
		"p1": "quota",
	}}}
	res := Classify(err, OpSave)
	require.Equal(t, Recoverable, res.Outcome)
	require.Equal(t, []string{"p1", "p2"}, res.FailedNames)
}

func TestOutcome_String(t *testing.T) {
	require.Equal(t, "ok", OK.String())
	require.Equal(t, "recoverable", Recoverable.String())
	require.Equal(t, "user-visible", UserVisible.String())
	require.Equal(t, "ignorable", Ignorable.String())
}
