package work

import (
	"testing"

	"github.com/coreledger/coreledger-node/types"
	"github.com/stretchr/testify/require"
)

func TestZeroThresholdAcceptsAnyWork(t *testing.T) {
	v := NewVerifier(nil, Thresholds{Send: 0, Receive: 0})
	require.True(t, v.Validate(types.Hash{1}, 0, ClassSend))
	require.True(t, v.Validate(types.Hash{1}, 12345, ClassReceive))
}

func TestMaxThresholdRejects(t *testing.T) {
	v := NewVerifier(nil, Thresholds{Send: ^Threshold(0), Receive: ^Threshold(0)})
	require.False(t, v.Validate(types.Hash{1}, 42, ClassSend))
}

func TestReceiveClassUsesItsOwnThreshold(t *testing.T) {
	// Send impossible, receive trivial: the class picks the bound.
	v := NewVerifier(nil, Thresholds{Send: ^Threshold(0), Receive: 0})
	require.False(t, v.Validate(types.Hash{2}, 7, ClassSend))
	require.True(t, v.Validate(types.Hash{2}, 7, ClassReceive))
}

func TestValidateEpochPrefersEpochThresholds(t *testing.T) {
	perEpoch := map[types.Epoch]Thresholds{
		types.Epoch1: {Send: 0, Receive: 0},
	}
	v := NewVerifier(perEpoch, Thresholds{Send: ^Threshold(0), Receive: ^Threshold(0)})
	require.True(t, ValidateEpoch(v, types.Hash{3}, 9, ClassSend, types.Epoch1))
	require.False(t, ValidateEpoch(v, types.Hash{3}, 9, ClassSend, types.EpochUnspecified))
}

func TestValidationIsDeterministic(t *testing.T) {
	v := NewVerifier(nil, DefaultThresholds)
	first := v.Validate(types.Hash{4}, 1, ClassSend)
	for i := 0; i < 3; i++ {
		require.Equal(t, first, v.Validate(types.Hash{4}, 1, ClassSend))
	}
}

func TestDefaultReceiveThresholdIsEasier(t *testing.T) {
	// Receive-class difficulty must be the lower bound: any work value
	// clearing the send threshold also clears the receive threshold.
	require.Less(t, uint64(DefaultThresholds.Receive), uint64(DefaultThresholds.Send))
}
