package lifecycle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-popup-ledger/internal/apperror"
	"go-popup-ledger/internal/lifecycle"
	"go-popup-ledger/internal/model"
)

func TestChannel_HappyPathIsLinear(t *testing.T) {
	path := []model.ChannelStatus{
		model.ChannelDraft, model.ChannelPendingApproval, model.ChannelApproved,
		model.ChannelPacking, model.ChannelPacked, model.ChannelShipped,
		model.ChannelActive, model.ChannelPendingReturn, model.ChannelReturning,
		model.ChannelReturned, model.ChannelCompleted,
	}
	for i := 0; i+1 < len(path); i++ {
		assert.True(t, lifecycle.CanTransitionChannel(path[i], path[i+1]), "%s -> %s", path[i], path[i+1])
	}
	// no skipping ahead
	assert.False(t, lifecycle.CanTransitionChannel(model.ChannelApproved, model.ChannelShipped))
	assert.False(t, lifecycle.CanTransitionChannel(model.ChannelActive, model.ChannelReturned))
}

func TestChannel_CanTransitionMatchesSuccessorSet(t *testing.T) {
	// canTransition(s) is true iff s is in the successor set, for every pair
	for _, from := range model.ChannelStatuses {
		succ := lifecycle.ChannelSuccessors(from)
		for _, to := range model.ChannelStatuses {
			want := false
			for _, s := range succ {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, lifecycle.CanTransitionChannel(from, to), "%s -> %s", from, to)
			if want {
				assert.NoError(t, lifecycle.ValidateChannel(from, to))
			} else {
				assert.Error(t, lifecycle.ValidateChannel(from, to))
			}
		}
	}
}

func TestChannel_Terminals(t *testing.T) {
	for _, s := range []model.ChannelStatus{model.ChannelCompleted, model.ChannelCancelled, model.ChannelClosed} {
		assert.True(t, lifecycle.IsChannelTerminal(s))
		assert.Empty(t, lifecycle.ChannelSuccessors(s))
	}
	assert.False(t, lifecycle.IsChannelTerminal(model.ChannelActive))
	assert.False(t, lifecycle.IsChannelTerminal(model.ChannelStatus("bogus")))
}

func TestChannel_CancelOnlyBeforeShipment(t *testing.T) {
	before := []model.ChannelStatus{model.ChannelDraft, model.ChannelPendingApproval, model.ChannelApproved, model.ChannelPacking, model.ChannelPacked}
	for _, s := range before {
		assert.True(t, lifecycle.CanTransitionChannel(s, model.ChannelCancelled), string(s))
	}
	after := []model.ChannelStatus{model.ChannelShipped, model.ChannelActive, model.ChannelPendingReturn, model.ChannelReturning, model.ChannelReturned}
	for _, s := range after {
		assert.False(t, lifecycle.CanTransitionChannel(s, model.ChannelCancelled), string(s))
		assert.True(t, lifecycle.CanTransitionChannel(s, model.ChannelClosed), string(s))
	}
}

func TestValidateChannel_ReturnsInvalidTransition(t *testing.T) {
	err := lifecycle.ValidateChannel(model.ChannelDraft, model.ChannelActive)
	require.Error(t, err)

	var te *lifecycle.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, apperror.KindInvalidTransition, te.Kind)
	assert.Equal(t, "draft", te.From)
	assert.Equal(t, "active", te.To)
	assert.Equal(t, apperror.KindInvalidTransition, apperror.KindOf(err))
}

func TestPayment_Track(t *testing.T) {
	assert.True(t, lifecycle.CanTransitionPayment(model.PaymentNone, model.PaymentPending))
	assert.True(t, lifecycle.CanTransitionPayment(model.PaymentPending, model.PaymentApproved))
	assert.True(t, lifecycle.CanTransitionPayment(model.PaymentPending, model.PaymentNone))
	assert.False(t, lifecycle.CanTransitionPayment(model.PaymentNone, model.PaymentApproved))
	assert.True(t, lifecycle.IsPaymentTerminal(model.PaymentApproved))
	assert.Error(t, lifecycle.ValidatePayment(model.PaymentApproved, model.PaymentNone))
}

func TestRequest_CancelOnlyBeforeAllocation(t *testing.T) {
	for _, s := range []model.RequestStatus{model.RequestDraft, model.RequestSubmitted, model.RequestApproved} {
		assert.True(t, lifecycle.CanTransitionRequest(s, model.RequestCancelled), string(s))
	}
	for _, s := range []model.RequestStatus{model.RequestAllocated, model.RequestPacked, model.RequestShipped, model.RequestReceived} {
		assert.False(t, lifecycle.CanTransitionRequest(s, model.RequestCancelled), string(s))
	}
	assert.True(t, lifecycle.ReleasableRequest(model.RequestAllocated))
	assert.True(t, lifecycle.ReleasableRequest(model.RequestPacked))
	assert.False(t, lifecycle.ReleasableRequest(model.RequestShipped))
}

func TestRequest_CanTransitionMatchesSuccessorSet(t *testing.T) {
	for _, from := range model.RequestStatuses {
		succ := lifecycle.RequestSuccessors(from)
		for _, to := range model.RequestStatuses {
			want := false
			for _, s := range succ {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, lifecycle.CanTransitionRequest(from, to), "%s -> %s", from, to)
		}
	}
}

func TestSuccessors_ReturnsCopy(t *testing.T) {
	succ := lifecycle.ChannelSuccessors(model.ChannelDraft)
	require.NotEmpty(t, succ)
	succ[0] = model.ChannelCompleted
	assert.False(t, lifecycle.CanTransitionChannel(model.ChannelDraft, model.ChannelCompleted))
}

func TestGuard_ReportsGuardFailed(t *testing.T) {
	err := lifecycle.Guard(lifecycle.EntityChannel, "returned", "completed", "payment not approved")
	assert.Equal(t, apperror.KindGuardFailed, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "payment not approved")
}

func TestTerminalChannelStatuses(t *testing.T) {
	assert.ElementsMatch(t,
		[]model.ChannelStatus{model.ChannelCompleted, model.ChannelCancelled, model.ChannelClosed},
		lifecycle.TerminalChannelStatuses())
}
