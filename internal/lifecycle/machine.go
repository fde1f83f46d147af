// Package lifecycle holds the transition tables for channels, their payment
// track and stock requests. Everything here is pure: callers that need
// guards or persistence go through the status service.
package lifecycle

import (
	"fmt"

	"go-popup-ledger/internal/apperror"
	"go-popup-ledger/internal/model"
)

var channelSuccessors = map[model.ChannelStatus][]model.ChannelStatus{
	model.ChannelDraft:           {model.ChannelPendingApproval, model.ChannelCancelled, model.ChannelClosed},
	model.ChannelPendingApproval: {model.ChannelApproved, model.ChannelDraft, model.ChannelCancelled, model.ChannelClosed},
	model.ChannelApproved:        {model.ChannelPacking, model.ChannelCancelled, model.ChannelClosed},
	model.ChannelPacking:         {model.ChannelPacked, model.ChannelCancelled, model.ChannelClosed},
	model.ChannelPacked:          {model.ChannelShipped, model.ChannelCancelled, model.ChannelClosed},
	model.ChannelShipped:         {model.ChannelActive, model.ChannelClosed},
	model.ChannelActive:          {model.ChannelPendingReturn, model.ChannelClosed},
	model.ChannelPendingReturn:   {model.ChannelReturning, model.ChannelClosed},
	model.ChannelReturning:       {model.ChannelReturned, model.ChannelClosed},
	model.ChannelReturned:        {model.ChannelCompleted, model.ChannelClosed},
	model.ChannelCompleted:       nil,
	model.ChannelCancelled:       nil,
	model.ChannelClosed:          nil,
}

var paymentSuccessors = map[model.PaymentStatus][]model.PaymentStatus{
	model.PaymentNone:     {model.PaymentPending},
	model.PaymentPending:  {model.PaymentApproved, model.PaymentNone},
	model.PaymentApproved: nil,
}

// Allocated and packed requests are deliberately missing "cancelled": goods
// are physically committed and must go through the release path instead.
var requestSuccessors = map[model.RequestStatus][]model.RequestStatus{
	model.RequestDraft:     {model.RequestSubmitted, model.RequestCancelled},
	model.RequestSubmitted: {model.RequestApproved, model.RequestCancelled},
	model.RequestApproved:  {model.RequestAllocated, model.RequestCancelled},
	model.RequestAllocated: {model.RequestPacked},
	model.RequestPacked:    {model.RequestShipped},
	model.RequestShipped:   {model.RequestReceived},
	model.RequestReceived:  nil,
	model.RequestCancelled: nil,
}

// Entity names used in TransitionError.
const (
	EntityChannel      = "channel"
	EntityPayment      = "channel_payment"
	EntityStockRequest = "stock_request"
)

// TransitionError reports a refused lifecycle move. It is an expected,
// user-facing condition.
type TransitionError struct {
	Kind   apperror.Kind // InvalidTransition, GuardFailed or NotFound
	Entity string
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s: cannot move from %q to %q", e.Entity, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) ErrorKind() apperror.Kind { return e.Kind }

// Guard builds a GuardFailed error for a move the table allows.
func Guard(entity, from, to, reason string) *TransitionError {
	return &TransitionError{Kind: apperror.KindGuardFailed, Entity: entity, From: from, To: to, Reason: reason}
}

func invalid(entity, from, to string) *TransitionError {
	return &TransitionError{Kind: apperror.KindInvalidTransition, Entity: entity, From: from, To: to}
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func copyOf[T any](list []T) []T {
	out := make([]T, len(list))
	copy(out, list)
	return out
}

// CanTransitionChannel reports whether to is a successor of from.
func CanTransitionChannel(from, to model.ChannelStatus) bool {
	return contains(channelSuccessors[from], to)
}

// ChannelSuccessors returns the legal next goods-track states.
func ChannelSuccessors(from model.ChannelStatus) []model.ChannelStatus {
	return copyOf(channelSuccessors[from])
}

// IsChannelTerminal reports whether no further goods-track move exists.
func IsChannelTerminal(s model.ChannelStatus) bool {
	succ, ok := channelSuccessors[s]
	return ok && len(succ) == 0
}

// TerminalChannelStatuses lists the goods-track states with no successor.
func TerminalChannelStatuses() []model.ChannelStatus {
	var out []model.ChannelStatus
	for _, st := range model.ChannelStatuses {
		if IsChannelTerminal(st) {
			out = append(out, st)
		}
	}
	return out
}

// ValidateChannel returns a TransitionError when the table refuses the move.
func ValidateChannel(from, to model.ChannelStatus) error {
	if !CanTransitionChannel(from, to) {
		return invalid(EntityChannel, string(from), string(to))
	}
	return nil
}

func CanTransitionPayment(from, to model.PaymentStatus) bool {
	return contains(paymentSuccessors[from], to)
}

func PaymentSuccessors(from model.PaymentStatus) []model.PaymentStatus {
	return copyOf(paymentSuccessors[from])
}

func IsPaymentTerminal(s model.PaymentStatus) bool {
	succ, ok := paymentSuccessors[s]
	return ok && len(succ) == 0
}

func ValidatePayment(from, to model.PaymentStatus) error {
	if !CanTransitionPayment(from, to) {
		return invalid(EntityPayment, string(from), string(to))
	}
	return nil
}

func CanTransitionRequest(from, to model.RequestStatus) bool {
	return contains(requestSuccessors[from], to)
}

func RequestSuccessors(from model.RequestStatus) []model.RequestStatus {
	return copyOf(requestSuccessors[from])
}

func IsRequestTerminal(s model.RequestStatus) bool {
	succ, ok := requestSuccessors[s]
	return ok && len(succ) == 0
}

func ValidateRequest(from, to model.RequestStatus) error {
	if !CanTransitionRequest(from, to) {
		return invalid(EntityStockRequest, string(from), string(to))
	}
	return nil
}

// ReleasableRequest reports whether a request holds warehouse goods that
// have not left the building yet.
func ReleasableRequest(s model.RequestStatus) bool {
	return s == model.RequestAllocated || s == model.RequestPacked
}

// GoodsSettledForPayment reports whether the goods track is far enough
// for finance to open the payment track.
func GoodsSettledForPayment(s model.ChannelStatus) bool {
	switch s {
	case model.ChannelActive, model.ChannelPendingReturn, model.ChannelReturning, model.ChannelReturned:
		return true
	}
	return false
}
