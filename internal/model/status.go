package model

// ChannelStatus is the physical-goods lifecycle of a pop-up channel.
type ChannelStatus string

const (
	ChannelDraft           ChannelStatus = "draft"
	ChannelPendingApproval ChannelStatus = "pending_approval"
	ChannelApproved        ChannelStatus = "approved"
	ChannelPacking         ChannelStatus = "packing"
	ChannelPacked          ChannelStatus = "packed"
	ChannelShipped         ChannelStatus = "shipped"
	ChannelActive          ChannelStatus = "active"
	ChannelPendingReturn   ChannelStatus = "pending_return"
	ChannelReturning       ChannelStatus = "returning"
	ChannelReturned        ChannelStatus = "returned"
	ChannelCompleted       ChannelStatus = "completed"
	ChannelCancelled       ChannelStatus = "cancelled"
	ChannelClosed          ChannelStatus = "closed"
)

// ChannelStatuses lists every goods-track state in lifecycle order.
var ChannelStatuses = []ChannelStatus{
	ChannelDraft, ChannelPendingApproval, ChannelApproved, ChannelPacking,
	ChannelPacked, ChannelShipped, ChannelActive, ChannelPendingReturn,
	ChannelReturning, ChannelReturned, ChannelCompleted, ChannelCancelled,
	ChannelClosed,
}

// Valid reports whether s is a known goods-track state.
func (s ChannelStatus) Valid() bool {
	for _, v := range ChannelStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// PaymentStatus is the financial close-out track, independent of goods.
type PaymentStatus string

const (
	PaymentNone     PaymentStatus = "none"
	PaymentPending  PaymentStatus = "pending_payment"
	PaymentApproved PaymentStatus = "payment_approved"
)

var PaymentStatuses = []PaymentStatus{PaymentNone, PaymentPending, PaymentApproved}

func (s PaymentStatus) Valid() bool {
	for _, v := range PaymentStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// RequestStatus is the stock request sub-lifecycle.
type RequestStatus string

const (
	RequestDraft     RequestStatus = "draft"
	RequestSubmitted RequestStatus = "submitted"
	RequestApproved  RequestStatus = "approved"
	RequestAllocated RequestStatus = "allocated"
	RequestPacked    RequestStatus = "packed"
	RequestShipped   RequestStatus = "shipped"
	RequestReceived  RequestStatus = "received"
	RequestCancelled RequestStatus = "cancelled"
)

var RequestStatuses = []RequestStatus{
	RequestDraft, RequestSubmitted, RequestApproved, RequestAllocated,
	RequestPacked, RequestShipped, RequestReceived, RequestCancelled,
}

func (s RequestStatus) Valid() bool {
	for _, v := range RequestStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Rank orders request statuses along the happy path. Cancelled ranks -1.
func (s RequestStatus) Rank() int {
	if s == RequestCancelled {
		return -1
	}
	for i, v := range RequestStatuses {
		if v == s {
			return i
		}
	}
	return -1
}

// AtLeast reports whether s has reached (or passed) other on the happy path.
func (s RequestStatus) AtLeast(other RequestStatus) bool {
	return s.Rank() >= 0 && s.Rank() >= other.Rank()
}

type SaleStatus string

const (
	SaleActive    SaleStatus = "active"
	SaleCancelled SaleStatus = "cancelled"
)

type ReturnStatus string

const (
	ReturnPending ReturnStatus = "pending"
	ReturnSettled ReturnStatus = "settled"
)
