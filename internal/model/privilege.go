package model

// Privilege represents a permission that can be assigned to roles and staff
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "sale:create"
	Name string `gorm:"type:varchar(100)" json:"name"`
}

// Privilege codes checked by the HTTP gate.
const (
	PrivChannelView       = "channel:view"
	PrivChannelCreate     = "channel:create"
	PrivChannelTransition = "channel:transition"
	PrivChannelApprove    = "channel:approve"
	PrivChannelAssign     = "channel:assign"
	PrivRequestCreate     = "stock_request:create"
	PrivRequestApprove    = "stock_request:approve"
	PrivRequestWarehouse  = "stock_request:warehouse"
	PrivRequestReceive    = "stock_request:receive"
	PrivSaleCreate        = "sale:create"
	PrivSaleCancel        = "sale:cancel"
	PrivReturnCloseOut    = "return:close_out"
	PrivReturnConfirm     = "return:confirm"
	PrivPaymentApprove    = "payment:approve"
	PrivStaffView         = "staff:view"
	PrivStaffManage       = "staff:manage"
	PrivWarehouseRestock  = "warehouse:restock"
)

// Default privileges for the system
var DefaultPrivileges = []Privilege{
	// Channel lifecycle
	{Code: PrivChannelView, Name: "View Channel"},
	{Code: PrivChannelCreate, Name: "Create Channel"},
	{Code: PrivChannelTransition, Name: "Move Channel Status"},
	{Code: PrivChannelApprove, Name: "Approve Channel"},
	{Code: PrivChannelAssign, Name: "Assign Channel Staff"},
	// Stock requests
	{Code: PrivRequestCreate, Name: "Create Stock Request"},
	{Code: PrivRequestApprove, Name: "Approve Stock Request"},
	{Code: PrivRequestWarehouse, Name: "Allocate, Pack and Ship"},
	{Code: PrivRequestReceive, Name: "Receive Stock"},
	// Point of sale
	{Code: PrivSaleCreate, Name: "Record Sale"},
	{Code: PrivSaleCancel, Name: "Cancel Sale"},
	// Close-out
	{Code: PrivReturnCloseOut, Name: "Close Out Channel"},
	{Code: PrivReturnConfirm, Name: "Confirm Return"},
	// Finance
	{Code: PrivPaymentApprove, Name: "Approve Payment"},
	// Administration
	{Code: PrivStaffView, Name: "View Staff"},
	{Code: PrivStaffManage, Name: "Manage Staff"},
	{Code: PrivWarehouseRestock, Name: "Restock Warehouse"},
}
