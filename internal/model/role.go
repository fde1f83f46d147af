package model

// Role represents staff roles in the system
type Role struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Code        string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name        string      `gorm:"type:varchar(100)" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Privileges  []Privilege `gorm:"many2many:role_privileges;" json:"privileges,omitempty"`
}

// Role codes as constants
const (
	RoleAdmin       = "ADMIN"
	RoleAreaManager = "AREA_MANAGER"
	RoleWarehouse   = "WAREHOUSE"
	RoleCashier     = "CASHIER"
	RoleFinance     = "FINANCE"
)

// DefaultRoles defines the default roles in the system
var DefaultRoles = []Role{
	{Code: RoleAdmin, Name: "Administrator", Description: "Full access to every ledger operation"},
	{Code: RoleAreaManager, Name: "Area Manager", Description: "Plans channels, approves requests and closes out"},
	{Code: RoleWarehouse, Name: "Warehouse", Description: "Allocates, packs, ships and confirms returns"},
	{Code: RoleCashier, Name: "Cashier", Description: "Runs the point of sale at a channel"},
	{Code: RoleFinance, Name: "Finance", Description: "Approves payment close-out"},
}

// DefaultRolePrivileges maps each non-admin role to its privilege codes.
// ADMIN receives every privilege.
var DefaultRolePrivileges = map[string][]string{
	RoleAreaManager: {
		PrivChannelView, PrivChannelCreate, PrivChannelTransition, PrivChannelApprove,
		PrivChannelAssign, PrivRequestCreate, PrivRequestApprove, PrivRequestReceive,
		PrivSaleCancel, PrivReturnCloseOut, PrivStaffView,
	},
	RoleWarehouse: {
		PrivChannelView, PrivChannelTransition, PrivRequestWarehouse, PrivReturnConfirm,
		PrivWarehouseRestock,
	},
	RoleCashier: {
		PrivChannelView, PrivSaleCreate, PrivRequestReceive, PrivRequestCreate,
	},
	RoleFinance: {
		PrivChannelView, PrivPaymentApprove, PrivChannelTransition,
	},
}
