package handler

import (
	"github.com/gofiber/fiber/v2"

	"go-popup-ledger/internal/middleware"
	"go-popup-ledger/internal/model"
)

// Handlers groups every HTTP adapter mounted under /api/v1.
type Handlers struct {
	Channel      *ChannelHandler
	StockRequest *StockRequestHandler
	Sale         *SaleHandler
	Return       *ReturnHandler
	Dashboard    *DashboardHandler
	Staff        *StaffHandler
	Role         *RoleHandler
	Warehouse    *WarehouseHandler
}

// RegisterRoutes mounts the API. Every route sits behind auth; mutating
// routes also require a privilege.
func RegisterRoutes(api fiber.Router, h Handlers, auth fiber.Handler) {
	need := middleware.RequirePrivilege
	protected := api.Group("", auth)

	// Channels
	ch := protected.Group("/channels")
	ch.Get("", need(model.PrivChannelView), h.Channel.GetChannels)
	ch.Post("", need(model.PrivChannelCreate), h.Channel.CreateChannel)
	ch.Get("/:id", need(model.PrivChannelView), h.Channel.GetChannel)
	ch.Get("/:id/actions", need(model.PrivChannelView), h.Channel.GetActions)
	ch.Post("/:id/transition", need(model.PrivChannelTransition), h.Channel.Transition)
	ch.Post("/:id/payment", need(model.PrivPaymentApprove), h.Channel.TransitionPayment)
	ch.Post("/:id/staff", need(model.PrivChannelAssign), h.Channel.AssignStaff)
	ch.Delete("/:id/staff/:staffId", need(model.PrivChannelAssign), h.Channel.UnassignStaff)
	ch.Get("/:id/events", need(model.PrivChannelView), h.Channel.GetEvents)
	ch.Get("/:id/stock", need(model.PrivChannelView), h.Channel.GetStock)
	ch.Get("/:id/stock/check", need(model.PrivChannelView), h.Channel.CheckConservation)
	ch.Get("/:id/summary", need(model.PrivChannelView), h.Dashboard.GetSummary)
	ch.Get("/:id/daily-sales", need(model.PrivChannelView), h.Dashboard.GetDailySales)
	ch.Get("/:id/stock-requests", need(model.PrivChannelView), h.StockRequest.GetChannelRequests)
	ch.Get("/:id/sales", need(model.PrivChannelView), h.Sale.GetChannelSales)
	ch.Post("/:id/close-out", need(model.PrivReturnCloseOut), h.Return.CloseOut)
	ch.Get("/:id/return", need(model.PrivChannelView), h.Return.GetSummary)
	ch.Post("/:id/return/ship", need(model.PrivReturnCloseOut), h.Return.ShipReturn)
	ch.Post("/:id/return/confirm", need(model.PrivReturnConfirm), h.Return.ConfirmReturn)

	// Stock requests
	sr := protected.Group("/stock-requests")
	sr.Post("", need(model.PrivRequestCreate), h.StockRequest.CreateRequest)
	sr.Get("/:id", need(model.PrivChannelView), h.StockRequest.GetRequest)
	sr.Post("/:id/submit", need(model.PrivRequestCreate), h.StockRequest.Submit)
	sr.Post("/:id/approve", need(model.PrivRequestApprove), h.StockRequest.Approve)
	sr.Post("/:id/cancel", middleware.RequireAnyPrivilege(model.PrivRequestCreate, model.PrivRequestApprove), h.StockRequest.Cancel)
	sr.Post("/:id/allocate", need(model.PrivRequestWarehouse), h.StockRequest.Allocate)
	sr.Post("/:id/pack", need(model.PrivRequestWarehouse), h.StockRequest.Pack)
	sr.Post("/:id/ship", need(model.PrivRequestWarehouse), h.StockRequest.Ship)
	sr.Post("/:id/release", need(model.PrivRequestWarehouse), h.StockRequest.Release)
	sr.Post("/:id/receive", need(model.PrivRequestReceive), h.StockRequest.Receive)

	// Point of sale
	protected.Post("/sales", need(model.PrivSaleCreate), h.Sale.CreateSale)
	protected.Get("/sales/:id", middleware.RequireAnyPrivilege(model.PrivSaleCreate, model.PrivChannelView), h.Sale.GetSale)
	protected.Post("/sales/:id/cancel", need(model.PrivSaleCancel), h.Sale.CancelSale)

	// Warehouse
	protected.Post("/warehouse/restock", need(model.PrivWarehouseRestock), h.Warehouse.Restock)
	protected.Get("/warehouse/stock", middleware.RequireAnyPrivilege(model.PrivRequestWarehouse, model.PrivWarehouseRestock), h.Warehouse.GetStock)

	// Staff and access control
	protected.Get("/staff", need(model.PrivStaffView), h.Staff.GetStaff)
	protected.Get("/staff/:id", need(model.PrivStaffView), h.Staff.GetStaffMember)
	protected.Post("/staff", need(model.PrivStaffManage), h.Staff.RegisterStaff)
	protected.Put("/staff/:id/privileges", need(model.PrivStaffManage), h.Staff.UpdateStaffPrivileges)
	protected.Get("/roles", h.Role.GetRoles)
	protected.Get("/privileges", h.Role.GetPrivileges)
}
