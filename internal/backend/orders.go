package backend

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/atelier-works/concierge/internal/agent"
	"github.com/atelier-works/concierge/internal/domain"
)

// Orders is the mock order management backend.
type Orders struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	now    func() time.Time
}

// NewOrders builds an orders backend seeded with mock data.
func NewOrders() *Orders {
	return &Orders{
		orders: seedOrders(),
		now:    time.Now,
	}
}

func seedOrders() map[string]*domain.Order {
	return map[string]*domain.Order{
		"ORD-001": {
			OrderID: "ORD-001",
			UserID:  "user_123",
			Items: []domain.OrderItem{
				{ItemID: "ITEM-001", Name: "Wireless Headphones", Quantity: 1, Price: 99.99},
				{ItemID: "ITEM-002", Name: "Phone Case", Quantity: 2, Price: 19.99},
			},
			TotalAmount: 139.97,
			Status:      domain.OrderStatusShipped,
			CreatedAt:   "2025-11-25T10:30:00",
			UpdatedAt:   "2025-11-26T14:20:00",
		},
		"ORD-002": {
			OrderID: "ORD-002",
			UserID:  "user_456",
			Items: []domain.OrderItem{
				{ItemID: "ITEM-003", Name: "Laptop Stand", Quantity: 1, Price: 49.99},
			},
			TotalAmount: 49.99,
			Status:      domain.OrderStatusProcessing,
			CreatedAt:   "2025-11-28T09:15:00",
			UpdatedAt:   "2025-11-28T09:15:00",
		},
		"ORD-003": {
			OrderID: "ORD-003",
			UserID:  "user_789",
			Items: []domain.OrderItem{
				{ItemID: "ITEM-004", Name: "USB-C Cable", Quantity: 3, Price: 12.99},
				{ItemID: "ITEM-005", Name: "Keyboard", Quantity: 1, Price: 79.99},
			},
			TotalAmount: 118.96,
			Status:      domain.OrderStatusDelivered,
			CreatedAt:   "2025-11-20T16:45:00",
			UpdatedAt:   "2025-11-24T11:30:00",
		},
		"ORD-004": {
			OrderID: "ORD-004",
			UserID:  "user_123",
			Items: []domain.OrderItem{
				{ItemID: "ITEM-006", Name: "Monitor", Quantity: 1, Price: 299.99},
			},
			TotalAmount: 299.99,
			Status:      domain.OrderStatusPending,
			CreatedAt:   "2025-11-30T13:20:00",
			UpdatedAt:   "2025-11-30T13:20:00",
		},
	}
}

// GetOrder returns the order with the given id, or nil if it does not exist.
func (o *Orders) GetOrder(orderID string) *domain.Order {
	o.mu.Lock()
	defer o.mu.Unlock()

	order, ok := o.orders[orderID]
	if !ok {
		return nil
	}
	cp := *order
	cp.Items = append([]domain.OrderItem(nil), order.Items...)
	return &cp
}

// GetOrderStatus returns the status of an order, or "" if it does not exist.
func (o *Orders) GetOrderStatus(orderID string) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	if order, ok := o.orders[orderID]; ok {
		return order.Status
	}
	return ""
}

// SwapItem replaces one line item of a pending or processing order with a
// new item, keeping the original quantity and price.
func (o *Orders) SwapItem(orderID, oldItemID, newItemID, newItemName string) domain.ActionResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	order, ok := o.orders[orderID]
	if !ok {
		return domain.Failure(fmt.Sprintf("Order %s not found", orderID))
	}

	if order.Status != domain.OrderStatusPending && order.Status != domain.OrderStatusProcessing {
		return domain.Failure(fmt.Sprintf(
			"Cannot modify order with status '%s'. Only pending or processing orders can be modified.",
			order.Status))
	}

	for idx, item := range order.Items {
		if item.ItemID == oldItemID {
			order.Items[idx] = domain.OrderItem{
				ItemID:   newItemID,
				Name:     newItemName,
				Quantity: item.Quantity,
				Price:    item.Price,
			}
			order.UpdatedAt = o.now().Format("2006-01-02T15:04:05")
			return domain.Successf(fmt.Sprintf(
				"Successfully swapped %s with %s in order %s", item.Name, newItemName, orderID))
		}
	}

	return domain.Failure(fmt.Sprintf("Item %s not found in order %s", oldItemID, orderID))
}

// CancelOrder cancels an order that has not shipped yet.
func (o *Orders) CancelOrder(orderID string) domain.ActionResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	order, ok := o.orders[orderID]
	if !ok {
		return domain.Failure(fmt.Sprintf("Order %s not found", orderID))
	}

	switch order.Status {
	case domain.OrderStatusShipped, domain.OrderStatusDelivered:
		return domain.Failure(fmt.Sprintf(
			"Cannot cancel order with status '%s'. Please contact support for returns.", order.Status))
	case domain.OrderStatusCancelled:
		return domain.Failure(fmt.Sprintf("Order %s is already cancelled", orderID))
	}

	order.Status = domain.OrderStatusCancelled
	order.UpdatedAt = o.now().Format("2006-01-02T15:04:05")
	return domain.Successf(fmt.Sprintf("Order %s has been cancelled", orderID))
}

var validOrderStatuses = []string{
	domain.OrderStatusPending,
	domain.OrderStatusProcessing,
	domain.OrderStatusShipped,
	domain.OrderStatusDelivered,
	domain.OrderStatusCancelled,
}

// UpdateOrderStatus sets an order's status to any valid status value.
func (o *Orders) UpdateOrderStatus(orderID, newStatus string) domain.ActionResult {
	valid := false
	for _, s := range validOrderStatuses {
		if newStatus == s {
			valid = true
			break
		}
	}
	if !valid {
		return domain.Failure(fmt.Sprintf(
			"Invalid status. Must be one of: %s", strings.Join(validOrderStatuses, ", ")))
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	order, ok := o.orders[orderID]
	if !ok {
		return domain.Failure(fmt.Sprintf("Order %s not found", orderID))
	}

	oldStatus := order.Status
	order.Status = newStatus
	order.UpdatedAt = o.now().Format("2006-01-02T15:04:05")
	return domain.Successf(fmt.Sprintf(
		"Order %s status updated from '%s' to '%s'", orderID, oldStatus, newStatus))
}

const getOrderDoc = `Retrieve order details by order_id.

Args:
    order_id: The unique order identifier

Returns:
    Order details if found, null otherwise`

const getOrderStatusDoc = `Get the status of an order.

Args:
    order_id: The unique order identifier

Returns:
    Order status string if found, empty otherwise`

const swapItemDoc = `Swap an item in an order with another item.

Business Logic:
- Order must exist
- Order status must be 'pending' or 'processing' (not shipped/delivered/cancelled)
- Old item must exist in the order

Args:
    order_id: The unique order identifier
    old_item_id: ID of item to replace
    new_item_id: ID of new item
    new_item_name: Name of new item

Returns:
    Result with success status and message`

const cancelOrderDoc = `Cancel an order.

Business Logic:
- Order must exist
- Order status must be 'pending' or 'processing' (not shipped/delivered)

Args:
    order_id: The unique order identifier

Returns:
    Result with success status and message`

const updateOrderStatusDoc = `Update the status of an order.

Args:
    order_id: The unique order identifier
    new_status: New status value

Returns:
    Result with success status and message`

// Tools exposes the order operations as agent tools.
func (o *Orders) Tools() []agent.Tool {
	return []agent.Tool{
		{
			Name:   "get_order",
			Doc:    getOrderDoc,
			Params: []agent.Param{{Name: "order_id", Type: agent.TypeString}},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				orderID, err := stringArg(args, "order_id")
				if err != nil {
					return nil, err
				}
				return o.GetOrder(orderID), nil
			},
		},
		{
			Name:   "get_order_status",
			Doc:    getOrderStatusDoc,
			Params: []agent.Param{{Name: "order_id", Type: agent.TypeString}},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				orderID, err := stringArg(args, "order_id")
				if err != nil {
					return nil, err
				}
				return o.GetOrderStatus(orderID), nil
			},
		},
		{
			Name: "swap_item",
			Doc:  swapItemDoc,
			Params: []agent.Param{
				{Name: "order_id", Type: agent.TypeString},
				{Name: "old_item_id", Type: agent.TypeString},
				{Name: "new_item_id", Type: agent.TypeString},
				{Name: "new_item_name", Type: agent.TypeString},
			},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				orderID, err := stringArg(args, "order_id")
				if err != nil {
					return nil, err
				}
				oldItemID, err := stringArg(args, "old_item_id")
				if err != nil {
					return nil, err
				}
				newItemID, err := stringArg(args, "new_item_id")
				if err != nil {
					return nil, err
				}
				newItemName, err := stringArg(args, "new_item_name")
				if err != nil {
					return nil, err
				}
				return o.SwapItem(orderID, oldItemID, newItemID, newItemName), nil
			},
		},
		{
			Name:   "cancel_order",
			Doc:    cancelOrderDoc,
			Params: []agent.Param{{Name: "order_id", Type: agent.TypeString}},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				orderID, err := stringArg(args, "order_id")
				if err != nil {
					return nil, err
				}
				return o.CancelOrder(orderID), nil
			},
		},
		{
			Name: "update_order_status",
			Doc:  updateOrderStatusDoc,
			Params: []agent.Param{
				{Name: "order_id", Type: agent.TypeString},
				{Name: "new_status", Type: agent.TypeString},
			},
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				orderID, err := stringArg(args, "order_id")
				if err != nil {
					return nil, err
				}
				newStatus, err := stringArg(args, "new_status")
				if err != nil {
					return nil, err
				}
				return o.UpdateOrderStatus(orderID, newStatus), nil
			},
		},
	}
}
