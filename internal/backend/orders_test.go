package backend

import (
	"context"
	"strings"
	"testing"

	"github.com/atelier-works/concierge/internal/domain"
)

func TestGetOrder(t *testing.T) {
	orders := NewOrders()

	order := orders.GetOrder("ORD-001")
	if order == nil {
		t.Fatal("Expected ORD-001 to exist")
	}
	if order.UserID != "user_123" {
		t.Errorf("Expected user_123, got %q", order.UserID)
	}
	if order.Status != domain.OrderStatusShipped {
		t.Errorf("Expected shipped, got %q", order.Status)
	}
	if len(order.Items) != 2 {
		t.Errorf("Expected 2 items, got %d", len(order.Items))
	}

	if got := orders.GetOrder("ORD-999"); got != nil {
		t.Errorf("Expected nil for unknown order, got %+v", got)
	}
}

func TestGetOrderReturnsCopy(t *testing.T) {
	orders := NewOrders()

	order := orders.GetOrder("ORD-001")
	order.Status = "mangled"
	order.Items[0].Name = "mangled"

	fresh := orders.GetOrder("ORD-001")
	if fresh.Status != domain.OrderStatusShipped || fresh.Items[0].Name != "Wireless Headphones" {
		t.Error("Expected GetOrder to return an isolated copy")
	}
}

func TestGetOrderStatus(t *testing.T) {
	orders := NewOrders()

	if got := orders.GetOrderStatus("ORD-002"); got != domain.OrderStatusProcessing {
		t.Errorf("Expected processing, got %q", got)
	}
	if got := orders.GetOrderStatus("ORD-999"); got != "" {
		t.Errorf("Expected empty status for unknown order, got %q", got)
	}
}

func TestSwapItem(t *testing.T) {
	orders := NewOrders()

	// ORD-004 is pending, so it can be modified.
	result := orders.SwapItem("ORD-004", "ITEM-006", "ITEM-007", "Ultrawide Monitor")
	if !result.Success {
		t.Fatalf("Expected swap to succeed, got %q", result.Message)
	}

	order := orders.GetOrder("ORD-004")
	if order.Items[0].ItemID != "ITEM-007" || order.Items[0].Name != "Ultrawide Monitor" {
		t.Errorf("Expected item replaced, got %+v", order.Items[0])
	}
	// Quantity and price carry over from the old item.
	if order.Items[0].Quantity != 1 || order.Items[0].Price != 299.99 {
		t.Errorf("Expected quantity and price preserved, got %+v", order.Items[0])
	}
}

func TestSwapItemRejectsShippedOrder(t *testing.T) {
	orders := NewOrders()

	result := orders.SwapItem("ORD-001", "ITEM-001", "ITEM-009", "Speaker")
	if result.Success {
		t.Fatal("Expected swap on shipped order to fail")
	}
	if !strings.Contains(result.Message, "shipped") {
		t.Errorf("Expected status in message, got %q", result.Message)
	}
}

func TestSwapItemUnknownItem(t *testing.T) {
	orders := NewOrders()

	result := orders.SwapItem("ORD-002", "ITEM-999", "ITEM-001", "Headphones")
	if result.Success {
		t.Fatal("Expected swap of unknown item to fail")
	}
	if !strings.Contains(result.Message, "ITEM-999") {
		t.Errorf("Expected item id in message, got %q", result.Message)
	}
}

func TestCancelOrder(t *testing.T) {
	orders := NewOrders()

	result := orders.CancelOrder("ORD-002")
	if !result.Success {
		t.Fatalf("Expected cancel to succeed, got %q", result.Message)
	}
	if got := orders.GetOrderStatus("ORD-002"); got != domain.OrderStatusCancelled {
		t.Errorf("Expected cancelled, got %q", got)
	}

	// Cancelling again fails.
	result = orders.CancelOrder("ORD-002")
	if result.Success {
		t.Error("Expected second cancel to fail")
	}
}

func TestCancelOrderRejectsShippedAndDelivered(t *testing.T) {
	orders := NewOrders()

	for _, orderID := range []string{"ORD-001", "ORD-003"} {
		result := orders.CancelOrder(orderID)
		if result.Success {
			t.Errorf("Expected cancel of %s to fail", orderID)
		}
		if !strings.Contains(result.Message, "contact support") {
			t.Errorf("Expected support hint, got %q", result.Message)
		}
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	orders := NewOrders()

	result := orders.UpdateOrderStatus("ORD-004", domain.OrderStatusProcessing)
	if !result.Success {
		t.Fatalf("Expected update to succeed, got %q", result.Message)
	}
	if !strings.Contains(result.Message, "'pending' to 'processing'") {
		t.Errorf("Expected transition in message, got %q", result.Message)
	}

	result = orders.UpdateOrderStatus("ORD-004", "teleported")
	if result.Success {
		t.Error("Expected invalid status to fail")
	}

	result = orders.UpdateOrderStatus("ORD-999", domain.OrderStatusPending)
	if result.Success {
		t.Error("Expected unknown order to fail")
	}
}

func TestOrdersToolsDispatch(t *testing.T) {
	orders := NewOrders()

	handler := findTool(t, orders, "get_order")

	out, err := handler(context.Background(), map[string]any{"order_id": "ORD-001"})
	if err != nil {
		t.Fatalf("Handler failed: %v", err)
	}
	order, ok := out.(*domain.Order)
	if !ok || order == nil || order.OrderID != "ORD-001" {
		t.Errorf("Expected ORD-001 from handler, got %#v", out)
	}

	if _, err := handler(context.Background(), map[string]any{}); err == nil {
		t.Error("Expected missing argument error")
	}
}
