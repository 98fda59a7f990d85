package repository

import (
	"fmt"
	"testing"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"
)

func TestOrderRepositoryCreateAndQuery(t *testing.T) {
	db := setupRepositoryTestDB(t, "order_repo")
	repo := NewOrderRepository(db)

	for i := 1; i <= 3; i++ {
		order := &models.Order{
			OrderNo:        fmt.Sprintf("ORDER-%d", i),
			CustomerID:     7,
			Status:         constants.OrderStatusPendingPayment,
			Currency:       constants.SiteCurrencyDefault,
			SubtotalAmount: money(100),
			TotalAmount:    money(100),
		}
		items := []models.OrderItem{
			{ProductID: 1, SellerID: 1, Quantity: 1, UnitPrice: money(60), BaseAmount: money(60), FinalAmount: money(60)},
			{ProductID: 2, SellerID: 2, Quantity: 1, UnitPrice: money(40), BaseAmount: money(40), FinalAmount: money(40)},
		}
		if err := repo.Create(order, items); err != nil {
			t.Fatalf("create order failed: %v", err)
		}
		if len(order.Items) != 2 || order.Items[0].OrderID != order.ID {
			t.Fatalf("created order items not linked: %+v", order.Items)
		}
	}
	other := &models.Order{OrderNo: "OTHER", CustomerID: 8, Status: constants.OrderStatusPendingPayment, Currency: constants.SiteCurrencyDefault}
	if err := repo.Create(other, nil); err != nil {
		t.Fatalf("create other order failed: %v", err)
	}

	found, err := repo.GetByOrderNo(" ORDER-2 ")
	if err != nil || found == nil {
		t.Fatalf("get by order no failed: %v", err)
	}
	if len(found.Items) != 2 || found.Items[0].ProductID != 1 {
		t.Fatalf("order items should be preloaded in id order: %+v", found.Items)
	}

	missing, err := repo.GetByOrderNo("")
	if err != nil || missing != nil {
		t.Fatalf("blank order no should return nil, got %+v err=%v", missing, err)
	}

	rows, total, err := repo.ListByCustomer(OrderListFilter{Page: 1, PageSize: 2, CustomerID: 7})
	if err != nil {
		t.Fatalf("list orders failed: %v", err)
	}
	if total != 3 || len(rows) != 2 {
		t.Fatalf("list orders want total=3 len=2 got total=%d len=%d", total, len(rows))
	}
	if rows[0].OrderNo != "ORDER-3" {
		t.Fatalf("orders should be newest first, got %s", rows[0].OrderNo)
	}
}
