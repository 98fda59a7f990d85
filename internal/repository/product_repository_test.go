package repository

import (
	"testing"

	"github.com/bazaar-next/internal/models"

	"github.com/shopspring/decimal"
)

func TestProductRepositoryListByIDs(t *testing.T) {
	db := setupRepositoryTestDB(t, "product_repo_list")
	repo := NewProductRepository(db)

	first := &models.Product{SellerID: 1, CategoryID: 10, Slug: "earbuds", PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(1000)), IsActive: true}
	second := &models.Product{SellerID: 2, CategoryID: 20, Slug: "lamp", PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(2000)), IsActive: true}
	for _, product := range []*models.Product{first, second} {
		if err := repo.Create(product); err != nil {
			t.Fatalf("create product failed: %v", err)
		}
	}

	rows, err := repo.ListByIDs([]uint{first.ID, second.ID, 999})
	if err != nil {
		t.Fatalf("list by ids failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("list by ids want 2 got %d", len(rows))
	}

	empty, err := repo.ListByIDs(nil)
	if err != nil {
		t.Fatalf("list by empty ids failed: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("list by empty ids want 0 got %d", len(empty))
	}
}

func TestProductRepositoryListByIDsEmpty(t *testing.T) {
	db := setupRepositoryTestDB(t, "product_repo_missing")
	repo := NewProductRepository(db)

	products, err := repo.ListByIDs(nil)
	if err != nil {
		t.Fatalf("list without ids failed: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("empty id list want no products got %d", len(products))
	}
	products, err = repo.ListByIDs([]uint{42})
	if err != nil {
		t.Fatalf("list missing product failed: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("missing product want no rows got %d", len(products))
	}
}
