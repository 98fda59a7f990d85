package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var fixtureNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

type serviceFixture struct {
	db             *gorm.DB
	productRepo    *repository.GormProductRepository
	discountRepo   *repository.GormDiscountRepository
	redemptionRepo *repository.GormCouponRedemptionRepository
	orderRepo      *repository.GormOrderRepository
	pricing        *PricingService
	reservation    *CouponReservationService
	orders         *OrderService
	reconciliation *ReconciliationService
}

func setupServiceTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	// 共享内存库并发写会触发表锁，测试中串行化连接；并发用例因此只验证计数结果，不验证交错
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

func newServiceFixture(t *testing.T, name string) *serviceFixture {
	t.Helper()
	db := setupServiceTestDB(t, name)
	f := &serviceFixture{
		db:             db,
		productRepo:    repository.NewProductRepository(db),
		discountRepo:   repository.NewDiscountRepository(db),
		redemptionRepo: repository.NewCouponRedemptionRepository(db),
		orderRepo:      repository.NewOrderRepository(db),
	}
	f.pricing = NewPricingService(f.productRepo, f.discountRepo, PricingOptions{})
	f.pricing.now = func() time.Time { return fixtureNow }
	f.reservation = NewCouponReservationService(db, f.discountRepo, f.redemptionRepo, nil)
	f.reservation.now = func() time.Time { return fixtureNow }
	f.orders = NewOrderService(db, f.orderRepo, f.pricing, f.reservation)
	f.reconciliation = NewReconciliationService(db, f.discountRepo, f.redemptionRepo)
	return f
}

func (f *serviceFixture) createProduct(t *testing.T, slug string, sellerID, categoryID uint, price int64) *models.Product {
	t.Helper()
	product := &models.Product{
		SellerID:    sellerID,
		CategoryID:  categoryID,
		Slug:        slug,
		PriceAmount: moneyOf(price),
		IsActive:    true,
	}
	if err := f.productRepo.Create(product); err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func (f *serviceFixture) createDiscount(t *testing.T, discount *models.Discount) *models.Discount {
	t.Helper()
	if discount.CodeType == "" {
		discount.CodeType = constants.DiscountCodeTypeCampaign
	}
	if discount.IsActive == nil && discount.Status == "" {
		discount.IsActive = boolPtr(true)
	}
	if err := f.discountRepo.Create(discount); err != nil {
		t.Fatalf("create discount failed: %v", err)
	}
	return discount
}

func (f *serviceFixture) reloadDiscount(t *testing.T, id uint) *models.Discount {
	t.Helper()
	discount, err := f.discountRepo.GetByID(id)
	if err != nil || discount == nil {
		t.Fatalf("reload discount %d failed: %v", id, err)
	}
	return discount
}

// seedSave10 两个店铺各一件商品、店铺一立减 100、平台 SAVE10 券（9 折封顶 200）
func (f *serviceFixture) seedSave10(t *testing.T) (productA, productB *models.Product, coupon *models.Discount) {
	t.Helper()
	productA = f.createProduct(t, "earbuds", 1, 10, 1000)
	productB = f.createProduct(t, "lamp", 2, 20, 2000)
	f.createDiscount(t, &models.Discount{
		Name:      "seller-1 flat",
		Authority: constants.DiscountAuthoritySeller,
		SellerID:  uintPtr(1),
		Kind:      constants.DiscountKindFlat,
		ScopeType: constants.ScopeTypeStore,
		Value:     moneyOf(100),
	})
	coupon = f.createDiscount(t, &models.Discount{
		Name:            "SAVE10",
		Authority:       constants.DiscountAuthorityPlatform,
		CodeType:        constants.DiscountCodeTypeCoupon,
		Code:            "SAVE10",
		Kind:            constants.DiscountKindPercentage,
		ScopeType:       constants.ScopeTypeStore,
		Value:           moneyOf(10),
		MaxDiscount:     models.MoneyPtr(moneyOf(200)),
		UsageLimitTotal: intPtr(100),
		PerUserLimit:    intPtr(1),
		EndsAt:          timePtr(fixtureNow.AddDate(0, 1, 0)),
	})
	return productA, productB, coupon
}

func cartLines(products ...*models.Product) []models.JSON {
	lines := make([]models.JSON, 0, len(products))
	for _, product := range products {
		lines = append(lines, models.JSON{"product_id": product.ID, "quantity": 1})
	}
	return lines
}

func moneyOf(amount int64) models.Money {
	return models.NewMoneyFromDecimal(decimal.NewFromInt(amount))
}

func dec(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

func boolPtr(value bool) *bool {
	return &value
}

func intPtr(value int) *int {
	return &value
}

func timePtr(value time.Time) *time.Time {
	return &value
}
