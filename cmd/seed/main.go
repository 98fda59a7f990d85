package main

import (
	"context"
	"errors"
	"time"

	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"
	"github.com/bazaar-next/internal/service"

	"github.com/shopspring/decimal"
)

type seedProduct struct {
	slug     string
	title    string
	seller   uint
	category string
	price    int64
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, false); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	categoryRepo := repository.NewCategoryRepository(models.DB)
	productRepo := repository.NewProductRepository(models.DB)
	discountRepo := repository.NewDiscountRepository(models.DB)

	// 添加分类
	categories := []models.Category{
		{Slug: "electronics", NameJSON: models.JSON{"zh-CN": "电子产品", "en-US": "Electronics"}},
		{Slug: "lifestyle", NameJSON: models.JSON{"zh-CN": "生活用品", "en-US": "Lifestyle"}},
	}
	categoryIDs := map[string]uint{}
	for i := range categories {
		existing, err := categoryRepo.GetBySlug(categories[i].Slug)
		if err != nil {
			stdLog.Fatalf("Failed to load category %s: %v", categories[i].Slug, err)
		}
		if existing != nil {
			stdLog.Printf("Category already exists: %s", existing.Slug)
			categoryIDs[existing.Slug] = existing.ID
			continue
		}
		if err := categoryRepo.Create(&categories[i]); err != nil {
			stdLog.Fatalf("Failed to create category %s: %v", categories[i].Slug, err)
		}
		stdLog.Printf("Created category: %s", categories[i].Slug)
		categoryIDs[categories[i].Slug] = categories[i].ID
	}

	// 添加商品（两个店铺）
	products := []seedProduct{
		{slug: "wireless-earbuds", title: "无线耳机", seller: 1, category: "electronics", price: 1000},
		{slug: "desk-lamp", title: "台灯", seller: 2, category: "lifestyle", price: 2000},
		{slug: "usb-cable", title: "数据线", seller: 1, category: "electronics", price: 50},
	}
	var existingProducts int64
	if err := models.DB.Model(&models.Product{}).Count(&existingProducts).Error; err != nil {
		stdLog.Fatalf("Failed to count products: %v", err)
	}
	if existingProducts > 0 {
		stdLog.Printf("Products already seeded, skip")
	} else {
		for _, item := range products {
			product := &models.Product{
				SellerID:    item.seller,
				CategoryID:  categoryIDs[item.category],
				Slug:        item.slug,
				TitleJSON:   models.JSON{"zh-CN": item.title},
				PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(item.price)),
				IsActive:    true,
			}
			if err := productRepo.Create(product); err != nil {
				stdLog.Fatalf("Failed to create product %s: %v", item.slug, err)
			}
			stdLog.Printf("Created product: %s (#%d)", item.slug, product.ID)
		}
	}

	// 添加优惠：店铺立减、平台券 SAVE10、平台包邮
	existing, err := discountRepo.ListCouponsByCode("SAVE10")
	if err != nil {
		stdLog.Fatalf("Failed to load coupons: %v", err)
	}
	if len(existing) > 0 {
		stdLog.Printf("Discounts already seeded, skip")
		return
	}

	maxDiscount := models.NewMoneyFromInt(200)
	usageLimit := 100
	perUser := 1
	endsAt := time.Now().AddDate(0, 1, 0)
	adminService := service.NewDiscountAdminService(discountRepo)
	inputs := []service.CreateDiscountInput{
		{
			Name:      "店铺1满减",
			Authority: constants.DiscountAuthoritySeller,
			SellerID:  1,
			Kind:      constants.DiscountKindFlat,
			ScopeType: constants.ScopeTypeStore,
			Value:     models.NewMoneyFromInt(100),
			Priority:  10,
		},
		{
			Name:            "平台九折券",
			Authority:       constants.DiscountAuthorityPlatform,
			CodeType:        constants.DiscountCodeTypeCoupon,
			Code:            "SAVE10",
			Kind:            constants.DiscountKindPercentage,
			ScopeType:       constants.ScopeTypeStore,
			Value:           models.NewMoneyFromInt(10),
			MaxDiscount:     &maxDiscount,
			UsageLimitTotal: &usageLimit,
			PerUserLimit:    &perUser,
			EndsAt:          &endsAt,
		},
		{
			Name:                      "平台包邮",
			Authority:                 constants.DiscountAuthorityPlatform,
			Kind:                      constants.DiscountKindFreeShipping,
			ScopeType:                 constants.ScopeTypeShipping,
			MinCartSubtotal:           models.NewMoneyFromInt(99),
			StackableWithFreeShipping: true,
		},
	}
	for _, input := range inputs {
		discount, err := adminService.Create(context.Background(), input)
		if err != nil {
			if errors.Is(err, service.ErrDiscountInvalid) {
				stdLog.Printf("Skip invalid discount %s: %v", input.Name, err)
				continue
			}
			stdLog.Fatalf("Failed to create discount %s: %v", input.Name, err)
		}
		stdLog.Printf("Created discount: %s (#%d)", discount.Name, discount.ID)
	}
}
