package provider

import (
	"time"

	"github.com/bazaar-next/internal/cache"
	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/queue"
	"github.com/bazaar-next/internal/repository"
	"github.com/bazaar-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	ProductRepo          repository.ProductRepository
	DiscountRepo         repository.DiscountRepository
	CouponRedemptionRepo repository.CouponRedemptionRepository
	OrderRepo            repository.OrderRepository

	// Services
	PricingService           *service.PricingService
	CouponReservationService *service.CouponReservationService
	OrderService             *service.OrderService
	ReconciliationService    *service.ReconciliationService
	DiscountAdminService     *service.DiscountAdminService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.ProductRepo = repository.NewProductRepository(db)
	c.DiscountRepo = repository.NewDiscountRepository(db)
	c.CouponRedemptionRepo = repository.NewCouponRedemptionRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
}

func (c *Container) initServices() {
	db := models.DB
	c.PricingService = service.NewPricingService(c.ProductRepo, c.DiscountRepo, service.PricingOptions{
		Currency:        c.Config.Pricing.Currency,
		CatalogCacheTTL: time.Duration(c.Config.Pricing.CatalogCacheSeconds) * time.Second,
	})
	c.CouponReservationService = service.NewCouponReservationService(db, c.DiscountRepo, c.CouponRedemptionRepo, c.QueueClient)
	c.OrderService = service.NewOrderService(db, c.OrderRepo, c.PricingService, c.CouponReservationService)
	c.ReconciliationService = service.NewReconciliationService(db, c.DiscountRepo, c.CouponRedemptionRepo)
	c.DiscountAdminService = service.NewDiscountAdminService(c.DiscountRepo)
}
