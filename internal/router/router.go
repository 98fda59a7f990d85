package router

import (
	"fmt"
	"strings"

	"github.com/bazaar-next/internal/cache"
	"github.com/bazaar-next/internal/config"
	"github.com/bazaar-next/internal/constants"
	adminhandlers "github.com/bazaar-next/internal/http/handlers/admin"
	publichandlers "github.com/bazaar-next/internal/http/handlers/public"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	redisClient := cache.Client()
	quoteRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:quote", redisPrefix),
		WindowSeconds: cfg.RateLimit.Quote.WindowSeconds,
		MaxRequests:   cfg.RateLimit.Quote.MaxRequests,
	}
	orderRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:order", redisPrefix),
		WindowSeconds: cfg.RateLimit.Order.WindowSeconds,
		MaxRequests:   cfg.RateLimit.Order.MaxRequests,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(MetricsMiddleware())
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", healthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := r.Group("/api/v1")
	{
		pricing := apiV1.Group("/pricing")
		{
			pricing.POST("/quote", RateLimitMiddleware(redisClient, quoteRule, KeyByCustomer), publicHandler.Quote)
		}

		orders := apiV1.Group("/orders")
		{
			orders.POST("", RateLimitMiddleware(redisClient, orderRule, KeyByCustomer), publicHandler.CreateOrder)
			orders.GET("", publicHandler.ListOrders)
			orders.GET("/:order_no", publicHandler.GetOrderByOrderNo)
		}

		if strings.TrimSpace(cfg.Server.AdminToken) != "" {
			admin := apiV1.Group("/admin", AdminTokenMiddleware(cfg.Server.AdminToken))
			{
				admin.POST("/discounts", adminHandler.CreateDiscount)
				admin.GET("/coupons/:id/audit", adminHandler.AuditCoupon)
				admin.POST("/coupons/audit", adminHandler.TriggerCouponAudit)
			}
		} else {
			logger.Infow("router_admin_routes_disabled", "reason", "empty_admin_token")
		}
	}

	return r
}

// healthHandler 检查数据库连通性
func healthHandler(c *gin.Context) {
	if models.DB == nil {
		response.Error(c, response.CodeInternal, "database not initialized")
		return
	}
	sqlDB, err := models.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		response.Error(c, response.CodeInternal, "database unavailable")
		return
	}
	response.Success(c, gin.H{"status": "ok", "redis": cache.Enabled()})
}
