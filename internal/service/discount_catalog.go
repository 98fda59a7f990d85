package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bazaar-next/internal/cache"
	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"
)

// DiscountCatalog 有效优惠读取
type DiscountCatalog struct {
	repo     repository.DiscountRepository
	cacheTTL time.Duration
}

// NewDiscountCatalog 创建优惠目录，cacheTTL 为 0 时不使用缓存
func NewDiscountCatalog(repo repository.DiscountRepository, cacheTTL time.Duration) *DiscountCatalog {
	return &DiscountCatalog{repo: repo, cacheTTL: cacheTTL}
}

// CatalogQuery 目录查询条件
type CatalogQuery struct {
	SellerIDs []uint
	Now       time.Time
	// UseCache 仅报价允许读取缓存，下单必须读事务内数据
	UseCache bool
}

// Load 读取当前有效的优惠并规范化，单条记录异常时丢弃不影响定价
func (c *DiscountCatalog) Load(ctx context.Context, query CatalogQuery) ([]DiscountRule, error) {
	now := query.Now
	if now.IsZero() {
		now = time.Now()
	}
	sellerIDs := uniqueSortedIDs(query.SellerIDs)

	records, err := c.loadRecords(ctx, sellerIDs, now, query.UseCache)
	if err != nil {
		return nil, err
	}

	rules := make([]DiscountRule, 0, len(records))
	for _, record := range records {
		if !discountRecordActive(record, now) {
			continue
		}
		rule, err := canonicalizeDiscount(record)
		if err != nil {
			logger.Debugw("discount_catalog_record_dropped", "discount_id", record.ID, "error", err)
			continue
		}
		rules = append(rules, *rule)
	}
	return rules, nil
}

func (c *DiscountCatalog) loadRecords(ctx context.Context, sellerIDs []uint, now time.Time, useCache bool) ([]models.Discount, error) {
	cacheable := useCache && c.cacheTTL > 0 && cache.Enabled()
	key := catalogCacheKey(sellerIDs)
	if cacheable {
		var cached []models.Discount
		hit, err := cache.GetJSON(ctx, key, &cached)
		if err != nil {
			logger.Warnw("discount_catalog_cache_get_failed", "key", key, "error", err)
		} else if hit {
			return cached, nil
		}
	}

	records, err := c.repo.ListActive(repository.DiscountActiveFilter{SellerIDs: sellerIDs, Now: now})
	if err != nil {
		return nil, fmt.Errorf("load discount catalog: %w", err)
	}
	if cacheable {
		if err := cache.SetJSON(ctx, key, records, c.cacheTTL); err != nil {
			logger.Warnw("discount_catalog_cache_set_failed", "key", key, "error", err)
		}
	}
	return records, nil
}

func catalogCacheKey(sellerIDs []uint) string {
	if len(sellerIDs) == 0 {
		return constants.CacheKeyDiscountCatalog + ":platform"
	}
	parts := make([]string, 0, len(sellerIDs))
	for _, id := range sellerIDs {
		parts = append(parts, strconv.FormatUint(uint64(id), 10))
	}
	return constants.CacheKeyDiscountCatalog + ":" + strings.Join(parts, ",")
}

func uniqueSortedIDs(ids []uint) []uint {
	set := make(map[uint]struct{}, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := set[id]; ok {
			continue
		}
		set[id] = struct{}{}
		result = append(result, id)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// InvalidateDiscountCatalog 清除全部目录快照，优惠变更后调用
func InvalidateDiscountCatalog(ctx context.Context) {
	deleted, err := cache.DelByPrefix(ctx, constants.CacheKeyDiscountCatalog+":")
	if err != nil {
		logger.Warnw("discount_catalog_cache_invalidate_failed", "error", err)
		return
	}
	logger.Debugw("discount_catalog_cache_invalidated", "deleted", deleted)
}
