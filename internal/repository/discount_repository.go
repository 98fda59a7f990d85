package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/models"

	"gorm.io/gorm"
)

// DiscountRepository 优惠规则数据访问接口
type DiscountRepository interface {
	GetByID(id uint) (*models.Discount, error)
	ListActive(filter DiscountActiveFilter) ([]models.Discount, error)
	ListCouponsByCode(code string) ([]models.Discount, error)
	ListLimitedCouponIDs() ([]uint, error)
	Create(discount *models.Discount) error
	ReserveUsage(id uint, code string, cartSubtotal models.Money, now time.Time) (int64, error)
	ReleaseUsage(id uint) (int64, error)
	WithTx(tx *gorm.DB) DiscountRepository
}

// DiscountActiveFilter 有效优惠查询条件
type DiscountActiveFilter struct {
	SellerIDs []uint
	Now       time.Time
}

// GormDiscountRepository GORM 实现
type GormDiscountRepository struct {
	db *gorm.DB
}

// NewDiscountRepository 创建优惠仓库
func NewDiscountRepository(db *gorm.DB) *GormDiscountRepository {
	return &GormDiscountRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDiscountRepository) WithTx(tx *gorm.DB) DiscountRepository {
	if tx == nil {
		return r
	}
	return &GormDiscountRepository{db: tx}
}

// activeDiscountScope 启用状态与有效期过滤，同时兼容 is_active/status 与 starts_at/valid_from 两套字段
func activeDiscountScope(query *gorm.DB, now time.Time) *gorm.DB {
	return query.
		Where("disabled = ?", false).
		Where("(is_active = ? OR (is_active IS NULL AND LOWER(status) = ?))", true, constants.DiscountStatusActive).
		Where("(COALESCE(starts_at, valid_from) IS NULL OR COALESCE(starts_at, valid_from) <= ?)", now).
		Where("(COALESCE(ends_at, valid_until) IS NULL OR COALESCE(ends_at, valid_until) >= ?)", now)
}

// GetByID 根据ID获取优惠
func (r *GormDiscountRepository) GetByID(id uint) (*models.Discount, error) {
	var discount models.Discount
	if err := r.db.First(&discount, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &discount, nil
}

// ListActive 获取当前有效的优惠：平台优惠全部返回，店铺优惠仅返回购物车内店铺
func (r *GormDiscountRepository) ListActive(filter DiscountActiveFilter) ([]models.Discount, error) {
	now := filter.Now
	if now.IsZero() {
		now = time.Now()
	}
	query := activeDiscountScope(r.db.Model(&models.Discount{}), now)
	if len(filter.SellerIDs) > 0 {
		query = query.Where("(authority = ? OR (authority = ? AND seller_id IN ?))",
			constants.DiscountAuthorityPlatform, constants.DiscountAuthoritySeller, filter.SellerIDs)
	} else {
		query = query.Where("authority = ?", constants.DiscountAuthorityPlatform)
	}

	var discounts []models.Discount
	if err := query.Order("priority desc, updated_at desc, created_at desc, id desc").Find(&discounts).Error; err != nil {
		return nil, err
	}
	return discounts, nil
}

// ListCouponsByCode 按优惠码获取平台优惠券（不过滤状态）
func (r *GormDiscountRepository) ListCouponsByCode(code string) ([]models.Discount, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return []models.Discount{}, nil
	}
	var discounts []models.Discount
	if err := r.db.
		Where("authority = ? AND code_type = ? AND UPPER(code) = ?",
			constants.DiscountAuthorityPlatform, constants.DiscountCodeTypeCoupon, code).
		Order("priority desc, updated_at desc, created_at desc, id desc").
		Find(&discounts).Error; err != nil {
		return nil, err
	}
	return discounts, nil
}

// ListLimitedCouponIDs 获取有限额或已使用的优惠券ID（对账巡检使用）
func (r *GormDiscountRepository) ListLimitedCouponIDs() ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.Discount{}).
		Where("code_type = ?", constants.DiscountCodeTypeCoupon).
		Where("used_count > 0 OR usage_limit_total > 0 OR per_user_limit > 0").
		Order("id asc").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Create 创建优惠
func (r *GormDiscountRepository) Create(discount *models.Discount) error {
	return r.db.Create(discount).Error
}

// ReserveUsage 条件占用一次总名额，资格校验与计数在同一条 UPDATE 内完成
func (r *GormDiscountRepository) ReserveUsage(id uint, code string, cartSubtotal models.Money, now time.Time) (int64, error) {
	query := r.db.Model(&models.Discount{}).
		Where("id = ?", id).
		Where("UPPER(code) = ?", strings.ToUpper(strings.TrimSpace(code)))
	query = activeDiscountScope(query, now).
		Where("min_cart_subtotal <= ?", cartSubtotal).
		Where("(usage_limit_total IS NULL OR usage_limit_total <= 0 OR used_count < usage_limit_total)")
	result := query.UpdateColumn("used_count", gorm.Expr("used_count + ?", 1))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReleaseUsage 归还一次总名额
func (r *GormDiscountRepository) ReleaseUsage(id uint) (int64, error) {
	result := r.db.Model(&models.Discount{}).
		Where("id = ?", id).
		Where("used_count >= ?", 1).
		UpdateColumn("used_count", gorm.Expr("used_count - ?", 1))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
