package repository

import (
	"errors"
	"time"

	"github.com/bazaar-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CouponRedemptionRepository 优惠券预占记录数据访问接口
type CouponRedemptionRepository interface {
	ClaimEvent(event *models.CouponRedemptionEvent) (bool, error)
	GetEvent(discountID, customerID uint, orderReference string) (*models.CouponRedemptionEvent, error)
	DeleteEvent(id uint) (int64, error)
	ReserveCustomerSlot(discountID, customerID uint, perUserLimit int, now time.Time) (int64, error)
	ReleaseCustomerSlot(discountID, customerID uint) (int64, error)
	ListCounters(discountID uint) ([]models.CouponRedemption, error)
	CountEvents(discountID uint) (int64, error)
	CountEventsByCustomer(discountID uint) (map[uint]int64, error)
	WithTx(tx *gorm.DB) CouponRedemptionRepository
}

// GormCouponRedemptionRepository GORM 实现
type GormCouponRedemptionRepository struct {
	db *gorm.DB
}

// NewCouponRedemptionRepository 创建优惠券预占记录仓库
func NewCouponRedemptionRepository(db *gorm.DB) *GormCouponRedemptionRepository {
	return &GormCouponRedemptionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCouponRedemptionRepository) WithTx(tx *gorm.DB) CouponRedemptionRepository {
	if tx == nil {
		return r
	}
	return &GormCouponRedemptionRepository{db: tx}
}

// ClaimEvent 写入幂等记录，已存在时返回 false
func (r *GormCouponRedemptionRepository) ClaimEvent(event *models.CouponRedemptionEvent) (bool, error) {
	if event == nil {
		return false, nil
	}
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(event)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetEvent 获取幂等记录
func (r *GormCouponRedemptionRepository) GetEvent(discountID, customerID uint, orderReference string) (*models.CouponRedemptionEvent, error) {
	var event models.CouponRedemptionEvent
	err := r.db.
		Where("discount_id = ? AND customer_id = ? AND order_reference = ?", discountID, customerID, orderReference).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// DeleteEvent 删除幂等记录（补偿使用）
func (r *GormCouponRedemptionRepository) DeleteEvent(id uint) (int64, error) {
	result := r.db.Delete(&models.CouponRedemptionEvent{}, id)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReserveCustomerSlot 条件 upsert 用户计数，已达上限时影响行数为 0
func (r *GormCouponRedemptionRepository) ReserveCustomerSlot(discountID, customerID uint, perUserLimit int, now time.Time) (int64, error) {
	sql := "INSERT INTO coupon_redemptions (discount_id, customer_id, used_count, created_at, updated_at) " +
		"VALUES (?, ?, 1, ?, ?) " +
		"ON CONFLICT (discount_id, customer_id) DO UPDATE SET used_count = coupon_redemptions.used_count + 1, updated_at = ?"
	args := []interface{}{discountID, customerID, now, now, now}
	if perUserLimit > 0 {
		sql += " WHERE coupon_redemptions.used_count < ?"
		args = append(args, perUserLimit)
	}
	result := r.db.Exec(sql, args...)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReleaseCustomerSlot 归还一次用户计数
func (r *GormCouponRedemptionRepository) ReleaseCustomerSlot(discountID, customerID uint) (int64, error) {
	result := r.db.Model(&models.CouponRedemption{}).
		Where("discount_id = ? AND customer_id = ?", discountID, customerID).
		Where("used_count >= ?", 1).
		UpdateColumn("used_count", gorm.Expr("used_count - ?", 1))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ListCounters 获取优惠券全部用户计数
func (r *GormCouponRedemptionRepository) ListCounters(discountID uint) ([]models.CouponRedemption, error) {
	var counters []models.CouponRedemption
	if err := r.db.Where("discount_id = ?", discountID).Order("customer_id asc").Find(&counters).Error; err != nil {
		return nil, err
	}
	return counters, nil
}

// CountEvents 统计优惠券幂等记录数
func (r *GormCouponRedemptionRepository) CountEvents(discountID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.CouponRedemptionEvent{}).
		Where("discount_id = ?", discountID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

type customerEventCount struct {
	CustomerID uint
	Total      int64
}

// CountEventsByCustomer 按用户统计幂等记录数
func (r *GormCouponRedemptionRepository) CountEventsByCustomer(discountID uint) (map[uint]int64, error) {
	var rows []customerEventCount
	if err := r.db.Model(&models.CouponRedemptionEvent{}).
		Select("customer_id, COUNT(*) AS total").
		Where("discount_id = ?", discountID).
		Group("customer_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.CustomerID] = row.Total
	}
	return counts, nil
}
