package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// JSON 任意结构的 JSON 对象（多语言内容、上游购物车行等）
type JSON map[string]interface{}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return nil
	}
}

// Category 分类表
type Category struct {
	ID        uint           `gorm:"primarykey" json:"id"`             // 主键
	ParentID  *uint          `gorm:"index" json:"parent_id,omitempty"` // 父分类ID
	Slug      string         `gorm:"uniqueIndex;not null" json:"slug"` // 唯一标识
	NameJSON  JSON           `gorm:"type:json" json:"name"`            // 多语言名称
	CreatedAt time.Time      `gorm:"index" json:"created_at"`          // 创建时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                   // 软删除时间
}

// TableName 指定表名
func (Category) TableName() string {
	return "categories"
}
