package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/logger"
	"github.com/bazaar-next/internal/models"
	"github.com/bazaar-next/internal/repository"

	"github.com/shopspring/decimal"
)

// 上游购物车行的字段别名
var (
	lineProductIDKeys  = []string{"product_id", "productId", "productID", "id"}
	lineQuantityKeys   = []string{"quantity", "qty", "count"}
	linePriceKeys      = []string{"price", "unit_price", "unitPrice", "price_amount"}
	lineSellerIDKeys   = []string{"seller_id", "sellerId", "vendor_id", "store_id"}
	lineCategoryIDKeys = []string{"category_id", "categoryId"}
)

const lineNestedProductKey = "product"

// Line 规范化后的购物车行
type Line struct {
	ProductID  uint
	SellerID   uint
	CategoryID uint
	UnitPrice  decimal.Decimal
	Quantity   int
	Base       decimal.Decimal
}

// PricingWarning 报价软告警
type PricingWarning struct {
	Code      string `json:"code"`
	ProductID uint   `json:"product_id,omitempty"`
	Message   string `json:"message"`
}

// NormalizedCart 规范化结果
type NormalizedCart struct {
	Lines    []Line
	Warnings []PricingWarning
}

// LineNormalizer 购物车行规范化
type LineNormalizer struct {
	productRepo repository.ProductRepository
}

// NewLineNormalizer 创建购物车行规范化器
func NewLineNormalizer(productRepo repository.ProductRepository) *LineNormalizer {
	return &LineNormalizer{productRepo: productRepo}
}

type rawLine struct {
	productID  uint
	sellerID   uint
	categoryID uint
	price      *decimal.Decimal
	quantity   int
	// quantityOverflow 数量超出上限，视为损坏数据
	quantityOverflow bool
}

// Normalize 规范化购物车行；strict 为 true 时（下单）缺少店铺归属直接报错
func (n *LineNormalizer) Normalize(raw []models.JSON, strict bool) (*NormalizedCart, error) {
	parsed := make([]rawLine, 0, len(raw))
	productIDs := make([]uint, 0, len(raw))
	seen := make(map[uint]struct{}, len(raw))
	for _, item := range raw {
		line, ok := parseRawLine(item)
		if !ok {
			continue
		}
		if line.quantityOverflow {
			if strict {
				return nil, fmt.Errorf("%w: product %d quantity out of range", ErrInvalidOrderItem, line.productID)
			}
			logger.Debugw("pricing_line_dropped_invalid_quantity", "product_id", line.productID)
			continue
		}
		parsed = append(parsed, line)
		if _, exists := seen[line.productID]; !exists {
			seen[line.productID] = struct{}{}
			productIDs = append(productIDs, line.productID)
		}
	}

	products := map[uint]models.Product{}
	if n.productRepo != nil && len(productIDs) > 0 {
		rows, err := n.productRepo.ListByIDs(productIDs)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			products[row.ID] = row
		}
	}

	result := &NormalizedCart{Lines: make([]Line, 0, len(parsed))}
	for _, item := range parsed {
		product, known := products[item.productID]
		if known && !product.IsActive {
			known = false
		}
		if !known {
			if strict {
				return nil, fmt.Errorf("%w: product %d", ErrInvalidOrderItem, item.productID)
			}
			result.Warnings = append(result.Warnings, PricingWarning{
				Code:      constants.PricingWarningProductNotFound,
				ProductID: item.productID,
				Message:   "product not found, client price used",
			})
		}

		price := item.price
		if known {
			authoritative := product.PriceAmount.Decimal
			price = &authoritative
		}
		if price == nil || price.IsNegative() {
			logger.Debugw("pricing_line_dropped_invalid_price", "product_id", item.productID)
			continue
		}

		sellerID := item.sellerID
		categoryID := item.categoryID
		if sellerID == 0 && known {
			sellerID = product.SellerID
		}
		if categoryID == 0 && known {
			categoryID = product.CategoryID
		}
		if sellerID == 0 {
			if strict {
				return nil, fmt.Errorf("%w: product %d", ErrMissingSellerMapping, item.productID)
			}
			result.Warnings = append(result.Warnings, PricingWarning{
				Code:      constants.PricingWarningMissingSeller,
				ProductID: item.productID,
				Message:   ErrMissingSellerMapping.Error(),
			})
			continue
		}

		unitPrice := price.Round(2)
		result.Lines = append(result.Lines, Line{
			ProductID:  item.productID,
			SellerID:   sellerID,
			CategoryID: categoryID,
			UnitPrice:  unitPrice,
			Quantity:   item.quantity,
			Base:       unitPrice.Mul(decimal.NewFromInt(int64(item.quantity))).Round(2),
		})
	}
	return result, nil
}

// parseRawLine 按别名读取字段，显式字段优先于嵌套商品
func parseRawLine(item models.JSON) (rawLine, bool) {
	if item == nil {
		return rawLine{}, false
	}
	nested := nestedProduct(item)

	var line rawLine
	productID, ok := lookupID(item, lineProductIDKeys)
	if !ok && nested != nil {
		productID, ok = lookupID(nested, lineProductIDKeys)
	}
	if !ok {
		return rawLine{}, false
	}
	line.productID = productID

	line.quantity = 1
	if raw, found := lookupValue(item, lineQuantityKeys); found {
		if qty, valid := parseNumber(raw); valid {
			floored := qty.Floor()
			switch {
			case floored.GreaterThan(decimal.NewFromInt(constants.LineQuantityMax)):
				line.quantityOverflow = true
			case floored.GreaterThan(decimal.NewFromInt(1)):
				line.quantity = int(floored.IntPart())
			}
		}
	}

	if raw, found := lookupValue(item, linePriceKeys); found {
		if price, valid := parseNumber(raw); valid {
			line.price = &price
		}
	} else if nested != nil {
		if raw, found := lookupValue(nested, linePriceKeys); found {
			if price, valid := parseNumber(raw); valid {
				line.price = &price
			}
		}
	}

	line.sellerID, _ = lookupID(item, lineSellerIDKeys)
	if line.sellerID == 0 && nested != nil {
		line.sellerID, _ = lookupID(nested, lineSellerIDKeys)
	}
	line.categoryID, _ = lookupID(item, lineCategoryIDKeys)
	if line.categoryID == 0 && nested != nil {
		line.categoryID, _ = lookupID(nested, lineCategoryIDKeys)
	}
	return line, true
}

func nestedProduct(item models.JSON) map[string]interface{} {
	raw, ok := item[lineNestedProductKey]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case map[string]interface{}:
		return v
	case models.JSON:
		return v
	default:
		return nil
	}
}

func lookupValue(item map[string]interface{}, keys []string) (interface{}, bool) {
	for _, key := range keys {
		if value, ok := item[key]; ok && value != nil {
			return value, true
		}
	}
	return nil, false
}

func lookupID(item map[string]interface{}, keys []string) (uint, bool) {
	for _, key := range keys {
		value, ok := item[key]
		if !ok || value == nil {
			continue
		}
		if id, valid := parseID(value); valid {
			return id, true
		}
	}
	return 0, false
}

// parseNumber 解析有限数值（JSON 数字或数字字符串）
func parseNumber(value interface{}) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case json.Number:
		return parseNumber(v.String())
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, false
		}
		return parsed, true
	default:
		return decimal.Zero, false
	}
}
