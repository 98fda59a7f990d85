package service

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const moneyPlaces int32 = 2

// prorate 按剩余金额比例分摊 amount：除最后一行外向下取整到分，最后一行吸收余数，
// 各行不超过自身剩余金额，截断产生的差额回补到仍有余量的前序行。
// 返回的分摊合计严格等于 min(amount, Σcapacities)。
func prorate(amount decimal.Decimal, capacities []decimal.Decimal) ([]decimal.Decimal, error) {
	allocations := make([]decimal.Decimal, len(capacities))
	for i := range allocations {
		allocations[i] = decimal.Zero
	}

	pool := decimal.Zero
	last := -1
	for i, capacity := range capacities {
		if capacity.IsPositive() {
			pool = pool.Add(capacity)
			last = i
		}
	}
	if last < 0 || !amount.IsPositive() {
		return allocations, nil
	}

	target := decimal.Min(amount.RoundDown(moneyPlaces), pool)
	remaining := target
	for i, capacity := range capacities {
		if !capacity.IsPositive() {
			continue
		}
		var share decimal.Decimal
		if i == last {
			share = remaining
		} else {
			share = target.Mul(capacity).Div(pool).RoundDown(moneyPlaces)
		}
		share = clampDecimal(share, decimal.Zero, capacity)
		allocations[i] = share
		remaining = remaining.Sub(share)
	}

	// 最后一行被截断时，余数回补到前序仍有余量的行
	for i := 0; i < len(capacities) && remaining.IsPositive(); i++ {
		slack := capacities[i].Sub(allocations[i])
		if !slack.IsPositive() {
			continue
		}
		extra := decimal.Min(slack, remaining)
		allocations[i] = allocations[i].Add(extra)
		remaining = remaining.Sub(extra)
	}

	allocated := decimal.Zero
	for _, value := range allocations {
		allocated = allocated.Add(value)
	}
	if !allocated.Equal(target) {
		return nil, fmt.Errorf("%w: allocated %s want %s", ErrUnbalancedAllocation, allocated.StringFixed(moneyPlaces), target.StringFixed(moneyPlaces))
	}
	return allocations, nil
}

func clampDecimal(value, lower, upper decimal.Decimal) decimal.Decimal {
	if value.LessThan(lower) {
		return lower
	}
	if value.GreaterThan(upper) {
		return upper
	}
	return value
}
