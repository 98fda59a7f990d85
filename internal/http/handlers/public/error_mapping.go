package public

import (
	"errors"

	handlershared "github.com/bazaar-next/internal/http/handlers/shared"
	"github.com/bazaar-next/internal/http/response"
	"github.com/bazaar-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			handlershared.RespondBusinessError(c, rule.code, rule.target)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var pricingCommonErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidCouponFormat, code: response.CodeBadRequest},
	{target: service.ErrInvalidOrderItem, code: response.CodeBadRequest},
	{target: service.ErrMissingSellerMapping, code: response.CodeUnprocessable},
}

var orderCreateExtraErrorRules = []mappedHandlerError{
	{target: service.ErrCouponNotFound, code: response.CodeNotFound},
	{target: service.ErrCouponNotEligible, code: response.CodeUnprocessable},
	{target: service.ErrPerUserLimitReached, code: response.CodeConflict},
	{target: service.ErrCouponCustomerRequired, code: response.CodeUnauthorized},
	{target: service.ErrOrderReferenceMissing, code: response.CodeBadRequest},
}

var orderQueryErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound},
}

func respondPricingQuoteError(c *gin.Context, err error) {
	respondWithMappedError(c, err, pricingCommonErrorRules, response.CodeInternal, "报价失败")
}

func respondOrderCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(pricingCommonErrorRules, orderCreateExtraErrorRules), response.CodeInternal, service.ErrOrderCreateFailed.Error())
}

func respondOrderQueryError(c *gin.Context, err error) {
	respondWithMappedError(c, err, orderQueryErrorRules, response.CodeInternal, "订单查询失败")
}
