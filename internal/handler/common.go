package handler

import (
	"errors"
	"net/http"
	"strconv"

	"go-gin-ticket-ledger/internal/model"
	apperrors "go-gin-ticket-ledger/pkg/app_errors"
	"go-gin-ticket-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CallerHeader 呼叫者身份 (錢包地址)
const CallerHeader = "X-Wallet-Address"

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
			"code":  apperrors.ErrInvalidInput.Code,
			"kind":  apperrors.KindValidation,
		})
		return err
	}
	return nil
}

func BindQuery(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindQuery(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
			"code":  apperrors.ErrInvalidInput.Code,
			"kind":  apperrors.KindValidation,
		})
		return err
	}
	return nil
}

// caller 讀取呼叫者身份，缺少時直接回應 400
func caller(c *gin.Context, operation string) (model.Identity, bool) {
	id := model.Identity(c.GetHeader(CallerHeader))
	if id.IsZero() {
		respondError(c, apperrors.ErrInvalidIdentity, operation)
		return "", false
	}
	return id, true
}

// paramID 解析路徑上的數字 id
func paramID(c *gin.Context, name, operation string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 0 {
		respondError(c, apperrors.ErrInvalidInput, operation)
		return 0, false
	}
	return id, true
}

func statusOf(err error) int {
	if errors.Is(err, apperrors.ErrRefundTransferFailed) || errors.Is(err, apperrors.ErrPaymentFailed) {
		return http.StatusBadGateway
	}
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindAuthorization:
		return http.StatusForbidden
	case apperrors.KindCapacity, apperrors.KindState:
		return http.StatusConflict
	case apperrors.KindPayment:
		return http.StatusPaymentRequired
	case apperrors.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	status := statusOf(err)
	kind := apperrors.KindOf(err)

	message := err.Error()
	if kind == apperrors.KindInternal {
		log.Error("Unexpected error")
		message = apperrors.ErrInternalServerError.Message
	} else if status >= http.StatusInternalServerError {
		log.Error("Payout failed")
	} else {
		log.Warn("Request rejected")
	}

	c.JSON(status, gin.H{
		"error": message,
		"code":  apperrors.CodeOf(err),
		"kind":  kind,
	})
}

func respondSuccess(c *gin.Context, data interface{}, statusCode int) {
	if data != nil {
		c.JSON(statusCode, data)
	} else {
		c.Status(statusCode)
	}
}
