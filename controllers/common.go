package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/playpoints/ledger/middleware"
	"github.com/playpoints/ledger/services"
	"github.com/playpoints/ledger/utils"
)

// statusFor maps an engine error kind to an HTTP status.
func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindUnauthenticated:
		return http.StatusUnauthorized
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindInsufficientBalance:
		return http.StatusPaymentRequired
	case services.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes typed engine errors verbatim. Anything else is logged
// and reported as internalCode with a generic message.
func respondError(ctx *gin.Context, err error, internalCode int, internalMessage string) {
	var typed *services.Error
	if errors.As(err, &typed) {
		utils.Error(ctx, statusFor(typed.Kind), typed.Code, typed.Message)
		return
	}
	utils.Logger.Error(internalMessage,
		zap.String("path", ctx.FullPath()),
		zap.Error(err),
	)
	utils.Error(ctx, http.StatusInternalServerError, internalCode, internalMessage)
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok && id != 0
}

func requireUserID(ctx *gin.Context) (uint, bool) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, services.ErrUnauthenticated.Code, "unauthorized")
	}
	return userID, ok
}

// pageParams reads page and page_size with sane bounds.
func pageParams(ctx *gin.Context) (int, int) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(ctx.DefaultQuery("page_size", "20"))
	if size < 1 || size > 100 {
		size = 20
	}
	return page, size
}

func uintParam(ctx *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}
