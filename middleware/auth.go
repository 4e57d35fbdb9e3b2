package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/playpoints/ledger/config"
	"github.com/playpoints/ledger/services"
	"github.com/playpoints/ledger/utils"
)

const (
	// ContextUserIDKey is the key used to store the ledger account ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextHandleKey stores the identity handle inside Gin context.
	ContextHandleKey = "handle"
)

// AuthRequired ensures the request carries a valid session JWT and maps its
// handle to a ledger account, creating the account on first sight.
func AuthRequired(accounts *services.Accounts) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			ctx.Abort()
			return
		}

		tokenString, ok := utils.BearerToken(authHeader)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			ctx.Abort()
			return
		}

		if utils.IsTokenRevoked(tokenString) {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}

		acct, err := accounts.Ensure(ctx.Request.Context(), claims.Handle, claims.DisplayName)
		if err != nil {
			utils.Logger.Error("resolve account failed", zap.String("handle", claims.Handle), zap.Error(err))
			utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to resolve account")
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserIDKey, acct.ID)
		ctx.Set(ContextHandleKey, acct.Handle)
		ctx.Next()
	}
}

// OptionalAuth resolves the account when a valid token is present and lets
// anonymous requests through otherwise. It never creates accounts.
func OptionalAuth(accounts *services.Accounts) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, ok := utils.BearerToken(ctx.GetHeader("Authorization"))
		if ok && !utils.IsTokenRevoked(tokenString) {
			if claims, err := utils.ParseToken(tokenString); err == nil {
				if acct, err := accounts.FindByHandle(ctx.Request.Context(), claims.Handle); err == nil {
					ctx.Set(ContextUserIDKey, acct.ID)
					ctx.Set(ContextHandleKey, acct.Handle)
				}
			}
		}
		ctx.Next()
	}
}

// AdminRequired must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		handle := ctx.GetString(ContextHandleKey)
		if handle == "" || !config.IsAdminHandle(handle) {
			utils.Error(ctx, http.StatusForbidden, 40301, "admin only")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
