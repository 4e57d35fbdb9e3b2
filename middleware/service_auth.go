package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/playpoints/ledger/config"
	"github.com/playpoints/ledger/utils"
)

// ServiceKeyHeader carries the shared secret of the sync and wallet services.
const ServiceKeyHeader = "X-Service-Key"

// ServiceKeyRequired admits callers presenting a key that matches one of the
// configured bcrypt hashes.
func ServiceKeyRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := strings.TrimSpace(ctx.GetHeader(ServiceKeyHeader))
		if key == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40120, "service key missing")
			ctx.Abort()
			return
		}
		if !utils.MatchAnySecret(config.Get().ServiceKeyHashes, key) {
			utils.Error(ctx, http.StatusUnauthorized, 40121, "invalid service key")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
