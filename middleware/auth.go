package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/creditbonus/utils"
)

// ContextUserIDKey is the key used to store the authenticated user id in Gin context.
const ContextUserIDKey = "user_id"

// AuthRequired ensures the request carries a valid HS256 bearer token signed with secret.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Fail(ctx, http.StatusUnauthorized, 40101, "authorization header missing", "")
			ctx.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Fail(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format", "")
			ctx.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Fail(ctx, http.StatusUnauthorized, 40103, "empty bearer token", "")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(secret, tokenString)
		if err != nil {
			utils.Fail(ctx, http.StatusUnauthorized, 40105, "invalid token", "")
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserIDKey, claims.Identity())
		ctx.Next()
	}
}
