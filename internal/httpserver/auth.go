package httpserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ritikyadav10888-oss/force-players-sub000/pkg/payments"
)

const actorContextKey = "auth_actor"

type authClaims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// authMiddleware validates a bearer token and stashes the resolved actor on
// the request context.
func authMiddleware(signingKey []byte, issuer string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" || token == header {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(kindUnauthenticated, "missing bearer token"))
			return
		}

		claims := &authClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return signingKey, nil
		}, jwt.WithIssuer(issuer))
		if err != nil || !parsed.Valid {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(kindUnauthenticated, "invalid token"))
			return
		}
		if claims.Subject == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(kindUnauthenticated, "token missing subject"))
			return
		}

		ctx.Set(actorContextKey, payments.Actor{
			UserID: claims.Subject,
			Roles:  claims.Roles,
		})
		ctx.Next()
	}
}

func getActor(ctx *gin.Context) (payments.Actor, bool) {
	value, ok := ctx.Get(actorContextKey)
	if !ok {
		return payments.Actor{}, false
	}
	actor, ok := value.(payments.Actor)
	return actor, ok
}
