package http

import (
	"net/http"
	"strings"

	"github.com/dualstake/stake-vault/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

// AdminClaims is the token payload of a privileged caller. Address is
// the wallet address checked against the allow-list.
type AdminClaims struct {
	Address string `json:"address"`
	jwt.RegisteredClaims
}

// adminAuth authenticates the caller from a Bearer token and authorizes
// the claimed wallet address against the access policy. Client-side
// gating is UX only; every privileged route passes through here.
func (hs *HTTPServer) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := config.AppConfig.AdminJwtSecret
		if secret == "" {
			log.Warn("Admin API called but ADMIN_JWT_SECRET is not configured")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "admin API is not configured"})
			return
		}

		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing bearer token"})
			return
		}

		claims := &AdminClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}

		if !hs.policy.IsAdmin(claims.Address) {
			log.Warnf("Address %s attempted a privileged action without admin rights", claims.Address)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "address is not an admin"})
			return
		}

		c.Set("adminAddress", strings.ToLower(claims.Address))
		c.Next()
	}
}
