package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Authenticator checks operator credentials.
type Authenticator interface {
	Enabled() bool
	Authenticate(username, password string) error
}

// BasicAuth guards a route group with HTTP basic auth. It passes everything through when
// the authenticator is disabled.
func BasicAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.Enabled() {
			c.Next()
			return
		}

		username, password, ok := c.Request.BasicAuth()
		if !ok || auth.Authenticate(username, password) != nil {
			c.Header("WWW-Authenticate", `Basic realm="laundry ledger"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		c.Next()
	}
}
