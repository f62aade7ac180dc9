package handlers

import (
	"net/http"
	"strings"

	"github.com/SAP-F-2025/adaptive-assessment/internal/config"
	"github.com/SAP-F-2025/adaptive-assessment/internal/utils"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
)

const (
	userIDKey   = "user_id"
	userNameKey = "user_name"
	isAdminKey  = "is_admin"
)

// TokenParser verifies a bearer token and returns its claims
type TokenParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// NewCasdoorParser returns a parser bound to the configured Casdoor application
func NewCasdoorParser(cfg config.AuthConfig) TokenParser {
	return casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Certificate,
		cfg.Organization,
		cfg.Application,
	)
}

// AuthMiddleware requires a valid bearer token and stores the caller's
// user ID under "user_id" and the Casdoor admin flag under "is_admin".
func AuthMiddleware(parser TokenParser, logger utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Missing bearer token",
				Code:    "unauthorized",
			})
			return
		}

		claims, err := parser.ParseJwtToken(strings.TrimSpace(token))
		if err != nil {
			logger.Warn("Rejected bearer token",
				"request_id", utils.GetRequestID(c),
				"path", c.Request.URL.Path,
				"error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid token",
				Code:    "unauthorized",
			})
			return
		}

		c.Set(userIDKey, claims.User.Id)
		c.Set(userNameKey, claims.User.Name)
		c.Set(isAdminKey, claims.User.IsAdmin)
		c.Next()
	}
}
