package middleware

import (
	"strings"

	"lifeline/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthMiddleware checks access tokens issued by the account service.
// Accounts are not stored here, so the claims are trusted as-is once the signature verifies.
type AuthMiddleware struct {
	jwtService *utils.JWTService
}

func NewAuthMiddleware(jwtService *utils.JWTService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
	}
}

// RequireAuth validates JWT token and sets user context
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			utils.UnauthorizedResponse(c, "Authentication token required")
			c.Abort()
			return
		}

		claims, err := am.Authenticate(token)
		if err != nil {
			logrus.WithField("request_id", c.GetString("request_id")).Warnf("Invalid token: %v", err)
			utils.UnauthorizedResponse(c, "Invalid authentication token")
			c.Abort()
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("userEmail", claims.Email)
		c.Set("userRole", claims.Role)

		c.Next()
	})
}

// Authenticate validates a raw token. Expiry and token type are checked by the JWT service.
func (am *AuthMiddleware) Authenticate(token string) (*utils.Claims, error) {
	if token == "" {
		return nil, utils.NewUnauthorizedError("Authentication token required")
	}

	claims, err := am.jwtService.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, utils.NewUnauthorizedError("Token has no subject")
	}
	return claims, nil
}

// ExtractToken reads the bearer token from the Authorization header, the token
// query parameter (browsers cannot set headers on a WebSocket upgrade) or the auth cookie.
func ExtractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	if token := c.Query("token"); token != "" {
		return token
	}

	if token, err := c.Cookie("auth_token"); err == nil {
		return token
	}

	return ""
}
