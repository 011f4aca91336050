package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"licensor/internal/common"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const AdminRole = "admin"

// AdminClaims is the token body expected on admin routes. Issuing tokens is
// the identity provider's job; this service only verifies them.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminAuth verifies admin bearer tokens, either with a shared HMAC secret or
// against a JWKS endpoint when one is configured.
type AdminAuth struct {
	config echojwt.Config
	jwks   *keyfunc.JWKS
}

func NewAdminAuth(secret, jwksURL string, logger *slog.Logger) (*AdminAuth, error) {
	auth := &AdminAuth{}
	auth.config = echojwt.Config{
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(AdminClaims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return common.SendUnauthorizedError(c)
		},
	}

	switch {
	case jwksURL != "":
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  time.Minute,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				logger.Error("failed to refresh admin JWKS", "error", err)
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load admin JWKS: %w", err)
		}
		auth.jwks = jwks
		auth.config.KeyFunc = jwks.Keyfunc
	case secret != "":
		auth.config.SigningKey = []byte(secret)
	default:
		return nil, fmt.Errorf("admin auth needs JWT_SECRET or ADMIN_JWKS_URL")
	}
	return auth, nil
}

// Middleware verifies the token and requires the admin role.
func (a *AdminAuth) Middleware() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{echojwt.WithConfig(a.config), requireAdminRole}
}

// Close stops the JWKS background refresh.
func (a *AdminAuth) Close() {
	if a.jwks != nil {
		a.jwks.EndBackground()
	}
}

func requireAdminRole(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get("user").(*jwt.Token)
		if !ok {
			return common.SendUnauthorizedError(c)
		}
		claims, ok := token.Claims.(*AdminClaims)
		if !ok || claims.Role != AdminRole {
			return c.JSON(http.StatusForbidden, common.CreateErrorResponse("FORBIDDEN", "Admin role required", nil))
		}
		c.Set("admin_subject", claims.Subject)
		return next(c)
	}
}
