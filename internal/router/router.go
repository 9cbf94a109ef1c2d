package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/devakowakou/backend-rdv/internal/handler"    // import the handlers that implement the endpoints
	"github.com/devakowakou/backend-rdv/internal/middleware" // import middleware for JWT authentication, roles and rate limiting
	"github.com/devakowakou/backend-rdv/internal/model"      // import role constants for the role gate
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check, used
// by load balancers and monitoring systems.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints and their middleware.
// Unauthenticated operations (register, login, the whole reset flow) live
// under /v1/auth behind the rate limiter; logout requires a valid bearer
// token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	if limiter != nil {
		// Brute-force protection on everything that takes credentials
		// or mints reset tokens.
		g.Use(limiter)
	}
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/forgot-password", a.ForgotPassword)
	g.GET("/verify-reset-token/:token", a.VerifyResetToken)
	g.POST("/reset-password", a.ResetPassword)
	// Logout only acknowledges: tokens are stateless and expire on their
	// own.  It still requires a valid token so anonymous calls get a 401.
	g.POST("/logout", a.Logout, middleware.JWTAuth(jwtSecret))
}

// RegisterUsers registers the profile endpoints of the authenticated
// account plus the admin-only lookup by id.  Every route requires a valid
// access token; the lookup additionally requires the admin role.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, jwtSecret string) {
	g := e.Group("/v1/users")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.GET("/profile", u.GetProfile)
	g.PUT("/profile", u.UpdateProfile)
	g.DELETE("/profile", u.DeleteProfile)
	g.GET("/:id", u.GetByID, middleware.RequireRole(model.RoleAdmin))
}
