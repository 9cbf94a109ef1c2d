package middleware // middleware provides shared request processing for handlers

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/devakowakou/backend-rdv/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the proven identity into the request context under the keys
// "user_id" (uint64) and "role" (string). The provided secret must match
// the one used when issuing tokens. Expired and malformed tokens both end
// in a 401; they only differ in the message, which helps a client decide
// whether to re-login.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized,
                    echo.Map{"success": false, "message": "Token d'accès requis"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            claims, err := utils.VerifyAccessToken(secret, raw)
            if err != nil {
                if errors.Is(err, utils.ErrTokenExpired) {
                    return c.JSON(http.StatusUnauthorized,
                        echo.Map{"success": false, "message": "Token expiré"})
                }
                return c.JSON(http.StatusUnauthorized,
                    echo.Map{"success": false, "message": "Token invalide"})
            }

            c.Set("user_id", claims.UserID)
            c.Set("role", claims.Role)
            return next(c)
        }
    }
}
