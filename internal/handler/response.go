package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/devakowakou/backend-rdv/internal/repository"
	"github.com/devakowakou/backend-rdv/internal/service"
)

// envelope is the uniform response shape of every endpoint:
// {success, message, data?}.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respond(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, envelope{Success: false, Message: message})
}

// serviceError maps the closed error set of the service and repository
// layers to a status code and a user-safe message. Anything outside the
// known set is logged and answered with a generic 500: internal detail
// never reaches the caller.
func serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		return fail(c, http.StatusConflict, "Un compte avec cet email existe déjà")
	case errors.Is(err, service.ErrInvalidCredentials):
		return fail(c, http.StatusUnauthorized, "Email ou mot de passe incorrect")
	case errors.Is(err, repository.ErrResetTokenInvalid):
		return fail(c, http.StatusNotFound, "Token invalide ou expiré")
	case errors.Is(err, repository.ErrNoFields):
		return fail(c, http.StatusBadRequest, "Aucun champ valide à mettre à jour")
	case errors.Is(err, repository.ErrNotFound):
		return fail(c, http.StatusNotFound, "Utilisateur non trouvé")
	default:
		c.Logger().Errorf("internal error: %v", err)
		return fail(c, http.StatusInternalServerError, "Erreur interne du serveur")
	}
}
