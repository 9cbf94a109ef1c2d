package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/devakowakou/backend-rdv/internal/model"
	"github.com/devakowakou/backend-rdv/internal/service"
)

// UserHandler serves the profile endpoints of the authenticated account and
// the admin-only lookup by id.
type UserHandler struct {
	Svc *service.AccountService
}

func NewUserHandler(svc *service.AccountService) *UserHandler {
	if svc == nil {
		panic("nil service passed to NewUserHandler")
	}
	return &UserHandler{Svc: svc}
}

// currentUserID extracts the account id stored in context by the JWT
// middleware.
func currentUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	id, ok := v.(uint64)
	if !ok || id == 0 {
		return 0, errors.New("invalid user_id in context")
	}
	return id, nil
}

// GetProfile returns the authenticated account.
func (h *UserHandler) GetProfile(c echo.Context) error {
	id, err := currentUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "Token invalide")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acc, err := h.Svc.GetByID(ctx, id)
	if err != nil {
		return serviceError(c, err)
	}
	return respond(c, http.StatusOK, "Profil récupéré avec succès",
		echo.Map{"user": acc.Public()})
}

// UpdateProfile applies a partial update to the authenticated account. The
// bound ProfileUpdate type only carries the mutable fields, so a role (or
// any other) key in the request body is dropped before it can reach the
// store.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	id, err := currentUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "Token invalide")
	}

	var upd model.ProfileUpdate
	if err := c.Bind(&upd); err != nil {
		return fail(c, http.StatusBadRequest, "Format JSON invalide")
	}
	if msg := checkProfileUpdate(upd); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acc, err := h.Svc.UpdateProfile(ctx, id, upd)
	if err != nil {
		return serviceError(c, err)
	}
	return respond(c, http.StatusOK, "Profil mis à jour avec succès",
		echo.Map{"user": acc.Public()})
}

// DeleteProfile permanently removes the authenticated account.
func (h *UserHandler) DeleteProfile(c echo.Context) error {
	id, err := currentUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "Token invalide")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.DeleteAccount(ctx, id); err != nil {
		return serviceError(c, err)
	}
	return respond(c, http.StatusOK, "Compte supprimé avec succès", nil)
}

// GetByID returns any account by id. The route is gated to the admin role.
func (h *UserHandler) GetByID(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return fail(c, http.StatusBadRequest, "L'ID doit être un nombre entier positif")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acc, err := h.Svc.GetByID(ctx, id)
	if err != nil {
		return serviceError(c, err)
	}
	return respond(c, http.StatusOK, "Utilisateur récupéré avec succès",
		echo.Map{"user": acc.Public()})
}
