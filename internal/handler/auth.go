package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/devakowakou/backend-rdv/internal/repository"
	"github.com/devakowakou/backend-rdv/internal/service"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Svc *service.AccountService
}

func NewAuthHandler(svc *service.AccountService) *AuthHandler {
	if svc == nil {
		panic("nil service passed to NewAuthHandler")
	}
	return &AuthHandler{Svc: svc}
}

// ----- DTOs -----

type registerReq struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
	Sexe      string `json:"sexe"`
	Adresse   string `json:"adresse"`
	Role      string `json:"role"` // patient | docteur; anything else becomes patient
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type forgotPasswordReq struct {
	Email string `json:"email"`
}
type resetPasswordReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (r registerReq) check() string {
	if msg := checkName("prénom", r.Firstname); msg != "" {
		return msg
	}
	if msg := checkName("nom", r.Lastname); msg != "" {
		return msg
	}
	if msg := checkEmail(r.Email); msg != "" {
		return msg
	}
	if msg := checkPassword(r.Password); msg != "" {
		return msg
	}
	if msg := checkPhone(r.Phone); msg != "" {
		return msg
	}
	if msg := checkSexe(r.Sexe); msg != "" {
		return msg
	}
	return checkAdresse(r.Adresse)
}

// Register creates an account and returns it without any secret material.
// The welcome notification is dispatched by the service in the background.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Format JSON invalide")
	}
	if msg := req.check(); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acc, err := h.Svc.Register(ctx, service.RegisterInput{
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Sexe:      req.Sexe,
		Adresse:   req.Adresse,
		Role:      req.Role,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return respond(c, http.StatusCreated, "Compte créé avec succès",
		echo.Map{"user": acc.Public()})
}

// Login verifies credentials and returns the account plus a bearer token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Format JSON invalide")
	}
	if msg := checkEmail(req.Email); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	if req.Password == "" {
		return fail(c, http.StatusBadRequest, "Le mot de passe est requis")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acc, token, err := h.Svc.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return serviceError(c, err)
	}
	return respond(c, http.StatusOK, "Connexion réussie", echo.Map{
		"user":    acc.Public(),
		"token":   token.Token,
		"expires": token.Exp,
	})
}

// Logout acknowledges the client-side session teardown. Tokens are
// stateless and expire on their own; there is no revocation list.
func (h *AuthHandler) Logout(c echo.Context) error {
	return respond(c, http.StatusOK, "Déconnexion réussie", nil)
}

// ForgotPassword starts the reset flow. A notification delivery failure is
// a failure of the request itself: without the token mail the flow is dead.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Format JSON invalide")
	}
	if msg := checkEmail(req.Email); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Svc.RequestPasswordReset(ctx, req.Email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "Aucun compte associé à cet email")
		}
		return serviceError(c, err)
	}
	return respond(c, http.StatusOK, "Email de réinitialisation envoyé", nil)
}

// VerifyResetToken checks a reset token without consuming it and returns
// the masked owner info for the reset page.
func (h *AuthHandler) VerifyResetToken(c echo.Context) error {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		return fail(c, http.StatusBadRequest, "Le token de réinitialisation est requis")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	preview, err := h.Svc.VerifyResetToken(ctx, token)
	if err != nil {
		return serviceError(c, err)
	}
	return respond(c, http.StatusOK, "Token valide", preview)
}

// ResetPassword consumes a reset token and installs the new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Format JSON invalide")
	}
	if strings.TrimSpace(req.Token) == "" {
		return fail(c, http.StatusBadRequest, "Le token de réinitialisation est requis")
	}
	if msg := checkPassword(req.Password); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.ResetPassword(ctx, strings.TrimSpace(req.Token), req.Password); err != nil {
		return serviceError(c, err)
	}
	return respond(c, http.StatusOK, "Mot de passe réinitialisé avec succès", nil)
}
