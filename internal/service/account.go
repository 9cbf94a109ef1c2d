// Package service implements the account use cases: registration, login,
// the password reset flow and profile maintenance. It is the only
// orchestrator; handlers never talk to the store, the hasher or the
// notifier directly.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"

	"github.com/devakowakou/backend-rdv/internal/config"
	"github.com/devakowakou/backend-rdv/internal/model"
	"github.com/devakowakou/backend-rdv/internal/repository"
	"github.com/devakowakou/backend-rdv/internal/utils"
)

// CredentialStore is the persistence contract the service depends on. It is
// implemented by repository.AccountRepo; tests substitute an in-memory
// fake.
type CredentialStore interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, a model.Account) (model.Account, error)
	GetByID(ctx context.Context, id uint64) (model.Account, error)
	GetByEmail(ctx context.Context, email string) (model.Account, error)
	UpdateProfile(ctx context.Context, id uint64, u model.ProfileUpdate) (model.Account, error)
	Delete(ctx context.Context, id uint64) error
	SaveResetToken(ctx context.Context, email, token string, expires time.Time) (model.Account, error)
	GetByValidResetToken(ctx context.Context, token string) (model.Account, error)
	ClearResetTokenAndSetPassword(ctx context.Context, id uint64, token, passwordHash string) error
}

// AccountService bundles the collaborators of the account use cases.
type AccountService struct {
	Cfg      config.Config
	Store    CredentialStore
	Notifier Notifier
}

// NewAccountService constructs the service and panics if a dependency is nil.
func NewAccountService(cfg config.Config, store CredentialStore, notifier Notifier) *AccountService {
	if store == nil || notifier == nil {
		panic("nil dependency passed to NewAccountService")
	}
	return &AccountService{Cfg: cfg, Store: store, Notifier: notifier}
}

// RegisterInput carries the validated registration payload. Username is
// absent on purpose: it is derived, never client-supplied.
type RegisterInput struct {
	Firstname string
	Lastname  string
	Email     string
	Password  string
	Phone     string
	Sexe      string
	Adresse   string
	Role      string
}

// ResetPreview is the masked account info returned when a reset token is
// verified: just enough for the reset page to greet the owner.
type ResetPreview struct {
	Email     string `json:"email"`
	Firstname string `json:"firstname"`
}

// deriveUsername builds the base username from the owner's names:
// lowercased, all whitespace stripped, joined by an underscore.
func deriveUsername(firstname, lastname string) string {
	return stripSpaces(strings.ToLower(firstname)) + "_" + stripSpaces(strings.ToLower(lastname))
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// normalizeRole decides the role stored at registration. Only "docteur"
// survives from the request; everything else, including "admin", becomes
// "patient". Admin accounts are never created through this path.
func normalizeRole(requested string) string {
	if strings.ToLower(strings.TrimSpace(requested)) == model.RoleDoctor {
		return model.RoleDoctor
	}
	return model.RolePatient
}

// Register creates a new account. It rejects an already used email with
// ErrEmailTaken, derives a unique username (suffixing _1, _2, ... on
// collision), hashes the password and inserts the row. The welcome
// notification is fire and forget: it runs detached and a failure is only
// ever visible in the logs.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (model.Account, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	taken, err := s.Store.ExistsByEmail(ctx, email)
	if err != nil {
		return model.Account{}, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return model.Account{}, ErrEmailTaken
	}

	base := deriveUsername(in.Firstname, in.Lastname)
	username := base
	for i := 1; ; i++ {
		exists, err := s.Store.ExistsByUsername(ctx, username)
		if err != nil {
			return model.Account{}, fmt.Errorf("check username: %w", err)
		}
		if !exists {
			break
		}
		username = fmt.Sprintf("%s_%d", base, i)
	}

	hash, err := utils.HashPassword(in.Password, s.Cfg.BcryptCost)
	if err != nil {
		return model.Account{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.Store.Create(ctx, model.Account{
		Firstname:    strings.TrimSpace(in.Firstname),
		Lastname:     strings.TrimSpace(in.Lastname),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Phone:        in.Phone,
		Sexe:         in.Sexe,
		Adresse:      strings.TrimSpace(in.Adresse),
		Role:         normalizeRole(in.Role),
	})
	if err != nil {
		// A concurrent registration can win the unique index between the
		// pre-check and the insert; both cases are the same conflict.
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Account{}, ErrEmailTaken
		}
		return model.Account{}, fmt.Errorf("insert account: %w", err)
	}

	go func(email, username string) {
		nctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Notifier.SendWelcome(nctx, email, username); err != nil {
			log.Printf("account-service: welcome notification failed for %s: %v", email, err)
		}
	}(created.Email, created.Username)

	return created, nil
}

// Authenticate verifies an email/password pair and, on success, issues a
// bearer token for the account. An unknown email and a wrong password both
// come back as ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (model.Account, utils.AccessToken, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	acc, err := s.Store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Account{}, utils.AccessToken{}, ErrInvalidCredentials
		}
		return model.Account{}, utils.AccessToken{}, fmt.Errorf("load account: %w", err)
	}
	if !utils.VerifyPassword(acc.PasswordHash, password) {
		return model.Account{}, utils.AccessToken{}, ErrInvalidCredentials
	}

	token, err := utils.NewAccessToken(s.Cfg.JWTSecret, acc.ID, acc.Role, s.Cfg.AccessTTLMin)
	if err != nil {
		return model.Account{}, utils.AccessToken{}, fmt.Errorf("issue token: %w", err)
	}
	return acc, token, nil
}

// RequestPasswordReset starts the reset flow for the account owning email:
// it generates a fresh token, persists it with its expiry (overwriting any
// pending one) and delivers the reset notification. Unlike the welcome
// mail, delivery here is the point of the operation, so a notifier failure
// fails the call.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	tok, err := utils.NewResetToken(s.Cfg.ResetTTLMin)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	acc, err := s.Store.SaveResetToken(ctx, email, tok.Raw, tok.Exp)
	if errors.Is(err, repository.ErrDuplicate) {
		// The token collided with another account's pending token. One
		// retry with fresh randomness settles it.
		if tok, err = utils.NewResetToken(s.Cfg.ResetTTLMin); err != nil {
			return fmt.Errorf("generate reset token: %w", err)
		}
		acc, err = s.Store.SaveResetToken(ctx, email, tok.Raw, tok.Exp)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("save reset token: %w", err)
	}

	if err := s.Notifier.SendReset(ctx, acc.Email, acc.Username, tok.Raw); err != nil {
		return fmt.Errorf("send reset notification: %w", err)
	}
	return nil
}

// VerifyResetToken checks a token without consuming it and returns the
// masked owner info shown on the reset page.
func (s *AccountService) VerifyResetToken(ctx context.Context, token string) (ResetPreview, error) {
	acc, err := s.Store.GetByValidResetToken(ctx, token)
	if err != nil {
		return ResetPreview{}, err
	}
	return ResetPreview{Email: acc.Email, Firstname: acc.Firstname}, nil
}

// ResetPassword consumes a reset token: the new password is written and
// both reset columns are cleared in a single conditional statement, so the
// token works exactly once even if it was still valid at verification time.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	acc, err := s.Store.GetByValidResetToken(ctx, token)
	if err != nil {
		return err
	}
	hash, err := utils.HashPassword(newPassword, s.Cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.Store.ClearResetTokenAndSetPassword(ctx, acc.ID, token, hash)
}

// UpdateProfile applies a whitelisted profile update. The ProfileUpdate
// type cannot carry role, email or username, so there is nothing to strip
// here; an update with no field set fails with repository.ErrNoFields.
func (s *AccountService) UpdateProfile(ctx context.Context, id uint64, u model.ProfileUpdate) (model.Account, error) {
	return s.Store.UpdateProfile(ctx, id, u)
}

// DeleteAccount removes the account permanently.
func (s *AccountService) DeleteAccount(ctx context.Context, id uint64) error {
	return s.Store.Delete(ctx, id)
}

// GetByID fetches one account.
func (s *AccountService) GetByID(ctx context.Context, id uint64) (model.Account, error) {
	return s.Store.GetByID(ctx, id)
}
