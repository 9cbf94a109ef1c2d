package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/devakowakou/backend-rdv/internal/config"
	"github.com/devakowakou/backend-rdv/internal/model"
	"github.com/devakowakou/backend-rdv/internal/repository"
	"github.com/devakowakou/backend-rdv/internal/utils"
)

// ----- in-memory credential store -----

type fakeStore struct {
	mu       sync.Mutex
	seq      uint64
	accounts map[uint64]*model.Account
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: map[uint64]*model.Account{}}
}

func (s *fakeStore) byEmail(email string) *model.Account {
	for _, a := range s.accounts {
		if a.Email == email {
			return a
		}
	}
	return nil
}

func (s *fakeStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byEmail(email) != nil, nil
}

func (s *fakeStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) Create(_ context.Context, a model.Account) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.accounts {
		if other.Email == a.Email || other.Username == a.Username {
			return model.Account{}, repository.ErrDuplicate
		}
	}
	s.seq++
	a.ID = s.seq
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	s.accounts[a.ID] = &a
	return a, nil
}

func (s *fakeStore) GetByID(_ context.Context, id uint64) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return model.Account{}, repository.ErrNotFound
	}
	return *a, nil
}

func (s *fakeStore) GetByEmail(_ context.Context, email string) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.byEmail(email)
	if a == nil {
		return model.Account{}, repository.ErrNotFound
	}
	return *a, nil
}

func (s *fakeStore) UpdateProfile(_ context.Context, id uint64, u model.ProfileUpdate) (model.Account, error) {
	if u.Empty() {
		return model.Account{}, repository.ErrNoFields
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return model.Account{}, repository.ErrNotFound
	}
	if u.Firstname != nil {
		a.Firstname = *u.Firstname
	}
	if u.Lastname != nil {
		a.Lastname = *u.Lastname
	}
	if u.Phone != nil {
		a.Phone = *u.Phone
	}
	if u.Sexe != nil {
		a.Sexe = *u.Sexe
	}
	if u.Adresse != nil {
		a.Adresse = *u.Adresse
	}
	a.UpdatedAt = time.Now().UTC()
	return *a, nil
}

func (s *fakeStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *fakeStore) SaveResetToken(_ context.Context, email, token string, expires time.Time) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.accounts {
		if other.Email != email && other.ResetToken.Valid && other.ResetToken.String == token {
			return model.Account{}, repository.ErrDuplicate
		}
	}
	a := s.byEmail(email)
	if a == nil {
		return model.Account{}, repository.ErrNotFound
	}
	a.ResetToken = sql.NullString{String: token, Valid: true}
	a.ResetTokenExpires = sql.NullTime{Time: expires, Valid: true}
	a.UpdatedAt = time.Now().UTC()
	return *a, nil
}

func (s *fakeStore) GetByValidResetToken(_ context.Context, token string) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.ResetToken.Valid && a.ResetToken.String == token &&
			a.ResetTokenExpires.Valid && a.ResetTokenExpires.Time.After(time.Now().UTC()) {
			return *a, nil
		}
	}
	return model.Account{}, repository.ErrResetTokenInvalid
}

func (s *fakeStore) ClearResetTokenAndSetPassword(_ context.Context, id uint64, token, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || !a.ResetToken.Valid || a.ResetToken.String != token ||
		!a.ResetTokenExpires.Valid || !a.ResetTokenExpires.Time.After(time.Now().UTC()) {
		return repository.ErrResetTokenInvalid
	}
	a.PasswordHash = passwordHash
	a.ResetToken = sql.NullString{}
	a.ResetTokenExpires = sql.NullTime{}
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// ----- recording notifier -----

type resetCall struct {
	email, name, token string
}

type fakeNotifier struct {
	mu         sync.Mutex
	welcomeErr error
	resetErr   error
	welcomes   []string
	resets     []resetCall
	welcomeCh  chan string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{welcomeCh: make(chan string, 8)}
}

func (n *fakeNotifier) SendWelcome(_ context.Context, email, name string) error {
	n.mu.Lock()
	n.welcomes = append(n.welcomes, email)
	err := n.welcomeErr
	n.mu.Unlock()
	n.welcomeCh <- email
	return err
}

func (n *fakeNotifier) SendReset(_ context.Context, email, name, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, resetCall{email: email, name: name, token: token})
	return n.resetErr
}

func (n *fakeNotifier) lastReset(t *testing.T) resetCall {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.resets)
	return n.resets[len(n.resets)-1]
}

func (n *fakeNotifier) waitWelcome(t *testing.T) string {
	t.Helper()
	select {
	case email := <-n.welcomeCh:
		return email
	case <-time.After(2 * time.Second):
		t.Fatal("welcome notification never sent")
		return ""
	}
}

// ----- helpers -----

func newTestService() (*AccountService, *fakeStore, *fakeNotifier) {
	store := newFakeStore()
	notifier := newFakeNotifier()
	cfg := config.Config{
		JWTSecret:    "test-secret",
		AccessTTLMin: 15,
		ResetTTLMin:  60,
		BcryptCost:   bcrypt.MinCost,
	}
	return NewAccountService(cfg, store, notifier), store, notifier
}

func registerInput(email string) RegisterInput {
	return RegisterInput{
		Firstname: "Jean",
		Lastname:  "Dupont",
		Email:     email,
		Password:  "Secret#123",
		Phone:     "0112345678",
		Sexe:      model.SexeMasculin,
		Adresse:   "12 rue de la Paix, Paris",
	}
}

// ----- tests -----

func TestDeriveUsername(t *testing.T) {
	require.Equal(t, "jean_dupont", deriveUsername("Jean", "Dupont"))
	require.Equal(t, "jeanpierre_delafontaine", deriveUsername("Jean Pierre", "De La Fontaine"))
	require.Equal(t, "anne_omar", deriveUsername("ANNE", "  Omar "))
}

func TestNormalizeRole(t *testing.T) {
	require.Equal(t, model.RolePatient, normalizeRole(""))
	require.Equal(t, model.RolePatient, normalizeRole("patient"))
	require.Equal(t, model.RolePatient, normalizeRole("admin"))
	require.Equal(t, model.RolePatient, normalizeRole("ADMIN"))
	require.Equal(t, model.RolePatient, normalizeRole("anything"))
	require.Equal(t, model.RoleDoctor, normalizeRole("docteur"))
	require.Equal(t, model.RoleDoctor, normalizeRole(" Docteur "))
}

func TestRegisterDerivesUniqueUsernames(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()

	first, err := svc.Register(ctx, registerInput("jean1@exemple.fr"))
	require.NoError(t, err)
	require.Equal(t, "jean_dupont", first.Username)

	second, err := svc.Register(ctx, registerInput("jean2@exemple.fr"))
	require.NoError(t, err)
	require.Equal(t, "jean_dupont_1", second.Username)

	third, err := svc.Register(ctx, registerInput("jean3@exemple.fr"))
	require.NoError(t, err)
	require.Equal(t, "jean_dupont_2", third.Username)

	for i := 0; i < 3; i++ {
		notifier.waitWelcome(t)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, store, notifier := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("jean@exemple.fr"))
	require.NoError(t, err)
	notifier.waitWelcome(t)

	in := registerInput("jean@exemple.fr")
	in.Firstname = "Jeanne"
	_, err = svc.Register(ctx, in)
	require.ErrorIs(t, err, ErrEmailTaken)

	// No partial row persisted by the failed attempt.
	store.mu.Lock()
	require.Len(t, store.accounts, 1)
	store.mu.Unlock()
}

func TestRegisterRolePolicy(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()

	cases := []struct {
		requested string
		want      string
	}{
		{"", model.RolePatient},
		{"admin", model.RolePatient},
		{"docteur", model.RoleDoctor},
		{"superuser", model.RolePatient},
	}
	for i, tc := range cases {
		in := registerInput("")
		in.Email = string(rune('a'+i)) + "@exemple.fr"
		in.Lastname = "Dupont" + string(rune('a'+i))
		in.Role = tc.requested
		acc, err := svc.Register(ctx, in)
		require.NoError(t, err)
		require.Equal(t, tc.want, acc.Role, "requested role %q", tc.requested)
		notifier.waitWelcome(t)
	}
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, _, notifier := newTestService()

	acc, err := svc.Register(context.Background(), registerInput("jean@exemple.fr"))
	require.NoError(t, err)
	notifier.waitWelcome(t)

	require.NotEqual(t, "Secret#123", acc.PasswordHash)
	require.True(t, utils.VerifyPassword(acc.PasswordHash, "Secret#123"))
}

func TestRegisterWelcomeFailureIsSwallowed(t *testing.T) {
	svc, _, notifier := newTestService()
	notifier.welcomeErr = errors.New("broker down")

	acc, err := svc.Register(context.Background(), registerInput("jean@exemple.fr"))
	require.NoError(t, err)
	require.NotZero(t, acc.ID)
	require.Equal(t, "jean@exemple.fr", notifier.waitWelcome(t))
}

func TestAuthenticate(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("jean@exemple.fr"))
	require.NoError(t, err)
	notifier.waitWelcome(t)

	acc, token, err := svc.Authenticate(ctx, "jean@exemple.fr", "Secret#123")
	require.NoError(t, err)
	require.Equal(t, "jean@exemple.fr", acc.Email)

	claims, err := utils.VerifyAccessToken("test-secret", token.Token)
	require.NoError(t, err)
	require.Equal(t, acc.ID, claims.UserID)
	require.Equal(t, model.RolePatient, claims.Role)
}

func TestAuthenticateFailuresAreIndistinguishable(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("jean@exemple.fr"))
	require.NoError(t, err)
	notifier.waitWelcome(t)

	_, _, wrongPassword := svc.Authenticate(ctx, "jean@exemple.fr", "WrongPass#1")
	_, _, unknownEmail := svc.Authenticate(ctx, "inconnu@exemple.fr", "Secret#123")

	require.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	require.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	// Same error value, same message: nothing leaks which field was wrong.
	require.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestRequestPasswordReset(t *testing.T) {
	svc, store, notifier := newTestService()
	ctx := context.Background()

	require.ErrorIs(t, svc.RequestPasswordReset(ctx, "inconnu@exemple.fr"), repository.ErrNotFound)

	acc, err := svc.Register(ctx, registerInput("jean@exemple.fr"))
	require.NoError(t, err)
	notifier.waitWelcome(t)

	require.NoError(t, svc.RequestPasswordReset(ctx, "jean@exemple.fr"))

	call := notifier.lastReset(t)
	require.Equal(t, "jean@exemple.fr", call.email)
	require.Equal(t, "jean_dupont", call.name)
	require.Len(t, call.token, 64)

	stored, err := store.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	require.True(t, stored.ResetToken.Valid)
	require.Equal(t, call.token, stored.ResetToken.String)
	require.WithinDuration(t, time.Now().UTC().Add(time.Hour), stored.ResetTokenExpires.Time, 5*time.Second)
}

func TestRequestPasswordResetOverwritesPending(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("jean@exemple.fr"))
	require.NoError(t, err)
	notifier.waitWelcome(t)

	require.NoError(t, svc.RequestPasswordReset(ctx, "jean@exemple.fr"))
	first := notifier.lastReset(t).token
	require.NoError(t, svc.RequestPasswordReset(ctx, "jean@exemple.fr"))
	second := notifier.lastReset(t).token
	require.NotEqual(t, first, second)

	// Only the latest token is pending.
	_, err = svc.VerifyResetToken(ctx, first)
	require.ErrorIs(t, err, repository.ErrResetTokenInvalid)
	_, err = svc.VerifyResetToken(ctx, second)
	require.NoError(t, err)
}

func TestRequestPasswordResetNotifierFailurePropagates(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("jean@exemple.fr"))
	require.NoError(t, err)
	notifier.waitWelcome(t)

	brokerErr := errors.New("publish failed")
	notifier.resetErr = brokerErr
	err = svc.RequestPasswordReset(ctx, "jean@exemple.fr")
	require.ErrorIs(t, err, brokerErr)
}

func TestVerifyResetToken(t *testing.T) {
	svc, store, notifier := newTestService()
	ctx := context.Background()

	acc, err := svc.Register(ctx, registerInput("jean@exemple.fr"))
	require.NoError(t, err)
	notifier.waitWelcome(t)
	require.NoError(t, svc.RequestPasswordReset(ctx, "jean@exemple.fr"))
	token := notifier.lastReset(t).token

	preview, err := svc.VerifyResetToken(ctx, token)
	require.NoError(t, err)
	require.Equal(t, ResetPreview{Email: "jean@exemple.fr", Firstname: "Jean"}, preview)

	_, err = svc.VerifyResetToken(ctx, "0000000000000000000000000000000000000000000000000000000000000000")
	require.ErrorIs(t, err, repository.ErrResetTokenInvalid)

	// Expired token: same failure as an unknown one.
	store.mu.Lock()
	store.accounts[acc.ID].ResetTokenExpires = sql.NullTime{
		Time: time.Now().UTC().Add(-time.Minute), Valid: true,
	}
	store.mu.Unlock()
	_, err = svc.VerifyResetToken(ctx, token)
	require.ErrorIs(t, err, repository.ErrResetTokenInvalid)
}

func TestResetPasswordIsSingleUse(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("jean@exemple.fr"))
	require.NoError(t, err)
	notifier.waitWelcome(t)
	require.NoError(t, svc.RequestPasswordReset(ctx, "jean@exemple.fr"))
	token := notifier.lastReset(t).token

	require.NoError(t, svc.ResetPassword(ctx, token, "NewSecret#456"))

	// New password works, old one is gone.
	_, _, err = svc.Authenticate(ctx, "jean@exemple.fr", "NewSecret#456")
	require.NoError(t, err)
	_, _, err = svc.Authenticate(ctx, "jean@exemple.fr", "Secret#123")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Second use of the same token fails.
	require.ErrorIs(t, svc.ResetPassword(ctx, token, "Another#789"), repository.ErrResetTokenInvalid)
	_, err = svc.VerifyResetToken(ctx, token)
	require.ErrorIs(t, err, repository.ErrResetTokenInvalid)
}

func TestResetPasswordExpiredAtWriteTime(t *testing.T) {
	svc, store, notifier := newTestService()
	ctx := context.Background()

	acc, err := svc.Register(ctx, registerInput("jean@exemple.fr"))
	require.NoError(t, err)
	notifier.waitWelcome(t)
	require.NoError(t, svc.RequestPasswordReset(ctx, "jean@exemple.fr"))
	token := notifier.lastReset(t).token

	store.mu.Lock()
	store.accounts[acc.ID].ResetTokenExpires = sql.NullTime{
		Time: time.Now().UTC().Add(-time.Minute), Valid: true,
	}
	store.mu.Unlock()

	require.ErrorIs(t, svc.ResetPassword(ctx, token, "NewSecret#456"), repository.ErrResetTokenInvalid)

	// Password untouched.
	_, _, err = svc.Authenticate(ctx, "jean@exemple.fr", "Secret#123")
	require.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()

	acc, err := svc.Register(ctx, registerInput("jean@exemple.fr"))
	require.NoError(t, err)
	notifier.waitWelcome(t)

	firstname := "Michel"
	updated, err := svc.UpdateProfile(ctx, acc.ID, model.ProfileUpdate{Firstname: &firstname})
	require.NoError(t, err)
	require.Equal(t, "Michel", updated.Firstname)
	// Everything else untouched.
	require.Equal(t, acc.Lastname, updated.Lastname)
	require.Equal(t, acc.Phone, updated.Phone)
	require.Equal(t, acc.Role, updated.Role)
	require.Equal(t, acc.Username, updated.Username)

	_, err = svc.UpdateProfile(ctx, acc.ID, model.ProfileUpdate{})
	require.ErrorIs(t, err, repository.ErrNoFields)

	_, err = svc.UpdateProfile(ctx, 9999, model.ProfileUpdate{Firstname: &firstname})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteAccount(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()

	acc, err := svc.Register(ctx, registerInput("jean@exemple.fr"))
	require.NoError(t, err)
	notifier.waitWelcome(t)

	require.NoError(t, svc.DeleteAccount(ctx, acc.ID))
	_, err = svc.GetByID(ctx, acc.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.ErrorIs(t, svc.DeleteAccount(ctx, acc.ID), repository.ErrNotFound)
}
