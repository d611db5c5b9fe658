package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-queue/internal/model"
	"github.com/iliyamo/clinic-queue/internal/repository"
	"github.com/iliyamo/clinic-queue/internal/utils"
)

// Credentials is the body of register and login requests.  bcrypt ignores
// bytes past 72, hence the upper bound.
type Credentials struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// AuthService registers patients, logs users in and bootstraps the
// administrator account.
type AuthService struct {
	users      repository.UserStore
	secret     string
	ttlMin     int
	bcryptCost int
	validate   *validator.Validate
	log        *zap.Logger
}

// NewAuthService returns an AuthService issuing tokens signed with secret.
func NewAuthService(users repository.UserStore, secret string, ttlMin, bcryptCost int, log *zap.Logger) *AuthService {
	return &AuthService{
		users:      users,
		secret:     secret,
		ttlMin:     ttlMin,
		bcryptCost: bcryptCost,
		validate:   newValidator(),
		log:        log.Named("auth"),
	}
}

// Register creates a PATIENT account.  The role is never taken from the
// request.
func (a *AuthService) Register(ctx context.Context, in Credentials) (model.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(a.validate, in); err != nil {
		return model.User{}, err
	}
	return a.createUser(ctx, in, model.RolePatient)
}

// Login checks the credentials and issues an access token.
func (a *AuthService) Login(ctx context.Context, in Credentials) (utils.AccessToken, model.User, error) {
	u, err := a.users.UserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return utils.AccessToken{}, model.User{}, ErrInvalidCredentials
		}
		return utils.AccessToken{}, model.User{}, storageErr("load user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, in.Password) {
		return utils.AccessToken{}, model.User{}, ErrInvalidCredentials
	}
	at, err := utils.NewAccessToken(a.secret, u.ID, u.Role, a.ttlMin)
	if err != nil {
		return utils.AccessToken{}, model.User{}, err
	}
	a.log.Debug("user logged in", zap.String("user_id", u.ID), zap.String("role", u.Role))
	return at, u, nil
}

// User returns the account with the given id.
func (a *AuthService) User(ctx context.Context, id string) (model.User, error) {
	u, err := a.users.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.User{}, err
		}
		return model.User{}, storageErr("load user", err)
	}
	return u, nil
}

// EnsureAdmin creates the administrator account unless the email is
// already registered.
func (a *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	in := Credentials{Email: strings.ToLower(strings.TrimSpace(email)), Password: password}
	u, err := a.users.UserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		if u.Role != model.RoleAdmin {
			a.log.Warn("admin email belongs to a non-admin account", zap.String("email", in.Email))
		}
		return nil
	case !errors.Is(err, repository.ErrUserNotFound):
		return storageErr("load user", err)
	}
	if err := validateStruct(a.validate, in); err != nil {
		return err
	}
	u, err = a.createUser(ctx, in, model.RoleAdmin)
	if err != nil {
		return err
	}
	a.log.Info("admin account created", zap.String("user_id", u.ID), zap.String("email", u.Email))
	return nil
}

func (a *AuthService) createUser(ctx context.Context, in Credentials, role string) (model.User, error) {
	hash, err := utils.HashPassword(in.Password, a.bcryptCost)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, ErrEmailTaken
		}
		return model.User{}, storageErr("create user", err)
	}
	return u, nil
}
