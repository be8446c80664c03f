package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/auth-gateway/internal/domain"
	"github.com/spec-kit/auth-gateway/internal/events"
	"github.com/spec-kit/auth-gateway/internal/repository"
	"github.com/spec-kit/auth-gateway/internal/session"
	"github.com/spec-kit/auth-gateway/internal/token"
	apperrors "github.com/spec-kit/auth-gateway/pkg/util"
)

// TokenPair is the result of a successful login: the credentials the
// gateway filter will validate and renew from here on.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// AuthService coordinates registration, login, and logout. Login seeds the
// session store with the issued refresh credential; logout removes it,
// which invalidates the session out of band for the filter.
type AuthService struct {
	users      repository.UserRepository
	codec      *token.Codec
	sessions   session.Store
	dispatcher events.Dispatcher
	bcryptCost int
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// AuthDependencies encapsulates collaborator requirements for the service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Codec      *token.Codec
	Sessions   session.Store
	Dispatcher events.Dispatcher
}

// AuthParams carries tuning values for the service.
type AuthParams struct {
	BcryptCost int
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies, params AuthParams) *AuthService {
	cost := params.BcryptCost
	if cost <= 0 {
		cost = 12
	}
	return &AuthService{
		users:      deps.UserRepo,
		codec:      deps.Codec,
		sessions:   deps.Sessions,
		dispatcher: deps.Dispatcher,
		bcryptCost: cost,
		accessTTL:  params.AccessTTL,
		refreshTTL: params.RefreshTTL,
	}
}

// Register creates a new account.
func (s *AuthService) Register(ctx context.Context, username, password string, role domain.Role) (*domain.User, error) {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewUserAlreadyExist()
	} else if err != pgx.ErrNoRows {
		return nil, err
	}

	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	if role == "" {
		role = domain.RoleUser
	}
	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventUserRegistered, username, nil)
	return user, nil
}

// Login authenticates the account, issues an access/refresh pair, and
// stores the refresh credential as the single live session record.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, *TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, apperrors.NewLoginFailure()
		}
		return nil, nil, err
	}
	if user.Status != domain.UserStatusActive {
		return nil, nil, apperrors.NewLoginFailure()
	}
	if err := ComparePassword(user.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewLoginFailure()
	}

	access, err := s.codec.Issue(domain.TokenCategoryAccess, user.Username, user.Role, s.accessTTL)
	if err != nil {
		return nil, nil, err
	}
	refresh, err := s.codec.Issue(domain.TokenCategoryRefresh, user.Username, user.Role, s.refreshTTL)
	if err != nil {
		return nil, nil, err
	}

	if err := s.sessions.Put(ctx, user.Username, refresh, s.refreshTTL); err != nil {
		return nil, nil, apperrors.NewConnectionRefused(err)
	}

	s.publish(ctx, events.EventUserLoggedIn, user.Username, nil)
	return user, &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(s.accessTTL),
	}, nil
}

// Logout deletes the session record so any outstanding access token hits
// TokenNotFound and any outstanding refresh token can no longer renew.
func (s *AuthService) Logout(ctx context.Context, username string) error {
	if err := s.sessions.Delete(ctx, username); err != nil {
		return apperrors.NewConnectionRefused(err)
	}
	s.publish(ctx, events.EventUserLoggedOut, username, nil)
	return nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, username string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Username:  username,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
