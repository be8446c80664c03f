package authfilter

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-gateway/internal/domain"
	"github.com/spec-kit/auth-gateway/internal/session"
	"github.com/spec-kit/auth-gateway/internal/token"
)

// Request carries the raw credential material extracted from one inbound
// HTTP exchange. Empty strings mean absent.
type Request struct {
	Path          string
	AccessHeader  string
	RefreshCookie string
}

// Authenticator decides, per request, whether the caller holds a valid
// access credential, renewing it through the refresh credential when it has
// expired. It holds no per-request state and is safe for concurrent use.
//
// Concurrent renewals for the same username are not serialized: when two
// requests race a near-expiry token, the second Put wins and the first
// renewal's refresh credential dies on its next use. Accepted behavior.
type Authenticator struct {
	codec        *token.Codec
	store        session.Store
	accessPrefix string
	accessTTL    time.Duration
	refreshTTL   time.Duration
	excludePaths []string
	logger       *zap.Logger
}

// Options bundles construction parameters for the Authenticator.
type Options struct {
	Codec        *token.Codec
	Store        session.Store
	AccessPrefix string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	ExcludePaths []string
	Logger       *zap.Logger
}

// New constructs an Authenticator.
func New(opts Options) *Authenticator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{
		codec:        opts.Codec,
		store:        opts.Store,
		accessPrefix: opts.AccessPrefix,
		accessTTL:    opts.AccessTTL,
		refreshTTL:   opts.RefreshTTL,
		excludePaths: opts.ExcludePaths,
		logger:       logger,
	}
}

// Evaluate runs the validation state machine for one request. The returned
// error is non-nil only for infrastructure failures (session store
// unreachable); every authentication verdict, including rejections, arrives
// as an Outcome. Validation order is fixed: shape, then signature, then
// expiry, then store consistency, so a malformed token yields the same
// rejection regardless of store contents.
func (a *Authenticator) Evaluate(ctx context.Context, req Request) (Outcome, error) {
	if a.isExcluded(req.Path) {
		a.logger.Debug("path excluded from authentication", zap.String("path", req.Path))
		return Outcome{Decision: DecisionContinue}, nil
	}

	if req.AccessHeader == "" || !strings.HasPrefix(req.AccessHeader, a.accessPrefix) {
		a.logger.Debug("missing access token", zap.String("path", req.Path))
		return reject(CodeInvalidToken), nil
	}
	raw := strings.TrimPrefix(req.AccessHeader, a.accessPrefix)

	claims, err := a.codec.Parse(raw)
	if err != nil {
		a.logger.Debug("access token failed verification", zap.String("path", req.Path))
		return reject(CodeInvalidToken), nil
	}

	if a.codec.IsExpired(raw) {
		a.logger.Debug("access token expired, attempting renewal", zap.String("username", claims.Username))
		return a.renew(ctx, req)
	}

	// Valid access token still requires a live server-side session; its
	// absence means the session was invalidated out of band.
	if _, err := a.store.Get(ctx, claims.Username); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			a.logger.Debug("no session for valid access token", zap.String("username", claims.Username))
			return reject(CodeTokenNotFound), nil
		}
		return Outcome{}, err
	}

	return continueAs(claims.Username, claims.Role), nil
}

// renew implements the renewal sub-protocol. Every check failure collapses
// to InvalidToken so the response does not disclose whether the refresh
// credential was absent, tampered, expired, or replayed after rotation.
func (a *Authenticator) renew(ctx context.Context, req Request) (Outcome, error) {
	presented := req.RefreshCookie
	if presented == "" {
		a.logger.Debug("missing refresh token")
		return reject(CodeInvalidToken), nil
	}

	claims, err := a.codec.Parse(presented)
	if err != nil {
		a.logger.Debug("refresh token failed verification")
		return reject(CodeInvalidToken), nil
	}
	if a.codec.IsExpired(presented) {
		a.logger.Debug("refresh token expired", zap.String("username", claims.Username))
		return reject(CodeInvalidToken), nil
	}

	stored, err := a.store.Get(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			a.logger.Debug("no stored refresh token", zap.String("username", claims.Username))
			return reject(CodeInvalidToken), nil
		}
		return Outcome{}, err
	}

	// Anti-replay: a refresh credential superseded by a later rotation is
	// rejected even though its own signature and expiry still hold.
	if stored != presented {
		a.logger.Debug("refresh token superseded by rotation", zap.String("username", claims.Username))
		return reject(CodeInvalidToken), nil
	}

	newAccess, err := a.codec.Issue(domain.TokenCategoryAccess, claims.Username, claims.Role, a.accessTTL)
	if err != nil {
		return Outcome{}, err
	}
	newRefresh, err := a.codec.Issue(domain.TokenCategoryRefresh, claims.Username, claims.Role, a.refreshTTL)
	if err != nil {
		return Outcome{}, err
	}

	// The Put supersedes the stored record, closing the rotation window so
	// the just-used refresh credential cannot be replayed.
	if err := a.store.Put(ctx, claims.Username, newRefresh, a.refreshTTL); err != nil {
		return Outcome{}, err
	}

	a.logger.Info("token pair renewed", zap.String("username", claims.Username))
	return renewed(claims.Username, claims.Role, newAccess, newRefresh), nil
}

func (a *Authenticator) isExcluded(path string) bool {
	for _, prefix := range a.excludePaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
