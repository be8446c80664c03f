package authfilter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-gateway/internal/domain"
	"github.com/spec-kit/auth-gateway/internal/session"
	"github.com/spec-kit/auth-gateway/internal/token"
)

const (
	testSecret = "authenticator-test-secret"
	testPrefix = "Bearer "
)

type testEnv struct {
	mr    *miniredis.Miniredis
	codec *token.Codec
	store *session.RedisStore
	auth  *Authenticator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	codec := token.NewCodec(testSecret)
	store := session.NewRedisStore(client, "refresh", time.Second)

	auth := New(Options{
		Codec:        codec,
		Store:        store,
		AccessPrefix: testPrefix,
		AccessTTL:    30 * time.Minute,
		RefreshTTL:   24 * time.Hour,
		ExcludePaths: []string{"/api/users/register", "/auth/login"},
	})
	return &testEnv{mr: mr, codec: codec, store: store, auth: auth}
}

// login issues a token pair and seeds the session store, mimicking what the
// issuance endpoint does.
func (e *testEnv) login(t *testing.T, username string, accessTTL time.Duration) (access, refresh string) {
	t.Helper()

	access, err := e.codec.Issue(domain.TokenCategoryAccess, username, domain.RoleUser, accessTTL)
	require.NoError(t, err)
	refresh, err = e.codec.Issue(domain.TokenCategoryRefresh, username, domain.RoleUser, 24*time.Hour)
	require.NoError(t, err)
	require.NoError(t, e.store.Put(context.Background(), username, refresh, 24*time.Hour))
	return access, refresh
}

func TestExcludedPathSkipsValidation(t *testing.T) {
	env := newTestEnv(t)

	outcome, err := env.auth.Evaluate(context.Background(), Request{
		Path: "/api/users/register",
	})
	require.NoError(t, err)
	require.Equal(t, DecisionContinue, outcome.Decision)
}

func TestExcludedPathMatchesByPrefix(t *testing.T) {
	env := newTestEnv(t)

	outcome, err := env.auth.Evaluate(context.Background(), Request{
		Path: "/api/users/register/confirm",
	})
	require.NoError(t, err)
	require.Equal(t, DecisionContinue, outcome.Decision)
}

func TestMissingAccessHeaderRejected(t *testing.T) {
	env := newTestEnv(t)

	outcome, err := env.auth.Evaluate(context.Background(), Request{
		Path: "/api/orders",
	})
	require.NoError(t, err)
	require.Equal(t, DecisionReject, outcome.Decision)
	require.Equal(t, CodeInvalidToken, outcome.Code)
}

func TestWrongPrefixRejected(t *testing.T) {
	env := newTestEnv(t)
	access, _ := env.login(t, "alice", 30*time.Minute)

	outcome, err := env.auth.Evaluate(context.Background(), Request{
		Path:         "/api/orders",
		AccessHeader: "Token " + access,
	})
	require.NoError(t, err)
	require.Equal(t, DecisionReject, outcome.Decision)
	require.Equal(t, CodeInvalidToken, outcome.Code)
}

func TestTamperedAccessTokenRejected(t *testing.T) {
	env := newTestEnv(t)
	access, _ := env.login(t, "alice", 30*time.Minute)

	tampered := []byte(access)
	tampered[len(tampered)-1] ^= 0x01

	outcome, err := env.auth.Evaluate(context.Background(), Request{
		Path:         "/api/orders",
		AccessHeader: testPrefix + string(tampered),
	})
	require.NoError(t, err)
	require.Equal(t, DecisionReject, outcome.Decision)
	require.Equal(t, CodeInvalidToken, outcome.Code)
}

func TestValidAccessTokenContinues(t *testing.T) {
	env := newTestEnv(t)
	access, _ := env.login(t, "alice", 30*time.Minute)

	outcome, err := env.auth.Evaluate(context.Background(), Request{
		Path:         "/api/orders",
		AccessHeader: testPrefix + access,
	})
	require.NoError(t, err)
	require.Equal(t, DecisionContinue, outcome.Decision)
	require.Equal(t, "alice", outcome.Username)
	require.Equal(t, domain.RoleUser, outcome.Role)
	require.Empty(t, outcome.AccessToken)
	require.Empty(t, outcome.RefreshToken)
}

func TestValidAccessTokenWithoutSessionRejected(t *testing.T) {
	env := newTestEnv(t)
	access, err := env.codec.Issue(domain.TokenCategoryAccess, "ghost", domain.RoleUser, 30*time.Minute)
	require.NoError(t, err)

	outcome, evalErr := env.auth.Evaluate(context.Background(), Request{
		Path:         "/api/orders",
		AccessHeader: testPrefix + access,
	})
	require.NoError(t, evalErr)
	require.Equal(t, DecisionReject, outcome.Decision)
	require.Equal(t, CodeTokenNotFound, outcome.Code)
}

func TestLogoutInvalidatesValidAccessToken(t *testing.T) {
	env := newTestEnv(t)
	access, _ := env.login(t, "alice", 30*time.Minute)
	require.NoError(t, env.store.Delete(context.Background(), "alice"))

	outcome, err := env.auth.Evaluate(context.Background(), Request{
		Path:         "/api/orders",
		AccessHeader: testPrefix + access,
	})
	require.NoError(t, err)
	require.Equal(t, DecisionReject, outcome.Decision)
	require.Equal(t, CodeTokenNotFound, outcome.Code)
}

func TestExpiredAccessTokenRenewal(t *testing.T) {
	env := newTestEnv(t)
	access, refresh := env.login(t, "alice", -time.Minute)

	outcome, err := env.auth.Evaluate(context.Background(), Request{
		Path:          "/api/orders",
		AccessHeader:  testPrefix + access,
		RefreshCookie: refresh,
	})
	require.NoError(t, err)
	require.Equal(t, DecisionRenew, outcome.Decision)
	require.Equal(t, "alice", outcome.Username)
	require.NotEmpty(t, outcome.AccessToken)
	require.NotEmpty(t, outcome.RefreshToken)
	require.NotEqual(t, refresh, outcome.RefreshToken)

	// New access token is immediately usable.
	require.False(t, env.codec.IsExpired(outcome.AccessToken))

	// Store now holds the new refresh credential.
	stored, err := env.store.Get(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, outcome.RefreshToken, stored)
}

func TestRotationClosesReplayWindow(t *testing.T) {
	env := newTestEnv(t)
	access, refresh := env.login(t, "alice", -time.Minute)

	first, err := env.auth.Evaluate(context.Background(), Request{
		Path:          "/api/orders",
		AccessHeader:  testPrefix + access,
		RefreshCookie: refresh,
	})
	require.NoError(t, err)
	require.Equal(t, DecisionRenew, first.Decision)

	// Replaying the pre-rotation refresh credential must fail even though
	// its own signature and expiry are still fine.
	replay, err := env.auth.Evaluate(context.Background(), Request{
		Path:          "/api/orders",
		AccessHeader:  testPrefix + access,
		RefreshCookie: refresh,
	})
	require.NoError(t, err)
	require.Equal(t, DecisionReject, replay.Decision)
	require.Equal(t, CodeInvalidToken, replay.Code)
}

func TestRenewalWithoutRefreshCookieRejected(t *testing.T) {
	env := newTestEnv(t)
	access, _ := env.login(t, "alice", -time.Minute)

	outcome, err := env.auth.Evaluate(context.Background(), Request{
		Path:         "/api/orders",
		AccessHeader: testPrefix + access,
	})
	require.NoError(t, err)
	require.Equal(t, DecisionReject, outcome.Decision)
	require.Equal(t, CodeInvalidToken, outcome.Code)
}

func TestRenewalWithTamperedRefreshRejected(t *testing.T) {
	env := newTestEnv(t)
	access, refresh := env.login(t, "alice", -time.Minute)

	tampered := []byte(refresh)
	tampered[len(tampered)-1] ^= 0x01

	outcome, err := env.auth.Evaluate(context.Background(), Request{
		Path:          "/api/orders",
		AccessHeader:  testPrefix + access,
		RefreshCookie: string(tampered),
	})
	require.NoError(t, err)
	require.Equal(t, DecisionReject, outcome.Decision)
	require.Equal(t, CodeInvalidToken, outcome.Code)
}

func TestRenewalWithExpiredRefreshRejected(t *testing.T) {
	env := newTestEnv(t)
	access, err := env.codec.Issue(domain.TokenCategoryAccess, "alice", domain.RoleUser, -time.Minute)
	require.NoError(t, err)
	expiredRefresh, err := env.codec.Issue(domain.TokenCategoryRefresh, "alice", domain.RoleUser, -time.Minute)
	require.NoError(t, err)
	require.NoError(t, env.store.Put(context.Background(), "alice", expiredRefresh, time.Hour))

	outcome, evalErr := env.auth.Evaluate(context.Background(), Request{
		Path:          "/api/orders",
		AccessHeader:  testPrefix + access,
		RefreshCookie: expiredRefresh,
	})
	require.NoError(t, evalErr)
	require.Equal(t, DecisionReject, outcome.Decision)
	require.Equal(t, CodeInvalidToken, outcome.Code)
}

func TestRenewalWithMismatchedStoredRefreshRejected(t *testing.T) {
	env := newTestEnv(t)
	access, refresh := env.login(t, "alice", -time.Minute)

	// A later rotation superseded the presented credential.
	newer, err := env.codec.Issue(domain.TokenCategoryRefresh, "alice", domain.RoleUser, 24*time.Hour)
	require.NoError(t, err)
	require.NoError(t, env.store.Put(context.Background(), "alice", newer, 24*time.Hour))

	outcome, evalErr := env.auth.Evaluate(context.Background(), Request{
		Path:          "/api/orders",
		AccessHeader:  testPrefix + access,
		RefreshCookie: refresh,
	})
	require.NoError(t, evalErr)
	require.Equal(t, DecisionReject, outcome.Decision)
	require.Equal(t, CodeInvalidToken, outcome.Code)
}

func TestRenewalWithoutSessionRejected(t *testing.T) {
	env := newTestEnv(t)
	access, refresh := env.login(t, "alice", -time.Minute)
	require.NoError(t, env.store.Delete(context.Background(), "alice"))

	outcome, err := env.auth.Evaluate(context.Background(), Request{
		Path:          "/api/orders",
		AccessHeader:  testPrefix + access,
		RefreshCookie: refresh,
	})
	require.NoError(t, err)
	require.Equal(t, DecisionReject, outcome.Decision)
	require.Equal(t, CodeInvalidToken, outcome.Code)
}

func TestStoreUnavailableSurfacesAsError(t *testing.T) {
	env := newTestEnv(t)
	access, _ := env.login(t, "alice", 30*time.Minute)

	env.mr.Close()

	_, err := env.auth.Evaluate(context.Background(), Request{
		Path:         "/api/orders",
		AccessHeader: testPrefix + access,
	})
	require.ErrorIs(t, err, session.ErrStoreUnavailable)
}

// A malformed token yields the same rejection whether or not the store is
// reachable: shape and signature are checked before any store access.
func TestMalformedTokenStableAcrossStoreState(t *testing.T) {
	env := newTestEnv(t)
	env.mr.Close()

	outcome, err := env.auth.Evaluate(context.Background(), Request{
		Path:         "/api/orders",
		AccessHeader: testPrefix + "garbage",
	})
	require.NoError(t, err)
	require.Equal(t, DecisionReject, outcome.Decision)
	require.Equal(t, CodeInvalidToken, outcome.Code)
}
