package authfilter

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/auth-gateway/internal/config"
	"github.com/spec-kit/auth-gateway/internal/domain"
	"github.com/spec-kit/auth-gateway/internal/events"
	"github.com/spec-kit/auth-gateway/internal/observability"
	apperrors "github.com/spec-kit/auth-gateway/pkg/util"
)

const principalKey = "auth_principal"

// Principal identifies the authenticated caller for downstream handlers.
type Principal struct {
	Username string
	Role     domain.Role
}

// Middleware adapts the Authenticator to the Fiber request/response
// exchange: it extracts the raw credentials, applies the outcome, and on
// renewal writes the new pair back to the response before continuing.
type Middleware struct {
	authenticator *Authenticator
	jwtCfg        config.JWTConfig
	metrics       *observability.Metrics
	dispatcher    events.Dispatcher
}

// NewMiddleware constructs the adapter.
func NewMiddleware(authenticator *Authenticator, jwtCfg config.JWTConfig, metrics *observability.Metrics, dispatcher events.Dispatcher) *Middleware {
	return &Middleware{
		authenticator: authenticator,
		jwtCfg:        jwtCfg,
		metrics:       metrics,
		dispatcher:    dispatcher,
	}
}

// Handle enforces authentication for every request passing through it.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	outcome, err := m.authenticator.Evaluate(c.UserContext(), Request{
		Path:          c.Path(),
		AccessHeader:  c.Get(m.jwtCfg.AccessHeader),
		RefreshCookie: c.Cookies(m.jwtCfg.RefreshCookie),
	})
	if err != nil {
		m.metrics.RecordAuthOutcome("store_error")
		return apperrors.NewConnectionRefused(err)
	}

	switch outcome.Decision {
	case DecisionReject:
		m.metrics.RecordAuthOutcome("rejected")
		m.publish(c, events.EventAuthRejected, "", events.AuthRejectedPayload{
			Path: c.Path(),
			Code: int(outcome.Code),
		})
		if outcome.Code == CodeTokenNotFound {
			return apperrors.NewTokenNotFound()
		}
		return apperrors.NewInvalidToken()

	case DecisionRenew:
		c.Set(m.jwtCfg.AccessHeader, m.jwtCfg.AccessPrefix+outcome.AccessToken)
		c.Cookie(&fiber.Cookie{
			Name:     m.jwtCfg.RefreshCookie,
			Value:    outcome.RefreshToken,
			Path:     "/",
			MaxAge:   int(m.jwtCfg.RefreshTTL().Seconds()),
			HTTPOnly: true,
			Secure:   m.jwtCfg.CookieSecure,
		})
		m.metrics.RecordAuthOutcome("renewed")
		m.publish(c, events.EventTokenRenewed, outcome.Username, events.TokenRenewedPayload{Role: outcome.Role})
		m.storePrincipal(c, outcome)
		return c.Next()

	default:
		if outcome.Username == "" {
			// Excluded path: nothing was validated.
			m.metrics.RecordAuthOutcome("excluded")
			return c.Next()
		}
		m.metrics.RecordAuthOutcome("continue")
		m.storePrincipal(c, outcome)
		return c.Next()
	}
}

func (m *Middleware) storePrincipal(c *fiber.Ctx, outcome Outcome) {
	c.Locals(principalKey, &Principal{Username: outcome.Username, Role: outcome.Role})
}

func (m *Middleware) publish(c *fiber.Ctx, eventType events.EventType, username string, payload interface{}) {
	if m.dispatcher == nil {
		return
	}
	_ = m.dispatcher.Publish(c.UserContext(), events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Username:  username,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

// PrincipalFromContext retrieves the authenticated caller, if any.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
