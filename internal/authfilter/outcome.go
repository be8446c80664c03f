package authfilter

import "github.com/spec-kit/auth-gateway/internal/domain"

// RejectCode enumerates the per-request rejection taxonomy. The numeric
// values travel in the error envelope clients see.
type RejectCode int

const (
	// CodeInvalidToken covers missing, malformed, tampered, self-expired
	// refresh, and rotated-away refresh credentials. Deliberately one code:
	// rejections must not reveal which check failed.
	CodeInvalidToken RejectCode = -201
	// CodeTokenNotFound means the access credential verified but the server
	// holds no session for its user, e.g. after logout or forced rotation.
	CodeTokenNotFound RejectCode = -202
	// CodeConnectionRefused signals the session store could not be reached.
	CodeConnectionRefused RejectCode = -203
)

// Message returns the client-facing description for the code.
func (c RejectCode) Message() string {
	switch c {
	case CodeInvalidToken:
		return "Invalid Token"
	case CodeTokenNotFound:
		return "Token Not Found"
	case CodeConnectionRefused:
		return "Connection Refused"
	default:
		return "Unknown Failure"
	}
}

// Decision is the top-level disposition of a request.
type Decision int

const (
	// DecisionContinue lets the request through unchanged.
	DecisionContinue Decision = iota
	// DecisionRenew lets the request through and carries a freshly issued
	// token pair the adapter must write back to the response.
	DecisionRenew
	// DecisionReject short-circuits the request with a 401.
	DecisionReject
)

// Outcome is the authenticator's verdict for one request. Control flow is
// data: exactly one of the three decisions, with the renewal payload or
// rejection code attached.
type Outcome struct {
	Decision     Decision
	Username     string
	Role         domain.Role
	AccessToken  string
	RefreshToken string
	Code         RejectCode
}

func continueAs(username string, role domain.Role) Outcome {
	return Outcome{Decision: DecisionContinue, Username: username, Role: role}
}

func renewed(username string, role domain.Role, access, refresh string) Outcome {
	return Outcome{
		Decision:     DecisionRenew,
		Username:     username,
		Role:         role,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}

func reject(code RejectCode) Outcome {
	return Outcome{Decision: DecisionReject, Code: code}
}
