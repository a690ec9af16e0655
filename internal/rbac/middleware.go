package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-iam/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// Gate rejection messages.
const (
	MsgInvalidHeader = "missing or invalid auth header"
	MsgUnauthorized  = "unauthorized"
	MsgUserNotFound  = "user not found"
)

// Authenticator verifies a raw bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (shared.TokenInfo, error)
}

// DecisionRecorder counts gate outcomes.
type DecisionRecorder interface {
	RecordDecision(outcome string)
}

// Rejection is a terminal gate failure with the status to report.
type Rejection struct {
	Status  int
	Message string
	cause   error
}

func (r *Rejection) Error() string { return r.Message }

// Unwrap maps the rejection onto the shared taxonomy.
func (r *Rejection) Unwrap() error { return r.cause }

func unauthenticated(msg string) *Rejection {
	return &Rejection{Status: http.StatusUnauthorized, Message: msg, cause: shared.ErrUnauthenticated}
}

// Gate authenticates bearer tokens, computes effective permissions and
// guards handlers on named permissions.
type Gate struct {
	Tokens   Authenticator
	Users    UserStore
	Resolver *Resolver
	Logger   *slog.Logger
	Metrics  DecisionRecorder
}

// Authenticate runs the gate for one Authorization header value.
func (g Gate) Authenticate(ctx context.Context, header string) (*Principal, shared.TokenInfo, error) {
	token, ok := bearerToken(header)
	if !ok {
		g.record("rejected_header")
		return nil, shared.TokenInfo{}, unauthenticated(MsgInvalidHeader)
	}
	info, err := g.Tokens.Authenticate(ctx, token)
	if err != nil {
		if !errors.Is(err, shared.ErrInvalidToken) {
			g.logError("gate verify token", err)
		}
		g.record("rejected_token")
		return nil, shared.TokenInfo{}, unauthenticated(MsgUnauthorized)
	}
	user, err := g.Users.GetUser(ctx, info.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			g.record("rejected_user")
			return nil, shared.TokenInfo{}, unauthenticated(MsgUserNotFound)
		}
		g.logError("gate load user", err)
		g.record("rejected_error")
		return nil, shared.TokenInfo{}, unauthenticated(MsgUnauthorized)
	}
	principal, err := g.Resolver.Principal(ctx, user)
	if err != nil {
		g.logError("gate resolve permissions", err)
		g.record("rejected_error")
		return nil, shared.TokenInfo{}, unauthenticated(MsgUnauthorized)
	}
	g.record("authenticated")
	return principal, info, nil
}

// Check enforces a permission against the principal stored in ctx. A missing
// principal is reported as unauthenticated, never allowed.
func Check(ctx context.Context, permission string) error {
	p := PrincipalFromContext(ctx)
	if p == nil {
		return unauthenticated(MsgUnauthorized)
	}
	if !p.EffectivePermissions.Has(permission) {
		return &shared.ForbiddenError{Permission: permission}
	}
	return nil
}

// Middleware authenticates the request and stores the principal in context.
func (g Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, info, err := g.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			writeRejection(w, err)
			return
		}
		ctx := ContextWithPrincipal(r.Context(), principal)
		ctx = shared.ContextWithToken(ctx, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require rejects requests whose principal lacks permission.
func (g Gate) Require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := Check(r.Context(), permission); err != nil {
				if errors.Is(err, shared.ErrForbidden) {
					g.record("forbidden")
				} else {
					g.record("unauthenticated")
				}
				writeRejection(w, err)
				return
			}
			g.record("allowed")
			next.ServeHTTP(w, r)
		})
	}
}

func writeRejection(w http.ResponseWriter, err error) {
	var rej *Rejection
	var forbidden *shared.ForbiddenError
	switch {
	case errors.As(err, &rej):
		httpx.Problem(w, rej.Status, http.StatusText(rej.Status), rej.Message)
	case errors.As(err, &forbidden):
		httpx.Problem(w, http.StatusForbidden, http.StatusText(http.StatusForbidden), forbidden.Error())
	default:
		httpx.Problem(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized), MsgUnauthorized)
	}
}

func bearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

func (g Gate) record(outcome string) {
	if g.Metrics != nil {
		g.Metrics.RecordDecision(outcome)
	}
}

func (g Gate) logError(msg string, err error) {
	if g.Logger != nil {
		g.Logger.Error(msg, slog.Any("error", err))
	}
}
