// Package gate authenticates requests from their session token and checks
// role allow-sets before a handler runs. Every protected route goes through
// Require; handlers never inspect tokens themselves.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/domain"
	"github.com/aussiebroadwan/gradebook/pkg/httpx"
	"github.com/aussiebroadwan/gradebook/pkg/jwtx"
	"github.com/aussiebroadwan/gradebook/pkg/slogx"
)

// Gate turns a request into a Principal.
type Gate struct {
	Codec     *jwtx.Codec
	Extractor httpx.TokenExtractor
	Denylist  jwtx.Denylist
	Logger    *slog.Logger
}

// New builds a gate. A nil extractor reads bearer then cookie; a nil
// denylist disables revocation.
func New(codec *jwtx.Codec, extractor httpx.TokenExtractor, denylist jwtx.Denylist, logger *slog.Logger) *Gate {
	if extractor == nil {
		extractor = httpx.TransportAny.Extractor()
	}
	if denylist == nil {
		denylist = jwtx.NopDenylist{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{Codec: codec, Extractor: extractor, Denylist: denylist, Logger: logger}
}

// Authenticate verifies the request's token and returns its principal.
// Errors match domain.ErrUnauthenticated, or domain.ErrDependency when the
// denylist cannot be consulted.
func (g *Gate) Authenticate(r *http.Request) (domain.Principal, error) {
	raw := g.Extractor(r)
	if raw == "" {
		return domain.Principal{}, fmt.Errorf("%w: missing token", domain.ErrUnauthenticated)
	}
	return g.PrincipalFromToken(r.Context(), raw)
}

// PrincipalFromToken decodes raw and checks it against the denylist.
func (g *Gate) PrincipalFromToken(ctx context.Context, raw string) (domain.Principal, error) {
	claims, err := g.Codec.Decode(raw)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}

	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}

	revoked, err := g.Denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: denylist: %w", domain.ErrDependency, err)
	}
	if revoked {
		return domain.Principal{}, fmt.Errorf("%w: token revoked", domain.ErrUnauthenticated)
	}

	return domain.Principal{
		UserID:    claims.UserID,
		Email:     claims.Email(),
		Role:      role,
		Name:      claims.Name,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Authorize fails with domain.ErrForbidden unless p holds one of allowed.
func (g *Gate) Authorize(p domain.Principal, allowed ...domain.Role) error {
	return Authorize(p, allowed...)
}

// Authorize is the shared role predicate.
func Authorize(p domain.Principal, allowed ...domain.Role) error {
	if !p.HasRole(allowed...) {
		return fmt.Errorf("%w: role %q not in %v", domain.ErrForbidden, p.Role, allowed)
	}
	return nil
}

// Require authenticates then authorizes before calling next. With no roles
// any authenticated principal passes.
func (g *Gate) Require(allowed ...domain.Role) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			p, err := g.Authenticate(r)
			if err != nil {
				if errors.Is(err, domain.ErrDependency) {
					log.Error("authentication dependency failed", "err", err)
					httpx.WriteError(w, http.StatusServiceUnavailable, "dependency_failure", "try again later")
					return
				}
				log.Debug("authentication failed", "err", err)
				httpx.WriteBearerError(w, "invalid or missing token")
				return
			}

			if len(allowed) > 0 {
				if err := g.Authorize(p, allowed...); err != nil {
					log.Warn("forbidden", "user_id", p.UserID, "role", p.Role, "path", r.URL.Path)
					httpx.WriteError(w, http.StatusForbidden, "forbidden", "insufficient role")
					return
				}
			}

			ctx = ContextWithPrincipal(ctx, p)
			ctx = httpx.ContextWithUserID(ctx, strconv.FormatInt(p.UserID, 10))
			ctx = slogx.With(ctx, "user_id", p.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type ctxKey struct{}

// ContextWithPrincipal stores p for downstream handlers.
func ContextWithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFromContext returns the principal set by Require.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(domain.Principal)
	return p, ok
}
