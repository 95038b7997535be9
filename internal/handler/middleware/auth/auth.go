package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"agroedge/internal/domain/node"
	"agroedge/internal/domain/session"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type contextKey string

const (
	claimsKey contextKey = "claims"
	nodeKey   contextKey = "node"
)

// Auth проверяет Bearer-заголовок. Токен клиента панели проверяется
// через session.Servicer, ключ edge-узла через node.Servicer.
type Auth struct {
	sessions session.Servicer
	nodes    node.Servicer
	log      *slog.Logger
}

func New(sessions session.Servicer, nodes node.Servicer, log *slog.Logger) *Auth {
	return &Auth{
		sessions: sessions,
		nodes:    nodes,
		log:      log.With("component", "auth_middleware"),
	}
}

// Middleware требует токен клиента. Если задано разрешение perm, токен
// должен его содержать.
func (a *Auth) Middleware(perm string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		token, ok := bearer(ctx)
		if !ok || a.sessions == nil {
			unauthorized(ctx, http.StatusUnauthorized)
			return
		}

		claims, err := a.sessions.Validate(token)
		if err != nil {
			a.log.Warn("token rejected", "error", err)
			unauthorized(ctx, http.StatusUnauthorized)
			return
		}
		if perm != "" && !slices.Contains(claims.Permissions, perm) {
			a.log.Warn("permission denied", "user_id", claims.UserID, "permission", perm)
			unauthorized(ctx, http.StatusForbidden)
			return
		}

		next(huma.WithContext(ctx, WithClaims(ctx.Context(), claims)))
	}
}

// NodeMiddleware требует ключ edge-узла
func (a *Auth) NodeMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		key, ok := bearer(ctx)
		if !ok || a.nodes == nil {
			unauthorized(ctx, http.StatusUnauthorized)
			return
		}

		n, err := a.nodes.Authenticate(ctx.Context(), key)
		if err != nil {
			a.log.Warn("node key rejected", "remote_addr", ctx.RemoteAddr(), "error", err)
			unauthorized(ctx, http.StatusUnauthorized)
			return
		}

		next(huma.WithContext(ctx, WithNode(ctx.Context(), n)))
	}
}

func WithClaims(ctx context.Context, claims *session.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func WithNode(ctx context.Context, n node.Node) context.Context {
	return context.WithValue(ctx, nodeKey, n)
}

func GetClaims(ctx context.Context) (*session.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*session.Claims)
	return claims, ok
}

func GetNode(ctx context.Context) (node.Node, bool) {
	n, ok := ctx.Value(nodeKey).(node.Node)
	return n, ok
}

func bearer(ctx huma.Context) (string, bool) {
	token, ok := strings.CutPrefix(ctx.Header("Authorization"), "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

func unauthorized(ctx huma.Context, status int) {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.SetStatus(status)
	_ = json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{
		"error": http.StatusText(status),
	})
}
