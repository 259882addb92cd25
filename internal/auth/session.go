package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

const SessionCookie = "session"

// Identity is the signed-in user. A request without a valid session has no
// Identity in its context and is treated as anonymous.
type Identity struct {
	UserID string
	Email  string
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok && id.UserID != ""
}

type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type SessionVerifier struct {
	secret []byte
	logger *slog.Logger
}

func NewSessionVerifier(secret string, logger *slog.Logger) *SessionVerifier {
	return &SessionVerifier{secret: []byte(secret), logger: logger}
}

// Parse validates an HS256 session token and returns its identity.
func (v *SessionVerifier) Parse(token string) (Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return Identity{}, errors.New("invalid session token")
	}
	return Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// Middleware attaches the session identity when the request carries a valid
// token. Invalid tokens are logged and the request continues anonymously.
func (v *SessionVerifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := v.Parse(token)
		if err != nil {
			v.logger.Debug("ignoring invalid session", "error", err, "path", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}
