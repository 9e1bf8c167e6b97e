package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt"
)

// Caller roles. Admin callers may manage drivers and users; drivers report
// locations and accept rides.
const (
	RoleAdmin  = "admin"
	RoleDriver = "driver"
	RoleUser   = "user"
)

// CallerContext identifies the authenticated caller of a request.
type CallerContext struct {
	UID  string
	Role string
}

// IsAdmin reports whether the caller may use the admin routes.
func (c CallerContext) IsAdmin() bool { return c.Role == RoleAdmin }

type ctxKey struct{}

// CallerFrom extracts the caller set by the auth middleware.
func CallerFrom(ctx context.Context) (CallerContext, bool) {
	c, ok := ctx.Value(ctxKey{}).(CallerContext)
	return c, ok
}

// Authenticator validates bearer tokens and stamps the caller onto the
// request context.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an Authenticator from the shared HMAC secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Sign issues a token for the given caller. Used by tests and the token
// helper command.
func (a *Authenticator) Sign(uid, role string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"uid":  uid,
		"role": role,
		"exp":  time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) parse(r *http.Request) (CallerContext, error) {
	raw := r.Header.Get("Authorization")
	if raw == "" {
		// Browsers cannot set headers on websocket upgrades.
		raw = r.URL.Query().Get("token")
	}
	raw = strings.TrimPrefix(raw, "Bearer ")
	if raw == "" {
		return CallerContext{}, fmt.Errorf("missing bearer token")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return CallerContext{}, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return CallerContext{}, fmt.Errorf("invalid token")
	}
	uid, _ := claims["uid"].(string)
	role, _ := claims["role"].(string)
	if uid == "" || role == "" {
		return CallerContext{}, fmt.Errorf("token missing uid or role")
	}
	return CallerContext{UID: uid, Role: role}, nil
}

// Middleware rejects unauthenticated requests with 401 and injects the
// CallerContext for downstream handlers.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := a.parse(r)
		if err != nil {
			writeErrorStatus(w, http.StatusUnauthorized, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, caller)))
	})
}

// RequireAdmin rejects non-admin callers with 403. It must run inside
// Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFrom(r.Context())
		if !ok || !caller.IsAdmin() {
			writeErrorStatus(w, http.StatusForbidden, fmt.Errorf("admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
