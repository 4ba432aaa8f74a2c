package apikey

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"

	"libkiosk/internal/config"
)

const Header = "X-API-Key"

// Auth guards the inbound webhook. A bcrypt hash wins over a plaintext key.
type Auth struct {
	key      string
	hash     []byte
	required bool
	log      *slog.Logger
	warnOnce sync.Once
}

// New builds the webhook guard. Without a configured key, requests are refused when
// required is set and let through with a warning otherwise.
func New(cfg config.Webhook, required bool, log *slog.Logger) *Auth {
	a := &Auth{
		key:      cfg.APIKey,
		required: required,
		log:      log.With("component", "apikey_middleware"),
	}
	if cfg.APIKeyHash != "" {
		a.hash = []byte(cfg.APIKeyHash)
	}
	return a
}

// Hash returns the bcrypt hash to store in WEBHOOK_API_KEY_HASH.
func Hash(key string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (a *Auth) configured() bool {
	return a.key != "" || len(a.hash) > 0
}

func (a *Auth) valid(key string) bool {
	if key == "" {
		return false
	}
	if len(a.hash) > 0 {
		return bcrypt.CompareHashAndPassword(a.hash, []byte(key)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(a.key)) == 1
}

func (a *Auth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if !a.configured() {
			if a.required {
				a.log.Error("webhook api key is not configured, refusing request")
				reject(ctx, http.StatusServiceUnavailable, "WEBHOOK_DISABLED", "webhook api key is not configured")
				return
			}
			a.warnOnce.Do(func() {
				a.log.Warn("webhook api key is not configured, accepting unauthenticated requests")
			})
			next(ctx)
			return
		}

		if !a.valid(ctx.Header(Header)) {
			a.log.Warn("invalid webhook api key", "remote_addr", ctx.RemoteAddr())
			reject(ctx, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
			return
		}

		next(ctx)
	}
}

func reject(ctx huma.Context, status int, code, msg string) {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.SetStatus(status)

	_ = json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{
		"status": "Error",
		"error":  msg,
		"code":   code,
	})
}
