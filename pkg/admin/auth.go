package admin

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/valyala/fasthttp"
)

// AuthConfig turns on bearer token checks for state-changing routes
type AuthConfig struct {
	// Secret verifies HS256 tokens
	Secret string

	// Issuer requires a matching iss claim when set
	Issuer string

	// Leeway allows clock skew on exp and nbf
	Leeway time.Duration
}

// requireToken wraps next so that it only runs for a valid
// "Authorization: Bearer <token>" header
func requireToken(cfg AuthConfig, next fasthttp.RequestHandler) fasthttp.RequestHandler {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(cfg.Secret), nil
	}

	return func(ctx *fasthttp.RequestCtx) {
		scheme, raw, ok := strings.Cut(string(ctx.Request.Header.Peek("Authorization")), " ")
		if !ok || scheme != "Bearer" || raw == "" {
			unauthorized(ctx)
			return
		}
		token, err := jwt.Parse(raw, keyFunc, opts...)
		if err != nil || !token.Valid {
			unauthorized(ctx)
			return
		}
		next(ctx)
	}
}

func unauthorized(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("WWW-Authenticate", `Bearer realm="txworker-admin", error="invalid_token"`)
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusUnauthorized)
	ctx.SetBodyString(`{"error":"unauthorized","message":"invalid or missing token"}`)
}

// NewToken signs an HS256 token for subject that expires after ttl
func NewToken(cfg AuthConfig, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
