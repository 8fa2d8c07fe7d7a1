package gateway

import (
	"crypto/subtle"
	"os"
	"strings"

	"github.com/soyeahso/bakebot/internal/config"
)

// AuthResult is the outcome of an authentication attempt.
type AuthResult struct {
	OK     bool   `json:"ok"`
	Method string `json:"method,omitempty"` // "none" | "token" | "password"
	Reason string `json:"reason,omitempty"`
}

// ResolvedAuth holds the resolved auth configuration for the gateway.
type ResolvedAuth struct {
	Mode     string
	Token    string
	Password string
}

// ResolveAuth resolves authentication credentials from config and environment.
// Precedence: config value, then BAKEBOT_GATEWAY_TOKEN / BAKEBOT_GATEWAY_PASSWORD.
func ResolveAuth(cfg config.GatewayAuth) ResolvedAuth {
	auth := ResolvedAuth{Mode: cfg.Mode}

	auth.Token = cfg.Token
	if auth.Token == "" {
		auth.Token = os.Getenv("BAKEBOT_GATEWAY_TOKEN")
	}

	auth.Password = cfg.Password
	if auth.Password == "" {
		auth.Password = os.Getenv("BAKEBOT_GATEWAY_PASSWORD")
	}

	if auth.Mode == "" {
		if auth.Password != "" {
			auth.Mode = "password"
		} else {
			auth.Mode = "token"
		}
	}

	return auth
}

// Authorize checks the provided ConnectAuth against the resolved server auth.
// Mode "none" admits every page; it is meant for loopback development.
func Authorize(serverAuth ResolvedAuth, clientAuth *ConnectAuth) AuthResult {
	if serverAuth.Mode == "none" {
		return AuthResult{OK: true, Method: "none"}
	}
	if clientAuth == nil {
		return AuthResult{OK: false, Reason: "no credentials provided"}
	}

	switch serverAuth.Mode {
	case "token":
		if serverAuth.Token == "" {
			return AuthResult{OK: false, Reason: "server token not configured"}
		}
		if clientAuth.Token == "" {
			return AuthResult{OK: false, Reason: "token required"}
		}
		if !safeEqual(clientAuth.Token, serverAuth.Token) {
			return AuthResult{OK: false, Reason: "token_mismatch"}
		}
		return AuthResult{OK: true, Method: "token"}

	case "password":
		if serverAuth.Password == "" {
			return AuthResult{OK: false, Reason: "server password not configured"}
		}
		if clientAuth.Password == "" {
			return AuthResult{OK: false, Reason: "password required"}
		}
		if !safeEqual(clientAuth.Password, serverAuth.Password) {
			return AuthResult{OK: false, Reason: "password_mismatch"}
		}
		return AuthResult{OK: true, Method: "password"}

	default:
		return AuthResult{OK: false, Reason: "unknown auth mode: " + serverAuth.Mode}
	}
}

// bearerAuth reads credentials from an "Authorization: Bearer ..." header.
// The same secret is offered as token and password so either mode accepts it.
func bearerAuth(header string) *ConnectAuth {
	secret, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || secret == "" {
		return nil
	}
	return &ConnectAuth{Token: secret, Password: secret}
}

// safeEqual is a constant-time string comparison that does not return early
// on a length mismatch.
func safeEqual(a, b string) bool {
	lenMatch := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	cmp := subtle.ConstantTimeCompare([]byte(a), []byte(b))
	return subtle.ConstantTimeSelect(lenMatch, cmp, 0) == 1
}
