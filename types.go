package session

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Store is durable key-value persistence for the current session. It holds
// exactly two logical entries: the serialized user record and the token
// string. Load reports "nothing found" for malformed data instead of
// erroring, and Clear is safe to call when nothing is stored.
type Store interface {
	Save(ctx context.Context, user *User, token string) error
	Load(ctx context.Context) (*User, string, error)
	Clear(ctx context.Context) error
}

// TokenCodec turns a minimal claim set into an opaque token string and back.
// Implementations are not required to provide integrity or confidentiality;
// see LegacyCodec for the baseline behavior and SignedCodec for the verified
// variant.
type TokenCodec interface {
	Encode(claims TokenClaims) (string, error)
	Decode(token string) (*TokenClaims, error)
}

// IdentityClient holds methods to talk to the remote identity service
type IdentityClient interface {
	Authenticate(ctx context.Context, creds Credentials) (*User, error)
	Register(ctx context.Context, reg Registration) (*User, error)
}

// SessionReader gives consumers point-in-time read access to the current
// session without handing out the writer. Manager is the only writer.
type SessionReader interface {
	Current() Session
}

// Config holds session lifecycle options
type Config interface {
	GetBaseURL() string
	GetTokenValidity() time.Duration
	GetStorageNamespace() string
	GetLoginRoute() string
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
