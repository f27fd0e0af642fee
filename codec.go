package session

import (
	"encoding/base64"
	"encoding/json"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultTokenValidity is the validity window stamped into claims at
// issuance. Note that LegacyCodec never checks it on decode; only
// SignedCodec enforces expiry.
const DefaultTokenValidity = 24 * time.Hour

// TokenClaims is the minimal claim set carried by a session token. Expiry
// is epoch milliseconds, matching the service's legacy token layout.
type TokenClaims struct {
	UserID    int64  `json:"id"`
	Email     string `json:"email"`
	ExpiresAt int64  `json:"exp"`
}

// NewTokenClaims stamps claims for user with an expiry of now+validity.
func NewTokenClaims(user *User, now time.Time, validity time.Duration) TokenClaims {
	if validity <= 0 {
		validity = DefaultTokenValidity
	}
	return TokenClaims{
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: now.Add(validity).UnixMilli(),
	}
}

// LegacyCodec encodes claims as base64 over plain JSON, the token layout the
// dashboard client has always used. It provides no integrity or
// confidentiality guarantee: anyone can decode or forge these tokens, and
// Decode deliberately does not check the expiry claim. It exists to give
// callers something token-shaped to carry and must not be mistaken for a
// security boundary; use SignedCodec where verification matters.
type LegacyCodec struct{}

var _ TokenCodec = LegacyCodec{}

// Encode serializes claims to base64(JSON).
func (LegacyCodec) Encode(claims TokenClaims) (string, error) {
	raw, err := json.Marshal(claims)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode session token")
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode parses a base64(JSON) token. Expired tokens decode successfully;
// a token is rejected only when it is not decodable at all.
func (LegacyCodec) Decode(token string) (*TokenClaims, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		// tokens minted by older clients may omit padding
		raw, err = base64.RawStdEncoding.DecodeString(token)
	}
	if err != nil {
		return nil, ErrUnableToDecodeToken
	}

	claims := &TokenClaims{}
	if err := json.Unmarshal(raw, claims); err != nil {
		return nil, ErrUnableToDecodeToken
	}

	if claims.UserID == 0 && claims.Email == "" {
		return nil, ErrUnableToDecodeToken
	}

	return claims, nil
}
