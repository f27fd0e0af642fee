package session

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// SignedCodec is the opt-in replacement for LegacyCodec: an HMAC-SHA256 JWT
// carrying the same claim set. Unlike the legacy layout, Decode verifies the
// signature and rejects expired tokens. Switching a Manager to this codec is
// a deliberate behavior change from the baseline client, which trusts any
// decodable token indefinitely.
type SignedCodec struct {
	signingKey []byte
	issuer     string
	logger     Logger
}

var _ TokenCodec = (*SignedCodec)(nil)

// NewSignedCodec creates a SignedCodec with the given signing key.
func NewSignedCodec(signingKey []byte, issuer string, logger Logger) *SignedCodec {
	if logger == nil {
		logger = defLogger{}
	}
	return &SignedCodec{
		signingKey: signingKey,
		issuer:     issuer,
		logger:     logger,
	}
}

type signedClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Encode signs the claims with HS256.
func (c *SignedCodec) Encode(claims TokenClaims) (string, error) {
	jc := &signedClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   strconv.FormatInt(claims.UserID, 10),
			ExpiresAt: jwt.NewNumericDate(time.UnixMilli(claims.ExpiresAt)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email: claims.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jc)

	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session token")
	}

	return signed, nil
}

// Decode parses and validates the token, including the expiry claim.
func (c *SignedCodec) Decode(raw string) (*TokenClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if c.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(c.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &signedClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			c.logger.Error("SignedCodec encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrUnableToDecodeToken
	}

	claims, ok := token.Claims.(*signedClaims)
	if !ok || !token.Valid {
		c.logger.Error("SignedCodec could not decode or validate claims")
		return nil, ErrUnableToDecodeToken
	}

	uid, err := strconv.ParseInt(claims.RegisteredClaims.Subject, 10, 64)
	if err != nil {
		return nil, ErrUnableToDecodeToken
	}

	out := &TokenClaims{
		UserID: uid,
		Email:  claims.Email,
	}
	if claims.RegisteredClaims.ExpiresAt != nil {
		out.ExpiresAt = claims.RegisteredClaims.ExpiresAt.Time.UnixMilli()
	}

	return out, nil
}
