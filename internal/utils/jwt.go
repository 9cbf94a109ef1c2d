package utils // package utils provides helper functions for token creation and verification

import (
    "crypto/rand"  // secure random number generation for reset tokens
    "encoding/hex" // hex encoding of random token bytes
    "errors"       // sentinel errors for token verification outcomes
    "time"         // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// ErrTokenExpired is returned by VerifyAccessToken when the token was well
// formed and correctly signed but its exp claim has passed.  Callers map it
// to the same 401 as ErrTokenMalformed; the distinction only feeds logs.
var ErrTokenExpired = errors.New("access token expired")

// ErrTokenMalformed is returned by VerifyAccessToken for every other
// failure: bad signature, wrong algorithm, missing or mistyped claims.
var ErrTokenMalformed = errors.New("access token malformed")

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp as a time.Time.  Access tokens are short‑lived and encoded
// in the Authorization header when calling protected endpoints.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// TokenClaims is the identity a verified access token proves: the account
// id and its role.  No other claim is trusted by the application.
type TokenClaims struct {
    UserID uint64 // subject (sub) claim
    Role   string // role claim
}

// ResetToken is an opaque single-use secret mailed to an account owner to
// prove control of the email address.  Unlike access tokens it carries no
// claims; the store ties it to an account and to its expiry.
type ResetToken struct {
    Raw string    // hex-encoded random token handed to the user
    Exp time.Time // UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user.  It takes the
// signing secret, the user ID, the user's role, and a TTL in minutes.  It
// returns an AccessToken structure containing the signed token and its
// expiration time.  The JWT includes standard claims: subject (sub), role,
// expiration (exp) and issued at (iat).
func NewAccessToken(secret string, userID uint64, role string, ttlMin int) (AccessToken, error) {
    exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":  userID,
        "role": role,
        "exp":  exp.Unix(),
        "iat":  time.Now().UTC().Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// VerifyAccessToken parses and validates a bearer token and returns the
// identity it carries.  Expired tokens yield ErrTokenExpired; everything
// else that fails yields ErrTokenMalformed.  The signing method is pinned
// to HMAC so a token signed with another algorithm is rejected.
func VerifyAccessToken(secret, raw string) (TokenClaims, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrTokenMalformed
        }
        return []byte(secret), nil
    })
    if err != nil {
        if errors.Is(err, jwt.ErrTokenExpired) {
            return TokenClaims{}, ErrTokenExpired
        }
        return TokenClaims{}, ErrTokenMalformed
    }
    if !tok.Valid {
        return TokenClaims{}, ErrTokenMalformed
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return TokenClaims{}, ErrTokenMalformed
    }
    // JWT numbers decode as float64; sub must be a positive account id.
    sub, ok := claims["sub"].(float64)
    if !ok || sub <= 0 {
        return TokenClaims{}, ErrTokenMalformed
    }
    role, ok := claims["role"].(string)
    if !ok || role == "" {
        return TokenClaims{}, ErrTokenMalformed
    }
    return TokenClaims{UserID: uint64(sub), Role: role}, nil
}

// NewResetToken returns a fresh password reset token and its expiration.
// The token is 32 bytes of cryptographically secure randomness, hex encoded
// (64 characters).  Collisions against the store's unique index are not
// checked here; at this entropy the caller's single retry is already
// overkill.
func NewResetToken(ttlMin int) (ResetToken, error) {
    raw, err := randomHex(32) // 32 bytes -> 64 hex chars
    if err != nil {
        return ResetToken{}, err
    }
    return ResetToken{
        Raw: raw,
        Exp: time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute),
    }, nil
}

// randomHex returns a hex‑encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
