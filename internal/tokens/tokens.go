package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of an issued bearer credential.
const DefaultTTL = time.Hour

// Issuer signs and verifies compact bearer credentials (HS256 JWTs).
// Verification failure is a normal outcome, not an error: Verify returns
// (nil, false) for anything malformed, tampered or expired.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer for the given symmetric secret.
// ttl <= 0 falls back to DefaultTTL.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs the given claim map plus iat/exp metadata.
func (i *Issuer) Issue(claims map[string]interface{}) (string, error) {
	now := i.now()
	mc := jwt.MapClaims{}
	for k, v := range claims {
		mc[k] = v
	}
	mc["iat"] = now.Unix()
	mc["exp"] = now.Add(i.ttl).Unix()
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, mc)
	return jt.SignedString(i.secret)
}

// Verify parses and verifies signature and expiry. The claim map is
// returned only when the token is fully valid.
func (i *Issuer) Verify(token string) (map[string]interface{}, bool) {
	parsed, err := jwt.Parse(token,
		func(t *jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid {
		return nil, false
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, false
	}
	out := make(map[string]interface{}, len(mc))
	for k, v := range mc {
		out[k] = v
	}
	return out, true
}
