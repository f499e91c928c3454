package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// staffTokens signs and verifies the HS256 access tokens handed to the POS.
// Only tokens for the configured staff account verify.
type staffTokens struct {
	secret   []byte
	issuer   string
	audience string
	staff    string
	ttl      time.Duration
	skew     time.Duration
}

func (t staffTokens) sign(now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(t.ttl)
	tok, err := jwt.NewBuilder().
		Subject(t.staff).
		Issuer(t.issuer).
		Audience([]string{t.audience}).
		IssuedAt(now).
		NotBefore(now.Add(-t.skew)).
		Expiration(expiresAt).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, t.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}

// verify returns the staff username carried by raw.
func (t staffTokens) verify(raw string, now time.Time) (string, error) {
	if err := checkHeader(raw); err != nil {
		return "", err
	}
	tok, err := jwt.ParseString(raw, jwt.WithKey(jwa.HS256, t.secret), jwt.WithValidate(false))
	if err != nil {
		return "", err
	}
	opts := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(t.audience),
		jwt.WithSubject(t.staff),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
	}
	if t.skew > 0 {
		opts = append(opts, jwt.WithAcceptableSkew(t.skew))
	}
	if err := jwt.Validate(tok, opts...); err != nil {
		return "", err
	}
	return tok.Subject(), nil
}

// checkHeader rejects anything but a single HS256 signature before the
// payload is looked at.
func checkHeader(raw string) error {
	msg, err := jws.ParseString(raw)
	if err != nil {
		return err
	}
	sigs := msg.Signatures()
	if len(sigs) != 1 {
		return errors.New("auth: token must carry exactly one signature")
	}
	headers := sigs[0].ProtectedHeaders()
	if headers == nil {
		return errors.New("auth: token missing protected headers")
	}
	if alg := headers.Algorithm(); alg != jwa.HS256 {
		return fmt.Errorf("auth: unexpected token algorithm %q", alg)
	}
	return nil
}
