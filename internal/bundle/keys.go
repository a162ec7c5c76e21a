package bundle

import (
	"crypto/md5"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// RotationWindow bounds how long a rotating-key bundle stays importable.
const RotationWindow = 30 * time.Minute

// StaticKey is the password of '0' bundles.
func StaticKey(secret string) string { return reverse(secret) }

// RotatingKey is the password of '1' bundles exported or imported at t:
// upper-case hex md5 of the window's one-time code followed by the
// reversed secret.
func RotatingKey(secret string, t time.Time) (string, error) {
	seed := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(secret))
	code, err := totp.GenerateCodeCustom(seed, t, totp.ValidateOpts{
		Period:    uint(RotationWindow / time.Second),
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("rotating key: %w", err)
	}
	sum := md5.Sum([]byte(code + reverse(secret)))
	return strings.ToUpper(hex.EncodeToString(sum[:])), nil
}

func (c *Codec) key(flag byte) (string, error) {
	switch flag {
	case FlagStatic:
		return StaticKey(c.secret), nil
	case FlagRotating:
		return RotatingKey(c.secret, c.now())
	default:
		return "", ErrInvalidPackage
	}
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
