package internal

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
)

// NewID returns a compact base64url identifier built from n random bytes.
func NewID(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("invalid id size")
	}
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// NewToken returns a lowercase hex token built from n random bytes.
// The encoded string is 2n characters long.
func NewToken(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("invalid token size")
	}
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// NewOTP returns a numeric one-time code of the given length. Each
// digit is drawn independently from crypto/rand so leading zeros are
// as likely as any other digit.
func NewOTP(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}
