// Package twofactor wraps TOTP secret generation and verification for
// authenticator-app enrollment.
package twofactor

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Enrollment carries everything a client needs to finish authenticator
// setup: the base32 secret for manual entry, the otpauth provisioning URL
// and a scannable QR image as a PNG data URL.
type Enrollment struct {
	Secret string
	URL    string
	QR     string
}

func NewEnrollment(issuer, email string) (Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: email,
		SecretSize:  20,
	})
	if err != nil {
		return Enrollment{}, err
	}
	qr, err := qrDataURL(key)
	if err != nil {
		return Enrollment{}, err
	}
	return Enrollment{
		Secret: key.Secret(),
		URL:    key.URL(),
		QR:     qr,
	}, nil
}

// Verify accepts a code matching the current 30-second step or one adjacent
// step on either side, tolerating client clock drift.
func Verify(secret, code string) bool {
	valid, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return valid
}

func qrDataURL(key *otp.Key) (string, error) {
	img, err := key.Image(200, 200)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
