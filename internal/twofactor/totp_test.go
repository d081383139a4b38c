package twofactor

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func TestEnrollmentVerifiesGeneratedCode(t *testing.T) {
	enrollment, err := NewEnrollment("TuitionCenter", "admin@center.test")
	if err != nil {
		t.Fatalf("enrollment error: %v", err)
	}
	if enrollment.Secret == "" {
		t.Fatalf("expected a secret")
	}
	if !strings.HasPrefix(enrollment.URL, "otpauth://totp/") {
		t.Fatalf("unexpected provisioning URL %q", enrollment.URL)
	}
	if !strings.HasPrefix(enrollment.QR, "data:image/png;base64,") {
		t.Fatalf("expected PNG data URL, got prefix %q", enrollment.QR[:30])
	}

	code, err := totp.GenerateCode(enrollment.Secret, time.Now().UTC())
	if err != nil {
		t.Fatalf("code error: %v", err)
	}
	if !Verify(enrollment.Secret, code) {
		t.Fatalf("expected current code to verify")
	}
}

func TestVerifyToleratesAdjacentStep(t *testing.T) {
	enrollment, err := NewEnrollment("TuitionCenter", "admin@center.test")
	if err != nil {
		t.Fatalf("enrollment error: %v", err)
	}

	previous, err := totp.GenerateCode(enrollment.Secret, time.Now().UTC().Add(-30*time.Second))
	if err != nil {
		t.Fatalf("code error: %v", err)
	}
	if !Verify(enrollment.Secret, previous) {
		t.Fatalf("expected previous-step code to verify")
	}
}

func TestVerifyRejectsWrongCode(t *testing.T) {
	enrollment, err := NewEnrollment("TuitionCenter", "admin@center.test")
	if err != nil {
		t.Fatalf("enrollment error: %v", err)
	}
	if Verify(enrollment.Secret, "000000") && Verify(enrollment.Secret, "123456") {
		t.Fatalf("expected at least one arbitrary code to be rejected")
	}
	if Verify(enrollment.Secret, "not-a-code") {
		t.Fatalf("expected malformed code to be rejected")
	}
}

func TestVerifyRejectsFarStep(t *testing.T) {
	enrollment, err := NewEnrollment("TuitionCenter", "admin@center.test")
	if err != nil {
		t.Fatalf("enrollment error: %v", err)
	}
	stale, err := totp.GenerateCode(enrollment.Secret, time.Now().UTC().Add(-5*time.Minute))
	if err != nil {
		t.Fatalf("code error: %v", err)
	}
	if Verify(enrollment.Secret, stale) {
		t.Fatalf("expected five-minute-old code to be rejected")
	}
}
