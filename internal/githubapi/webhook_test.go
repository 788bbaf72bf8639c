package githubapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/chriscase/gitsvnsync/internal/coreerrors"
)

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignatureValid(t *testing.T) {
	payload := []byte(`{"ref":"refs/heads/main"}`)
	secret := "shhh"
	if err := VerifyWebhookSignature(secret, sign(secret, payload), payload); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerifyWebhookSignatureInvalid(t *testing.T) {
	payload := []byte(`{"ref":"refs/heads/main"}`)
	err := VerifyWebhookSignature("shhh", sign("wrong-secret", payload), payload)
	var sigErr *coreerrors.WebhookSignatureInvalid
	if !errors.As(err, &sigErr) {
		t.Fatalf("expected WebhookSignatureInvalid, got %v", err)
	}
}

func TestVerifyWebhookSignatureMissingPrefix(t *testing.T) {
	payload := []byte(`{}`)
	err := VerifyWebhookSignature("shhh", "deadbeef", payload)
	var sigErr *coreerrors.WebhookSignatureInvalid
	if !errors.As(err, &sigErr) {
		t.Fatalf("expected WebhookSignatureInvalid for missing prefix, got %v", err)
	}
}

func TestVerifyWebhookSignatureTamperedPayload(t *testing.T) {
	secret := "shhh"
	original := []byte(`{"ref":"refs/heads/main"}`)
	sig := sign(secret, original)
	tampered := []byte(`{"ref":"refs/heads/evil"}`)
	var sigErr *coreerrors.WebhookSignatureInvalid
	if err := VerifyWebhookSignature(secret, sig, tampered); !errors.As(err, &sigErr) {
		t.Fatalf("expected WebhookSignatureInvalid for tampered payload, got %v", err)
	}
}

func TestRedactSecretsGithubPatVariants(t *testing.T) {
	prefixes := []string{"ghp_", "gho_", "ghs_", "ghu_", "github_pat_"}
	for _, prefix := range prefixes {
		token := prefix + "abcDEF1234567890"
		in := "request failed with token " + token + " attached"
		got := redactSecrets(in)
		if got == in {
			t.Errorf("redactSecrets did not redact token with prefix %q: %q", prefix, got)
		}
		if strings.Contains(got, token) {
			t.Errorf("redactSecrets left raw token in output: %q", got)
		}
	}
}

func TestRedactSecretsBearerToken(t *testing.T) {
	in := "rejected request with header Authorization: Bearer abc123.def456-ghi"
	got := redactSecrets(in)
	if strings.Contains(got, "abc123.def456-ghi") {
		t.Errorf("redactSecrets left bearer token in output: %q", got)
	}
}

func TestRedactSecretsPreservesSafeText(t *testing.T) {
	in := "validation failed: field 'title' is required"
	if got := redactSecrets(in); got != in {
		t.Errorf("redactSecrets altered safe text: got %q, want %q", got, in)
	}
}

func TestRedactSecretsMultipleTokens(t *testing.T) {
	in := "ghp_firsttoken123 and ghp_secondtoken456 both leaked"
	got := redactSecrets(in)
	if strings.Contains(got, "firsttoken123") || strings.Contains(got, "secondtoken456") {
		t.Errorf("redactSecrets left a token in output: %q", got)
	}
}

func containsSubstr(s, sub string) bool {
	return len(s) >= len(sub) && (func() bool {
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				return true
			}
		}
		return false
	})()
}
