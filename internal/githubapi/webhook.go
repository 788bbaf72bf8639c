package githubapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/chriscase/gitsvnsync/internal/coreerrors"
)

// tokenPattern matches GitHub's token-prefix families so error bodies
// and logs never echo a live credential.
var tokenPattern = regexp.MustCompile(`(ghp_|gho_|ghs_|ghu_|github_pat_)[A-Za-z0-9_]+`)

// bearerPattern matches an Authorization-style bearer token embedded
// in free text (e.g. an upstream error message that quoted the
// request it rejected).
var bearerPattern = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_.~+/=-]+`)

// redactSecrets strips recognizable GitHub tokens and bearer-token
// strings from text before it is logged or surfaced in an error.
func redactSecrets(s string) string {
	s = tokenPattern.ReplaceAllString(s, "[REDACTED_TOKEN]")
	s = bearerPattern.ReplaceAllString(s, "Bearer [REDACTED]")
	return s
}

// VerifyWebhookSignature checks a GitHub-style "sha256=<hex>"
// X-Hub-Signature-256 header against payload using secret, via a
// constant-time comparison so the check itself can't leak timing
// information about the expected signature.
func VerifyWebhookSignature(secret, signatureHeader string, payload []byte) error {
	const prefix = "sha256="
	hexSig, ok := strings.CutPrefix(signatureHeader, prefix)
	if !ok {
		return &coreerrors.WebhookSignatureInvalid{}
	}

	sig, err := hex.DecodeString(hexSig)
	if err != nil {
		return &coreerrors.WebhookSignatureInvalid{}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := mac.Sum(nil)

	if !hmac.Equal(sig, expected) {
		return &coreerrors.WebhookSignatureInvalid{}
	}
	return nil
}
