package payments

import (
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/hauswerk/hauswerk/internal/pkg/env"
)

// SignatureHeader is the provider-defined signature header name.
const SignatureHeader = "Stripe-Signature"

// Verifier authenticates raw webhook bodies against the shared endpoint
// secret. It is a pure function of (body, header, secret): the body must be
// the exact bytes received, any re-encoding invalidates the signature, and
// nothing is parsed before verification succeeds.
type Verifier struct {
	secret string
}

// NewVerifier creates a verifier for a fixed secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: strings.TrimSpace(secret)}
}

// NewVerifierFromEnv resolves the secret for the active mode (test/live),
// falling back to the mode-independent key.
func NewVerifierFromEnv() *Verifier {
	mode := strings.ToLower(strings.TrimSpace(env.GetEnv("PAYMENT_MODE", "live")))
	secret := ""
	switch mode {
	case "test":
		secret = env.GetEnv("STRIPE_WEBHOOK_SECRET_TEST", "")
	default:
		secret = env.GetEnv("STRIPE_WEBHOOK_SECRET_LIVE", "")
	}
	if strings.TrimSpace(secret) == "" {
		secret = env.GetEnv("STRIPE_WEBHOOK_SECRET", "")
	}
	return NewVerifier(secret)
}

// Verify checks the signature over the raw payload and returns the decoded
// event envelope. The SDK enforces the timestamped-HMAC construction with its
// default clock-skew tolerance.
func (v *Verifier) Verify(payload []byte, signatureHeader string) (*stripe.Event, error) {
	if v.secret == "" {
		return nil, ErrSecretNotConfigured
	}
	if strings.TrimSpace(signatureHeader) == "" {
		return nil, ErrMissingSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}
	return &event, nil
}
