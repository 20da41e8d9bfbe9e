package payments

import "errors"

// Only these two error classes may surface as a non-200 response to the
// provider. Everything else is absorbed into the ledger row.
var (
	// ErrSecretNotConfigured means no webhook secret is provisioned for the
	// active mode. This is an operator problem, not a request problem.
	ErrSecretNotConfigured = errors.New("payments: webhook secret is not configured")

	// ErrMissingSignature means the provider signature header was absent.
	ErrMissingSignature = errors.New("payments: missing signature header")

	// ErrSignatureMismatch means the computed HMAC did not match any provided
	// signature. Redelivery will not fix a tampered payload.
	ErrSignatureMismatch = errors.New("payments: signature verification failed")
)
