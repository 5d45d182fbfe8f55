package auth

import "crypto/subtle"

type Reason string

const (
	ReasonOK            Reason = "ok"
	ReasonNotConfigured Reason = "not_configured"
	ReasonMissing       Reason = "missing"
	ReasonMismatch      Reason = "mismatch"
)

// AuthorizationResult is the outcome of a shared-secret check. Reason is
// for logs only; callers respond identically to every denial.
type AuthorizationResult struct {
	Allowed bool
	Reason  Reason
}

// CheckSecret compares provided against the configured secret in constant
// time. An unset server secret denies every request.
func CheckSecret(provided, configured string) AuthorizationResult {
	switch {
	case configured == "":
		return AuthorizationResult{Reason: ReasonNotConfigured}
	case provided == "":
		return AuthorizationResult{Reason: ReasonMissing}
	case subtle.ConstantTimeCompare([]byte(provided), []byte(configured)) != 1:
		return AuthorizationResult{Reason: ReasonMismatch}
	}
	return AuthorizationResult{Allowed: true, Reason: ReasonOK}
}
