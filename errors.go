package authgate

import "errors"

var (
	// ErrValidation is an input error: malformed or missing fields.
	ErrValidation = errors.New("invalid request")
	// ErrUnauthorized means no valid session was presented.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the session is valid but lacks the required
	// permission key.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a unique key (email, username, phone, role name,
	// assignment pair) is already taken.
	ErrConflict = errors.New("conflict")
	// ErrRateLimited means the caller exceeded a fixed-window budget.
	ErrRateLimited = errors.New("too many requests")
	// ErrInvalidCredentials covers unknown identifier and wrong password
	// without distinguishing the two.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidOTP covers missing, expired, locked, and mismatched codes
	// without distinguishing the causes.
	ErrInvalidOTP = errors.New("invalid or expired OTP")
	// ErrTokenInvalid is the uniform failure for reset/verification token
	// checks; it never reveals which of exists/expired/used failed.
	ErrTokenInvalid = errors.New("invalid or expired token")
	// ErrConfirmationRequired is returned by global session revocation
	// when the explicit confirmation flag is absent.
	ErrConfirmationRequired = errors.New("confirmation required")
	// ErrDeliveryFailed means every configured delivery channel failed.
	ErrDeliveryFailed = errors.New("delivery failed")
	// ErrEngineNotReady means the engine is missing a required capability.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Code maps an engine error to its HTTP-class status. Unknown errors,
// including store failures, map to 500; the outer boundary should treat
// those as system errors and avoid leaking detail to the caller.
func Code(err error) int {
	switch {
	case err == nil:
		return 200
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidOTP),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrConfirmationRequired):
		return 400
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		return 401
	case errors.Is(err, ErrForbidden):
		return 403
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrConflict):
		return 409
	case errors.Is(err, ErrRateLimited):
		return 429
	default:
		return 500
	}
}
