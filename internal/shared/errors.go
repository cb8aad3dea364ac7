package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrConfigExists       = fmt.Errorf("configuration file already exists")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrMissingToken  = fmt.Errorf("no access token configured")
	ErrAuthFailed    = fmt.Errorf("authentication failed")
	ErrStateMismatch = fmt.Errorf("oauth state mismatch")
	ErrTimeout       = fmt.Errorf("operation timed out")

	// Reconciliation errors
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrIdentityFetch      = fmt.Errorf("could not resolve user identity")
	ErrPlaylistResolve    = fmt.Errorf("could not resolve target playlist")
	ErrProfileNotFound    = fmt.Errorf("profile not enrolled")
	ErrNoProfiles         = fmt.Errorf("no profiles enrolled")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrCanceled        = fmt.Errorf("canceled")
)
