package authapi

import "context"

// Service is the narrow boundary to the remote identity backend. The state
// machine owns calling order and race handling; implementations own
// transport, token refresh and event emission.
//
// All methods must honor context cancellation/timeouts. Errors map onto the
// sentinels in internal/common where a category applies.
type Service interface {
	// GetSession returns the current session, restoring one from persisted
	// token material if possible, or (nil, nil) when signed out.
	GetSession(ctx context.Context) (*Session, error)
	// GetCurrentUser returns the signed-in user or (nil, nil).
	GetCurrentUser(ctx context.Context) (*User, error)

	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*SignUpResult, error)
	SignOut(ctx context.Context) error

	ResetPassword(ctx context.Context, email string) error
	VerifySignUpOTP(ctx context.Context, email, code string) (*Session, error)
	ResendSignUpConfirmation(ctx context.Context, email string) error
	VerifyPasswordResetOTP(ctx context.Context, email, code string) (*Session, error)
	UpdatePassword(ctx context.Context, newPassword string) error

	RecordConsent(ctx context.Context, rec ConsentRecord) error
	LatestConsent(ctx context.Context) (*ConsentRecord, error)
	SetMarketingConsent(ctx context.Context, optIn bool) error
	MarketingConsentStatus(ctx context.Context) (bool, error)

	// DeleteAccount removes the user's data and identity, in that order, on
	// the backend. Implementations must not clear local token material when
	// the call fails.
	DeleteAccount(ctx context.Context) error

	// OnAuthStateChange registers fn for session-change events. The returned
	// subscription must be unsubscribed on teardown.
	OnAuthStateChange(fn func(Event)) *Subscription

	// Ping checks backend reachability.
	Ping(ctx context.Context) error

	Close() error
}
