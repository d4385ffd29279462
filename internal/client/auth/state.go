package auth

import (
	"github.com/scorebookhq/scorebook/internal/client/authapi"
	"github.com/scorebookhq/scorebook/internal/client/backendmode"
)

// Phase is the machine's primary state. needsReConsent and resetFlowActive
// are orthogonal overlays carried next to it, not extra phases.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseInitializing
	PhaseAuthenticated
	PhaseUnauthenticated
	// PhaseGracePeriod is the degraded-but-functional authenticated state:
	// the backend is unreachable but a previously confirmed identity is
	// cached locally, so already-synced data stays usable.
	PhaseGracePeriod
	PhaseTimedOut
	PhaseSigningOut
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseInitializing:
		return "initializing"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseGracePeriod:
		return "grace-period"
	case PhaseTimedOut:
		return "timed-out"
	case PhaseSigningOut:
		return "signing-out"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent read of the machine for UI layers. All fields are
// copies; mutating them has no effect on the machine.
type Snapshot struct {
	Phase           Phase
	Mode            backendmode.Mode
	User            *authapi.User
	IsAuthenticated bool
	IsGracePeriod   bool
	NeedsReConsent  bool
	ResetFlowActive bool
}
