package auth

import (
	"context"

	"github.com/scorebookhq/scorebook/internal/client/authapi"
)

// handleEvent is the session-change callback. Delivery may be duplicated or
// out of order; every branch is written to be safe to replay. The service is
// never called while the machine lock is held.
func (m *Machine) handleEvent(ev authapi.Event) {
	ctx := context.Background()

	m.mu.Lock()
	if m.resetFlowActive {
		// A password reset is mid-flight: every session event is silenced so
		// the UI is not redirected away from the new-password step.
		m.log.Debug(ctx, "ignoring session event during password reset", "type", string(ev.Type))
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	switch ev.Type {
	case authapi.EventSignedIn, authapi.EventInitialSession:
		if ev.Session == nil {
			m.log.Warn(ctx, "session event without session, ignoring", "type", string(ev.Type))
			return
		}
		if m.sameSession(ev.Session) {
			return
		}
		m.applySession(ctx, ev.Session, false)

	case authapi.EventTokenRefreshed:
		if ev.Session == nil {
			return
		}
		m.mu.Lock()
		m.session = ev.Session
		if ev.Session.User != nil {
			m.user = ev.Session.User
		}
		m.mu.Unlock()

		// The policy can change mid-session; re-run the gate on every
		// refresh. The flag is only ever raised here, clearing it is
		// AcceptPolicy's job.
		if m.consentGate(ctx, false) {
			m.mu.Lock()
			m.needsReConsent = true
			m.mu.Unlock()
		}

	case authapi.EventSignedOut:
		m.handleSignedOut(ctx)
	}
}

// sameSession reports whether the machine already holds this exact session.
func (m *Machine) sameSession(sess *authapi.Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase == PhaseAuthenticated &&
		m.session != nil &&
		m.session.AccessToken == sess.AccessToken
}

// handleSignedOut resolves the races around an incoming signed_out event.
// An explicit local sign-out action is the only trusted source of truth for
// clearing session state; everything else is treated with suspicion.
func (m *Machine) handleSignedOut(ctx context.Context) {
	m.mu.Lock()
	if m.signOutInitiated {
		// Our own sign-out in flight; the action owns the full cleanup.
		m.session = nil
		m.mu.Unlock()
		return
	}
	online := m.online
	mode := m.mode
	signedInThisRun := m.signedInThisRun
	m.mu.Unlock()

	if !online {
		// Demonstrably offline and not user-initiated: data already cached
		// locally stays usable, so rescue into the grace period.
		if cached := m.graceCandidate(ctx, mode); cached != nil {
			m.mu.Lock()
			m.session = nil
			m.user = graceUser(cached)
			m.phase = PhaseGracePeriod
			m.mu.Unlock()
			m.log.Warn(ctx, "offline sign-out event, entering grace period", "user_id", cached.UserID)
			return
		}
	}

	if signedInThisRun {
		// Spurious upstream sign-out after a successful sign-in in this
		// process: honoring it is how login loops start.
		m.log.Warn(ctx, "ignoring unexplained signed_out event after sign-in this run")
		return
	}

	m.mu.Lock()
	m.session = nil
	m.user = nil
	m.phase = PhaseUnauthenticated
	m.needsReConsent = false
	m.mu.Unlock()
}
