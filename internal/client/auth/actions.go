package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/scorebookhq/scorebook/internal/client/authapi"
	"github.com/scorebookhq/scorebook/internal/common"
)

// applySession makes sess the current session. The consent gate runs first
// so no observable snapshot ever shows an authenticated user whose
// re-consent flag has not been computed.
func (m *Machine) applySession(ctx context.Context, sess *authapi.Session, justConfirmedSignUp bool) {
	needs := m.consentGate(ctx, justConfirmedSignUp)

	m.mu.Lock()
	m.session = sess
	m.user = sess.User
	m.phase = PhaseAuthenticated
	m.needsReConsent = needs
	m.signedInThisRun = true
	m.mu.Unlock()

	m.confirmIdentity(ctx, sess.User)
}

// SignIn authenticates with email and password. On success session, user and
// consent flag are set together; on failure no state changes.
func (m *Machine) SignIn(ctx context.Context, email, password string) error {
	sess, err := m.svc.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	// The service usually announces this session via signed_in before the
	// call returns; applying twice is wasted consent traffic.
	if !m.sameSession(sess) {
		m.applySession(ctx, sess, false)
	}
	return nil
}

// SignUp creates an account. When the backend requires email confirmation no
// session is established and confirmationRequired is true; otherwise this
// behaves like SignIn plus first-time consent recording.
func (m *Machine) SignUp(ctx context.Context, email, password string) (confirmationRequired bool, err error) {
	res, err := m.svc.SignUp(ctx, email, password)
	if err != nil {
		return false, err
	}
	if res.ConfirmationRequired {
		return true, nil
	}
	m.applySession(ctx, res.Session, true)
	return false, nil
}

// VerifyOTP completes sign-up email confirmation with a one-time code. The
// user consented on the sign-up form, so a missing consent record is written
// now.
func (m *Machine) VerifyOTP(ctx context.Context, email, code string) error {
	sess, err := m.svc.VerifySignUpOTP(ctx, email, code)
	if err != nil {
		return err
	}
	m.applySession(ctx, sess, true)
	return nil
}

// ResendConfirmation requests another sign-up confirmation email.
func (m *Machine) ResendConfirmation(ctx context.Context, email string) error {
	return m.svc.ResendSignUpConfirmation(ctx, email)
}

// SignOut clears local session state unconditionally; the remote revocation
// is best-effort. The signOutInitiated flag goes up first so the resulting
// signed_out event is recognized as ours and no grace-period rescue fires.
func (m *Machine) SignOut(ctx context.Context) error {
	m.mu.Lock()
	m.signOutInitiated = true
	m.phase = PhaseSigningOut
	m.mu.Unlock()

	if err := m.svc.SignOut(ctx); err != nil {
		m.log.Warn(ctx, "remote sign-out failed, clearing local state anyway", "err", err)
	}

	m.clearLocalState(ctx)
	return nil
}

// DeleteAccount removes the remote account and then clears local state
// exactly like SignOut. On failure local state is untouched: a half-deleted
// account is a genuine identity problem and must stay visible.
func (m *Machine) DeleteAccount(ctx context.Context) error {
	if !m.cfg.CloudConfigured() {
		return common.ErrCloudNotConfigured
	}

	m.mu.Lock()
	m.signOutInitiated = true
	m.mu.Unlock()

	if err := m.svc.DeleteAccount(ctx); err != nil {
		m.mu.Lock()
		m.signOutInitiated = false
		m.mu.Unlock()
		return fmt.Errorf("account deletion failed: %w", err)
	}

	m.clearLocalState(ctx)
	return nil
}

// clearLocalState is the shared sign-out/deletion cleanup: session, grace
// period, consent flag, cached identity, per-user UI flags and data caches.
func (m *Machine) clearLocalState(ctx context.Context) {
	m.mu.Lock()
	m.session = nil
	m.user = nil
	m.phase = PhaseUnauthenticated
	m.needsReConsent = false
	m.signedInThisRun = false
	m.signOutInitiated = false
	m.resetFlowActive = false
	if m.resetFlowTimer != nil {
		m.resetFlowTimer.Stop()
		m.resetFlowTimer = nil
	}
	m.mu.Unlock()

	m.ident.Clear(ctx)
	if err := m.kv.DeletePrefix(ctx, uiFlagPrefix); err != nil {
		m.log.Warn(ctx, "clearing per-user flags failed", "err", err)
	}
	m.caches.InvalidateAll(ctx)
}

// BeginPasswordReset sends the reset email/OTP.
func (m *Machine) BeginPasswordReset(ctx context.Context, email string) error {
	return m.svc.ResetPassword(ctx, email)
}

// VerifyPasswordResetOTP establishes the transient recovery session. The
// reset-flow flag goes up before the call that triggers session events, so
// nothing can redirect the UI away from the new-password step.
func (m *Machine) VerifyPasswordResetOTP(ctx context.Context, email, code string) error {
	m.startResetFlow()

	sess, err := m.svc.VerifyPasswordResetOTP(ctx, email, code)
	if err != nil {
		m.endResetFlow()
		return err
	}

	m.mu.Lock()
	m.session = sess
	m.user = sess.User
	m.phase = PhaseAuthenticated
	m.signedInThisRun = true
	m.mu.Unlock()

	m.confirmIdentity(ctx, sess.User)
	return nil
}

// UpdatePassword sets a new password and ends the reset flow.
func (m *Machine) UpdatePassword(ctx context.Context, newPassword string) error {
	if err := m.svc.UpdatePassword(ctx, newPassword); err != nil {
		return err
	}
	m.endResetFlow()
	return nil
}

func (m *Machine) startResetFlow() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetFlowActive = true
	if m.resetFlowTimer != nil {
		m.resetFlowTimer.Stop()
	}
	// Safety net: an abandoned reset must not silence session events
	// forever.
	timeout := m.cfg.ResetFlowTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	m.resetFlowTimer = time.AfterFunc(timeout, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.resetFlowActive {
			m.resetFlowActive = false
			m.log.Warn(context.Background(), "password reset abandoned, re-enabling session events")
		}
	})
}

func (m *Machine) endResetFlow() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetFlowActive = false
	if m.resetFlowTimer != nil {
		m.resetFlowTimer.Stop()
		m.resetFlowTimer = nil
	}
}

// DismissFlag marks a per-user UI element (banner, tip) as dismissed. Stored
// best-effort in local settings and wiped on sign-out.
func (m *Machine) DismissFlag(ctx context.Context, name string) {
	key, ok := m.flagKey(name)
	if !ok {
		return
	}
	if err := m.kv.Set(ctx, key, "1"); err != nil {
		m.log.Warn(ctx, "ui flag write failed", "flag", name, "err", err)
	}
}

// FlagDismissed reports whether the signed-in user dismissed the named UI
// element.
func (m *Machine) FlagDismissed(ctx context.Context, name string) bool {
	key, ok := m.flagKey(name)
	if !ok {
		return false
	}
	_, ok = m.kv.Get(ctx, key)
	return ok
}

func (m *Machine) flagKey(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil || m.user.ID == "" {
		return "", false
	}
	return uiFlagPrefix + m.user.ID + ":" + name, true
}
