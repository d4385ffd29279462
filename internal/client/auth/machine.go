// Package auth implements the client-side authentication state machine: it
// owns session, user, consent and grace-period state, subscribes to
// session-change events from the identity backend, and exposes the action
// methods the UI calls. Storage mode and sign-in state are orthogonal: in a
// build with no cloud backend configured the user always counts as
// authenticated.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/scorebookhq/scorebook/internal/client/authapi"
	"github.com/scorebookhq/scorebook/internal/client/backendmode"
	"github.com/scorebookhq/scorebook/internal/client/config"
	"github.com/scorebookhq/scorebook/internal/client/datacache"
	"github.com/scorebookhq/scorebook/internal/client/identity"
	"github.com/scorebookhq/scorebook/internal/client/kvstore"
	"github.com/scorebookhq/scorebook/internal/common"
	"github.com/scorebookhq/scorebook/internal/logging"
)

// uiFlagPrefix scopes per-user UI-dismissal flags in the key-value store so
// sign-out can clear them in one sweep.
const uiFlagPrefix = "uiflag:"

// Machine is the authentication state machine. All fields behind mu are
// mutated only by action methods and the event callback; calls to the
// Service boundary happen outside the lock so a synchronously delivered
// event can never deadlock against an in-flight action.
type Machine struct {
	cfg    *config.Config
	svc    authapi.Service
	modes  *backendmode.Resolver
	ident  *identity.Store
	kv     *kvstore.Store
	caches *datacache.Registry
	log    logging.Logger

	mu      sync.Mutex
	phase   Phase
	mode    backendmode.Mode
	user    *authapi.User
	session *authapi.Session

	needsReConsent bool

	// signedInThisRun and signOutInitiated are real machine state, not
	// incidental flags: they are what lets the event callback tell an
	// explicit local sign-out apart from a spurious upstream signed_out and
	// so prevent login loops.
	signedInThisRun  bool
	signOutInitiated bool

	resetFlowActive bool
	resetFlowTimer  *time.Timer

	// online is the last connectivity probe result. It reflects link-layer
	// reachability, not a guarantee the backend answers; the init-timeout
	// path intentionally does not consult it while the mid-session
	// signed_out path does.
	online bool

	// initGen invalidates the effects of a superseded initialization:
	// whichever of the init result and the safety timeout loses the race
	// must be a no-op.
	initGen int

	sub *authapi.Subscription
	now func() time.Time

	// reinitBackoff paces reconnection attempts out of the grace period.
	reinitBackoff func() retry.Backoff
}

// Deps bundles the machine's collaborators. No process-wide singletons: the
// caller constructs everything and passes it in.
type Deps struct {
	Config   *config.Config
	Service  authapi.Service
	Modes    *backendmode.Resolver
	Identity *identity.Store
	KV       *kvstore.Store
	Caches   *datacache.Registry
	Log      logging.Logger
}

func NewMachine(d Deps) *Machine {
	log := d.Log
	if log == nil {
		log = logging.Nop{}
	}
	return &Machine{
		cfg:    d.Config,
		svc:    d.Service,
		modes:  d.Modes,
		ident:  d.Identity,
		kv:     d.KV,
		caches: d.Caches,
		log:    log,
		phase:  PhaseUninitialized,
		mode:   backendmode.ModeLocal,
		online: true,
		now:    time.Now,
		reinitBackoff: func() retry.Backoff {
			return retry.WithMaxRetries(2, retry.NewConstant(2*time.Second))
		},
	}
}

// Initialize brings the machine from Uninitialized (or TimedOut, or
// GracePeriod on a retry) to a settled phase. The mode is resolved before
// any call that can fail so a later failure still leaves it correct.
func (m *Machine) Initialize(ctx context.Context) error {
	m.mu.Lock()
	m.initGen++
	gen := m.initGen
	m.phase = PhaseInitializing
	m.mode = m.modes.Resolve(ctx)
	mode := m.mode
	m.mu.Unlock()

	// Sign-in state is orthogonal to storage mode: a configured backend is
	// consulted even when data stays local. Only a missing backend skips the
	// fetch entirely.
	if !m.cfg.CloudConfigured() {
		m.settle(ctx, gen, PhaseUnauthenticated, nil, nil, false)
		return nil
	}

	type result struct {
		sess *authapi.Session
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		sess, err := m.svc.GetSession(ctx)
		ch <- result{sess, err}
	}()

	timer := time.NewTimer(m.cfg.InitTimeout)
	defer timer.Stop()

	var (
		sess     *authapi.Session
		fetchErr error
		timedOut bool
	)
	select {
	case r := <-ch:
		sess, fetchErr = r.sess, r.err
	case <-timer.C:
		timedOut = true
	case <-ctx.Done():
		fetchErr = ctx.Err()
	}

	switch {
	case sess != nil:
		// Consent is computed before the session becomes observable.
		needs := m.consentGate(ctx, false)
		m.settle(ctx, gen, PhaseAuthenticated, sess, sess.User, needs)
		m.confirmIdentity(ctx, sess.User)
	case timedOut || m.transient(fetchErr):
		// Deliberately no connectivity check here: a hung or failed fetch is
		// evidence enough, and the probe only reflects link state anyway.
		if cached := m.graceCandidate(ctx, mode); cached != nil {
			m.log.Info(ctx, "backend unreachable, entering grace period", "user_id", cached.UserID)
			m.settle(ctx, gen, PhaseGracePeriod, nil, graceUser(cached), false)
		} else if timedOut {
			m.settle(ctx, gen, PhaseTimedOut, nil, nil, false)
		} else {
			m.settle(ctx, gen, PhaseUnauthenticated, nil, nil, false)
		}
	case fetchErr != nil:
		m.log.Error(ctx, "session fetch failed", "err", fetchErr)
		m.settle(ctx, gen, PhaseUnauthenticated, nil, nil, false)
	default:
		// No session: only a cached identity with cloud mode active earns
		// the grace period, and it is not reported as a timeout.
		if cached := m.graceCandidate(ctx, mode); cached != nil {
			m.settle(ctx, gen, PhaseGracePeriod, nil, graceUser(cached), false)
		} else {
			m.settle(ctx, gen, PhaseUnauthenticated, nil, nil, false)
		}
	}

	m.subscribeOnce()

	if timedOut {
		m.mu.Lock()
		phase := m.phase
		m.mu.Unlock()
		if phase == PhaseTimedOut {
			return common.ErrTimeout
		}
	}
	return nil
}

// settle applies an initialization outcome unless a newer initialization has
// started since gen was taken.
func (m *Machine) settle(ctx context.Context, gen int, phase Phase, sess *authapi.Session, user *authapi.User, needsReConsent bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.initGen {
		m.log.Debug(ctx, "discarding stale init result", "phase", phase.String())
		return
	}
	m.phase = phase
	m.session = sess
	m.user = user
	m.needsReConsent = needsReConsent
	if phase == PhaseAuthenticated {
		m.signedInThisRun = true
	}
}

func (m *Machine) transient(err error) bool {
	return errors.Is(err, common.ErrUnavailable) ||
		errors.Is(err, common.ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}

func graceUser(cached *identity.CachedIdentity) *authapi.User {
	return &authapi.User{ID: cached.UserID, Email: cached.Email}
}

// graceCandidate returns the cached identity when the grace-period
// preconditions hold: cloud mode active, backend configured, identity cached.
func (m *Machine) graceCandidate(ctx context.Context, mode backendmode.Mode) *identity.CachedIdentity {
	if mode != backendmode.ModeCloud || !m.cfg.CloudConfigured() {
		return nil
	}
	return m.ident.Get(ctx)
}

// subscribeOnce registers the event callback for the process lifetime.
// Repeated initializations must not stack subscriptions.
func (m *Machine) subscribeOnce() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sub != nil {
		return
	}
	m.sub = m.svc.OnAuthStateChange(m.handleEvent)
}

// confirmIdentity opportunistically updates the cached identity and, when
// the confirmed user differs from the previous one, tells data caches to
// drop everything.
func (m *Machine) confirmIdentity(ctx context.Context, user *authapi.User) {
	if user == nil || user.ID == "" {
		return
	}

	prev := m.ident.Get(ctx)
	m.ident.Set(ctx, identity.CachedIdentity{UserID: user.ID, Email: user.Email})

	if prev != nil && prev.UserID != user.ID {
		m.log.Info(ctx, "confirmed user changed, invalidating data caches",
			"previous", prev.UserID, "current", user.ID)
		m.caches.InvalidateAll(ctx)
	}
}

// HandleConnectivityChange feeds the latest reachability probe result into
// the machine. Coming back online while in the grace period triggers a fresh
// initialization attempt with bounded backoff; continued failure simply
// re-enters the grace period.
func (m *Machine) HandleConnectivityChange(ctx context.Context, online bool) {
	m.mu.Lock()
	m.online = online
	phase := m.phase
	m.mu.Unlock()

	if !online || phase != PhaseGracePeriod {
		return
	}

	err := retry.Do(ctx, m.reinitBackoff(), func(ctx context.Context) error {
		if err := m.Initialize(ctx); err != nil {
			return retry.RetryableError(err)
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.phase == PhaseGracePeriod {
			return retry.RetryableError(common.ErrUnavailable)
		}
		return nil
	})
	if err != nil {
		m.log.Warn(ctx, "reconnect attempt failed, staying in grace period", "err", err)
	}
}

// Ping probes backend reachability through the service. The caller feeds the
// result back via HandleConnectivityChange.
func (m *Machine) Ping(ctx context.Context) error {
	return m.svc.Ping(ctx)
}

// Retry re-runs initialization after a TimedOut outcome. It is the UI's
// manual retry hook and is harmless in any other phase.
func (m *Machine) Retry(ctx context.Context) error {
	return m.Initialize(ctx)
}

// Close tears the machine down: the event subscription is disposed exactly
// once and the reset-flow timer stopped.
func (m *Machine) Close() error {
	m.mu.Lock()
	sub := m.sub
	m.sub = nil
	if m.resetFlowTimer != nil {
		m.resetFlowTimer.Stop()
		m.resetFlowTimer = nil
	}
	m.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	return m.svc.Close()
}

// Snapshot returns a consistent copy of the derived state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	var user *authapi.User
	if m.user != nil {
		u := *m.user
		user = &u
	}

	return Snapshot{
		Phase:           m.phase,
		Mode:            m.mode,
		User:            user,
		IsAuthenticated: m.isAuthenticatedLocked(),
		IsGracePeriod:   m.phase == PhaseGracePeriod,
		NeedsReConsent:  m.needsReConsent,
		ResetFlowActive: m.resetFlowActive,
	}
}

// isAuthenticatedLocked is the single-line crux of "auth is independent of
// storage mode": pure local builds have no concept of sign-in, everything
// else needs a real session or an active grace period.
func (m *Machine) isAuthenticatedLocked() bool {
	if !m.cfg.CloudConfigured() {
		return true
	}
	return m.session != nil || m.phase == PhaseGracePeriod
}

// IsAuthenticated is a convenience over Snapshot.
func (m *Machine) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isAuthenticatedLocked()
}
