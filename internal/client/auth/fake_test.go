package auth

import (
	"context"
	"sync"
	"time"

	"github.com/scorebookhq/scorebook/internal/client/authapi"
)

// fakeService implements authapi.Service for machine tests. Every behavior
// is a settable field; events are emitted through the embedded Broadcaster
// exactly as the HTTP implementation does.
type fakeService struct {
	authapi.Broadcaster

	mu sync.Mutex

	session         *authapi.Session
	sessionErr      error
	getSessionDelay time.Duration

	signInSession *authapi.Session
	signInErr     error

	signUpResult *authapi.SignUpResult
	signUpErr    error

	signOutErr error

	verifySession *authapi.Session
	verifyErr     error

	resetErr          error
	updatePasswordErr error

	consent    *authapi.ConsentRecord
	consentErr error
	recorded   []authapi.ConsentRecord

	deleteErr   error
	deleteCalls int

	marketingOptIn bool

	pingErr error
	closed  bool

	// onLatestConsent runs at the start of LatestConsent; tests use it to
	// observe machine state at consent-gate time.
	onLatestConsent func()
}

var _ authapi.Service = (*fakeService)(nil)

func (f *fakeService) GetSession(ctx context.Context) (*authapi.Session, error) {
	f.mu.Lock()
	delay := f.getSessionDelay
	sess, err := f.session, f.sessionErr
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return sess, err
}

func (f *fakeService) GetCurrentUser(ctx context.Context) (*authapi.User, error) {
	sess, err := f.GetSession(ctx)
	if err != nil || sess == nil {
		return nil, err
	}
	return sess.User, nil
}

func (f *fakeService) SignIn(ctx context.Context, email, password string) (*authapi.Session, error) {
	f.mu.Lock()
	sess, err := f.signInSession, f.signInErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	f.setSession(sess)
	f.Emit(authapi.Event{Type: authapi.EventSignedIn, Session: sess})
	return sess, nil
}

func (f *fakeService) SignUp(ctx context.Context, email, password string) (*authapi.SignUpResult, error) {
	f.mu.Lock()
	res, err := f.signUpResult, f.signUpErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if res.Session != nil {
		f.setSession(res.Session)
		f.Emit(authapi.Event{Type: authapi.EventSignedIn, Session: res.Session})
	}
	return res, nil
}

func (f *fakeService) SignOut(ctx context.Context) error {
	f.setSession(nil)
	f.Emit(authapi.Event{Type: authapi.EventSignedOut})
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOutErr
}

func (f *fakeService) ResetPassword(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resetErr
}

func (f *fakeService) VerifySignUpOTP(ctx context.Context, email, code string) (*authapi.Session, error) {
	f.mu.Lock()
	sess, err := f.verifySession, f.verifyErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	f.setSession(sess)
	f.Emit(authapi.Event{Type: authapi.EventSignedIn, Session: sess})
	return sess, nil
}

func (f *fakeService) ResendSignUpConfirmation(ctx context.Context, email string) error {
	return nil
}

func (f *fakeService) VerifyPasswordResetOTP(ctx context.Context, email, code string) (*authapi.Session, error) {
	f.mu.Lock()
	sess, err := f.verifySession, f.verifyErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	f.setSession(sess)
	f.Emit(authapi.Event{Type: authapi.EventPasswordRecovery, Session: sess})
	return sess, nil
}

func (f *fakeService) UpdatePassword(ctx context.Context, newPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updatePasswordErr
}

func (f *fakeService) RecordConsent(ctx context.Context, rec authapi.ConsentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, rec)
	f.consent = &rec
	return nil
}

func (f *fakeService) LatestConsent(ctx context.Context) (*authapi.ConsentRecord, error) {
	if f.onLatestConsent != nil {
		f.onLatestConsent()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.consentErr != nil {
		return nil, f.consentErr
	}
	return f.consent, nil
}

func (f *fakeService) SetMarketingConsent(ctx context.Context, optIn bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marketingOptIn = optIn
	return nil
}

func (f *fakeService) MarketingConsentStatus(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.marketingOptIn, nil
}

func (f *fakeService) DeleteAccount(ctx context.Context) error {
	f.mu.Lock()
	f.deleteCalls++
	err := f.deleteErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.setSession(nil)
	f.Emit(authapi.Event{Type: authapi.EventSignedOut})
	return nil
}

func (f *fakeService) OnAuthStateChange(fn func(authapi.Event)) *authapi.Subscription {
	return f.Subscribe(fn)
}

func (f *fakeService) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeService) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeService) setSession(sess *authapi.Session) {
	f.mu.Lock()
	f.session = sess
	f.sessionErr = nil
	f.mu.Unlock()
}

func (f *fakeService) set(fn func(*fakeService)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func sessionFor(id, email string) *authapi.Session {
	return &authapi.Session{
		User:         &authapi.User{ID: id, Email: email},
		AccessToken:  "at-" + id,
		RefreshToken: "rt-" + id,
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}
