package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/scorebookhq/scorebook/internal/common"
	"github.com/scorebookhq/scorebook/internal/logging"
)

// HTTPService talks to the identity backend over its JSON REST API and
// implements Service. It keeps the current session in memory, persists only
// the refresh token (via TokenCache), refreshes access tokens on demand and
// emits auth-state events to subscribers.
type HTTPService struct {
	baseURL string
	http    *http.Client
	tokens  TokenCache
	log     logging.Logger

	Broadcaster

	mu      sync.Mutex
	session *Session

	now func() time.Time
}

// NewHTTPService constructs an HTTPService for the backend at baseURL.
// tokens may be nil, in which case sessions do not survive restarts.
func NewHTTPService(baseURL string, tokens TokenCache, log logging.Logger) *HTTPService {
	if log == nil {
		log = logging.Nop{}
	}
	return &HTTPService{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
		log:     log,
		now:     time.Now,
	}
}

// tokenResponse is the wire shape of every session-establishing endpoint.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         *User  `json:"user"`
}

// apiError is the sanitized error body the backend returns.
type apiError struct {
	Error string `json:"error"`
}

func (s *HTTPService) sessionFromResponse(tr *tokenResponse) *Session {
	sess := &Session{
		User:         tr.User,
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
	}
	if tr.ExpiresIn > 0 {
		sess.ExpiresAt = s.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	// The backend owns verification; we only read expiry and subject to fill
	// gaps in the response.
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tr.AccessToken, &claims); err == nil {
		if sess.ExpiresAt.IsZero() && claims.ExpiresAt != nil {
			sess.ExpiresAt = claims.ExpiresAt.Time
		}
		if sess.User == nil && claims.Subject != "" {
			sess.User = &User{ID: claims.Subject}
		}
	}
	return sess
}

func (s *HTTPService) setSession(sess *Session) {
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	if s.tokens == nil {
		return
	}
	if sess == nil {
		if err := s.tokens.Clear(); err != nil {
			s.log.Warn(context.Background(), "token cache clear failed", "err", err)
		}
		return
	}
	if err := s.tokens.Save(sess.RefreshToken); err != nil {
		s.log.Warn(context.Background(), "token cache write failed", "err", err)
	}
}

func (s *HTTPService) currentSession() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// do performs a JSON request. Transport failures map to common.ErrUnavailable
// (or common.ErrTimeout on deadline), HTTP statuses map through mapStatus.
func (s *HTTPService) do(ctx context.Context, method, path string, query url.Values, body, out any, accessToken string) error {
	u := s.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s %s: %w", method, path, common.ErrTimeout)
		}
		return fmt.Errorf("%s %s: %w", method, path, common.ErrUnavailable)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: reading response: %w", method, path, err)
	}

	if resp.StatusCode >= 400 {
		return mapStatus(resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%s %s: decoding response: %w", method, path, err)
		}
	}
	return nil
}

func mapStatus(code int, body []byte) error {
	var ae apiError
	_ = json.Unmarshal(body, &ae)

	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		if ae.Error == common.ErrTokenExpired.Error() {
			return common.ErrTokenExpired
		}
		return common.ErrUnauthorized
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		if ae.Error != "" {
			return errors.New(ae.Error)
		}
		return common.ErrInvalidCredentials
	case code >= 500:
		return common.ErrUnavailable
	default:
		if ae.Error != "" {
			return errors.New(ae.Error)
		}
		return fmt.Errorf("unexpected status %d", code)
	}
}

// authedToken returns a live access token, refreshing first when the current
// one is expired.
func (s *HTTPService) authedToken(ctx context.Context) (string, error) {
	sess := s.currentSession()
	if sess == nil {
		return "", common.ErrUnauthorized
	}
	if sess.Expired(s.now()) {
		refreshed, err := s.refresh(ctx, sess.RefreshToken)
		if err != nil {
			return "", err
		}
		return refreshed.AccessToken, nil
	}
	return sess.AccessToken, nil
}

// refresh exchanges a refresh token for a new session and announces
// token_refreshed.
func (s *HTTPService) refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, common.ErrUnauthorized
	}

	var tr tokenResponse
	q := url.Values{"grant_type": {"refresh_token"}}
	err := s.do(ctx, http.MethodPost, "/auth/token", q,
		map[string]string{"refresh_token": refreshToken}, &tr, "")
	if err != nil {
		return nil, err
	}

	sess := s.sessionFromResponse(&tr)
	s.setSession(sess)
	s.Emit(Event{Type: EventTokenRefreshed, Session: sess})
	return sess, nil
}

// GetSession returns the in-memory session, refreshing it when expired, or
// restores one from the persisted refresh token. (nil, nil) means signed out.
func (s *HTTPService) GetSession(ctx context.Context) (*Session, error) {
	if sess := s.currentSession(); sess != nil {
		if !sess.Expired(s.now()) {
			return sess, nil
		}
		return s.refresh(ctx, sess.RefreshToken)
	}

	if s.tokens == nil {
		return nil, nil
	}
	stored, err := s.tokens.Load()
	if err != nil {
		s.log.Warn(ctx, "token cache read failed", "err", err)
		return nil, nil
	}
	if stored == "" {
		return nil, nil
	}

	var tr tokenResponse
	q := url.Values{"grant_type": {"refresh_token"}}
	if err := s.do(ctx, http.MethodPost, "/auth/token", q,
		map[string]string{"refresh_token": stored}, &tr, ""); err != nil {
		if errors.Is(err, common.ErrUnavailable) || errors.Is(err, common.ErrTimeout) {
			return nil, err
		}
		// The stored token was rejected; it is dead weight now.
		if clearErr := s.tokens.Clear(); clearErr != nil {
			s.log.Warn(ctx, "token cache clear failed", "err", clearErr)
		}
		return nil, nil
	}

	sess := s.sessionFromResponse(&tr)
	s.setSession(sess)
	s.Emit(Event{Type: EventInitialSession, Session: sess})
	return sess, nil
}

func (s *HTTPService) GetCurrentUser(ctx context.Context) (*User, error) {
	sess, err := s.GetSession(ctx)
	if err != nil || sess == nil {
		return nil, err
	}
	return sess.User, nil
}

func (s *HTTPService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var tr tokenResponse
	q := url.Values{"grant_type": {"password"}}
	err := s.do(ctx, http.MethodPost, "/auth/token", q,
		map[string]string{"email": email, "password": password}, &tr, "")
	if err != nil {
		return nil, err
	}

	sess := s.sessionFromResponse(&tr)
	s.setSession(sess)
	s.Emit(Event{Type: EventSignedIn, Session: sess})
	return sess, nil
}

// signUpResponse covers both outcomes: a session when confirmation is off,
// or a bare user when a confirmation email was sent.
type signUpResponse struct {
	tokenResponse
	ConfirmationSentAt string `json:"confirmation_sent_at,omitempty"`
}

func (s *HTTPService) SignUp(ctx context.Context, email, password string) (*SignUpResult, error) {
	var sr signUpResponse
	err := s.do(ctx, http.MethodPost, "/auth/signup", nil,
		map[string]string{"email": email, "password": password}, &sr, "")
	if err != nil {
		return nil, err
	}

	if sr.AccessToken == "" {
		return &SignUpResult{ConfirmationRequired: true}, nil
	}

	sess := s.sessionFromResponse(&sr.tokenResponse)
	s.setSession(sess)
	s.Emit(Event{Type: EventSignedIn, Session: sess})
	return &SignUpResult{Session: sess}, nil
}

func (s *HTTPService) SignOut(ctx context.Context) error {
	sess := s.currentSession()

	// Local state goes first; the remote revocation is best-effort and the
	// caller already treats it that way.
	s.setSession(nil)
	s.Emit(Event{Type: EventSignedOut})

	if sess == nil {
		return nil
	}
	return s.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil, sess.AccessToken)
}

func (s *HTTPService) ResetPassword(ctx context.Context, email string) error {
	return s.do(ctx, http.MethodPost, "/auth/recover", nil,
		map[string]string{"email": email}, nil, "")
}

func (s *HTTPService) verify(ctx context.Context, typ, email, code string) (*Session, error) {
	var tr tokenResponse
	err := s.do(ctx, http.MethodPost, "/auth/verify", nil,
		map[string]string{"type": typ, "email": email, "token": code}, &tr, "")
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			return nil, common.ErrInvalidOTP
		}
		return nil, err
	}
	return s.sessionFromResponse(&tr), nil
}

func (s *HTTPService) VerifySignUpOTP(ctx context.Context, email, code string) (*Session, error) {
	sess, err := s.verify(ctx, "signup", email, code)
	if err != nil {
		return nil, err
	}
	s.setSession(sess)
	s.Emit(Event{Type: EventSignedIn, Session: sess})
	return sess, nil
}

func (s *HTTPService) ResendSignUpConfirmation(ctx context.Context, email string) error {
	return s.do(ctx, http.MethodPost, "/auth/resend", nil,
		map[string]string{"type": "signup", "email": email}, nil, "")
}

// VerifyPasswordResetOTP establishes a transient recovery session. The
// password_recovery event tells subscribers this session exists only to set
// a new password.
func (s *HTTPService) VerifyPasswordResetOTP(ctx context.Context, email, code string) (*Session, error) {
	sess, err := s.verify(ctx, "recovery", email, code)
	if err != nil {
		return nil, err
	}
	s.setSession(sess)
	s.Emit(Event{Type: EventPasswordRecovery, Session: sess})
	return sess, nil
}

func (s *HTTPService) UpdatePassword(ctx context.Context, newPassword string) error {
	token, err := s.authedToken(ctx)
	if err != nil {
		return err
	}
	return s.do(ctx, http.MethodPut, "/auth/user", nil,
		map[string]string{"password": newPassword}, nil, token)
}

func (s *HTTPService) RecordConsent(ctx context.Context, rec ConsentRecord) error {
	token, err := s.authedToken(ctx)
	if err != nil {
		return err
	}
	return s.do(ctx, http.MethodPost, "/consent", nil, rec, nil, token)
}

func (s *HTTPService) LatestConsent(ctx context.Context) (*ConsentRecord, error) {
	token, err := s.authedToken(ctx)
	if err != nil {
		return nil, err
	}

	var rec ConsentRecord
	err = s.do(ctx, http.MethodGet, "/consent/latest", nil, nil, &rec, token)
	if err != nil {
		return nil, err
	}
	if rec.PolicyVersion == "" {
		// No record yet; "never asked" is meaningful to the consent gate.
		return nil, nil
	}
	return &rec, nil
}

func (s *HTTPService) SetMarketingConsent(ctx context.Context, optIn bool) error {
	token, err := s.authedToken(ctx)
	if err != nil {
		return err
	}
	return s.do(ctx, http.MethodPut, "/consent/marketing", nil,
		map[string]bool{"opt_in": optIn}, nil, token)
}

func (s *HTTPService) MarketingConsentStatus(ctx context.Context) (bool, error) {
	token, err := s.authedToken(ctx)
	if err != nil {
		return false, err
	}

	var out struct {
		OptIn bool `json:"opt_in"`
	}
	if err := s.do(ctx, http.MethodGet, "/consent/marketing", nil, nil, &out, token); err != nil {
		return false, err
	}
	return out.OptIn, nil
}

// DeleteAccount asks the backend to remove the user. The backend deletes
// user data before the identity record and refuses to orphan data, so a
// returned error means the identity may still exist and local state must be
// left alone.
func (s *HTTPService) DeleteAccount(ctx context.Context) error {
	token, err := s.authedToken(ctx)
	if err != nil {
		return err
	}
	if err := s.do(ctx, http.MethodDelete, "/account", nil, nil, nil, token); err != nil {
		return err
	}

	s.setSession(nil)
	s.Emit(Event{Type: EventSignedOut})
	return nil
}

func (s *HTTPService) OnAuthStateChange(fn func(Event)) *Subscription {
	return s.Subscribe(fn)
}

func (s *HTTPService) Ping(ctx context.Context) error {
	return s.do(ctx, http.MethodGet, "/health", nil, nil, nil, "")
}

func (s *HTTPService) Close() error {
	s.http.CloseIdleConnections()
	return nil
}
