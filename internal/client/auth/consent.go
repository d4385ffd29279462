package auth

import (
	"context"

	"github.com/scorebookhq/scorebook/internal/client/authapi"
	"github.com/scorebookhq/scorebook/internal/common"
)

// consentUserAgent is recorded with every consent record for the audit
// trail.
const consentUserAgent = "scorebook-cli"

// consentGate fetches the user's latest consent record and compares it with
// the policy version this build requires. It runs before a new session
// becomes observable.
//
// A missing record means "never asked", not "outdated". The exception is
// right after a completed sign-up confirmation, where the user already opted
// in on the form and the record is written now. A transient failure defers
// the check;
// any other failure is reported but never blocks sign-in: this is an audit
// trail, not a gate.
func (m *Machine) consentGate(ctx context.Context, justConfirmedSignUp bool) bool {
	rec, err := m.svc.LatestConsent(ctx)
	if err != nil {
		if m.transient(err) {
			m.log.Debug(ctx, "consent check deferred", "err", err)
		} else {
			m.log.Error(ctx, "consent check failed", "err", err)
		}
		return false
	}

	if rec == nil {
		if justConfirmedSignUp {
			if err := m.recordConsent(ctx); err != nil {
				m.log.Error(ctx, "consent auto-record failed", "err", err)
			}
		}
		return false
	}

	if common.PolicyOutdated(rec.PolicyVersion) {
		m.log.Info(ctx, "consent record outdated, re-consent required",
			"recorded", rec.PolicyVersion, "required", common.PolicyVersion)
		return true
	}
	return false
}

func (m *Machine) recordConsent(ctx context.Context) error {
	return m.svc.RecordConsent(ctx, authapi.ConsentRecord{
		PolicyVersion: common.PolicyVersion,
		RecordedAt:    m.now().UTC(),
		UserAgent:     consentUserAgent,
	})
}

// AcceptPolicy records consent to the current policy version and clears the
// re-consent flag. This is the action behind the re-consent dialog.
func (m *Machine) AcceptPolicy(ctx context.Context) error {
	if err := m.recordConsent(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	m.needsReConsent = false
	m.mu.Unlock()
	return nil
}

// SetMarketingConsent is a passthrough to the backend's marketing opt-in.
func (m *Machine) SetMarketingConsent(ctx context.Context, optIn bool) error {
	return m.svc.SetMarketingConsent(ctx, optIn)
}

// MarketingConsentStatus reports the current marketing opt-in.
func (m *Machine) MarketingConsentStatus(ctx context.Context) (bool, error) {
	return m.svc.MarketingConsentStatus(ctx)
}
