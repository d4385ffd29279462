package cli

import (
	"context"
	"errors"
	"os"

	"github.com/scorebookhq/scorebook/internal/client/backendmode"
	"github.com/scorebookhq/scorebook/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// SignIn prompts for credentials and authenticates against the cloud
// backend. The password buffer is wiped before returning.
func (a *App) SignIn(ctx context.Context) error {
	if !a.cloudConfigured() {
		printlnFn("No cloud backend is configured for this build.")
		return nil
	}

	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.machine.SignIn(ctx, email, string(password)); err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidCredentials):
			printlnFn("Invalid email or password.")
		case errors.Is(err, common.ErrUnavailable), errors.Is(err, common.ErrTimeout):
			printlnFn("The backend is unreachable. Try again once you are back online.")
		default:
			printlnFn("Sign-in failed:", err.Error())
		}
		return err
	}

	printlnFn("Signed in.")
	a.maybePromptConsent()
	return nil
}

// SignUp prompts for credentials and creates an account. When the backend
// requires email confirmation the user is pointed at the 'verify' command.
func (a *App) SignUp(ctx context.Context) error {
	if !a.cloudConfigured() {
		printlnFn("No cloud backend is configured for this build.")
		return nil
	}

	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout, "Choose a password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := a.machine.SignUp(ctx, email, string(password))
	if err != nil {
		printlnFn("Sign-up failed:", err.Error())
		return err
	}
	if confirm {
		printlnFn("Check your email for a confirmation code, then run 'verify'.")
		return nil
	}
	printlnFn("Account created and signed in.")
	return nil
}

// VerifyEmail completes sign-up confirmation with the emailed one-time code.
func (a *App) VerifyEmail(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	code, err := getSimpleText(a.reader, "Enter confirmation code", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.machine.VerifyOTP(ctx, email, code); err != nil {
		if errors.Is(err, common.ErrInvalidOTP) {
			printlnFn("That code is not valid. Run 'resend' for a fresh one.")
		} else {
			printlnFn("Verification failed:", err.Error())
		}
		return err
	}
	printlnFn("Email confirmed, you are signed in.")
	return nil
}

// ResendConfirmation requests another sign-up confirmation email.
func (a *App) ResendConfirmation(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	if err := a.machine.ResendConfirmation(ctx, email); err != nil {
		printlnFn("Could not resend:", err.Error())
		return err
	}
	printlnFn("Confirmation email sent.")
	return nil
}

// SignOut clears the local session; the remote revocation is best-effort.
func (a *App) SignOut(ctx context.Context) error {
	if err := a.machine.SignOut(ctx); err != nil {
		printlnFn("Sign-out failed:", err.Error())
		return err
	}
	printlnFn("Signed out.")
	return nil
}

// BeginReset starts the password reset flow: it sends the reset email and
// immediately prompts for the emailed code. On success the user lands in the
// recovery session and is pointed at 'newpassword'.
func (a *App) BeginReset(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	if err := a.machine.BeginPasswordReset(ctx, email); err != nil {
		printlnFn("Could not start the reset:", err.Error())
		return err
	}

	code, err := getSimpleText(a.reader, "Enter the code from the reset email", os.Stdout)
	if err != nil {
		return err
	}
	if err := a.machine.VerifyPasswordResetOTP(ctx, email, code); err != nil {
		if errors.Is(err, common.ErrInvalidOTP) {
			printlnFn("That code is not valid. Run 'reset' to start over.")
		} else {
			printlnFn("Reset verification failed:", err.Error())
		}
		return err
	}
	printlnFn("Code accepted. Run 'newpassword' to choose a new password.")
	return nil
}

// NewPassword sets a new password and ends the reset flow.
func (a *App) NewPassword(ctx context.Context) error {
	password, err := getPassword(os.Stdout, "Choose a new password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.machine.UpdatePassword(ctx, string(password)); err != nil {
		printlnFn("Password update failed:", err.Error())
		return err
	}
	printlnFn("Password updated.")
	return nil
}

// AcceptPolicy records consent to the current privacy policy version.
func (a *App) AcceptPolicy(ctx context.Context) error {
	printlnFn("Privacy policy version " + common.PolicyVersion + " applies.")
	answer, err := getSimpleText(a.reader, "Type 'accept' to accept it", os.Stdout)
	if err != nil {
		return err
	}
	if answer != "accept" {
		printlnFn("Not accepted.")
		return nil
	}
	if err := a.machine.AcceptPolicy(ctx); err != nil {
		printlnFn("Could not record consent:", err.Error())
		return err
	}
	printlnFn("Thanks, consent recorded.")
	return nil
}

// Marketing handles 'marketing on|off|status'.
func (a *App) Marketing(ctx context.Context, arg string) error {
	switch arg {
	case "on", "off":
		if err := a.machine.SetMarketingConsent(ctx, arg == "on"); err != nil {
			printlnFn("Could not update marketing preference:", err.Error())
			return err
		}
		printlnFn("Marketing preference saved.")
	case "status":
		optIn, err := a.machine.MarketingConsentStatus(ctx)
		if err != nil {
			printlnFn("Could not fetch marketing preference:", err.Error())
			return err
		}
		if optIn {
			printlnFn("Marketing emails: on")
		} else {
			printlnFn("Marketing emails: off")
		}
	default:
		printlnFn("Usage: marketing on|off|status")
	}
	return nil
}

// SwitchMode handles 'mode local|cloud'. A successful switch re-initializes
// the machine so the new mode takes effect immediately.
func (a *App) SwitchMode(ctx context.Context, target string) error {
	var res backendmode.SwitchResult
	switch backendmode.Mode(target) {
	case backendmode.ModeCloud:
		res = a.modes.EnableCloudMode(ctx)
	case backendmode.ModeLocal:
		res = a.modes.DisableCloudMode(ctx)
	default:
		printlnFn("Usage: mode local|cloud")
		return nil
	}

	if !res.OK {
		printlnFn(res.Message)
		return nil
	}
	if err := a.machine.Initialize(ctx); err != nil {
		a.log.Warn(ctx, "re-initialization after mode switch failed", "err", err)
	}
	printlnFn("Storage mode is now " + target + ".")
	return nil
}

// Status prints the full machine snapshot.
func (a *App) Status(ctx context.Context) error {
	s := a.machine.Snapshot()
	printlnFn("Phase:         " + s.Phase.String())
	printlnFn("Mode:          " + string(s.Mode))
	if s.User != nil {
		printlnFn("User:          " + s.User.Email + " (" + s.User.ID + ")")
	} else {
		printlnFn("User:          none")
	}
	printlnFn("Authenticated: " + boolWord(s.IsAuthenticated))
	if s.IsGracePeriod {
		printlnFn("Grace period:  active (backend unreachable, cached identity in use)")
	}
	if s.NeedsReConsent {
		printlnFn("Consent:       the policy changed, run 'consent' to accept")
	}
	if s.ResetFlowActive {
		printlnFn("Reset flow:    in progress, run 'newpassword' to finish")
	}
	return nil
}

// DeleteAccount permanently removes the remote account after an explicit
// confirmation.
func (a *App) DeleteAccount(ctx context.Context) error {
	printlnFn("This permanently deletes your account and all synced data.")
	answer, err := getSimpleText(a.reader, "Type 'DELETE' to confirm", os.Stdout)
	if err != nil {
		return err
	}
	if answer != "DELETE" {
		printlnFn("Aborted.")
		return nil
	}

	if err := a.machine.DeleteAccount(ctx); err != nil {
		if errors.Is(err, common.ErrCloudNotConfigured) {
			printlnFn("No cloud backend is configured for this build.")
		} else {
			printlnFn("Deletion failed, your account is unchanged:", err.Error())
		}
		return err
	}
	printlnFn("Account deleted.")
	return nil
}

// Retry re-runs initialization after a startup timeout.
func (a *App) Retry(ctx context.Context) error {
	if err := a.machine.Retry(ctx); err != nil {
		if errors.Is(err, common.ErrTimeout) {
			printlnFn("Still no answer from the backend.")
		} else {
			printlnFn("Retry failed:", err.Error())
		}
		return err
	}
	printlnFn("Connected.")
	a.maybePromptConsent()
	return nil
}

func (a *App) maybePromptConsent() {
	if a.machine.Snapshot().NeedsReConsent {
		printlnFn("The privacy policy has changed since you last accepted it. Run 'consent' to review it.")
	}
}

func boolWord(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
