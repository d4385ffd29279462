package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	signedIn() bool
	cloudConfigured() bool
	SignIn(ctx context.Context) error
	SignUp(ctx context.Context) error
	VerifyEmail(ctx context.Context) error
	ResendConfirmation(ctx context.Context) error
	SignOut(ctx context.Context) error
	BeginReset(ctx context.Context) error
	NewPassword(ctx context.Context) error
	AcceptPolicy(ctx context.Context) error
	Marketing(ctx context.Context, arg string) error
	SwitchMode(ctx context.Context, target string) error
	Status(ctx context.Context) error
	DeleteAccount(ctx context.Context) error
	Retry(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the Scorebook CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers print
// their own diagnostics. This keeps the REPL loop resilient and focused on
// I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("scorebook %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			printHelp(a)

		case "signin", "login":
			_ = a.SignIn(ctx)

		case "signup", "register":
			_ = a.SignUp(ctx)

		case "verify":
			_ = a.VerifyEmail(ctx)

		case "resend":
			_ = a.ResendConfirmation(ctx)

		case "signout", "logout":
			_ = a.SignOut(ctx)

		case "reset":
			_ = a.BeginReset(ctx)

		case "newpassword":
			_ = a.NewPassword(ctx)

		case "consent":
			_ = a.AcceptPolicy(ctx)

		case "marketing":
			if len(args) == 0 {
				printlnFn("Usage: marketing on|off|status")
				continue
			}
			_ = a.Marketing(ctx, args[0])

		case "mode":
			if len(args) == 0 {
				printlnFn("Usage: mode local|cloud")
				continue
			}
			_ = a.SwitchMode(ctx, args[0])

		case "status":
			_ = a.Status(ctx)

		case "delete-account":
			_ = a.DeleteAccount(ctx)

		case "retry":
			_ = a.Retry(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func printHelp(a execIface) {
	if !a.cloudConfigured() {
		printlnFn("Available commands: mode, status, exit")
		return
	}
	if a.signedIn() {
		printlnFn("Available commands: signout, consent, marketing, mode, status, delete-account, exit")
	} else {
		printlnFn("Available commands: signin, signup, verify, resend, reset, newpassword, mode, status, retry, exit")
	}
}
