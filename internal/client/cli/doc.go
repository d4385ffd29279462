// Package cli provides the interactive Scorebook command-line client.
//
// It wires configuration, the local settings database, the cloud auth
// service, and an interactive REPL around the authentication state machine.
// Typical flow: initialize the machine (restoring a session or entering the
// offline grace period), start a background connectivity watcher, and execute
// user commands.
//
// Key features:
//   - Sign in / sign up / sign out against the cloud backend
//   - Email confirmation and password reset flows
//   - Privacy-policy re-consent and marketing opt-in
//   - Storage mode switching between local and cloud
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
