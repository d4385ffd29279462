package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/scorebookhq/scorebook/internal/client/auth"
	"github.com/scorebookhq/scorebook/internal/client/authapi"
	"github.com/scorebookhq/scorebook/internal/client/backendmode"
	"github.com/scorebookhq/scorebook/internal/client/config"
	"github.com/scorebookhq/scorebook/internal/client/datacache"
	"github.com/scorebookhq/scorebook/internal/client/identity"
	"github.com/scorebookhq/scorebook/internal/client/kvstore"
	"github.com/scorebookhq/scorebook/internal/common"
	"github.com/scorebookhq/scorebook/internal/logging"

	_ "modernc.org/sqlite"
)

// App owns the wired-up client: settings database, auth service, mode
// resolver and the authentication state machine. One App per process.
type App struct {
	cfg     *config.Config
	log     logging.Logger
	db      *sql.DB
	machine *auth.Machine
	modes   *backendmode.Resolver
	caches  *datacache.Registry
	reader  *bufio.Reader
}

func NewApp(cfg *config.Config, log logging.Logger) (*App, error) {
	if log == nil {
		log = logging.Nop{}
	}

	ctx := context.Background()

	db, err := kvstore.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening settings database: %w", err)
	}

	kv := kvstore.NewStore(kvstore.NewSQLiteRepository(db), log)
	ident := identity.NewStore(kv, log)
	modes := backendmode.NewResolver(cfg, kv, log)
	caches := datacache.NewRegistry()

	tokens := &authapi.FileTokenCache{Path: tokenCachePath(cfg.DatabasePath)}
	svc := authapi.NewHTTPService(cfg.CloudEndpointURL, tokens, log)

	machine := auth.NewMachine(auth.Deps{
		Config:   cfg,
		Service:  svc,
		Modes:    modes,
		Identity: ident,
		KV:       kv,
		Caches:   caches,
		Log:      log,
	})

	return &App{
		cfg:     cfg,
		log:     log,
		db:      db,
		machine: machine,
		modes:   modes,
		caches:  caches,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

// tokenCachePath puts the refresh-token file next to the settings database.
func tokenCachePath(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), "scorebook_token")
}

// Run initializes the state machine, starts the connectivity watcher and
// blocks in the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	if err := a.machine.Initialize(ctx); err != nil {
		if errors.Is(err, common.ErrTimeout) {
			printlnFn("Could not reach the cloud backend in time. Type 'retry' to try again, or keep working with local data.")
		} else {
			a.log.Error(ctx, "initialization failed", "err", err)
		}
	}

	if a.cfg.CloudConfigured() {
		go a.StartOnlineStatusWatcher(ctx, a.cfg.OnlineCheckInterval)
	}

	printlnFn("Scorebook CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.statusLine, scanner)
}

// Close releases the machine (and with it the auth service) and the settings
// database.
func (a *App) Close() {
	if err := a.machine.Close(); err != nil {
		a.log.Warn(context.Background(), "machine close failed", "err", err)
	}
	if err := a.db.Close(); err != nil {
		a.log.Warn(context.Background(), "database close failed", "err", err)
	}
}

func (a *App) signedIn() bool {
	return a.machine.IsAuthenticated()
}

func (a *App) cloudConfigured() bool {
	return a.cfg.CloudConfigured()
}

// StartOnlineStatusWatcher periodically pings the backend and feeds the
// result into the state machine, which uses it to leave (or stay in) the
// grace period.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.machine.Ping(pingCtx)
			cancel()
			a.machine.HandleConnectivityChange(ctx, err == nil)

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) statusLine() string {
	return formatStatus(a.machine.Snapshot())
}

// formatStatus renders the prompt decoration, e.g.
// "(alice@example.com cloud, grace period)" or "(local)".
func formatStatus(s auth.Snapshot) string {
	parts := []string{string(s.Mode)}
	switch {
	case s.IsGracePeriod:
		parts = append(parts, "grace period")
	case s.Phase == auth.PhaseTimedOut:
		parts = append(parts, "timed out")
	case s.Phase == auth.PhaseInitializing:
		parts = append(parts, "initializing")
	}
	if s.NeedsReConsent {
		parts = append(parts, "consent required")
	}

	line := strings.Join(parts, ", ")
	if s.User != nil && s.User.Email != "" {
		line = s.User.Email + " " + line
	}
	return "(" + line + ")"
}
