// Package backendmode decides whether the app runs local-only or
// cloud-backed. The mode is derived, not freely settable: a storefront-locked
// build with a configured backend is always cloud, a stored "cloud" override
// without a configured backend falls back to local, and everything else
// follows the stored override or the build default.
package backendmode

import (
	"context"

	"github.com/scorebookhq/scorebook/internal/client/config"
	"github.com/scorebookhq/scorebook/internal/client/kvstore"
	"github.com/scorebookhq/scorebook/internal/logging"
)

// Mode is the storage mode the app operates in.
type Mode string

const (
	ModeLocal Mode = "local"
	ModeCloud Mode = "cloud"
)

const overrideKey = "backend_mode"

// Resolver resolves the effective mode and handles user-initiated switches.
type Resolver struct {
	cfg *config.Config
	kv  *kvstore.Store
	log logging.Logger

	// interactive reports whether the process has an interactive terminal.
	// Swappable for tests; defaults to a real TTY check.
	interactive func() bool
}

func NewResolver(cfg *config.Config, kv *kvstore.Store, log logging.Logger) *Resolver {
	if log == nil {
		log = logging.Nop{}
	}
	return &Resolver{cfg: cfg, kv: kv, log: log, interactive: stdinIsTerminal}
}

// Resolve returns the effective mode for this process start.
//
// Priority, highest first:
//  1. storefront-locked build with a configured backend: cloud, mandatory.
//     A stale stored "local" override is corrected best-effort; a failed
//     rewrite is harmless since the lock re-applies on every resolution.
//  2. stored user override; "cloud" is honored only when the backend is
//     actually configured, otherwise local with a warning.
//  3. build/env default.
//  4. local.
func (r *Resolver) Resolve(ctx context.Context) Mode {
	if r.cfg.Channel == config.ChannelStorefront && r.cfg.CloudConfigured() {
		if stored, ok := r.kv.Get(ctx, overrideKey); ok && stored != string(ModeCloud) {
			if err := r.kv.Set(ctx, overrideKey, string(ModeCloud)); err != nil {
				r.log.Warn(ctx, "could not persist storefront mode correction", "err", err)
			}
		}
		return ModeCloud
	}

	if stored, ok := r.kv.Get(ctx, overrideKey); ok {
		switch Mode(stored) {
		case ModeCloud:
			if r.cfg.CloudConfigured() {
				return ModeCloud
			}
			r.log.Warn(ctx, "stored cloud mode but no backend configured, using local")
			return ModeLocal
		case ModeLocal:
			return ModeLocal
		default:
			r.log.Warn(ctx, "unknown stored mode, ignoring", "mode", stored)
		}
	}

	if Mode(r.cfg.DefaultMode) == ModeCloud && r.cfg.CloudConfigured() {
		return ModeCloud
	}
	return ModeLocal
}

// EnableCloudMode stores a cloud override. Fails when the backend is not
// configured or the write fails.
func (r *Resolver) EnableCloudMode(ctx context.Context) SwitchResult {
	if !r.cfg.CloudConfigured() {
		return failure(ReasonNotConfigured, "no cloud backend is configured for this build")
	}
	if err := r.kv.Set(ctx, overrideKey, string(ModeCloud)); err != nil {
		r.log.Error(ctx, "mode override write failed", "err", err)
		return failure(ReasonStorageFailed, "could not save the storage mode")
	}
	return SwitchResult{OK: true}
}

// DisableCloudMode stores a local override. Fails with a distinguishable
// reason in storefront-locked builds (cloud is non-optional there), outside
// an interactive context, or when the write fails.
func (r *Resolver) DisableCloudMode(ctx context.Context) SwitchResult {
	if r.cfg.Channel == config.ChannelStorefront && r.cfg.CloudConfigured() {
		return failure(ReasonChannelRestricted, "this edition requires cloud mode")
	}
	if !r.interactive() {
		return failure(ReasonNotInteractive, "storage mode can only be changed interactively")
	}
	if err := r.kv.Set(ctx, overrideKey, string(ModeLocal)); err != nil {
		r.log.Error(ctx, "mode override write failed", "err", err)
		return failure(ReasonStorageFailed, "could not save the storage mode")
	}
	return SwitchResult{OK: true}
}
