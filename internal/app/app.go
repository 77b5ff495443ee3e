// Package app drives one reconciliation run end to end: lock, window and
// mount checks, then every site's directory against its local folder tree.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kism/backup-ivs/internal/config"
	"github.com/kism/backup-ivs/internal/directory"
	"github.com/kism/backup-ivs/internal/lock"
	"github.com/kism/backup-ivs/internal/mirror"
	"github.com/kism/backup-ivs/internal/mount"
	"github.com/kism/backup-ivs/internal/naming"
	"github.com/kism/backup-ivs/internal/notify"
	"github.com/kism/backup-ivs/internal/reconcile"
	"github.com/kism/backup-ivs/internal/report"
	"github.com/kism/backup-ivs/internal/transfer"
	"github.com/kism/backup-ivs/internal/util"
)

// Options are the per-invocation switches of a run.
type Options struct {
	// DryRun passes the transfer tool its preview flag; folders, renames
	// and metadata still happen.
	DryRun bool
	// MetadataOnly reconciles folders and metadata but never transfers.
	MetadataOnly bool
	// Site restricts the run to the named site.
	Site string
	// Budget overrides the configured run budget when positive.
	Budget time.Duration
	// Force ignores the backup window.
	Force bool
}

// Directory is the slice of the appliance client the run loop needs.
type Directory interface {
	Login(ctx context.Context, username, password string) error
	Fetch(ctx context.Context) (*directory.Snapshot, error)
}

// App wires configuration to the run loop. The zero fields fall back to
// real implementations; tests swap them out.
type App struct {
	Cfg      *config.Config
	Exec     transfer.Executor
	Folders  reconcile.Lister
	Mirror   *mirror.Mirror
	Notifier notify.Notifier

	// NewDirectory builds the appliance client for one site.
	NewDirectory func(endpoint string, timeout time.Duration) Directory

	// Now is the budget clock.
	Now func() time.Time
}

// New builds an App with the real executor and appliance client.
func New(cfg *config.Config) *App {
	return &App{
		Cfg:      cfg,
		Exec:     transfer.NewRsync(cfg.Transfer.Binary, cfg.Transfer.ExtraArgs),
		Notifier: notify.FromConfig(cfg.Notifications),
		NewDirectory: func(endpoint string, timeout time.Duration) Directory {
			return directory.NewClient(endpoint, timeout)
		},
	}
}

type runState struct {
	opts     Options
	deadline time.Time
	rep      *report.Report
	rec      *reconcile.Reconciler
}

// stepError attributes a recording failure to a pipeline stage. siteFatal
// failures abort the whole site.
type stepError struct {
	stage     string
	siteFatal bool
	err       error
}

func (e *stepError) Error() string { return e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

// Run executes one reconciliation pass and returns its report. An error is
// returned only for pre-flight failures; anything after the lock lands in
// the report instead.
func (a *App) Run(ctx context.Context, opts Options) (*report.Report, error) {
	start := a.now()
	rep := report.New(uuid.NewString(), start)
	rep.DryRun = opts.DryRun

	sites, err := a.selectSites(opts.Site)
	if err != nil {
		return nil, err
	}
	if !opts.MetadataOnly {
		if rs, ok := a.Exec.(*transfer.Rsync); ok {
			if err := util.RequireBinary(rs.Binary); err != nil {
				return nil, err
			}
		}
	}

	if !opts.Force {
		in, err := a.inWindow()
		if err != nil {
			return nil, err
		}
		if !in {
			log.Info().
				Str("window", a.Cfg.Schedule.WindowStart+"-"+a.Cfg.Schedule.WindowEnd).
				Msg("outside backup window, nothing to do")
			rep.Finish(report.OutcomeSkipped, a.now())
			return rep, nil
		}
	}

	fl, err := lock.Acquire(a.Cfg.Global.LockFile)
	if err != nil {
		return nil, err
	}
	defer fl.Unlock()

	if err := mount.EnsureMounted(ctx, a.Cfg.Mount); err != nil {
		return nil, err
	}

	budget := a.Cfg.Global.RunBudget
	if opts.Budget > 0 {
		budget = opts.Budget
	}
	st := &runState{opts: opts, rep: rep, rec: reconcile.New(a.Folders)}
	if budget > 0 {
		st.deadline = start.Add(budget)
	}

	log.Info().
		Str("run", rep.RunID).
		Int("sites", len(sites)).
		Bool("dry_run", opts.DryRun).
		Msg("run started")

	outcome := report.OutcomeCompleted
	for _, site := range sites {
		if a.overBudget(st) {
			outcome = report.OutcomeTimedOut
			break
		}
		if a.runSite(ctx, st, site) {
			outcome = report.OutcomeTimedOut
			break
		}
	}
	rep.Finish(outcome, a.now())

	if outcome == report.OutcomeTimedOut {
		log.Warn().Dur("budget", budget).Msg("run budget exhausted, stopping early")
	}
	a.deliver(ctx, rep)
	return rep, nil
}

// runSite fetches one site's directory and settles every recording. The
// return value reports budget exhaustion mid-site.
func (a *App) runSite(ctx context.Context, st *runState, site config.SiteConfig) (timedOut bool) {
	st.rep.Sites++
	slog := log.With().Str("site", site.Name).Logger()

	dir := a.NewDirectory(site.Endpoint, a.Cfg.Global.HTTPTimeout)
	var snap *directory.Snapshot
	err := util.Retry(ctx, a.Cfg.Global.FetchRetries, a.Cfg.Global.FetchBackoff, func() error {
		if err := dir.Login(ctx, site.Username, site.Password); err != nil {
			return err
		}
		var ferr error
		snap, ferr = dir.Fetch(ctx)
		return ferr
	})
	if err != nil {
		slog.Error().Err(err).Msg("directory fetch failed, skipping site")
		st.rep.AddError(site.Name, 0, "fetch", err)
		st.rep.SitesFailed++
		return false
	}

	recs := append([]directory.Recording(nil), snap.Recordings...)
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	slog.Info().Int("recordings", len(recs)).Msg("directory fetched")

	for _, rec := range recs {
		if a.overBudget(st) {
			return true
		}
		if err := a.processRecording(ctx, st, site, snap, rec); err != nil {
			var se *stepError
			if !errors.As(err, &se) {
				se = &stepError{stage: "process", err: err}
			}
			slog.Error().Err(se.err).Int64("recording", rec.ID).Str("stage", se.stage).Msg("recording failed")
			st.rep.AddError(site.Name, rec.ID, se.stage, se.err)
			if se.siteFatal {
				slog.Error().Msg("folder tree unusable, abandoning site")
				st.rep.SitesFailed++
				return false
			}
		}
	}
	return false
}

// processRecording settles one recording: hierarchy, folder, metadata,
// and the transfer gate.
func (a *App) processRecording(ctx context.Context, st *runState, site config.SiteConfig, snap *directory.Snapshot, rec directory.Recording) error {
	st.rep.Recordings++

	team, known := snap.TeamFor(rec.AuthorID)
	if !known {
		log.Warn().Int64("recording", rec.ID).Int64("author", rec.AuthorID).Msg("author unknown, filing under Unknown")
		st.rep.Warnf("site %s: recording %d: unknown author %d", site.Name, rec.ID, rec.AuthorID)
	}
	year := naming.YearBucket(rec.CreatedAt)

	bucket, err := reconcile.EnsureHierarchy(a.Cfg.SiteHome(site), team, year)
	if err != nil {
		return &stepError{stage: "hierarchy", siteFatal: true, err: err}
	}

	res, err := st.rec.Reconcile(bucket, rec)
	if err != nil {
		return &stepError{stage: "reconcile", err: err}
	}
	if res.Skipped {
		log.Info().Int64("recording", rec.ID).Str("legacy", res.Legacy).Msg("legacy folder covers recording")
		st.rep.LegacySkips++
		return nil
	}
	for _, dup := range res.Duplicates {
		st.rep.Warnf("site %s: recording %d: duplicate folder %q left in place", site.Name, rec.ID, dup)
	}
	switch {
	case res.Created:
		st.rep.FoldersMade++
	case res.RenamedFrom != "":
		st.rep.Renames++
	}

	if err := reconcile.WriteMetadata(res.Path, reconcile.NewMetadata(rec, team, snap.FetchedAt)); err != nil {
		return &stepError{stage: "metadata", err: err}
	}

	finalExt, placeholderExt := a.Cfg.Transfer.FinalExt, a.Cfg.Transfer.PlaceholderExt
	mc, err := reconcile.CountMedia(res.Path, rec.ID, finalExt, placeholderExt)
	if err != nil {
		return &stepError{stage: "count", err: err}
	}
	if !reconcile.NeedTransfer(st.opts.MetadataOnly, rec.CameraCount, mc) {
		log.Debug().
			Int64("recording", rec.ID).
			Int("final", mc.Final).
			Int("placeholder", mc.Placeholder).
			Int("cameras", rec.CameraCount).
			Msg("transfer not needed")
		return nil
	}

	src := transfer.Source(
		a.Cfg.SiteSSHUser(site),
		siteHost(site.Endpoint),
		transfer.RemoteSource(a.Cfg.Transfer.ContentRoot, rec.ID),
	)
	ferr := a.Exec.Fetch(ctx, src, res.Path, st.opts.DryRun)
	if n, cerr := reconcile.CleanPartials(res.Path, finalExt, placeholderExt); cerr != nil {
		log.Warn().Err(cerr).Int64("recording", rec.ID).Msg("partial sweep failed")
		st.rep.Warnf("site %s: recording %d: partial sweep: %v", site.Name, rec.ID, cerr)
	} else {
		st.rep.PartialsSwept += n
	}
	if ferr != nil {
		return &stepError{stage: "transfer", err: ferr}
	}
	st.rep.Transfers++
	log.Info().Int64("recording", rec.ID).Bool("dry_run", st.opts.DryRun).Msg("media transferred")

	if a.Mirror != nil && !st.opts.DryRun {
		if err := a.Mirror.MirrorFolder(ctx, site.Name, team, year, filepath.Base(res.Path), res.Path); err != nil {
			return &stepError{stage: "mirror", err: err}
		}
		st.rep.Mirrored++
	}
	return nil
}

func (a *App) selectSites(only string) ([]config.SiteConfig, error) {
	if only == "" {
		return a.Cfg.Sites, nil
	}
	for _, s := range a.Cfg.Sites {
		if s.Name == only {
			return []config.SiteConfig{s}, nil
		}
	}
	return nil, fmt.Errorf("unknown site %q", only)
}

func (a *App) inWindow() (bool, error) {
	now := a.now()
	if tz := a.Cfg.Schedule.Timezone; tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return false, fmt.Errorf("schedule timezone: %w", err)
		}
		now = now.In(loc)
	}
	return util.InWindow(now, a.Cfg.Schedule.WindowStart, a.Cfg.Schedule.WindowEnd)
}

// deliver writes the report file and notifies the sinks; both are best
// effort.
func (a *App) deliver(ctx context.Context, rep *report.Report) {
	if path := a.Cfg.Report.Path; path != "" {
		if err := rep.WriteFile(path); err != nil {
			log.Warn().Err(err).Msg("report file not written")
		}
	}
	if a.Notifier == nil {
		return
	}
	if err := a.Notifier.Notify(ctx, notify.FromReport(rep)); err != nil {
		log.Warn().Err(err).Msg("notification failed")
	}
}

func (a *App) overBudget(st *runState) bool {
	return !st.deadline.IsZero() && !a.now().Before(st.deadline)
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// siteHost extracts the transfer host from an endpoint URL, accepting bare
// hostnames too.
func siteHost(endpoint string) string {
	if u, err := url.Parse(endpoint); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return endpoint
}
