package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/natefinch/atomic"

	"github.com/roach88/lfmerge/internal/config"
	"github.com/roach88/lfmerge/internal/journal"
	"github.com/roach88/lfmerge/internal/merge"
	"github.com/roach88/lfmerge/internal/updates"
)

// ErrCodeSetup marks failures outside the merge itself, such as seeding the
// merge-work copy.
const ErrCodeSetup = "SETUP"

// Revisioner moves a project's merge-work copy to the revision its updates
// were written against. Version control lives outside this package.
type Revisioner interface {
	Checkout(ctx context.Context, project, sha string) error
}

// Merger applies one group of update files to a base LIFT file.
// *merge.Merger is the production implementation.
type Merger interface {
	MergeUpdatesIntoFile(ctx context.Context, basePath string, files []updates.UpdateFile) (*merge.Result, error)
}

// NopRevisioner leaves the working copy as it is.
type NopRevisioner struct{}

func (NopRevisioner) Checkout(context.Context, string, string) error { return nil }

// Processor applies pending update files across a server layout.
type Processor struct {
	layout  config.Layout
	journal *journal.Journal
	merger  Merger
	rev     Revisioner
	logger  *slog.Logger
	now     func() time.Time

	lockTimeout time.Duration
}

// Option configures a Processor.
type Option func(*Processor)

func WithMerger(m Merger) Option {
	return func(p *Processor) { p.merger = m }
}

func WithRevisioner(r Revisioner) Option {
	return func(p *Processor) { p.rev = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithLockTimeout bounds how long a project waits for another process
// working on it. Zero tries once.
func WithLockTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d >= 0 {
			p.lockTimeout = d
		}
	}
}

// WithNow replaces the clock used for run start times.
func WithNow(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// New creates a Processor over layout that records into j.
func New(layout config.Layout, j *journal.Journal, opts ...Option) *Processor {
	p := &Processor{
		layout:  layout,
		journal: j,
		rev:     NopRevisioner{},
		logger:  slog.Default(),
		now:     time.Now,

		lockTimeout: merge.DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.merger == nil {
		p.merger = merge.New(merge.WithLogger(p.logger))
	}
	return p
}

// Report summarizes one pass over the LiftUpdates folder.
type Report struct {
	Projects  []ProjectReport `json:"projects"`
	Malformed []string        `json:"malformed,omitempty"`
}

// Failed returns the projects that ended on hold during this pass.
func (r Report) Failed() []string {
	var out []string
	for _, pr := range r.Projects {
		if pr.ErrorCode != "" {
			out = append(out, pr.Project)
		}
	}
	return out
}

// ProjectReport describes what happened to one project.
type ProjectReport struct {
	Project      string        `json:"project"`
	Skipped      bool          `json:"skipped,omitempty"`
	Locked       bool          `json:"locked,omitempty"`
	Seeded       bool          `json:"seeded,omitempty"`
	Published    bool          `json:"published,omitempty"`
	Groups       []GroupReport `json:"groups"`
	ErrorCode    string        `json:"error_code,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// GroupReport describes the merge of one sha's updates.
type GroupReport struct {
	Sha   string      `json:"sha"`
	RunID string      `json:"run_id"`
	Files int         `json:"files"`
	Stats merge.Stats `json:"stats"`

	// Warning is set when the merge committed but cleanup did not finish.
	Warning string `json:"warning,omitempty"`
}

// ProcessAll merges every pending update. Projects are handled in sorted
// order; a failing project is held and the pass moves on. The returned error
// covers only failures that stop the whole pass.
func (p *Processor) ProcessAll(ctx context.Context) (Report, error) {
	report := Report{Projects: []ProjectReport{}}

	inv, err := updates.Scan(p.layout.LiftUpdatesPath())
	if err != nil {
		return report, err
	}
	report.Malformed = inv.MalformedFilenames()
	for _, name := range report.Malformed {
		p.logger.Warn("ignoring malformed update file name", "path", name)
	}
	if !inv.HasPendingUpdates() {
		p.logger.Debug("no pending updates", "dir", inv.Dir())
		return report, nil
	}

	for _, project := range inv.ProjectsToUpdate() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		pr, err := p.processProject(ctx, project)
		report.Projects = append(report.Projects, pr)
		if err != nil && isFatal(err) {
			return report, err
		}
	}
	return report, nil
}

// ProcessProject merges the pending updates of a single project.
func (p *Processor) ProcessProject(ctx context.Context, project string) (ProjectReport, error) {
	return p.processProject(ctx, project)
}

// processProject works under the project's lock, which spans the inventory
// scan through the last merge and publish. A project locked by another
// process is reported and left alone.
func (p *Processor) processProject(ctx context.Context, project string) (ProjectReport, error) {
	pr := ProjectReport{Project: project, Groups: []GroupReport{}}
	log := p.logger.With("project", project)

	lock, err := merge.Lock(ctx, p.layout.ProjMergePath(project), p.lockTimeout)
	if err != nil {
		if merge.IsLocked(err) {
			log.Info("project is being processed elsewhere, skipping")
			pr.Locked = true
			return pr, nil
		}
		return pr, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Warn("release project lock", "error", err)
		}
	}()

	inv, err := updates.Scan(p.layout.LiftUpdatesPath())
	if err != nil {
		return pr, err
	}

	st, err := p.journal.GetState(ctx, project)
	if err != nil {
		return pr, err
	}
	if st.Held() {
		log.Info("project on hold, skipping", "error_code", st.ErrorCode)
		pr.Skipped = true
		return pr, nil
	}

	shas := inv.ShasForProject(project)
	if len(shas) == 0 {
		return pr, nil
	}

	if err := p.journal.SetState(ctx, project, journal.StateMerging); err != nil {
		return pr, err
	}

	seeded, err := p.ensureMergeCopy(project)
	pr.Seeded = seeded
	if err != nil {
		return pr, p.hold(ctx, &pr, ErrCodeSetup, err)
	}

	base := p.layout.LiftFileMergePath(project)
	applied := false
	for i, sha := range shas {
		if err := p.journal.SetProgress(ctx, project, i+1, len(shas)); err != nil {
			return pr, err
		}
		if err := p.rev.Checkout(ctx, project, sha); err != nil {
			return pr, p.hold(ctx, &pr, ErrCodeSetup, fmt.Errorf("checkout %s: %w", sha, err))
		}

		files := inv.FilesForProjectAndSha(project, sha)
		group, err := p.mergeGroup(ctx, project, sha, base, files)
		if group.RunID != "" {
			pr.Groups = append(pr.Groups, group)
		}
		if err != nil {
			if isFatal(err) {
				return pr, err
			}
			code := string(merge.CodeOf(err))
			if code == "" {
				code = ErrCodeSetup
			}
			return pr, p.hold(ctx, &pr, code, err)
		}
		if group.Files > 0 {
			applied = true
		}
	}

	if applied {
		if err := p.publish(project); err != nil {
			return pr, p.hold(ctx, &pr, ErrCodeSetup, err)
		}
		pr.Published = true
	}

	if err := p.journal.SetState(ctx, project, journal.StateIdle); err != nil {
		return pr, err
	}
	log.Info("project processed", "shas", len(shas), "published", pr.Published)
	return pr, nil
}

func (p *Processor) mergeGroup(ctx context.Context, project, sha, base string, files []updates.UpdateFile) (GroupReport, error) {
	group := GroupReport{Sha: sha}
	run := &journal.Run{
		Project:   project,
		Sha:       sha,
		BasePath:  base,
		StartedAt: p.now(),
	}

	res, mergeErr := p.merger.MergeUpdatesIntoFile(ctx, base, files)
	if res != nil {
		p.fillRun(ctx, run, res)
		group.Files = len(res.Applied)
		group.Stats = res.Stats
	}
	switch {
	case mergeErr == nil:
		run.Status = journal.RunMerged
	case res != nil:
		// Output was committed but some applied updates could not be removed.
		// They stay pending and are merged again next pass.
		run.Status = journal.RunMerged
		run.ErrorMessage = mergeErr.Error()
		group.Warning = mergeErr.Error()
		p.logger.Warn("merged but applied updates remain", "project", project, "sha", sha, "error", mergeErr)
		mergeErr = nil
	default:
		run.Status = journal.RunFailed
		run.ErrorCode = string(merge.CodeOf(mergeErr))
		run.ErrorMessage = mergeErr.Error()
		run.Files = len(files)
	}
	if len(files) == 0 && mergeErr == nil {
		run.Status = journal.RunSkipped
	}

	if err := p.journal.RecordRun(ctx, run); err != nil {
		return group, errors.Join(mergeErr, err)
	}
	group.RunID = run.ID
	return group, mergeErr
}

func (p *Processor) fillRun(ctx context.Context, run *journal.Run, res *merge.Result) {
	run.Files = res.Stats.Files
	run.Entries = res.Stats.Entries
	run.Replaced = res.Stats.Replaced
	run.Appended = res.Stats.Appended
	run.Tombstoned = res.Stats.Tombstoned
	run.InputHash = res.InputHash
	run.OutputHash = res.OutputHash
	for _, a := range res.Applied {
		if prior, err := p.journal.AppliedByHash(ctx, a.Hash); err == nil && len(prior) > 0 {
			p.logger.Warn("update content was merged before",
				"name", a.Name, "first_run", prior[0].RunID)
		}
		run.Applied = append(run.Applied, journal.AppliedUpdate{
			Name:        a.Name,
			ModTime:     a.ModTime,
			ContentHash: a.Hash,
			Entries:     a.Entries,
		})
	}
}

// ensureMergeCopy seeds MergeWork/Projects/<p>/<p>.lift from the WebWork copy
// when the merge-work folder does not exist yet.
func (p *Processor) ensureMergeCopy(project string) (bool, error) {
	if _, err := os.Stat(p.layout.ProjMergePath(project)); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}

	src := p.layout.LiftFileWebWorkPath(project)
	data, err := os.ReadFile(src)
	if err != nil {
		return false, fmt.Errorf("seed merge copy of %s: %w", project, err)
	}
	if _, err := p.layout.CreateMergeWorkProject(project); err != nil {
		return false, err
	}
	dst := p.layout.LiftFileMergePath(project)
	if err := atomic.WriteFile(dst, bytes.NewReader(data)); err != nil {
		return false, fmt.Errorf("seed merge copy of %s: %w", project, err)
	}
	p.logger.Info("seeded merge copy", "project", project, "from", src)
	return true, nil
}

// publish copies the merged LIFT file to the project's WebWork folder.
func (p *Processor) publish(project string) error {
	data, err := os.ReadFile(p.layout.LiftFileMergePath(project))
	if err != nil {
		return fmt.Errorf("publish %s: %w", project, err)
	}
	if _, err := p.layout.CreateWebWorkProject(project); err != nil {
		return err
	}
	if err := atomic.WriteFile(p.layout.LiftFileWebWorkPath(project), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("publish %s: %w", project, err)
	}
	return nil
}

// hold records cause on pr, puts the project on hold and returns cause.
func (p *Processor) hold(ctx context.Context, pr *ProjectReport, code string, cause error) error {
	pr.ErrorCode = code
	pr.ErrorMessage = cause.Error()
	p.logger.Error("project put on hold", "project", pr.Project, "code", code, "error", cause)
	if err := p.journal.Hold(ctx, pr.Project, code, cause.Error()); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// isFatal reports whether err should end a ProcessAll pass rather than just
// the current project.
func isFatal(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
