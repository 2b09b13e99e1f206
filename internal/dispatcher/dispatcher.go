// Package dispatcher routes test results to one or more TestOps projects,
// buffers them per project, uploads them in bounded batches and completes
// each project's run with per-project failure isolation.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	terrors "github.com/AndreyAkinshin/testops/internal/errors"
	"github.com/AndreyAkinshin/testops/internal/mapper"
	"github.com/AndreyAkinshin/testops/internal/model"
	"github.com/AndreyAkinshin/testops/internal/queue"
)

// DefaultBatchSize is the number of results sent per upload call.
const DefaultBatchSize = 200

// Lifecycle errors.
var (
	ErrAlreadyStarted = errors.New("test run already started")
	ErrNotStarted     = errors.New("test run not started")
	ErrCompleted      = errors.New("test run already completed")
)

// State is the dispatcher lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateDraining
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateDraining:
		return "draining"
	case StateCompleted:
		return "completed"
	default:
		return "uninitialized"
	}
}

// Project configures one destination.
type Project struct {
	Code string
	Sink ResultSink
	// RunID adopts an existing run instead of creating one.
	RunID int64
	// KeepOpen leaves the run open at Complete.
	KeepOpen bool
}

// Options configures a Dispatcher.
type Options struct {
	// DefaultProject receives results without a project mapping.
	DefaultProject string
	// BatchSize bounds every upload; DefaultBatchSize when zero.
	BatchSize int
	// UploadAttachments uploads attachments before their results; when
	// false attachments are dropped from uploaded results.
	UploadAttachments bool
	// AppURL is the web UI used in failure links; DefaultAppURL when empty.
	AppURL string
	Logger Logger
}

// Outcome is the per-project result of SendResults or Complete.
type Outcome struct {
	Code  string
	RunID int64
	Sent  int
	Err   error
}

// Outcomes is a list of per-project outcomes.
type Outcomes []Outcome

// Err joins the errors of all failed projects, or returns nil.
func (o Outcomes) Err() error {
	var errs []error
	for _, oc := range o {
		if oc.Err != nil {
			errs = append(errs, oc.Err)
		}
	}
	return errors.Join(errs...)
}

// Failed returns the codes of projects whose outcome carries an error.
func (o Outcomes) Failed() []string {
	var codes []string
	for _, oc := range o {
		if oc.Err != nil {
			codes = append(codes, oc.Code)
		}
	}
	return codes
}

type destination struct {
	code     string
	sink     ResultSink
	keepOpen bool

	// sendMu serializes uploads so a project receives results in the
	// order they were queued. Lock order: sendMu before Dispatcher.mu.
	sendMu sync.Mutex

	// Guarded by Dispatcher.mu.
	runID int64
	queue *queue.Queue
	sent  int
}

// Dispatcher fans results out to per-project queues and sinks.
//
// A single mutex guards the backlog, the queues and the lifecycle state.
// It is never held across a sink call, so different projects upload
// concurrently.
type Dispatcher struct {
	log               Logger
	defaultProject    string
	batchSize         int
	uploadAttachments bool
	appURL            string
	projects          []*destination
	byCode            map[string]*destination
	known             map[string]bool

	mu       sync.Mutex
	state    State
	starting bool
	backlog  []model.TestResult
	routed   int // backlog[:routed] has been distributed to queues
}

// New creates a dispatcher for the given projects, in reporting order.
func New(projects []Project, opts Options) (*Dispatcher, error) {
	if len(projects) == 0 {
		return nil, terrors.Config("at least one project is required")
	}
	if opts.BatchSize < 0 {
		return nil, terrors.Configf("batch size must be positive, got %d", opts.BatchSize)
	}
	d := &Dispatcher{
		log:               opts.Logger,
		defaultProject:    opts.DefaultProject,
		batchSize:         opts.BatchSize,
		uploadAttachments: opts.UploadAttachments,
		appURL:            opts.AppURL,
		byCode:            make(map[string]*destination, len(projects)),
		known:             make(map[string]bool, len(projects)),
	}
	if d.log == nil {
		d.log = nopLogger{}
	}
	if d.batchSize == 0 {
		d.batchSize = DefaultBatchSize
	}
	if d.appURL == "" {
		d.appURL = DefaultAppURL
	}
	for _, p := range projects {
		if p.Code == "" {
			return nil, terrors.Config("project code is required")
		}
		if p.Sink == nil {
			return nil, terrors.Configf("project %s has no sink", p.Code)
		}
		if d.known[p.Code] {
			return nil, terrors.Configf("duplicate project %s", p.Code)
		}
		dest := &destination{
			code:     p.Code,
			sink:     p.Sink,
			keepOpen: p.KeepOpen,
			runID:    p.RunID,
			queue:    queue.New(),
		}
		d.projects = append(d.projects, dest)
		d.byCode[p.Code] = dest
		d.known[p.Code] = true
	}
	if d.defaultProject == "" {
		d.defaultProject = projects[0].Code
	}
	if !d.known[d.defaultProject] {
		return nil, terrors.Configf("default project %s is not configured", d.defaultProject)
	}
	return d, nil
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// RunID returns the run of a project, or 0 before StartTestRun.
func (d *Dispatcher) RunID(code string) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if dest, ok := d.byCode[code]; ok && d.state != StateUninitialized {
		return dest.runID
	}
	return 0
}

// Pending returns the number of queued, unsent results for a project.
func (d *Dispatcher) Pending(code string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if dest, ok := d.byCode[code]; ok {
		return dest.queue.Pending()
	}
	return 0
}

// StartTestRun creates a run in every project (or adopts the configured
// one). Any failure is returned and leaves the dispatcher uninitialized,
// since results cannot be routed to a project without a run. Runs created
// by a failed call are adopted by the next one.
func (d *Dispatcher) StartTestRun(ctx context.Context) error {
	d.mu.Lock()
	if d.state != StateUninitialized || d.starting {
		d.mu.Unlock()
		return ErrAlreadyStarted
	}
	d.starting = true
	d.mu.Unlock()

	runIDs := make([]int64, len(d.projects))
	errs := make([]error, len(d.projects))
	var wg sync.WaitGroup
	for i, dest := range d.projects {
		d.mu.Lock()
		preset := dest.runID
		d.mu.Unlock()
		if preset > 0 {
			runIDs[i] = preset
			continue
		}
		wg.Add(1)
		go func(i int, dest *destination) {
			defer wg.Done()
			id, err := dest.sink.CreateRun(ctx)
			if err != nil {
				errs[i] = terrors.API(dest.code, "create run", err)
				return
			}
			runIDs[i] = id
		}(i, dest)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		// Runs that were created are kept so a retry adopts them.
		var kept []int
		d.mu.Lock()
		for i, dest := range d.projects {
			if errs[i] == nil && dest.runID == 0 {
				dest.runID = runIDs[i]
				kept = append(kept, i)
			}
		}
		d.starting = false
		d.mu.Unlock()
		for _, e := range errs {
			if e != nil {
				d.log.Warning("%v", e)
			}
		}
		for _, i := range kept {
			d.log.ProjectInfo(d.projects[i].code, "Run #%d created; it will be reused on retry", runIDs[i])
		}
		return err
	}

	d.mu.Lock()
	for i, dest := range d.projects {
		dest.runID = runIDs[i]
	}
	d.state = StateReady
	d.starting = false
	d.mu.Unlock()

	for i, dest := range d.projects {
		d.log.ProjectInfo(dest.code, "Using run #%d", runIDs[i])
	}
	return nil
}

// AddResult records a finished test. The result always lands in the
// backlog; once the run has started it is also routed to its projects, and
// every project whose queue reaches the batch size is flushed before
// AddResult returns. Upload failures are logged, never returned.
func (d *Dispatcher) AddResult(ctx context.Context, result model.TestResult) {
	result.Normalize()

	d.mu.Lock()
	if d.state == StateDraining || d.state == StateCompleted {
		d.mu.Unlock()
		d.log.Warning("result %q ignored: %v", result.Title, ErrCompleted)
		return
	}
	d.backlog = append(d.backlog, result)
	if d.state != StateReady {
		d.mu.Unlock()
		return
	}
	d.distributePendingLocked()
	var full []*destination
	for _, dest := range d.projects {
		if dest.queue.Pending() >= d.batchSize {
			full = append(full, dest)
		}
	}
	d.mu.Unlock()

	for _, dest := range full {
		dest.sendMu.Lock()
		_, _ = d.flushLocked(ctx, dest)
		dest.sendMu.Unlock()
	}
}

// distributePendingLocked routes every backlog entry not yet distributed.
// d.mu must be held.
func (d *Dispatcher) distributePendingLocked() {
	for ; d.routed < len(d.backlog); d.routed++ {
		d.distributeLocked(d.backlog[d.routed])
	}
}

func (d *Dispatcher) distributeLocked(result model.TestResult) {
	for _, code := range mapper.Dropped(result, d.known) {
		d.log.ProjectDebug(code, "project not configured, skipping %q", result.Title)
	}
	for _, target := range mapper.Resolve(result, d.known, d.defaultProject) {
		dest := d.byCode[target.Code]
		if result.Status.IsFailure() {
			for _, link := range failureLinks(d.appURL, dest.code, dest.runID, target.IDs, result.Title) {
				d.log.ProjectInfo(dest.code, "See why this test failed: %s", link)
			}
		}
		dest.queue.Push(result.ForProject(target.IDs))
	}
}

// flushLocked sends the next batch of dest. dest.sendMu must be held and
// d.mu must not be. It reports whether a non-empty batch was attempted.
func (d *Dispatcher) flushLocked(ctx context.Context, dest *destination) (bool, error) {
	d.mu.Lock()
	batch := dest.queue.Batch(d.batchSize)
	runID := dest.runID
	d.mu.Unlock()

	if len(batch) == 0 {
		return false, nil
	}

	if d.uploadAttachments {
		d.attachLocked(ctx, dest, batch)
	} else {
		for i := range batch {
			batch[i].Attachments = nil
		}
	}

	if err := dest.sink.UploadResults(ctx, runID, batch); err != nil {
		d.log.ProjectError(dest.code, "Error sending results: %v", err)
		return true, terrors.API(dest.code, "upload results", err)
	}

	d.mu.Lock()
	dest.queue.MarkSent(len(batch))
	dest.sent += len(batch)
	d.mu.Unlock()

	d.log.ProjectInfo(dest.code, "Sent %d results", len(batch))
	return true, nil
}

// attachLocked uploads the attachments of batch that have no reference yet.
// A failed attachment is logged and left out of its result.
func (d *Dispatcher) attachLocked(ctx context.Context, dest *destination, batch []model.TestResult) {
	for i := range batch {
		if len(batch[i].Attachments) == 0 {
			continue
		}
		attachments := make([]model.Attachment, 0, len(batch[i].Attachments))
		for _, a := range batch[i].Attachments {
			if a.Hash == "" {
				hash, err := dest.sink.UploadAttachment(ctx, a)
				if err != nil {
					d.log.ProjectError(dest.code, "Error uploading attachment %s: %v", a.Name, err)
					continue
				}
				a.Hash = hash
			}
			attachments = append(attachments, a)
		}
		batch[i].Attachments = attachments
	}
}

// drain flushes dest until its queue is empty or a batch fails, then drops
// the delivered items.
func (d *Dispatcher) drain(ctx context.Context, dest *destination) error {
	dest.sendMu.Lock()
	defer dest.sendMu.Unlock()

	for {
		attempted, err := d.flushLocked(ctx, dest)
		if err != nil {
			return err
		}
		if !attempted {
			break
		}
	}

	d.mu.Lock()
	if dest.queue.Pending() == 0 {
		dest.queue.Reset()
	}
	d.mu.Unlock()
	return nil
}

// SendResults distributes backlog entries that were never routed (added
// before the run started, or supplied through SetTestResults) and drains
// every project's queue. Projects are drained concurrently; a failing
// project keeps its unsent results queued for a later call.
func (d *Dispatcher) SendResults(ctx context.Context) Outcomes {
	d.mu.Lock()
	if d.state != StateReady {
		state := d.state
		d.mu.Unlock()
		return d.refused(state)
	}
	d.distributePendingLocked()
	d.mu.Unlock()

	return d.eachProject(func(dest *destination) error {
		return d.drain(ctx, dest)
	})
}

// Complete drains every project and completes its run. Projects are
// handled concurrently and independently: a failure is logged with the
// project code and reported in its Outcome without affecting the others.
// Complete is terminal.
func (d *Dispatcher) Complete(ctx context.Context) Outcomes {
	d.mu.Lock()
	switch d.state {
	case StateUninitialized:
		d.state = StateCompleted
		d.mu.Unlock()
		d.log.Warning("completing a run that was never started; %d results not sent", len(d.TestResults()))
		return d.refused(StateUninitialized)
	case StateDraining, StateCompleted:
		state := d.state
		d.mu.Unlock()
		return d.refused(state)
	}
	d.state = StateDraining
	d.distributePendingLocked()
	d.mu.Unlock()

	outcomes := d.eachProject(func(dest *destination) error {
		drainErr := d.drain(ctx, dest)
		if dest.keepOpen {
			return drainErr
		}
		runID := d.RunID(dest.code)
		if err := dest.sink.CompleteRun(ctx, runID); err != nil {
			d.log.ProjectError(dest.code, "Error completing run: %v", err)
			return errors.Join(drainErr, terrors.API(dest.code, "complete run", err))
		}
		d.log.ProjectInfo(dest.code, "Run #%d completed", runID)
		return drainErr
	})

	d.mu.Lock()
	d.state = StateCompleted
	d.mu.Unlock()
	return outcomes
}

// Publish sends all results and completes every run. The two phases take
// the dispatcher lock independently.
func (d *Dispatcher) Publish(ctx context.Context) Outcomes {
	d.SendResults(ctx)
	return d.Complete(ctx)
}

// TestResults returns a copy of every result added so far.
func (d *Dispatcher) TestResults() []model.TestResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]model.TestResult, len(d.backlog))
	copy(out, d.backlog)
	return out
}

// SetTestResults replaces the backlog with results collected elsewhere,
// for example by another process. They are routed on the next SendResults
// or Complete, but only while every project queue is empty: results already
// queued through AddResult are never routed a second time.
func (d *Dispatcher) SetTestResults(results []model.TestResult) {
	backlog := make([]model.TestResult, len(results))
	for i, r := range results {
		r.Normalize()
		backlog[i] = r
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.backlog = backlog
	if d.queuesEmptyLocked() {
		d.routed = 0
		return
	}
	d.routed = len(backlog)
	d.log.Warning("backlog replaced while project queues hold results; %d result(s) will not be routed again", len(backlog))
}

func (d *Dispatcher) queuesEmptyLocked() bool {
	for _, dest := range d.projects {
		if dest.queue.Len() > 0 {
			return false
		}
	}
	return true
}

// eachProject runs fn for every project concurrently and collects outcomes
// in project order.
func (d *Dispatcher) eachProject(fn func(dest *destination) error) Outcomes {
	outcomes := make(Outcomes, len(d.projects))
	var wg sync.WaitGroup
	for i, dest := range d.projects {
		wg.Add(1)
		go func(i int, dest *destination) {
			defer wg.Done()
			err := fn(dest)
			d.mu.Lock()
			outcomes[i] = Outcome{Code: dest.code, RunID: dest.runID, Sent: dest.sent, Err: err}
			d.mu.Unlock()
		}(i, dest)
	}
	wg.Wait()
	return outcomes
}

func (d *Dispatcher) refused(state State) Outcomes {
	err := ErrNotStarted
	if state == StateDraining || state == StateCompleted {
		err = ErrCompleted
	}
	outcomes := make(Outcomes, len(d.projects))
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, dest := range d.projects {
		outcomes[i] = Outcome{
			Code:  dest.code,
			RunID: dest.runID,
			Sent:  dest.sent,
			Err:   fmt.Errorf("[%s] %w", dest.code, err),
		}
	}
	return outcomes
}
