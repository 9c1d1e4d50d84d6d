package workflow

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gatescan/terminal/internal/gateway"
	"github.com/gatescan/terminal/internal/model"
)

// State is the controller's workflow position. Exactly one holds at a time.
type State int

const (
	// StateScannerIdle: no scan in progress, camera off.
	StateScannerIdle State = iota
	// StateScanning: the decode loop is active (camera mode) or the operator
	// is typing a code (manual mode).
	StateScanning
	// StateResolving: a scan call is in flight for a decoded/typed code.
	StateResolving
	// StateVerifying: a verify call is in flight.
	StateVerifying
	// StateReview: a resolved submission is held for manual approve/reject.
	StateReview
	// StateTokenDisplayed: an issued token is shown until dismissal.
	StateTokenDisplayed
)

func (s State) String() string {
	switch s {
	case StateScannerIdle:
		return "scanner_idle"
	case StateScanning:
		return "scanning"
	case StateResolving:
		return "resolving"
	case StateVerifying:
		return "verifying"
	case StateReview:
		return "review"
	case StateTokenDisplayed:
		return "token_displayed"
	default:
		return "unknown"
	}
}

// Mode selects the entry surface: live camera or typed code.
type Mode int

const (
	ModeCamera Mode = iota
	ModeManual
)

// Gateway is the slice of the gateway client the controller drives.
type Gateway interface {
	Scan(ctx context.Context, req gateway.ScanRequest) (*gateway.ScanResponse, error)
	Verify(ctx context.Context, req gateway.VerifyRequest) (*gateway.VerifyResponse, error)
	Reject(ctx context.Context, req gateway.RejectRequest) (*gateway.RejectResponse, error)
}

// ScanLoop is the controller's handle on the frame decode loop.
type ScanLoop interface {
	Start()
	Stop()
}

// Snapshot is a point-in-time copy of the controller's observable state for
// rendering. Presentation layers read snapshots and emit intents; they never
// mutate controller state directly.
type Snapshot struct {
	State      State
	Mode       Mode
	Submission *model.Submission
	Token      *model.TokenIssuance
	Error      string
	Loading    bool
}

// DefaultDismissAfter is how long the token popup stays before auto-reset.
const DefaultDismissAfter = 3 * time.Second

// Config wires a Controller. Gateway is required. Loop may instead be bound
// later with AttachLoop, but must be set before any scan intent arrives.
type Config struct {
	Gateway Gateway
	Loop    ScanLoop
	// Notify is called after every observable state change, from whichever
	// goroutine caused it.
	Notify func()
	// DismissAfter overrides the token auto-dismiss delay (zero → 3s).
	DismissAfter time.Duration
	// Now and AfterFunc are injectable for tests.
	Now       func() time.Time
	AfterFunc func(d time.Duration, fn func()) *time.Timer
}

// Controller sequences scan → resolve → verify → token-display → reset, and
// the manual review path. It exclusively owns the current submission and
// token issuance; at most one gateway call is in flight at a time.
type Controller struct {
	gw           Gateway
	loop         ScanLoop
	notify       func()
	now          func() time.Time
	afterFunc    func(time.Duration, func()) *time.Timer
	dismissAfter time.Duration

	mu           sync.Mutex
	state        State
	mode         Mode
	submission   *model.Submission
	token        *model.TokenIssuance
	errMsg       string
	loading      bool
	dismissTimer *time.Timer
}

func NewController(cfg Config) *Controller {
	c := &Controller{
		gw:           cfg.Gateway,
		loop:         cfg.Loop,
		notify:       cfg.Notify,
		now:          cfg.Now,
		afterFunc:    cfg.AfterFunc,
		dismissAfter: cfg.DismissAfter,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.afterFunc == nil {
		c.afterFunc = time.AfterFunc
	}
	if c.dismissAfter == 0 {
		c.dismissAfter = DefaultDismissAfter
	}
	return c
}

// AttachLoop binds the decode loop after construction. The loop's detection
// callback usually closes over the controller, so the two cannot always be
// built in one pass.
func (c *Controller) AttachLoop(loop ScanLoop) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loop = loop
}

// SetNotify binds the state-change hook after construction.
func (c *Controller) SetNotify(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = fn
}

// Snapshot returns a copy of the current observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		State:   c.state,
		Mode:    c.mode,
		Error:   c.errMsg,
		Loading: c.loading,
	}
	if c.submission != nil {
		sub := *c.submission
		snap.Submission = &sub
	}
	if c.token != nil {
		tok := *c.token
		snap.Token = &tok
	}
	return snap
}

// StartScan begins a fresh scan: clears any prior result and activates the
// decode loop when in camera mode.
func (c *Controller) StartScan() {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return
	}
	c.stopDismissLocked()
	c.errMsg = ""
	c.submission = nil
	c.token = nil
	c.state = StateScanning
	camera := c.mode == ModeCamera
	c.mu.Unlock()

	if camera {
		c.loop.Start()
	}
	c.changed()
}

// StopScan deactivates the decode loop and returns to idle.
func (c *Controller) StopScan() {
	c.loop.Stop()
	c.mu.Lock()
	if c.state == StateScanning {
		c.state = StateScannerIdle
	}
	c.mu.Unlock()
	c.changed()
}

// SetMode switches between camera scan and manual entry. Switching away from
// the camera always releases it.
func (c *Controller) SetMode(mode Mode) {
	c.mu.Lock()
	if c.mode == mode {
		c.mu.Unlock()
		return
	}
	c.mode = mode
	scanning := c.state == StateScanning
	c.mu.Unlock()

	if mode == ModeManual {
		c.loop.Stop()
	} else if scanning {
		c.loop.Start()
	}
	c.changed()
}

// Submit resolves a decoded or typed code: deactivate the loop, call scan,
// run the local expiry check, then immediately verify (auto-approval-on-scan
// policy). It blocks until the workflow settles; callers run it off the
// render path.
func (c *Controller) Submit(ctx context.Context, code string) {
	c.mu.Lock()
	if c.loading || (c.state != StateScannerIdle && c.state != StateScanning) {
		c.mu.Unlock()
		return
	}
	c.state = StateResolving
	c.loading = true
	c.errMsg = ""
	c.mu.Unlock()

	c.loop.Stop()
	c.changed()

	resp, err := c.gw.Scan(ctx, gateway.ScanRequest{QRCode: code})
	if err != nil {
		c.fail(errorMessage(err, "Scan failed"), StateScannerIdle)
		return
	}
	if !resp.Valid || resp.Submission == nil {
		msg := resp.Error
		if msg == "" {
			msg = "Invalid QR code"
		}
		c.fail(msg, StateScannerIdle)
		return
	}
	if resp.Submission.Expired(c.now()) {
		c.fail("QR code expired", StateScannerIdle)
		return
	}

	c.mu.Lock()
	c.submission = resp.Submission
	c.state = StateVerifying
	c.mu.Unlock()
	c.changed()

	c.verify(ctx, resp.Submission, StateScannerIdle)
}

// Approve re-invokes verification for the held submission. Already-completed
// submissions short-circuit with an error and no network call.
func (c *Controller) Approve(ctx context.Context) {
	c.mu.Lock()
	sub := c.submission
	if sub == nil || c.loading {
		c.mu.Unlock()
		return
	}
	if sub.Status == model.StatusCompleted {
		c.errMsg = "Submission already completed"
		c.mu.Unlock()
		c.changed()
		return
	}
	c.state = StateVerifying
	c.loading = true
	c.errMsg = ""
	c.mu.Unlock()
	c.changed()

	c.verify(ctx, sub, StateReview)
}

// Reject records a rejection with a mandatory reason. An empty or cancelled
// reason aborts with no state change and no network call. On success the held
// submission is optimistically marked rejected.
func (c *Controller) Reject(ctx context.Context, reason string) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return
	}

	c.mu.Lock()
	sub := c.submission
	if sub == nil || c.loading {
		c.mu.Unlock()
		return
	}
	c.loading = true
	c.errMsg = ""
	c.mu.Unlock()
	c.changed()

	resp, err := c.gw.Reject(ctx, gateway.RejectRequest{SubmissionID: sub.ID, Reason: reason})
	if err != nil {
		c.fail(errorMessage(err, "Rejection failed"), StateReview)
		return
	}
	if !resp.Success {
		c.fail("Rejection failed", StateReview)
		return
	}

	c.mu.Lock()
	if c.submission != nil {
		updated := *c.submission
		updated.Status = model.StatusRejected
		c.submission = &updated
	}
	c.loading = false
	c.state = StateReview
	c.mu.Unlock()
	c.changed()
}

// Cancel discards the held submission and returns to idle.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return
	}
	c.submission = nil
	c.token = nil
	c.state = StateScannerIdle
	c.mu.Unlock()
	c.changed()
}

// Dismiss closes the token popup — by operator action or the auto-dismiss
// timer — discards the issuance and submission, and resumes scanning without
// requiring another Start.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	if c.state != StateTokenDisplayed {
		c.mu.Unlock()
		return
	}
	c.stopDismissLocked()
	c.token = nil
	c.submission = nil
	c.errMsg = ""
	c.loading = false
	c.mode = ModeCamera
	c.state = StateScanning
	c.mu.Unlock()

	c.loop.Start()
	c.changed()
}

// HoldForReview places a resolved submission into the manual review state
// without issuing a token, making the explicit approve/reject path available.
func (c *Controller) HoldForReview(sub *model.Submission) {
	if sub == nil {
		return
	}
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return
	}
	c.stopDismissLocked()
	held := *sub
	c.submission = &held
	c.token = nil
	c.errMsg = ""
	c.state = StateReview
	c.mu.Unlock()

	c.loop.Stop()
	c.changed()
}

// verify issues the entry token for sub. failState is where a failure leaves
// the workflow: back to idle from the scan path, or holding the review state.
func (c *Controller) verify(ctx context.Context, sub *model.Submission, failState State) {
	resp, err := c.gw.Verify(ctx, gateway.VerifyRequest{SubmissionID: sub.ID})
	if err != nil {
		c.fail(errorMessage(err, "Verification failed"), failState)
		return
	}
	if resp.TokenNumber == "" {
		c.fail("Failed to send token", failState)
		return
	}

	c.mu.Lock()
	c.token = &model.TokenIssuance{
		TokenNumber: resp.TokenNumber,
		SMSStatus:   resp.SMSStatus,
		DriverPhone: sub.DriverPhone,
	}
	c.state = StateTokenDisplayed
	c.loading = false
	c.errMsg = ""
	c.stopDismissLocked()
	c.dismissTimer = c.afterFunc(c.dismissAfter, c.Dismiss)
	c.mu.Unlock()
	c.changed()
}

// fail records a non-fatal error and settles the workflow in a stable,
// re-triggerable state. Errors are non-sticky: the next successful action
// clears them.
func (c *Controller) fail(msg string, state State) {
	c.mu.Lock()
	c.errMsg = msg
	c.loading = false
	c.state = state
	if state == StateScannerIdle {
		c.submission = nil
		c.token = nil
	}
	c.mu.Unlock()
	c.changed()
}

func (c *Controller) stopDismissLocked() {
	if c.dismissTimer != nil {
		c.dismissTimer.Stop()
		c.dismissTimer = nil
	}
}

func (c *Controller) changed() {
	c.mu.Lock()
	fn := c.notify
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func errorMessage(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}
