package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatescan/terminal/internal/gateway"
	"github.com/gatescan/terminal/internal/model"
)

type fakeGateway struct {
	mu sync.Mutex

	scanResp   *gateway.ScanResponse
	scanErr    error
	verifyResp *gateway.VerifyResponse
	verifyErr  error
	rejectResp *gateway.RejectResponse
	rejectErr  error

	scanCalls   int
	verifyCalls int
	rejectCalls int
	lastReject  gateway.RejectRequest
}

func (g *fakeGateway) Scan(ctx context.Context, req gateway.ScanRequest) (*gateway.ScanResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scanCalls++
	return g.scanResp, g.scanErr
}

func (g *fakeGateway) Verify(ctx context.Context, req gateway.VerifyRequest) (*gateway.VerifyResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	return g.verifyResp, g.verifyErr
}

func (g *fakeGateway) Reject(ctx context.Context, req gateway.RejectRequest) (*gateway.RejectResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rejectCalls++
	g.lastReject = req
	return g.rejectResp, g.rejectErr
}

type fakeLoop struct {
	mu     sync.Mutex
	starts int
	stops  int
}

func (l *fakeLoop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.starts++
}

func (l *fakeLoop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stops++
}

func (l *fakeLoop) startCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.starts
}

// timerCapture records the auto-dismiss timer instead of scheduling it, so
// tests drive the 3-second clock by hand.
type timerCapture struct {
	mu sync.Mutex
	d  time.Duration
	fn func()
}

func (tc *timerCapture) afterFunc(d time.Duration, fn func()) *time.Timer {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.d = d
	tc.fn = fn
	return time.NewTimer(time.Hour)
}

func (tc *timerCapture) fire(t *testing.T) {
	tc.mu.Lock()
	fn := tc.fn
	tc.mu.Unlock()
	require.NotNil(t, fn, "auto-dismiss timer was never armed")
	fn()
}

func pendingSubmission(expiresAt int64) *model.Submission {
	return &model.Submission{
		ID:          "sub-1",
		CompanyName: "Acme Logistics",
		DriverPhone: "+911234567890",
		Status:      model.StatusPending,
		CreatedAt:   time.Now().UnixMilli() - 1000,
		ExpiresAt:   expiresAt,
	}
}

func newTestController(gw *fakeGateway) (*Controller, *fakeLoop, *timerCapture) {
	loop := &fakeLoop{}
	timers := &timerCapture{}
	c := NewController(Config{
		Gateway:   gw,
		Loop:      loop,
		AfterFunc: timers.afterFunc,
	})
	return c, loop, timers
}

func TestSubmit_scanToTokenToAutoReset(t *testing.T) {
	gw := &fakeGateway{
		scanResp: &gateway.ScanResponse{
			Valid:      true,
			Submission: pendingSubmission(time.Now().UnixMilli() + 12*time.Hour.Milliseconds()),
		},
		verifyResp: &gateway.VerifyResponse{
			TokenNumber: "GT-784213",
			SMSStatus:   model.SMSStatus{Sent: true, Provider: "mock"},
		},
	}
	c, loop, timers := newTestController(gw)

	c.StartScan()
	require.Equal(t, StateScanning, c.Snapshot().State)
	require.Equal(t, 1, loop.startCount())

	c.Submit(context.Background(), "QR123")

	snap := c.Snapshot()
	assert.Equal(t, StateTokenDisplayed, snap.State)
	require.NotNil(t, snap.Token)
	assert.Equal(t, "GT-784213", snap.Token.TokenNumber)
	assert.Equal(t, "+911234567890", snap.Token.DriverPhone)
	assert.True(t, snap.Token.SMSStatus.Sent)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)
	assert.Equal(t, DefaultDismissAfter, timers.d)

	// Simulated 3-second expiry: back to scanning with nothing held.
	timers.fire(t)
	snap = c.Snapshot()
	assert.Equal(t, StateScanning, snap.State)
	assert.Nil(t, snap.Token)
	assert.Nil(t, snap.Submission)
	assert.Empty(t, snap.Error)
	assert.Equal(t, ModeCamera, snap.Mode)
	assert.Equal(t, 2, loop.startCount(), "auto-reset reactivates the camera")
}

func TestSubmit_expiredNeverVerifies(t *testing.T) {
	gw := &fakeGateway{
		scanResp: &gateway.ScanResponse{
			Valid:      true,
			Submission: pendingSubmission(time.Now().UnixMilli() - 1000),
		},
	}
	c, _, _ := newTestController(gw)

	c.StartScan()
	c.Submit(context.Background(), "QR123")

	snap := c.Snapshot()
	assert.Equal(t, "QR code expired", snap.Error)
	assert.Equal(t, StateScannerIdle, snap.State)
	assert.Nil(t, snap.Submission)
	assert.Equal(t, 0, gw.verifyCalls, "expired submission must not be verified")
}

func TestSubmit_invalidReportsServerError(t *testing.T) {
	gw := &fakeGateway{
		scanResp: &gateway.ScanResponse{Valid: false, Error: "not found"},
	}
	c, loop, _ := newTestController(gw)

	c.StartScan()
	startsBefore := loop.startCount()
	c.Submit(context.Background(), "QR999")

	snap := c.Snapshot()
	assert.Equal(t, "not found", snap.Error)
	assert.Equal(t, StateScannerIdle, snap.State)
	assert.Equal(t, 0, gw.verifyCalls)
	assert.Equal(t, startsBefore, loop.startCount(), "camera must not reactivate after a failed scan")
}

func TestSubmit_missingErrorFallsBackToInvalidQR(t *testing.T) {
	gw := &fakeGateway{scanResp: &gateway.ScanResponse{Valid: false}}
	c, _, _ := newTestController(gw)

	c.StartScan()
	c.Submit(context.Background(), "garbage")
	assert.Equal(t, "Invalid QR code", c.Snapshot().Error)
}

func TestSubmit_verifyFailureReturnsToIdle(t *testing.T) {
	gw := &fakeGateway{
		scanResp: &gateway.ScanResponse{
			Valid:      true,
			Submission: pendingSubmission(time.Now().UnixMilli() + 1000000),
		},
		verifyErr: errors.New("submission not in verifiable state"),
	}
	c, _, _ := newTestController(gw)

	c.StartScan()
	c.Submit(context.Background(), "QR123")

	snap := c.Snapshot()
	assert.Equal(t, "submission not in verifiable state", snap.Error)
	assert.Equal(t, StateScannerIdle, snap.State)
	assert.Nil(t, snap.Submission)
}

func TestApprove_completedShortCircuits(t *testing.T) {
	gw := &fakeGateway{}
	c, _, _ := newTestController(gw)

	sub := pendingSubmission(time.Now().UnixMilli() + 1000000)
	sub.Status = model.StatusCompleted
	c.HoldForReview(sub)

	c.Approve(context.Background())

	snap := c.Snapshot()
	assert.Equal(t, "Submission already completed", snap.Error)
	assert.Equal(t, StateReview, snap.State)
	assert.Equal(t, 0, gw.verifyCalls, "completed submission must not reach the network")
}

func TestApprove_fromReviewIssuesToken(t *testing.T) {
	gw := &fakeGateway{
		verifyResp: &gateway.VerifyResponse{
			TokenNumber: "GT-100001",
			SMSStatus:   model.SMSStatus{Sent: true, Provider: "sms"},
		},
	}
	c, _, _ := newTestController(gw)

	c.HoldForReview(pendingSubmission(time.Now().UnixMilli() + 1000000))
	c.Approve(context.Background())

	snap := c.Snapshot()
	assert.Equal(t, StateTokenDisplayed, snap.State)
	require.NotNil(t, snap.Token)
	assert.Equal(t, "GT-100001", snap.Token.TokenNumber)
	assert.Equal(t, 1, gw.verifyCalls)
}

func TestApprove_failureKeepsReviewState(t *testing.T) {
	gw := &fakeGateway{verifyErr: errors.New("sms gateway down")}
	c, _, _ := newTestController(gw)

	c.HoldForReview(pendingSubmission(time.Now().UnixMilli() + 1000000))
	c.Approve(context.Background())

	snap := c.Snapshot()
	assert.Equal(t, StateReview, snap.State)
	assert.Equal(t, "sms gateway down", snap.Error)
	assert.NotNil(t, snap.Submission, "a failed approval keeps the submission under review")
}

func TestReject_emptyReasonIsNoOp(t *testing.T) {
	gw := &fakeGateway{}
	c, _, _ := newTestController(gw)

	c.HoldForReview(pendingSubmission(time.Now().UnixMilli() + 1000000))
	before := c.Snapshot()

	c.Reject(context.Background(), "   ")

	after := c.Snapshot()
	assert.Equal(t, 0, gw.rejectCalls, "an aborted reason prompt must not issue a network call")
	assert.Equal(t, before.State, after.State)
	assert.Equal(t, before.Submission.Status, after.Submission.Status)
	assert.Empty(t, after.Error)
}

func TestReject_successAppliesOptimisticStatus(t *testing.T) {
	gw := &fakeGateway{rejectResp: &gateway.RejectResponse{Success: true}}
	c, _, _ := newTestController(gw)

	c.HoldForReview(pendingSubmission(time.Now().UnixMilli() + 1000000))
	c.Reject(context.Background(), "documents missing")

	snap := c.Snapshot()
	assert.Equal(t, 1, gw.rejectCalls)
	assert.Equal(t, "documents missing", gw.lastReject.Reason)
	require.NotNil(t, snap.Submission)
	assert.Equal(t, model.StatusRejected, snap.Submission.Status)
	assert.Equal(t, StateReview, snap.State)
}

func TestReject_failureKeepsStatus(t *testing.T) {
	gw := &fakeGateway{rejectErr: errors.New("reject failed upstream")}
	c, _, _ := newTestController(gw)

	c.HoldForReview(pendingSubmission(time.Now().UnixMilli() + 1000000))
	c.Reject(context.Background(), "bad plates")

	snap := c.Snapshot()
	assert.Equal(t, "reject failed upstream", snap.Error)
	assert.Equal(t, model.StatusPending, snap.Submission.Status, "optimistic update applies only after success")
	assert.Equal(t, StateReview, snap.State)
}

func TestDismiss_manualCancelsTimer(t *testing.T) {
	gw := &fakeGateway{
		scanResp: &gateway.ScanResponse{
			Valid:      true,
			Submission: pendingSubmission(time.Now().UnixMilli() + 1000000),
		},
		verifyResp: &gateway.VerifyResponse{
			TokenNumber: "GT-784213",
			SMSStatus:   model.SMSStatus{Sent: true, Provider: "mock"},
		},
	}
	c, _, timers := newTestController(gw)

	c.StartScan()
	c.Submit(context.Background(), "QR123")
	require.Equal(t, StateTokenDisplayed, c.Snapshot().State)

	c.Dismiss()
	snap := c.Snapshot()
	assert.Equal(t, StateScanning, snap.State)
	assert.Nil(t, snap.Token)

	// A stale timer callback after manual dismissal must be a no-op.
	timers.fire(t)
	assert.Equal(t, StateScanning, c.Snapshot().State)
}

func TestCancel_discardsHeldSubmission(t *testing.T) {
	c, _, _ := newTestController(&fakeGateway{})

	c.HoldForReview(pendingSubmission(time.Now().UnixMilli() + 1000000))
	require.NotNil(t, c.Snapshot().Submission)

	c.Cancel()
	snap := c.Snapshot()
	assert.Nil(t, snap.Submission)
	assert.Equal(t, StateScannerIdle, snap.State)
}

func TestSetMode_manualReleasesCamera(t *testing.T) {
	c, loop, _ := newTestController(&fakeGateway{})

	c.StartScan()
	require.Equal(t, 1, loop.startCount())

	c.SetMode(ModeManual)
	loop.mu.Lock()
	stops := loop.stops
	loop.mu.Unlock()
	assert.GreaterOrEqual(t, stops, 1, "manual mode must release the camera")

	c.SetMode(ModeCamera)
	assert.Equal(t, 2, loop.startCount(), "returning to camera mode mid-scan reactivates the loop")
}
