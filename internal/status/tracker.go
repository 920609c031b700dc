package status

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"reportd/internal/client"
	"reportd/internal/domain"
)

const (
	defaultPollInterval    = 2000 * time.Millisecond
	defaultMaxPollAttempts = 150

	genericFailureMessage = "report generation failed"
	timeoutMessage        = "generation timed out"
	missingResultMessage  = "generation completed without a result reference"
	invalidTargetMessage  = "target id must be a positive integer"
)

// Dialer opens push channel connections. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Options configures a Tracker.
type Options struct {
	Client          *client.Client
	Dialer          Dialer
	PollInterval    time.Duration
	MaxPollAttempts int
	OnComplete      func(resultReference string)
	OnError         func(message string)
	Logger          zerolog.Logger
}

// State is the externally observable job state. It is only ever mutated by
// the reducer.
type State struct {
	IsGenerating    bool
	Stage           domain.Stage
	StageDisplay    string
	Progress        int
	ErrorMessage    string
	ResultReference string
}

// Tracker follows one report generation job at a time: it starts the job,
// attaches the push channel when one is offered, demotes to polling when the
// push channel dies, and reduces every inbound message into State with
// monotonic stage ordering and exactly one terminal callback per job.
//
// Every transport event carries the epoch it was started under; events from
// a previous job (after Cancel or a new StartGeneration) are dropped before
// they can touch state.
type Tracker struct {
	opts Options

	mu           sync.Mutex
	epoch        uint64
	jobID        string
	state        State
	terminal     bool
	demoted      bool
	pushConn     *websocket.Conn
	pollTimer    *time.Timer
	pollAttempts int
}

// NewTracker validates options and applies defaults.
func NewTracker(opts Options) (*Tracker, error) {
	if opts.Client == nil {
		return nil, errors.New("status: client is required")
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.MaxPollAttempts <= 0 {
		opts.MaxPollAttempts = defaultMaxPollAttempts
	}
	if opts.OnComplete == nil {
		opts.OnComplete = func(string) {}
	}
	if opts.OnError == nil {
		opts.OnError = func(string) {}
	}
	return &Tracker{opts: opts}, nil
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// StartGeneration starts tracking a new report job for the given company.
// It never returns an error: every outcome, including local validation
// failures, is routed through the OnComplete/OnError callbacks so consumers
// handle results in exactly one place. Any job already being tracked is
// abandoned first.
func (t *Tracker) StartGeneration(ctx context.Context, targetID int64) {
	t.mu.Lock()
	t.epoch++
	e := t.epoch
	teardown := t.teardownLocked()
	t.jobID = ""
	t.terminal = false
	t.demoted = false
	t.pollAttempts = 0
	t.state = State{IsGenerating: true, Stage: domain.StagePending, StageDisplay: domain.StagePending.Display("en")}
	t.mu.Unlock()
	teardown()

	if targetID <= 0 {
		t.fail(e, invalidTargetMessage)
		return
	}

	resp, err := t.opts.Client.StartReport(ctx, targetID)
	if err != nil {
		t.opts.Logger.Error().Err(err).Int64("target_id", targetID).Msg("status: start report failed")
		t.fail(e, startErrorMessage(err))
		return
	}

	t.mu.Lock()
	if e != t.epoch {
		t.mu.Unlock()
		return
	}
	t.jobID = resp.JobID
	t.mu.Unlock()

	if resp.ChannelAddress != "" {
		t.startPush(ctx, e, resp.ChannelAddress)
	} else {
		t.startPolling(ctx, e)
	}
}

// Cancel abandons the tracked job and synchronously resets state to idle.
// It is idempotent; calling it again, or after a terminal callback, has no
// observable effect. The underlying transport close may complete
// asynchronously, but no message arriving after Cancel is applied to state.
func (t *Tracker) Cancel() {
	t.mu.Lock()
	t.epoch++
	teardown := t.teardownLocked()
	t.jobID = ""
	t.terminal = false
	t.demoted = false
	t.pollAttempts = 0
	t.state = State{}
	t.mu.Unlock()
	teardown()
}

// apply is the status reducer: the only code path that mutates State. It
// enforces the epoch guard, heartbeat drops, stage monotonicity, and the
// single-terminal-callback rule. The terminal callback runs before transport
// teardown so a consumer may start a new job from inside it.
func (t *Tracker) apply(e uint64, u Update) {
	t.mu.Lock()
	if e != t.epoch || t.terminal {
		t.mu.Unlock()
		return
	}
	if u.Heartbeat {
		t.mu.Unlock()
		return
	}
	if !u.Stage.Known() {
		t.mu.Unlock()
		t.opts.Logger.Warn().Str("stage", string(u.Stage)).Msg("status: unknown stage dropped")
		return
	}
	if u.Stage.Rank() < t.state.Stage.Rank() {
		// Out-of-order delivery across the push/poll boundary; drop silently.
		t.mu.Unlock()
		return
	}

	t.state.Stage = u.Stage
	if u.Progress > t.state.Progress {
		t.state.Progress = u.Progress
	}
	if u.StageDisplay != "" {
		t.state.StageDisplay = u.StageDisplay
	} else {
		t.state.StageDisplay = u.Stage.Display("en")
	}

	if !u.Stage.Terminal() {
		t.mu.Unlock()
		return
	}

	t.terminal = true
	t.state.IsGenerating = false

	var callback func()
	switch u.Stage {
	case domain.StageCompleted:
		if u.ResultReference == "" {
			// Protocol error: a success without a result is surfaced as a
			// failure, never as a silent success.
			t.state.Stage = domain.StageFailed
			t.state.StageDisplay = domain.StageFailed.Display("en")
			t.state.ErrorMessage = missingResultMessage
			msg := missingResultMessage
			callback = func() { t.opts.OnError(msg) }
			t.opts.Logger.Error().Msg("status: terminal success without result reference")
		} else {
			t.state.ResultReference = u.ResultReference
			ref := u.ResultReference
			callback = func() { t.opts.OnComplete(ref) }
		}
	case domain.StageFailed:
		msg := u.ErrorMessage
		if msg == "" {
			msg = genericFailureMessage
		}
		t.state.ErrorMessage = msg
		callback = func() { t.opts.OnError(msg) }
	}

	teardown := t.teardownLocked()
	t.mu.Unlock()

	callback()
	teardown()
}

// fail drives a locally detected failure (validation, initiation, timeout)
// through the same terminal discipline as a server-reported one.
func (t *Tracker) fail(e uint64, message string) {
	t.mu.Lock()
	if e != t.epoch || t.terminal {
		t.mu.Unlock()
		return
	}
	t.terminal = true
	t.state.IsGenerating = false
	t.state.Stage = domain.StageFailed
	t.state.StageDisplay = domain.StageFailed.Display("en")
	t.state.ErrorMessage = message
	teardown := t.teardownLocked()
	t.mu.Unlock()

	t.opts.OnError(message)
	teardown()
}

// teardownLocked detaches the current transports and returns a closure that
// releases them outside the lock. At most one push handle and one poll timer
// exist at any instant; this is where both are reclaimed.
func (t *Tracker) teardownLocked() func() {
	conn := t.pushConn
	timer := t.pollTimer
	t.pushConn = nil
	t.pollTimer = nil
	return func() {
		if timer != nil {
			timer.Stop()
		}
		if conn != nil {
			_ = conn.Close()
		}
	}
}

// startPush dials the push channel and pumps its frames into the reducer.
// Dial and read errors while the job is non-terminal demote the channel to
// polling; the demotion is one-directional.
func (t *Tracker) startPush(ctx context.Context, e uint64, address string) {
	go func() {
		conn, resp, err := t.opts.Dialer.DialContext(ctx, address, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			t.opts.Logger.Warn().Err(err).Str("address", address).Msg("status: push dial failed")
			t.fallback(ctx, e)
			return
		}

		t.mu.Lock()
		if e != t.epoch || t.terminal {
			t.mu.Unlock()
			_ = conn.Close()
			return
		}
		t.pushConn = conn
		t.mu.Unlock()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				t.mu.Lock()
				if t.pushConn == conn {
					t.pushConn = nil
				}
				t.mu.Unlock()
				_ = conn.Close()
				t.fallback(ctx, e)
				return
			}
			u, decodeErr := decodePush(data)
			if decodeErr != nil {
				t.opts.Logger.Warn().Err(decodeErr).Msg("status: push frame ignored")
			}
			t.apply(e, u)
		}
	}()
}

// fallback demotes the job from push to polling exactly once. Transport
// errors are recovered locally and stay invisible to the consumer unless
// polling subsequently fails too.
func (t *Tracker) fallback(ctx context.Context, e uint64) {
	t.mu.Lock()
	if e != t.epoch || t.terminal || t.demoted {
		t.mu.Unlock()
		return
	}
	t.demoted = true
	t.mu.Unlock()

	t.opts.Logger.Info().Msg("status: push channel lost, falling back to polling")
	t.startPolling(ctx, e)
}

// startPolling arms the poll timer chain. The first request fires one
// interval from now; the attempt cap bounds total waiting at
// MaxPollAttempts * PollInterval.
func (t *Tracker) startPolling(ctx context.Context, e uint64) {
	t.mu.Lock()
	if e != t.epoch || t.terminal {
		t.mu.Unlock()
		return
	}
	t.pollAttempts = 0
	t.schedulePollLocked(ctx, e)
	t.mu.Unlock()
}

func (t *Tracker) schedulePollLocked(ctx context.Context, e uint64) {
	t.pollTimer = time.AfterFunc(t.opts.PollInterval, func() {
		t.pollOnce(ctx, e)
	})
}

func (t *Tracker) pollOnce(ctx context.Context, e uint64) {
	t.mu.Lock()
	if e != t.epoch || t.terminal {
		t.mu.Unlock()
		return
	}
	t.pollAttempts++
	attempts := t.pollAttempts
	jobID := t.jobID
	t.mu.Unlock()

	resp, err := t.opts.Client.JobStatus(ctx, jobID)
	if err != nil {
		// One failed poll does not abort the channel; only the attempt cap
		// or a terminal status does.
		t.opts.Logger.Warn().Err(err).Str("job_id", jobID).Msg("status: poll attempt failed")
	} else {
		t.apply(e, fromPoll(resp))
	}

	t.mu.Lock()
	if e != t.epoch || t.terminal {
		t.mu.Unlock()
		return
	}
	if attempts >= t.opts.MaxPollAttempts {
		t.mu.Unlock()
		t.fail(e, timeoutMessage)
		return
	}
	t.schedulePollLocked(ctx, e)
	t.mu.Unlock()
}

func startErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidTarget):
		return invalidTargetMessage
	case errors.Is(err, domain.ErrMissingJobID):
		return domain.ErrMissingJobID.Error()
	default:
		return "failed to start generation: " + err.Error()
	}
}
