package status

import (
	"testing"

	"github.com/rs/zerolog"

	"reportd/internal/client"
	"reportd/internal/domain"
)

// newTestTracker returns a tracker primed as if a job had just been started,
// so reducer behavior can be exercised without any transport.
func newTestTracker(t *testing.T, onComplete func(string), onError func(string)) *Tracker {
	t.Helper()
	c, err := client.New(client.Options{BaseURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("client.New error: %v", err)
	}
	tr, err := NewTracker(Options{
		Client:     c,
		OnComplete: onComplete,
		OnError:    onError,
		Logger:     zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewTracker error: %v", err)
	}
	tr.mu.Lock()
	tr.epoch = 1
	tr.jobID = "job-test"
	tr.state = State{IsGenerating: true, Stage: domain.StagePending, StageDisplay: domain.StagePending.Display("en")}
	tr.mu.Unlock()
	return tr
}

func TestReducerMonotonicStageOrder(t *testing.T) {
	tr := newTestTracker(t, nil, nil)

	tr.apply(1, Update{Stage: domain.StageCompiling, Progress: 60})
	tr.apply(1, Update{Stage: domain.StageProcessing, Progress: 5})

	st := tr.Snapshot()
	if st.Stage != domain.StageCompiling {
		t.Fatalf("expected stage to stay at compiling, got %s", st.Stage)
	}
	if st.Progress != 60 {
		t.Fatalf("expected progress to stay at 60, got %d", st.Progress)
	}
}

func TestReducerProgressNeverDecreases(t *testing.T) {
	tr := newTestTracker(t, nil, nil)

	tr.apply(1, Update{Stage: domain.StageProcessing, Progress: 30})
	tr.apply(1, Update{Stage: domain.StageProcessing, Progress: 10})

	if st := tr.Snapshot(); st.Progress != 30 {
		t.Fatalf("expected progress 30, got %d", st.Progress)
	}
}

func TestReducerHeartbeatIsNoOp(t *testing.T) {
	tr := newTestTracker(t, nil, nil)
	before := tr.Snapshot()

	tr.apply(1, Update{Heartbeat: true})

	if after := tr.Snapshot(); after != before {
		t.Fatalf("heartbeat mutated state: %+v -> %+v", before, after)
	}
}

func TestReducerUnknownStageDropped(t *testing.T) {
	tr := newTestTracker(t, nil, nil)

	tr.apply(1, Update{Stage: domain.Stage("mystery"), Progress: 99})

	if st := tr.Snapshot(); st.Stage != domain.StagePending || st.Progress != 0 {
		t.Fatalf("unknown stage mutated state: %+v", st)
	}
}

func TestReducerSingleTerminalCallback(t *testing.T) {
	var completions, failures int
	tr := newTestTracker(t,
		func(string) { completions++ },
		func(string) { failures++ },
	)

	tr.apply(1, Update{Stage: domain.StageCompleted, Progress: 100, ResultReference: "bundle.zip"})
	tr.apply(1, Update{Stage: domain.StageCompleted, Progress: 100, ResultReference: "other.zip"})
	tr.apply(1, Update{Stage: domain.StageFailed, ErrorMessage: "late failure"})

	if completions != 1 {
		t.Fatalf("expected exactly one completion callback, got %d", completions)
	}
	if failures != 0 {
		t.Fatalf("expected no failure callback, got %d", failures)
	}
	if st := tr.Snapshot(); st.ResultReference != "bundle.zip" {
		t.Fatalf("state mutated after terminal: %+v", st)
	}
}

func TestReducerFailureSurfacesServerMessage(t *testing.T) {
	var got string
	tr := newTestTracker(t, nil, func(msg string) { got = msg })

	tr.apply(1, Update{Stage: domain.StageFailed, ErrorMessage: "disk full"})

	if got != "disk full" {
		t.Fatalf("expected server message, got %q", got)
	}
	st := tr.Snapshot()
	if st.IsGenerating {
		t.Fatal("expected IsGenerating false after terminal")
	}
	if st.ErrorMessage != "disk full" {
		t.Fatalf("expected error message in state, got %q", st.ErrorMessage)
	}
}

func TestReducerFailureDefaultsGenericMessage(t *testing.T) {
	var got string
	tr := newTestTracker(t, nil, func(msg string) { got = msg })

	tr.apply(1, Update{Stage: domain.StageFailed})

	if got != genericFailureMessage {
		t.Fatalf("expected generic message, got %q", got)
	}
}

func TestReducerCompletedWithoutResultIsProtocolError(t *testing.T) {
	var completed, failed string
	tr := newTestTracker(t,
		func(ref string) { completed = ref },
		func(msg string) { failed = msg },
	)

	tr.apply(1, Update{Stage: domain.StageCompleted, Progress: 100})

	if completed != "" {
		t.Fatalf("expected no completion, got %q", completed)
	}
	if failed != missingResultMessage {
		t.Fatalf("expected protocol error message, got %q", failed)
	}
	if st := tr.Snapshot(); st.Stage != domain.StageFailed {
		t.Fatalf("expected failed stage, got %s", st.Stage)
	}
}

func TestReducerStaleEpochDropped(t *testing.T) {
	tr := newTestTracker(t, nil, nil)

	tr.apply(0, Update{Stage: domain.StageCompleted, Progress: 100, ResultReference: "stale.zip"})

	if st := tr.Snapshot(); st.Stage != domain.StagePending {
		t.Fatalf("stale epoch mutated state: %+v", st)
	}
}

func TestReducerFailedReachableFromAnyStage(t *testing.T) {
	for _, from := range []domain.Stage{
		domain.StagePending,
		domain.StageProcessing,
		domain.StageRendering,
		domain.StageCompiling,
		domain.StageUploading,
	} {
		var failures int
		tr := newTestTracker(t, nil, func(string) { failures++ })
		tr.apply(1, Update{Stage: from, Progress: domain.StageProgress[from]})
		tr.apply(1, Update{Stage: domain.StageFailed, ErrorMessage: "boom"})
		if failures != 1 {
			t.Fatalf("failed from %s: expected 1 failure callback, got %d", from, failures)
		}
	}
}

func TestReducerStageDisplayFallback(t *testing.T) {
	tr := newTestTracker(t, nil, nil)

	tr.apply(1, Update{Stage: domain.StageRendering, Progress: 40})

	if st := tr.Snapshot(); st.StageDisplay != domain.StageRendering.Display("en") {
		t.Fatalf("expected fallback display, got %q", st.StageDisplay)
	}

	tr2 := newTestTracker(t, nil, nil)
	tr2.apply(1, Update{Stage: domain.StageRendering, Progress: 40, StageDisplay: "Menyusun laporan"})
	if st := tr2.Snapshot(); st.StageDisplay != "Menyusun laporan" {
		t.Fatalf("expected wire display preserved, got %q", st.StageDisplay)
	}
}

func TestDecodePushShapes(t *testing.T) {
	u, err := decodePush([]byte(`{"type":"status","status":"processing","progress":10,"status_display":"Collecting company data"}`))
	if err != nil {
		t.Fatalf("decodePush error: %v", err)
	}
	if u.Heartbeat || u.Stage != domain.StageProcessing || u.Progress != 10 {
		t.Fatalf("unexpected update: %+v", u)
	}

	u, err = decodePush([]byte(`{"type":"heartbeat"}`))
	if err != nil || !u.Heartbeat {
		t.Fatalf("expected heartbeat, got %+v err=%v", u, err)
	}

	u, err = decodePush([]byte(`not json`))
	if err == nil {
		t.Fatal("expected error for unparseable payload")
	}
	if !u.Heartbeat {
		t.Fatal("unparseable payload must degrade to heartbeat")
	}

	u, err = decodePush([]byte(`{"type":"banner"}`))
	if err == nil || !u.Heartbeat {
		t.Fatalf("unknown type must degrade to heartbeat with error, got %+v err=%v", u, err)
	}
}

func TestFromPollNormalization(t *testing.T) {
	u := fromPoll(&client.StatusResponse{
		ID:         "job-1",
		State:      "completed",
		Pct:        100,
		StateLabel: "Completed",
		Artifact:   "reports/job-1/bundle.zip",
	})
	if u.Stage != domain.StageCompleted || u.Progress != 100 || u.ResultReference != "reports/job-1/bundle.zip" {
		t.Fatalf("unexpected update: %+v", u)
	}
}
