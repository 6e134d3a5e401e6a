package progress_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/faktur-sorter/internal/progress"
)

func TestEvent_WireShape(t *testing.T) {
	b, err := json.Marshal(progress.LogEvent("hello"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"log","message":"hello"}`, string(b))

	b, err = json.Marshal(progress.ProgressEvent(0))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"progress","percent":0}`, string(b))

	var ev progress.Event
	require.NoError(t, json.Unmarshal([]byte(`{"type":"progress","percent":42}`), &ev))
	assert.Equal(t, progress.ProgressEvent(42), ev)
}

func TestTracker_MonotonicAndClamped(t *testing.T) {
	rec := &progress.Recorder{}
	tr := progress.NewTracker(rec, 0)

	for _, p := range []int{-5, 0, 10, 10, 5, 50, 150, 100} {
		tr.Progress(p)
	}

	assert.Equal(t, []int{0, 10, 50, 100}, rec.Percents())
	assert.Equal(t, 100, tr.Percent())
}

func TestTracker_SuppressesRepeatedLogsInWindow(t *testing.T) {
	rec := &progress.Recorder{}
	now := time.Unix(0, 0)
	tr := progress.NewTracker(rec, 2*time.Second).WithClock(func() time.Time { return now })

	tr.Log("Server ready")
	tr.Log("Server ready")
	now = now.Add(time.Second)
	tr.Log("Server ready")
	tr.Log("Something else")
	tr.Log("Server ready")
	now = now.Add(3 * time.Second)
	tr.Log("Server ready")

	assert.Equal(t, []string{"Server ready", "Something else", "Server ready", "Server ready"}, rec.Messages())
}

func TestTrackers_AreIndependent(t *testing.T) {
	a, b := &progress.Recorder{}, &progress.Recorder{}
	ta := progress.NewTracker(a, time.Minute)
	tb := progress.NewTracker(b, time.Minute)

	ta.Log("started")
	tb.Log("started")
	ta.Progress(90)
	tb.Progress(10)

	assert.Equal(t, []string{"started"}, a.Messages())
	assert.Equal(t, []string{"started"}, b.Messages())
	assert.Equal(t, []int{10}, b.Percents())
}

func TestMulti(t *testing.T) {
	a, b := &progress.Recorder{}, &progress.Recorder{}
	m := progress.Multi{a, nil, b}

	m.Log("x")
	progress.Emit(m, progress.ProgressEvent(7))

	assert.Equal(t, a.Events(), b.Events())
	assert.Len(t, a.Events(), 2)
}

func TestHub_ReplayThenLive(t *testing.T) {
	hub := progress.NewHub(nil)
	rep := hub.Reporter("job-1")
	rep.Log("one")
	rep.Progress(10)

	ch, cancel := hub.Subscribe("job-1")
	defer cancel()

	rep.Progress(20)
	hub.Close("job-1")

	var got []progress.Event
	for ev := range ch {
		got = append(got, ev)
	}
	assert.Equal(t, []progress.Event{
		progress.LogEvent("one"),
		progress.ProgressEvent(10),
		progress.ProgressEvent(20),
	}, got)
}

func TestHub_SubscribeAfterClose(t *testing.T) {
	hub := progress.NewHub(nil)
	hub.Reporter("j").Progress(100)
	hub.Close("j")

	ch, cancel := hub.Subscribe("j")
	defer cancel()

	var got []progress.Event
	for ev := range ch {
		got = append(got, ev)
	}
	assert.Equal(t, []progress.Event{progress.ProgressEvent(100)}, got)
}

func TestHub_JobsAreIsolated(t *testing.T) {
	hub := progress.NewHub(nil)
	hub.Reporter("a").Log("for a")
	hub.Reporter("b").Log("for b")

	assert.Equal(t, []progress.Event{progress.LogEvent("for a")}, hub.History("a"))
	hub.Forget("a")
	assert.Nil(t, hub.History("a"))
	assert.Len(t, hub.History("b"), 1)
}

func TestHub_CancelThenForget(t *testing.T) {
	hub := progress.NewHub(nil)
	_, cancel := hub.Subscribe("j")
	hub.Forget("j")
	assert.NotPanics(t, cancel)
}
