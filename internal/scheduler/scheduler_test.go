package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OHLCPipeline/internal/metrics"
	"OHLCPipeline/internal/pipeline"
)

type fakeRunner struct {
	calls atomic.Int32
	block chan struct{}
}

func (f *fakeRunner) Run(context.Context) *pipeline.Summary {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	now := time.Now()
	return &pipeline.Summary{
		RunID:    "r",
		Started:  now,
		Finished: now,
		Outcomes: []pipeline.Outcome{{Ticker: "AAPL", Status: pipeline.StatusSucceeded}},
	}
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []string
	err  error
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, text)
	return f.err
}

func TestRunNow_NotifiesAndWritesMetrics(t *testing.T) {
	runner := &fakeRunner{}
	sender := &fakeSender{}
	s := NewScheduler(context.Background(), runner, sender, nil)
	s.Metrics = metrics.New()
	s.MetricsPath = filepath.Join(t.TempDir(), "etl.prom")

	sum := s.RunNow()

	require.NotNil(t, sum)
	assert.Same(t, sum, s.Last())
	require.Len(t, sender.msgs, 1)
	assert.Contains(t, sender.msgs[0], "Succeeded: 1 / 1")
	_, err := os.Stat(s.MetricsPath)
	assert.NoError(t, err)
}

func TestRunNow_NotifierErrorIsLogged(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeRunner{}, &fakeSender{err: errors.New("offline")}, nil)
	assert.NotNil(t, s.RunNow())
}

func TestRunNow_SkipsWhileRunning(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	s := NewScheduler(context.Background(), runner, nil, nil)

	done := make(chan *pipeline.Summary)
	go func() { done <- s.RunNow() }()
	require.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, time.Millisecond)

	assert.Nil(t, s.RunNow())
	close(runner.block)
	assert.NotNil(t, <-done)
	assert.Equal(t, int32(1), runner.calls.Load())
}

func TestRegister(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeRunner{}, nil, nil)
	assert.Error(t, s.Register("not a cron"))
	assert.True(t, s.Next().IsZero())

	require.NoError(t, s.Register("0 30 22 * * 1-5"))
	s.Start()
	defer s.Stop()
	assert.True(t, s.Next().After(time.Now()))
}

func TestHandleCommand(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeRunner{}, nil, nil)
	assert.Equal(t, "No run has completed yet.", s.HandleCommand("/status"))
	assert.Contains(t, s.HandleCommand("hello"), "/run")

	s.RunNow()
	assert.Contains(t, s.HandleCommand("/STATUS"), "Succeeded: 1 / 1")
}

func TestRestore(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeRunner{}, nil, nil)
	prev := &pipeline.Summary{RunID: "old"}
	s.Restore(prev)
	assert.Same(t, prev, s.Last())

	s.RunNow()
	s.Restore(prev)
	assert.Equal(t, "r", s.Last().RunID)
}
