package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbright/daytrade/backend/pkg/config"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
	runs     atomic.Int32
	err      error
	done     chan struct{}
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }

func (j *stubJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.done != nil {
		close(j.done)
		j.done = nil
	}
	return j.err
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error", LogFormat: "json"})
}

func newStubJob(name string) *stubJob {
	return &stubJob{name: name, schedule: "0 0 0 1 1 *", done: make(chan struct{})}
}

func TestAddJobRejectsDuplicates(t *testing.T) {
	s := New(testLogger())

	require.NoError(t, s.AddJob(newStubJob("alpha")))
	err := s.AddJob(newStubJob("alpha"))

	assert.ErrorContains(t, err, "already exists")
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(testLogger())

	err := s.AddJob(&stubJob{name: "broken", schedule: "not a cron line"})
	assert.Error(t, err)
}

func TestRunJobExecutesImmediately(t *testing.T) {
	s := New(testLogger())
	job := newStubJob("manual")
	done := job.done
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("manual"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}
	assert.Equal(t, int32(1), job.runs.Load())
}

func TestRunJobUnknownName(t *testing.T) {
	s := New(testLogger())
	assert.ErrorContains(t, s.RunJob("ghost"), "not found")
}

func TestRunJobRecordsHistory(t *testing.T) {
	s := New(testLogger())
	job := newStubJob("tracked")
	done := job.done
	require.NoError(t, s.AddJob(job))
	require.NoError(t, s.RunJob("tracked"))
	<-done

	// runJob appends history after Run returns; poll briefly.
	var history *JobHistory
	require.Eventually(t, func() bool {
		h, err := s.GetJobHistory("tracked")
		if err != nil || len(h.Results) == 0 {
			return false
		}
		history = h
		return true
	}, 2*time.Second, 10*time.Millisecond)

	result := history.Results[0]
	assert.Equal(t, "tracked", result.JobName)
	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
}

func TestGetJobStats(t *testing.T) {
	s := New(testLogger())
	job := newStubJob("stat")
	done := job.done
	require.NoError(t, s.AddJob(job))
	require.NoError(t, s.RunJob("stat"))
	<-done

	require.Eventually(t, func() bool {
		return s.GetJobStats()["stat"].TotalRuns == 1
	}, 2*time.Second, 10*time.Millisecond)

	stats := s.GetJobStats()["stat"]
	assert.Equal(t, 1, stats.SuccessCount)
	assert.Equal(t, 0, stats.FailureCount)
	assert.Equal(t, 1.0, stats.SuccessRate)
	assert.NotNil(t, stats.LastRun)
	assert.NotNil(t, stats.LastSuccess)
	assert.Nil(t, stats.LastFailure)
}

func TestGetAllJobs(t *testing.T) {
	s := New(testLogger())
	require.NoError(t, s.AddJob(newStubJob("a")))
	require.NoError(t, s.AddJob(newStubJob("b")))

	assert.ElementsMatch(t, []string{"a", "b"}, s.GetAllJobs())
}

func TestJobHistoryTrimsOldResults(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 150; i++ {
		h.AddResult(JobResult{JobName: "x", Success: i%2 == 0})
	}

	assert.Len(t, h.Results, 100)
}

func TestJobHistorySuccessRate(t *testing.T) {
	h := &JobHistory{}
	h.AddResult(JobResult{Success: true})
	h.AddResult(JobResult{Success: true})
	h.AddResult(JobResult{Success: false, Error: "boom"})

	assert.InDelta(t, 2.0/3.0, h.GetSuccessRate(), 1e-9)
	assert.Len(t, h.GetFailedResults(), 1)
	assert.Len(t, h.GetLatestResults(2), 2)
}

func TestJobHistoryEmpty(t *testing.T) {
	h := &JobHistory{}
	assert.Zero(t, h.GetSuccessRate())
	assert.Empty(t, h.GetLatestResults(5))
}
