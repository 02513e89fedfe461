package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/feedengine/internal/config"
	"github.com/mamadbah2/feedengine/internal/service/reporting"
)

type countingReporter struct{ runs int }

func (c *countingReporter) RunDaily(context.Context) (reporting.Result, error) {
	c.runs++
	return reporting.Result{Batches: 1}, nil
}

type countingFlusher struct{ flushes int }

func (c *countingFlusher) Flush() { c.flushes++ }

func TestNewSchedulerRejectsUnknownTimezone(t *testing.T) {
	_, err := NewScheduler(config.ReportingConfig{CronSchedule: "0 20 * * *", Timezone: "Mars/Olympus"}, nil, nil, nil)

	assert.Error(t, err)
}

func TestStartRegistersJobs(t *testing.T) {
	reporter := &countingReporter{}
	flusher := &countingFlusher{}
	s, err := NewScheduler(config.ReportingConfig{CronSchedule: "0 20 * * *", Timezone: "UTC"}, reporter, flusher, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Equal(t, 2, s.Entries())
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	s, err := NewScheduler(config.ReportingConfig{CronSchedule: "every evening", Timezone: "UTC"}, &countingReporter{}, nil, nil)
	require.NoError(t, err)

	assert.Error(t, s.Start())
}

func TestJobsCallCollaborators(t *testing.T) {
	reporter := &countingReporter{}
	flusher := &countingFlusher{}
	s, err := NewScheduler(config.ReportingConfig{CronSchedule: "0 20 * * *", Timezone: "UTC"}, reporter, flusher, nil)
	require.NoError(t, err)

	s.flushCache()
	s.runDailyReport()

	assert.Equal(t, 1, flusher.flushes)
	assert.Equal(t, 1, reporter.runs)
}
