package utils

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSchedulerRejectsBadSpec(t *testing.T) {
	_, err := StartScheduler(Job{Name: "broken", Spec: "every now and then", Run: func() {}})
	assert.Error(t, err)
}

func TestStartSchedulerRunsAndSurvivesPanics(t *testing.T) {
	var runs atomic.Int32
	c, err := StartScheduler(
		Job{Name: "count", Spec: "@every 1s", Run: func() { runs.Add(1) }},
		Job{Name: "explode", Spec: "@every 1s", Run: func() { panic("boom") }},
	)
	require.NoError(t, err)
	defer c.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}
