package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSetAggregates(t *testing.T) {
	SetAggregates("metrics-test", 5, 3, 2, 4, 1)

	assert.InDelta(t, 5, testutil.ToFloat64(Hosts.WithLabelValues("metrics-test", "total")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(Hosts.WithLabelValues("metrics-test", "offline")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(Hosts.WithLabelValues("metrics-test", "unknown")), 0)
}

func TestObservePollAndForget(t *testing.T) {
	ObservePoll("metrics-forget", "published", 20*time.Millisecond)
	ObservePoll("metrics-forget", "failed", 5*time.Millisecond)
	assert.InDelta(t, 1, testutil.ToFloat64(PollTotal.WithLabelValues("metrics-forget", "failed")), 0)

	ForgetSource("metrics-forget")
	assert.InDelta(t, 0, testutil.ToFloat64(PollTotal.WithLabelValues("metrics-forget", "failed")), 0)
}

func TestRegistryGathers(t *testing.T) {
	SetAggregates("metrics-gather", 1, 1, 0, 0, 1)
	families, err := Registry.Gather()
	assert.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["lanwatch_hosts"])
}
