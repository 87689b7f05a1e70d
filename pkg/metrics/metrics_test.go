package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	a := NewMetrics("clinic")
	b := NewMetrics("clinic")

	a.TransitionsTotal.WithLabelValues("pay", "accepted").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.TransitionsTotal.WithLabelValues("pay", "accepted")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.TransitionsTotal.WithLabelValues("pay", "accepted")))
}
