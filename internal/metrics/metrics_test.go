package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersInstruments(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := New(reg)
	require.NotNil(t, c)

	c.ObserveToken("incoming")
	c.ObserveNotUnderstood()
	c.ObserveCHAPOutcome("success")
	c.ObserveStatus("ok")
	c.ObserveParseDuration(5 * time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilCollector_IsANoOp(t *testing.T) {
	t.Parallel()

	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveToken("incoming")
		c.ObserveNotUnderstood()
		c.ObserveCHAPOutcome("fail")
		c.ObserveStatus("auth_failed")
		c.ObserveParseDuration(time.Millisecond)
	})
}
