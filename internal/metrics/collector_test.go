package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counts(t *testing.T) {
	c := NewCollector("test", nil)

	c.LinkCreated(true)
	c.LinkCreated(false)
	c.LinkCreated(false)
	c.CreateFailed("conflict")
	c.Redirect(OutcomeFound)
	c.Redirect(OutcomeExpired)
	c.ObserveClick(nil)
	c.ObserveClick(errors.New("boom"))
	c.SetDestinationsDown(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.linksCreated.WithLabelValues("custom")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.linksCreated.WithLabelValues("generated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.createFailures.WithLabelValues("conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.redirects.WithLabelValues(OutcomeExpired)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.clicksRecorded))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.clickFailures))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.destinationsDown))

	count, err := testutil.GatherAndCount(c.Registry())
	require.NoError(t, err)
	assert.Equal(t, 8, count)
}

func TestCollector_NilIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.LinkCreated(true)
		c.CreateFailed("x")
		c.Redirect(OutcomeFound)
		c.ObserveClick(nil)
		c.SetDestinationsDown(1)
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("", nil)
	c.Redirect(OutcomeNotFound)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `shortlinks_redirects_total{outcome="not_found"} 1`)
}
