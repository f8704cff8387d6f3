package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOperation(t *testing.T) {
	pm, err := NewPrometheusMetrics(nil, nil)
	require.NoError(t, err)

	pm.RecordOperation("k-anonymity", StatusSuccess, 10*time.Millisecond)
	pm.RecordOperation("k-anonymity", StatusSuccess, 20*time.Millisecond)
	pm.RecordOperation("k-anonymity", StatusError, time.Millisecond)
	pm.AddRecordsProcessed(25)
	pm.AddRecordsProcessed(-3)

	assert.Equal(t, 2.0, testutil.ToFloat64(pm.operationsTotal.WithLabelValues("k-anonymity", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.operationsTotal.WithLabelValues("k-anonymity", StatusError)))
	assert.Equal(t, 25.0, testutil.ToFloat64(pm.recordsProcessed))
}

func TestScoresAreGauges(t *testing.T) {
	pm, err := NewPrometheusMetrics(nil, nil)
	require.NoError(t, err)

	pm.SetRiskScore("prosecutor", 0.3)
	pm.SetRiskScore("prosecutor", 0.1)
	pm.SetUtilityScore(0.92)
	pm.SetInformationLoss("differential-privacy", 0.1)

	assert.Equal(t, 0.1, testutil.ToFloat64(pm.riskScore.WithLabelValues("prosecutor")))
	assert.Equal(t, 0.92, testutil.ToFloat64(pm.utilityScore))
	assert.Equal(t, 0.1, testutil.ToFloat64(pm.informationLoss.WithLabelValues("differential-privacy")))
}

func TestHandlerExposesNamespace(t *testing.T) {
	pm, err := NewPrometheusMetrics(nil, nil)
	require.NoError(t, err)
	pm.RecordOperation("risk-assessment", StatusSuccess, time.Millisecond)

	rec := httptest.NewRecorder()
	pm.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "sdc_operations_total"))
}

func TestSeparateRegistries(t *testing.T) {
	_, err := NewPrometheusMetrics(nil, nil)
	require.NoError(t, err)
	_, err = NewPrometheusMetrics(nil, nil)
	assert.NoError(t, err)
}
