package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InstancesAreIndependent(t *testing.T) {
	t.Parallel()

	a, b := New(), New()
	a.Subscriptions.WithLabelValues(ResultOK).Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Subscriptions.WithLabelValues(ResultOK)))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Subscriptions.WithLabelValues(ResultOK)))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	t.Parallel()

	m := New()
	m.IssuesSent.Add(3)
	m.ObservePasswordVerify(0.2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "newsletter_issue_emails_sent_total 3")
	assert.Contains(t, string(body), "newsletter_password_verify_seconds_count 1")
}
