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

func TestMetrics_Counters(t *testing.T) {
	m := New("barberbook")

	m.ObserveLogin("success")
	m.ObserveLogin("invalid_credentials")
	m.ObserveLogin("invalid_credentials")
	m.ObserveRegistration("success")
	m.ObserveTokens("refresh", "error")
	m.ObserveIPBlock()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthLoginsTotal.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthLoginsTotal.WithLabelValues("invalid_credentials")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthRegistrationsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokensIssuedTotal.WithLabelValues("refresh", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IPBlocksTotal))
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	a := New("a")
	b := New("b")

	a.ObserveIPBlock()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.IPBlocksTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.IPBlocksTotal))
}

func TestMetrics_Handler(t *testing.T) {
	m := New("barberbook")
	m.ObserveLogin("account_locked")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `auth_logins_total{result="account_locked",service="barberbook"} 1`)
}
