package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordIngest(t *testing.T) {
	before := testutil.ToFloat64(ingests.WithLabelValues(OutcomeRoutingError))
	RecordIngest(OutcomeRoutingError)
	assert.Equal(t, before+1, testutil.ToFloat64(ingests.WithLabelValues(OutcomeRoutingError)))
}

func TestRecordDial(t *testing.T) {
	okBefore := testutil.ToFloat64(poolDials.WithLabelValues("mongodb", "ok"))
	errBefore := testutil.ToFloat64(poolDials.WithLabelValues("mongodb", "error"))

	RecordDial("mongodb", 15*time.Millisecond, nil)
	RecordDial("mongodb", time.Second, errors.New("refused"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(poolDials.WithLabelValues("mongodb", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(poolDials.WithLabelValues("mongodb", "error")))
}

func TestInstrumentHandler(t *testing.T) {
	h := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	before := testutil.ToFloat64(httpRequests.WithLabelValues("POST", "/postpipe/ingest", "422"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/postpipe/ingest", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("POST", "/postpipe/ingest", "422")))
}

func TestRegisterPoolSize_Replaces(t *testing.T) {
	RegisterPoolSize(func() int { return 3 })
	assert.Equal(t, float64(3), testutil.ToFloat64(poolClients))

	RegisterPoolSize(func() int { return 7 })
	assert.Equal(t, float64(7), testutil.ToFloat64(poolClients))
}

func TestHandler(t *testing.T) {
	RegisterPoolSize(func() int { return 3 })
	RegisterPoolSize(func() int { return 99 })
	RecordResolution("rule")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "postpipe_pool_clients 99", "the latest pool is reported")
	assert.True(t, strings.Contains(body, `postpipe_routing_resolutions_total{tier="rule"}`))
}
