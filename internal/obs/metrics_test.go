package obs

import (
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                   "/",
		"/metrics":                           "/metrics",
		"/api/users/abc/update-roles":        "/api/users/:id/update-roles",
		"/api/users/get-logged-in-user":      "/api/users/get-logged-in-user",
		"/api/records/get-by-id?recordId=r1": "/api/records/get-by-id",
		"/api/users/abc/extra":               "/api/users/abc/extra",
	}
	for input, expected := range cases {
		assert.Equal(t, expected, CanonicalPath(input), "CanonicalPath(%q)", input)
	}
}

func TestInstrumentCountsRequests(t *testing.T) {
	Init()
	Init()
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/users/:id/update-roles", "418"))

	h := Instrument(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/users/u-9/update-roles", nil))

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/users/:id/update-roles", "418"))
	assert.Equal(t, before+1, after)
}

func TestObserveOutcome(t *testing.T) {
	before := testutil.ToFloat64(outcomesTotal.WithLabelValues("login", "NotFound"))
	ObserveOutcome("login", "NotFound")
	assert.Equal(t, before+1, testutil.ToFloat64(outcomesTotal.WithLabelValues("login", "NotFound")))
}

func TestInitBuildInfo(t *testing.T) {
	started := time.Unix(1_700_000_000, 0)
	InitBuildInfo("", "", started)
	InitBuildInfo("1.2.0", "abc123", started)

	assert.Equal(t, 1.0, testutil.ToFloat64(buildInfo.WithLabelValues("1.2.0", "abc123", runtime.Version())))
	assert.Equal(t, 1, testutil.CollectAndCount(buildInfo))
	assert.Equal(t, float64(started.Unix()), testutil.ToFloat64(startTime))
}
