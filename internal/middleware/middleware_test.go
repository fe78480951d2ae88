package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"laundry_ledger/pkg/apperrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticAuth struct {
	enabled bool
}

func (a staticAuth) Enabled() bool { return a.enabled }

func (a staticAuth) Authenticate(username, password string) error {
	if username == "operator" && password == "s3cret" {
		return nil
	}
	return errors.New("denied")
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.GET("/orders/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	return r
}

func TestBasicAuth(t *testing.T) {
	r := newRouter(BasicAuth(staticAuth{enabled: true}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/1", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodGet, "/orders/1", nil)
	req.SetBasicAuth("operator", "wrong")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/orders/1", nil)
	req.SetBasicAuth("operator", "s3cret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBasicAuthDisabled(t *testing.T) {
	r := newRouter(BasicAuth(staticAuth{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newRouter(RequestLogger(zap.New(core)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/7", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, generated)

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, generated, entries[0].ContextMap()["request_id"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, "abc-123", entries[1].ContextMap()["request_id"])
}

func TestPrometheusUsesRouteTemplate(t *testing.T) {
	r := newRouter(Prometheus())

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/orders/:id", "200"))
	for _, id := range []string{"1", "2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/"+id, nil))
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/orders/:id", "200"))
	assert.Equal(t, before+2, after)
}

func TestRecordLedgerOperation(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, Outcome(nil))
	assert.Equal(t, OutcomeRejected, Outcome(apperrors.NewValidationError("no")))
	assert.Equal(t, OutcomeRejected, Outcome(apperrors.NewConflictError("stale")))
	assert.Equal(t, OutcomeError, Outcome(apperrors.NewPersistenceError("db", errors.New("down"))))

	before := testutil.ToFloat64(ledgerOperations.WithLabelValues("add_payment", OutcomeRejected))
	RecordLedgerOperation("add_payment", apperrors.NewValidationError("too much"))
	assert.Equal(t, before+1, testutil.ToFloat64(ledgerOperations.WithLabelValues("add_payment", OutcomeRejected)))
}
