package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

func TestRequestLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	log := logrus.NewEntry(logger)

	ok := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	req := httptest.NewRequest("POST", "/api/parts", nil)
	req = req.WithContext(WithClaims(req.Context(), &models.Claims{TenantID: "acme", UserID: "u1"}))
	ok.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, http.StatusCreated, entry.Data["status"])
	assert.Equal(t, "acme", entry.Data["tenant_id"])

	failing := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	failing.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/parts", nil))
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestRecover(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := Recover(logrus.NewEntry(logger))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil map")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/parts", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "handler panic", hook.LastEntry().Message)
}
