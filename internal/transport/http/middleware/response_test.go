package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteJSONError_Envelope(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSONError(rr, http.StatusTooManyRequests, "too many requests")

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"too many requests","error_code":429}`, rr.Body.String())
}
