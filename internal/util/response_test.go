package util

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordedContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	return c, rec
}

func TestSendSuccess(t *testing.T) {
	c, rec := recordedContext(t)
	SendSuccess(c, gin.H{"status": "healthy"})

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}

func TestSendCustomError(t *testing.T) {
	c, rec := recordedContext(t)
	SendCustomError(c, http.StatusServiceUnavailable, ErrCodeInternal, "Redis connection failed")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInternal, resp.Error.Code)
}

func TestAbortWithCustomError(t *testing.T) {
	c, rec := recordedContext(t)
	AbortWithCustomError(c, http.StatusTooManyRequests, ErrCodeRateLimit, "slow down")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.True(t, c.IsAborted())
}
