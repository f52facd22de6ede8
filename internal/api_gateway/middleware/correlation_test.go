package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func performCorrelationRequest(t *testing.T, headerID string) (*httptest.ResponseRecorder, string) {
	t.Helper()

	router := gin.New()
	router.Use(CorrelationID())
	var capturedContextID string
	router.GET("/api/v1/providers", func(c *gin.Context) {
		capturedContextID = c.GetString(CorrelationIDKey)
		c.Status(http.StatusOK)
	})

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/providers", nil)
	if headerID != "" {
		req.Header.Set(CorrelationIDHeader, headerID)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr, capturedContextID
}

func TestCorrelationIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("GeneratesCorrelationIDIfNotProvided", func(t *testing.T) {
		rr, contextID := performCorrelationRequest(t, "")

		assert.Equal(t, http.StatusOK, rr.Code)

		headerID := rr.Header().Get(CorrelationIDHeader)
		assert.NotEmpty(t, headerID)
		_, err := uuid.Parse(headerID)
		assert.NoError(t, err, "generated correlation ID should be a valid UUID")

		assert.Equal(t, headerID, contextID, "header and context should carry the same ID")
	})

	t.Run("UsesCorrelationIDIfProvided", func(t *testing.T) {
		providedID := uuid.New().String()
		rr, contextID := performCorrelationRequest(t, providedID)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, providedID, rr.Header().Get(CorrelationIDHeader))
		assert.Equal(t, providedID, contextID)
	})
}

func TestGetCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("ReturnsIDFromContextIfExists", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		expectedID := uuid.New().String()
		c.Set(CorrelationIDKey, expectedID)

		assert.Equal(t, expectedID, GetCorrelationID(c))
	})

	t.Run("ReturnsEmptyStringIfNoIDInContext", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		assert.Empty(t, GetCorrelationID(c))
	})

	t.Run("ReturnsEmptyStringIfIDInContextIsNotString", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(CorrelationIDKey, 12345)

		assert.Empty(t, GetCorrelationID(c))
	})
}
