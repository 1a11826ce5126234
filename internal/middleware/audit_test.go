package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestAuditRecordsSuccessfulMutations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	router := gin.New()
	router.POST("/slots/batch-assignments/", Audit(zap.New(core), "save_batch", "teacher_slot"), func(c *gin.Context) {
		AuditFields(c, zap.Int("success_count", 2))
		AuditFields(c, zap.Int("total_operations", 3))
		c.Status(http.StatusOK)
	})
	router.POST("/fails", Audit(zap.New(core), "save_batch", "teacher_slot"), func(c *gin.Context) {
		c.Status(http.StatusConflict)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/slots/batch-assignments/", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/fails", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "audit", entries[0].LoggerName)
	assert.Equal(t, "save_batch", fields["action"])
	assert.Equal(t, "/slots/batch-assignments/", fields["path"])
	assert.Equal(t, int64(2), fields["success_count"])
	assert.Equal(t, int64(3), fields["total_operations"])
}

func TestAuditToleratesNilLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/x", Audit(nil, "a", "r"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
