package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/pneumoscan/models"
	"github.com/cppla/pneumoscan/services"
)

func newStatsRouter(t *testing.T) (*gin.Engine, *gorm.DB, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	core, logs := observer.New(zap.ErrorLevel)
	stats := NewStatsController(db, services.NewUserService(db, 0), services.NewPostService(db, nil), zap.New(core))

	r := gin.New()
	r.GET("/stats", stats.GetStats)
	return r, db, logs
}

func TestGetStatsCountsScansByLabel(t *testing.T) {
	r, db, logs := newStatsRouter(t)
	require.NoError(t, db.Create(&models.Scan{Key: "a", Label: "NORMAL"}).Error)
	require.NoError(t, db.Create(&models.Scan{Key: "b", Label: "PNEUMONIA"}).Error)
	require.NoError(t, db.Create(&models.Scan{Key: "c", Label: "PNEUMONIA"}).Error)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Scans map[string]int64 `json:"scans"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]int64{"NORMAL": 1, "PNEUMONIA": 2}, body.Data.Scans)
	assert.Zero(t, logs.Len())
}

func TestGetStatsLogsStorageFailures(t *testing.T) {
	r, db, logs := newStatsRouter(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusOK, w.Code, "counters fall back to 0")
	assert.Contains(t, w.Body.String(), `"user_count":0`)

	assert.Equal(t, 1, logs.FilterMessage("count users failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("count posts failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("count scans by label failed").Len())
}
