package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"keydesk/internal/models"
)

func newID() string { return uuid.NewString() }

// logActivity appends an audit entry. Failures are logged and swallowed:
// activity history is best-effort and never fails the operation it records.
func logActivity(db *gorm.DB, lg *zap.SugaredLogger, actionType, performedBy string, licenseKey, userName *string, details map[string]any) {
	meta := models.JSONB("{}")
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			meta = models.JSONB(b)
		}
	}
	entry := models.ActivityLog{
		ID:          uuid.NewString(),
		ActionType:  actionType,
		LicenseKey:  licenseKey,
		UserName:    userName,
		PerformedBy: performedBy,
		Details:     meta,
		CreatedAt:   time.Now(),
	}
	if err := db.Create(&entry).Error; err != nil {
		lg.Warnw("activity log write failed", "action", actionType, "error", err)
	}
}

func ListActivityLogs(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var logs []models.ActivityLog
		if err := db.Order("created_at desc").Limit(100).Find(&logs).Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		respondJSON(w, logs)
	}
}

func ClearActivityLogs(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Where("1 = 1").Delete(&models.ActivityLog{}).Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		lg.Infow("activity logs cleared")
		respondJSON(w, map[string]any{"cleared": true})
	}
}
