package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"keydesk/internal/auth"
	"keydesk/internal/models"
)

func ListDeletedLicenses(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var archived []models.DeletedLicense
		if err := db.Order("deleted_at desc").Find(&archived).Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		respondJSON(w, archived)
	}
}

// RestoreDeletedLicense re-inserts the archived license under its original
// key and drops the archive row. Restoring fails if the key is live again.
func RestoreDeletedLicense(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var arch models.DeletedLicense
		if err := db.First(&arch, "id = ?", id).Error; err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		now := time.Now()
		lic := models.License{
			Key:         arch.OriginalKey,
			ExpiresAt:   arch.ExpiresAt,
			CreatedAt:   now,
			LastUpdated: now,
		}
		if arch.UserName != nil {
			lic.UserName = *arch.UserName
		}
		if arch.HWID != nil {
			lic.HWID = *arch.HWID
		}
		if arch.Notes != nil {
			lic.Notes = *arch.Notes
		}
		if err := db.Create(&lic).Error; err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if err := db.Delete(&models.DeletedLicense{}, "id = ?", id).Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		claims := auth.FromContext(r.Context())
		logActivity(db, lg, "license_restored", claims.Actor(), &lic.Key, &lic.UserName, nil)
		lg.Infow("license restored", "key", lic.Key)
		respondJSON(w, lic)
	}
}

func PurgeDeletedLicense(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := db.Delete(&models.DeletedLicense{}, "id = ?", id).Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		respondJSON(w, map[string]any{"purged": true})
	}
}
