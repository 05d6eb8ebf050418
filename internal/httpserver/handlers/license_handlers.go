package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"keydesk/internal/auth"
	"keydesk/internal/export"
	"keydesk/internal/metrics"
	"keydesk/internal/models"
	"keydesk/internal/roster"
)

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func matchesFilter(l models.License, filter string, now time.Time) bool {
	expired := l.ExpiresAt != nil && l.ExpiresAt.Before(now)
	linked := strings.TrimSpace(l.HWID) != ""
	switch filter {
	case "active":
		return !l.Used && !expired
	case "used":
		return l.Used
	case "expired":
		return expired
	case "linked":
		return linked
	case "unlinked":
		return !linked
	default:
		return true
	}
}

func filteredLicenses(db *gorm.DB, filter, query string) ([]models.License, error) {
	var all []models.License
	if err := db.Order("created_at desc").Find(&all).Error; err != nil {
		return nil, err
	}
	now := time.Now()
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]models.License, 0, len(all))
	for _, l := range all {
		if !matchesFilter(l, filter, now) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(l.Key), query) &&
			!strings.Contains(strings.ToLower(l.UserName), query) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// ListLicenses returns the collection newest-first. ?filter= narrows by
// status (active|used|expired|linked|unlinked), ?q= searches key and user
// name, mirroring the dashboard's client-side filter.
func ListLicenses(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := filteredLicenses(db, r.URL.Query().Get("filter"), r.URL.Query().Get("q"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		respondJSON(w, out)
	}
}

type licenseReq struct {
	Key       string `json:"key"`
	UserName  string `json:"user_name"`
	ExpiresAt string `json:"expires_at"`
	HWID      string `json:"hwid"`
	Notes     string `json:"notes"`
	Used      bool   `json:"used"`
}

// CreateLicense inserts a license under its user-supplied key. Manager
// sessions are gated by their quota before the store is touched; the usage
// counter moves only after the insert is confirmed, so a failed insert costs
// no quota. Two sessions racing the check can still overrun the quota; that
// is an accepted property of the advisory counter.
func CreateLicense(db *gorm.DB, rst *roster.Roster, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req licenseReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Key = strings.TrimSpace(req.Key)
		if req.Key == "" {
			http.Error(w, "key required", http.StatusBadRequest)
			return
		}
		expires, err := parseDate(req.ExpiresAt)
		if err != nil {
			http.Error(w, "bad expires_at", http.StatusBadRequest)
			return
		}

		claims := auth.FromContext(r.Context())
		if !claims.IsAdmin() {
			if !rst.CanCreate(claims.ManagerID) {
				metrics.QuotaRejections.Inc()
				http.Error(w, "license quota exhausted", http.StatusForbidden)
				return
			}
		}

		now := time.Now()
		lic := models.License{
			Key:         req.Key,
			UserName:    req.UserName,
			ExpiresAt:   expires,
			HWID:        req.HWID,
			Notes:       req.Notes,
			Used:        req.Used,
			CreatedAt:   now,
			LastUpdated: now,
		}
		if err := db.Create(&lic).Error; err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if !claims.IsAdmin() {
			_ = rst.IncrementUsage(r.Context(), claims.ManagerID)
		}
		metrics.LicensesCreated.WithLabelValues(string(claims.Role)).Inc()
		logActivity(db, lg, "license_created", claims.Actor(), &lic.Key, &lic.UserName, nil)
		lg.Infow("license created", "key", lic.Key, "by", claims.Actor())
		respondJSON(w, lic)
	}
}

func GetLicense(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var lic models.License
		if err := db.First(&lic, "key = ?", chi.URLParam(r, "key")).Error; err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		respondJSON(w, lic)
	}
}

func UpdateLicense(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		var req struct {
			UserName  *string `json:"user_name"`
			ExpiresAt *string `json:"expires_at"`
			HWID      *string `json:"hwid"`
			Notes     *string `json:"notes"`
			Used      *bool   `json:"used"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var lic models.License
		if err := db.First(&lic, "key = ?", key).Error; err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if req.UserName != nil {
			lic.UserName = *req.UserName
		}
		if req.ExpiresAt != nil {
			expires, err := parseDate(*req.ExpiresAt)
			if err != nil {
				http.Error(w, "bad expires_at", http.StatusBadRequest)
				return
			}
			lic.ExpiresAt = expires
		}
		if req.HWID != nil {
			lic.HWID = *req.HWID
		}
		if req.Notes != nil {
			lic.Notes = *req.Notes
		}
		if req.Used != nil {
			lic.Used = *req.Used
		}
		lic.LastUpdated = time.Now()
		if err := db.Save(&lic).Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		claims := auth.FromContext(r.Context())
		logActivity(db, lg, "license_updated", claims.Actor(), &lic.Key, &lic.UserName, nil)
		respondJSON(w, lic)
	}
}

// ResetHWID unlinks the license from its device and marks it unused again.
func ResetHWID(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		var lic models.License
		if err := db.First(&lic, "key = ?", key).Error; err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		now := time.Now()
		lic.HWID = ""
		lic.Used = false
		lic.ResetAt = &now
		lic.LastUpdated = now
		if err := db.Save(&lic).Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		claims := auth.FromContext(r.Context())
		logActivity(db, lg, "hwid_reset", claims.Actor(), &lic.Key, &lic.UserName, nil)
		respondJSON(w, lic)
	}
}

// DeleteLicense moves the row into the archive, then removes it. The archive
// row is written first; if it fails the license stays.
func DeleteLicense(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		var lic models.License
		if err := db.First(&lic, "key = ?", key).Error; err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		claims := auth.FromContext(r.Context())
		arch := models.DeletedLicense{
			ID:          newID(),
			OriginalKey: lic.Key,
			UserName:    &lic.UserName,
			ExpiresAt:   lic.ExpiresAt,
			HWID:        &lic.HWID,
			Notes:       &lic.Notes,
			DeletedBy:   claims.Actor(),
			DeletedAt:   time.Now(),
		}
		if err := db.Create(&arch).Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := db.Delete(&models.License{}, "key = ?", key).Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		metrics.LicensesDeleted.Inc()
		logActivity(db, lg, "license_deleted", claims.Actor(), &lic.Key, &lic.UserName, nil)
		lg.Infow("license archived", "key", lic.Key, "by", claims.Actor())
		respondJSON(w, map[string]any{"deleted": true})
	}
}

// LicenseStats mirrors the dashboard stat cards.
func LicenseStats(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var all []models.License
		if err := db.Find(&all).Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		now := time.Now()
		var active, used, expired int
		for _, l := range all {
			isExpired := l.ExpiresAt != nil && l.ExpiresAt.Before(now)
			if isExpired {
				expired++
			}
			if l.Used {
				used++
			}
			if !l.Used && !isExpired {
				active++
			}
		}
		respondJSON(w, map[string]int{
			"total":   len(all),
			"active":  active,
			"used":    used,
			"expired": expired,
		})
	}
}

// ExportLicenses streams the (optionally filtered) list as a download.
// ?format=excel serves the HTML-table flavor; everything else is CSV.
func ExportLicenses(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := filteredLicenses(db, r.URL.Query().Get("filter"), r.URL.Query().Get("q"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		now := time.Now()
		if r.URL.Query().Get("format") == "excel" {
			w.Header().Set("Content-Type", "application/vnd.ms-excel; charset=utf-8")
			w.Header().Set("Content-Disposition", `attachment; filename="licenses.xls"`)
			if err := export.ExcelHTML(w, out, now); err != nil {
				lg.Warnw("excel export failed", "error", err)
			}
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="licenses.csv"`)
		if err := export.CSV(w, out, now); err != nil {
			lg.Warnw("csv export failed", "error", err)
		}
	}
}
