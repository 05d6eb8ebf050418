package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"keydesk/internal/auth"
	"keydesk/internal/models"
	"keydesk/internal/presence"
	"keydesk/internal/util"
)

const (
	staleAfter  = 2 * time.Minute
	onlineGrace = time.Minute
)

// Heartbeat upserts the caller's presence row. First call may omit the
// device id; the generated one comes back in the response and the client
// repeats it on every beat.
func Heartbeat(db *gorm.DB, hub *presence.Hub, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			DeviceID   string `json:"device_id"`
			DeviceName string `json:"device_name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		id := strings.TrimSpace(req.DeviceID)
		if id == "" {
			id = newID()
		}
		name := strings.TrimSpace(req.DeviceName)
		if name == "" {
			name = util.DeviceName(r.UserAgent())
		}
		claims := auth.FromContext(r.Context())
		dev := models.OnlineDevice{
			ID:         id,
			DeviceName: name,
			UserType:   string(claims.Role),
			LastSeen:   time.Now(),
			IsOnline:   true,
		}
		if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&dev).Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hub.Broadcast("heartbeat")
		respondJSON(w, dev)
	}
}

// ListDevices sweeps stale rows, then returns presence newest-first with the
// sub-minute online count.
func ListDevices(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = db.Where("last_seen < ?", time.Now().Add(-staleAfter)).Delete(&models.OnlineDevice{}).Error
		var devices []models.OnlineDevice
		if err := db.Order("last_seen desc").Find(&devices).Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		online := 0
		cutoff := time.Now().Add(-onlineGrace)
		for _, d := range devices {
			if d.LastSeen.After(cutoff) {
				online++
			}
		}
		respondJSON(w, map[string]any{"devices": devices, "online_count": online})
	}
}

func KickDevice(db *gorm.DB, hub *presence.Hub, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := db.Delete(&models.OnlineDevice{}, "id = ?", id).Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hub.Broadcast("kick")
		lg.Infow("device kicked", "id", id)
		respondJSON(w, map[string]any{"kicked": true})
	}
}

// DeviceEvents is a server-sent-event stream that fires whenever presence
// changes, so the devices dialog can refetch instead of polling.
func DeviceEvents(hub *presence.Hub, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		events, cancel := hub.Subscribe()
		defer cancel()

		keepalive := time.NewTicker(30 * time.Second)
		defer keepalive.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case ev := <-events:
				fmt.Fprintf(w, "event: %s\ndata: {}\n\n", ev)
				flusher.Flush()
			case <-keepalive.C:
				fmt.Fprint(w, ": keepalive\n\n")
				flusher.Flush()
			}
		}
	}
}

// BanDevice records a timed ban. Enforcement against connecting clients is
// outside the console; this is the admin-facing list.
func BanDevice(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			DeviceName string  `json:"device_name"`
			Minutes    int     `json:"minutes"`
			Reason     *string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.DeviceName = strings.TrimSpace(req.DeviceName)
		if req.DeviceName == "" || req.Minutes <= 0 {
			http.Error(w, "device_name and positive minutes required", http.StatusBadRequest)
			return
		}
		claims := auth.FromContext(r.Context())
		now := time.Now()
		ban := models.BannedDevice{
			ID:          newID(),
			DeviceName:  req.DeviceName,
			BannedAt:    now,
			BannedUntil: now.Add(time.Duration(req.Minutes) * time.Minute),
			BannedBy:    claims.Actor(),
			Reason:      req.Reason,
		}
		if err := db.Create(&ban).Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		lg.Infow("device banned", "name", ban.DeviceName, "until", ban.BannedUntil)
		respondJSON(w, ban)
	}
}

// ListBans drops expired bans first, then returns the rest newest-first.
func ListBans(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = db.Where("banned_until < ?", time.Now()).Delete(&models.BannedDevice{}).Error
		var bans []models.BannedDevice
		if err := db.Order("banned_at desc").Find(&bans).Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		respondJSON(w, bans)
	}
}

func UnbanDevice(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := db.Delete(&models.BannedDevice{}, "id = ?", id).Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		respondJSON(w, map[string]any{"unbanned": true})
	}
}
