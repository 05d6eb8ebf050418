package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"keydesk/internal/roster"
)

// managerView is the roster entry as the admin UI sees it: everything but
// the credential hash, plus the derived remaining quota.
type managerView struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	MaxLicenses     int       `json:"max_licenses"`
	CreatedLicenses int       `json:"created_licenses"`
	Remaining       int       `json:"remaining"`
	CreatedAt       time.Time `json:"created_at"`
	IsActive        bool      `json:"is_active"`
}

func toView(rst *roster.Roster, m roster.Manager) managerView {
	return managerView{
		ID:              m.ID,
		Name:            m.Name,
		MaxLicenses:     m.MaxLicenses,
		CreatedLicenses: m.CreatedLicenses,
		Remaining:       rst.Remaining(m.ID),
		CreatedAt:       m.CreatedAt,
		IsActive:        m.IsActive,
	}
}

func ListManagers(rst *roster.Roster, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		managers := rst.List()
		out := make([]managerView, 0, len(managers))
		for _, m := range managers {
			out = append(out, toView(rst, m))
		}
		respondJSON(w, out)
	}
}

// CreateManager adds a roster entry. The password-uniqueness check here is
// advisory: it runs before the add and nothing in the roster enforces it.
func CreateManager(rst *roster.Roster, defaultQuota int, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name        string `json:"name"`
			Password    string `json:"password"`
			MaxLicenses *int   `json:"max_licenses"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" || req.Password == "" {
			http.Error(w, "name/password required", http.StatusBadRequest)
			return
		}
		if rst.PasswordInUse(req.Password) {
			http.Error(w, "password already in use", http.StatusBadRequest)
			return
		}
		quota := defaultQuota
		if req.MaxLicenses != nil {
			quota = *req.MaxLicenses
		}
		if quota < 0 {
			http.Error(w, "max_licenses must be >= 0", http.StatusBadRequest)
			return
		}
		m, err := rst.Add(r.Context(), req.Name, req.Password, quota)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		lg.Infow("manager added", "id", m.ID, "name", m.Name, "quota", quota)
		respondJSON(w, toView(rst, m))
	}
}

func UpdateManager(rst *roster.Roster, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req struct {
			Name            *string `json:"name"`
			Password        *string `json:"password"`
			MaxLicenses     *int    `json:"max_licenses"`
			CreatedLicenses *int    `json:"created_licenses"`
			IsActive        *bool   `json:"is_active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, ok := rst.GetByID(id); !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		err := rst.Update(r.Context(), id, roster.Patch{
			Name:            req.Name,
			Password:        req.Password,
			MaxLicenses:     req.MaxLicenses,
			CreatedLicenses: req.CreatedLicenses,
			IsActive:        req.IsActive,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		m, _ := rst.GetByID(id)
		respondJSON(w, toView(rst, m))
	}
}

// DeleteManager removes the entry outright. Licenses the manager already
// created are left alone.
func DeleteManager(rst *roster.Roster, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := rst.Remove(r.Context(), id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		lg.Infow("manager removed", "id", id)
		respondJSON(w, map[string]any{"deleted": true})
	}
}
