package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"keydesk/internal/auth"
	"keydesk/internal/session"
)

type loginReq struct {
	Password string `json:"password"`
	Role     string `json:"role"` // "admin" or "manager"
}

// Login runs a credential through the gate. Bad credentials are a 401 with
// the attempts-left hint; an active lockout is a 423 with the minutes left.
func Login(gate *session.Gate, jwtSecret string, sessionTTL time.Duration, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		role := session.RoleAdmin
		if req.Role == string(session.RoleManager) {
			role = session.RoleManager
		}

		res := gate.AttemptLogin(r.Context(), req.Password, role)
		if res.Blocked {
			lg.Infow("login blocked", "role", role, "minutes_left", res.BlockMinutesLeft)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusLocked)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"blocked":            true,
				"block_minutes_left": res.BlockMinutesLeft,
			})
			return
		}
		if !res.OK {
			lg.Infow("login rejected", "role", role, "attempts_left", res.AttemptsLeft)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":         "invalid credentials",
				"attempts_left": res.AttemptsLeft,
			})
			return
		}

		tok, err := auth.Sign(jwtSecret, res.Role, res.ManagerID, sessionTTL)
		if err != nil {
			http.Error(w, "token error", http.StatusInternalServerError)
			return
		}
		lg.Infow("login ok", "role", res.Role, "manager_id", res.ManagerID)
		respondJSON(w, map[string]any{
			"token":        tok,
			"role":         res.Role,
			"manager_id":   res.ManagerID,
			"manager_name": res.ManagerName,
			"time_left":    int(sessionTTL.Seconds()),
		})
	}
}

// AuthStatus exposes the gate snapshot the login screen polls: lockout,
// attempts left, and the session countdown.
func AuthStatus(gate *session.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gate.CheckBlockStatus(r.Context())
		respondJSON(w, gate.Status())
	}
}

func Logout(gate *session.Gate, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gate.Logout(r.Context(), false)
		lg.Infow("logout")
		respondJSON(w, map[string]any{"logged_out": true})
	}
}
