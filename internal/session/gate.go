// Package session implements the console's login gate: attempt counting,
// the timed lockout that follows repeated failures, and the bounded-lifetime
// authenticated session. State lives in the gate and is mirrored into the
// key-value store so it survives a process restart.
//
// Lockout and attempt state are system-wide, not per principal: five failed
// attempts block every further login until the window lifts, matching the
// console this service fronts.
package session

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"keydesk/internal/kv"
	"keydesk/internal/metrics"
	"keydesk/internal/roster"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
)

const (
	keyLoggedIn      = "logged_in"
	keySessionStart  = "session_start"
	keyLoginAttempts = "login_attempts"
	keyBlocked       = "system_blocked"
	keyUserType      = "user_type"
	keyManagerID     = "manager_id"
)

type Config struct {
	AdminSecret    string
	MaxAttempts    int
	SessionTimeout time.Duration
	BlockTime      time.Duration
}

type Gate struct {
	cfg    Config
	store  kv.Store
	roster *roster.Roster
	now    func() time.Time

	mu            sync.Mutex
	loggedIn      bool
	loginAttempts int
	blockedUntil  time.Time // zero when not blocked
	sessionStart  time.Time
	userType      Role
	managerID     string
	timeLeft      int // seconds until forced logout
}

// Result is what a login attempt resolves to. Bad credentials are a Result,
// never an error.
type Result struct {
	OK               bool
	Role             Role
	ManagerID        string
	ManagerName      string
	AttemptsLeft     int
	Blocked          bool
	BlockMinutesLeft int
}

// Status is the gate snapshot exposed to the login screen.
type Status struct {
	LoggedIn         bool   `json:"logged_in"`
	Role             Role   `json:"role,omitempty"`
	ManagerID        string `json:"manager_id,omitempty"`
	AttemptsLeft     int    `json:"attempts_left"`
	Blocked          bool   `json:"blocked"`
	BlockMinutesLeft int    `json:"block_minutes_left"`
	TimeLeft         int    `json:"time_left"`
}

type blockRecord struct {
	Until int64 `json:"until"` // epoch milliseconds
}

func NewGate(cfg Config, store kv.Store, r *roster.Roster) *Gate {
	return &Gate{
		cfg:      cfg,
		store:    store,
		roster:   r,
		now:      time.Now,
		timeLeft: int(cfg.SessionTimeout.Seconds()),
	}
}

// CheckBlockStatus lazily evaluates the persisted lockout. An expired block
// clears both the block record and the attempt counter; an absent one loads
// any leftover attempt counter so failures stay sticky across restarts.
func (g *Gate) CheckBlockStatus(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.checkBlockLocked(ctx)
}

func (g *Gate) checkBlockLocked(ctx context.Context) bool {
	if raw, ok, _ := g.store.Get(ctx, keyBlocked); ok {
		var rec blockRecord
		if json.Unmarshal([]byte(raw), &rec) == nil {
			until := time.UnixMilli(rec.Until)
			if g.now().Before(until) {
				g.blockedUntil = until
				return true
			}
		}
		// Expired (or unreadable) block: full reset.
		_ = g.store.Delete(ctx, keyBlocked)
		_ = g.store.Delete(ctx, keyLoginAttempts)
		g.blockedUntil = time.Time{}
		g.loginAttempts = 0
		return false
	}
	g.blockedUntil = time.Time{}
	if raw, ok, _ := g.store.Get(ctx, keyLoginAttempts); ok {
		if n, err := strconv.Atoi(raw); err == nil {
			g.loginAttempts = n
		}
	}
	return false
}

// AttemptLogin resolves a credential on the chosen role path. While blocked
// every attempt is rejected without touching the counter, correct secret or
// not.
func (g *Gate) AttemptLogin(ctx context.Context, password string, role Role) Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.checkBlockLocked(ctx) {
		metrics.LoginAttempts.WithLabelValues(string(role), "blocked").Inc()
		return Result{Blocked: true, BlockMinutesLeft: g.blockMinutesLeftLocked(), AttemptsLeft: g.attemptsLeftLocked()}
	}

	var (
		ok  bool
		mgr roster.Manager
	)
	switch role {
	case RoleManager:
		mgr, ok = g.roster.ValidateLogin(password)
	default:
		role = RoleAdmin
		ok = subtle.ConstantTimeCompare([]byte(password), []byte(g.cfg.AdminSecret)) == 1
	}

	if !ok {
		metrics.LoginAttempts.WithLabelValues(string(role), "failure").Inc()
		g.loginAttempts++
		_ = g.store.Set(ctx, keyLoginAttempts, strconv.Itoa(g.loginAttempts))
		if g.loginAttempts >= g.cfg.MaxAttempts {
			g.blockedUntil = g.now().Add(g.cfg.BlockTime)
			b, _ := json.Marshal(blockRecord{Until: g.blockedUntil.UnixMilli()})
			_ = g.store.Set(ctx, keyBlocked, string(b))
			metrics.Lockouts.Inc()
			return Result{Blocked: true, BlockMinutesLeft: g.blockMinutesLeftLocked()}
		}
		return Result{AttemptsLeft: g.attemptsLeftLocked()}
	}
	metrics.LoginAttempts.WithLabelValues(string(role), "success").Inc()

	now := g.now()
	g.loggedIn = true
	g.loginAttempts = 0
	g.blockedUntil = time.Time{}
	g.sessionStart = now
	g.userType = role
	g.managerID = mgr.ID
	g.timeLeft = int(g.cfg.SessionTimeout.Seconds())

	_ = g.store.Set(ctx, keyLoggedIn, "true")
	_ = g.store.Set(ctx, keySessionStart, strconv.FormatInt(now.UnixMilli(), 10))
	_ = g.store.Set(ctx, keyUserType, string(role))
	if role == RoleManager {
		_ = g.store.Set(ctx, keyManagerID, mgr.ID)
	} else {
		_ = g.store.Delete(ctx, keyManagerID)
	}
	_ = g.store.Delete(ctx, keyLoginAttempts)
	_ = g.store.Delete(ctx, keyBlocked)

	return Result{OK: true, Role: role, ManagerID: mgr.ID, ManagerName: mgr.Name, AttemptsLeft: g.cfg.MaxAttempts}
}

// RestoreSession rebuilds the logged-in state after a restart. The boundary
// is exclusive: a session exactly at the timeout is expired.
func (g *Gate) RestoreSession(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	flag, ok, _ := g.store.Get(ctx, keyLoggedIn)
	startRaw, ok2, _ := g.store.Get(ctx, keySessionStart)
	if !ok || !ok2 || flag != "true" {
		return false
	}
	ms, err := strconv.ParseInt(startRaw, 10, 64)
	if err != nil {
		return false
	}
	start := time.UnixMilli(ms)
	elapsed := g.now().Sub(start)
	if elapsed >= g.cfg.SessionTimeout {
		g.clearSessionLocked(ctx)
		return false
	}

	role := RoleAdmin
	if raw, ok, _ := g.store.Get(ctx, keyUserType); ok && Role(raw) == RoleManager {
		role = RoleManager
	}
	managerID := ""
	if role == RoleManager {
		id, ok, _ := g.store.Get(ctx, keyManagerID)
		if _, exists := g.roster.GetByID(id); !ok || !exists {
			g.clearSessionLocked(ctx)
			return false
		}
		managerID = id
	}

	g.loggedIn = true
	g.sessionStart = start
	g.userType = role
	g.managerID = managerID
	g.timeLeft = int((g.cfg.SessionTimeout - elapsed).Seconds())
	return true
}

// Tick advances the session countdown by one second. At zero the session is
// force-expired as a benign timeout.
func (g *Gate) Tick(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.loggedIn {
		return
	}
	g.timeLeft--
	if g.timeLeft <= 0 {
		metrics.SessionTimeouts.Inc()
		g.logoutLocked(ctx, true)
	}
}

// Run drives Tick at 1 Hz until the context is cancelled.
func (g *Gate) Run(ctx context.Context) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			g.Tick(ctx)
		}
	}
}

func (g *Gate) Logout(ctx context.Context, timeout bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.logoutLocked(ctx, timeout)
}

func (g *Gate) logoutLocked(ctx context.Context, timeout bool) {
	g.clearSessionLocked(ctx)
	if timeout {
		// A timeout is benign, not punitive: the attempt counter goes too.
		_ = g.store.Delete(ctx, keyLoginAttempts)
		g.loginAttempts = 0
	}
	g.loggedIn = false
	g.sessionStart = time.Time{}
	g.userType = ""
	g.managerID = ""
	g.timeLeft = int(g.cfg.SessionTimeout.Seconds())
}

func (g *Gate) clearSessionLocked(ctx context.Context) {
	_ = g.store.Delete(ctx, keyLoggedIn)
	_ = g.store.Delete(ctx, keySessionStart)
	_ = g.store.Delete(ctx, keyUserType)
	_ = g.store.Delete(ctx, keyManagerID)
}

func (g *Gate) LoggedIn() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loggedIn
}

func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Status{
		LoggedIn:         g.loggedIn,
		Role:             g.userType,
		ManagerID:        g.managerID,
		AttemptsLeft:     g.attemptsLeftLocked(),
		Blocked:          g.isBlockedLocked(),
		BlockMinutesLeft: g.blockMinutesLeftLocked(),
		TimeLeft:         g.timeLeft,
	}
}

func (g *Gate) attemptsLeftLocked() int {
	left := g.cfg.MaxAttempts - g.loginAttempts
	if left < 0 {
		return 0
	}
	return left
}

func (g *Gate) isBlockedLocked() bool {
	return !g.blockedUntil.IsZero() && g.now().Before(g.blockedUntil)
}

func (g *Gate) blockMinutesLeftLocked() int {
	if !g.isBlockedLocked() {
		return 0
	}
	ms := g.blockedUntil.Sub(g.now()).Milliseconds()
	return int((ms + 59999) / 60000)
}
