// Package roster keeps the delegated-manager list: who may log in besides
// the admin, and how many licenses each of them may still create. The whole
// roster is mirrored into the key-value store as one JSON document; every
// mutation rewrites it.
package roster

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"keydesk/internal/kv"
)

const storageKey = "managers"

type Manager struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	PasswordHash    string    `json:"password_hash"`
	MaxLicenses     int       `json:"max_licenses"`
	CreatedLicenses int       `json:"created_licenses"`
	CreatedAt       time.Time `json:"created_at"`
	IsActive        bool      `json:"is_active"`
}

// Patch carries partial updates for Update. Nil fields are left untouched.
type Patch struct {
	Name            *string
	Password        *string
	MaxLicenses     *int
	CreatedLicenses *int
	IsActive        *bool
}

type Roster struct {
	store kv.Store
	now   func() time.Time

	mu       sync.Mutex
	managers []Manager
}

func New(store kv.Store) *Roster {
	return &Roster{store: store, now: time.Now}
}

// Load reads the persisted roster. Call once at startup; a missing key
// leaves the roster empty.
func (r *Roster) Load(ctx context.Context) error {
	raw, ok, err := r.store.Get(ctx, storageKey)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	var managers []Manager
	if err := json.Unmarshal([]byte(raw), &managers); err != nil {
		return err
	}
	r.mu.Lock()
	r.managers = managers
	r.mu.Unlock()
	return nil
}

func (r *Roster) persist(ctx context.Context) error {
	b, err := json.Marshal(r.managers)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, storageKey, string(b))
}

func (r *Roster) Add(ctx context.Context, name, password string, maxLicenses int) (Manager, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Manager{}, err
	}
	m := Manager{
		ID:           uuid.NewString(),
		Name:         name,
		PasswordHash: string(hash),
		MaxLicenses:  maxLicenses,
		CreatedAt:    r.now(),
		IsActive:     true,
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.managers = append(r.managers, m)
	if err := r.persist(ctx); err != nil {
		return Manager{}, err
	}
	return m, nil
}

// Update merges the patch into the matching entry. Unknown ids are a no-op.
func (r *Roster) Update(ctx context.Context, id string, p Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.managers {
		if r.managers[i].ID != id {
			continue
		}
		if p.Name != nil {
			r.managers[i].Name = *p.Name
		}
		if p.Password != nil && *p.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(*p.Password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			r.managers[i].PasswordHash = string(hash)
		}
		if p.MaxLicenses != nil {
			r.managers[i].MaxLicenses = *p.MaxLicenses
		}
		if p.CreatedLicenses != nil {
			r.managers[i].CreatedLicenses = *p.CreatedLicenses
		}
		if p.IsActive != nil {
			r.managers[i].IsActive = *p.IsActive
		}
		return r.persist(ctx)
	}
	return nil
}

func (r *Roster) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.managers[:0]
	for _, m := range r.managers {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	r.managers = kept
	return r.persist(ctx)
}

// IncrementUsage bumps the created-license counter. Called exactly once per
// store-confirmed license creation attributed to the manager.
func (r *Roster) IncrementUsage(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.managers {
		if r.managers[i].ID == id {
			r.managers[i].CreatedLicenses++
			return r.persist(ctx)
		}
	}
	return nil
}

// ValidateLogin resolves a password to an active manager. Wrong password and
// correct-password-but-disabled-account are indistinguishable to the caller.
func (r *Roster) ValidateLogin(password string) (Manager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.managers {
		if !m.IsActive {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(password)) == nil {
			return m, true
		}
	}
	return Manager{}, false
}

// PasswordInUse reports whether any entry, active or not, already uses the
// password. Advisory pre-check for Add; nothing here enforces it.
func (r *Roster) PasswordInUse(password string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.managers {
		if bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(password)) == nil {
			return true
		}
	}
	return false
}

func (r *Roster) CanCreate(id string) bool {
	m, ok := r.GetByID(id)
	if !ok {
		return false
	}
	return m.CreatedLicenses < m.MaxLicenses
}

// Remaining returns the unused quota, clamped at zero. Missing ids yield 0.
func (r *Roster) Remaining(id string) int {
	m, ok := r.GetByID(id)
	if !ok {
		return 0
	}
	left := m.MaxLicenses - m.CreatedLicenses
	if left < 0 {
		return 0
	}
	return left
}

func (r *Roster) GetByID(id string) (Manager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.managers {
		if m.ID == id {
			return m, true
		}
	}
	return Manager{}, false
}

func (r *Roster) List() []Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Manager, len(r.managers))
	copy(out, r.managers)
	return out
}
