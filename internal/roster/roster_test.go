package roster

import (
	"context"
	"testing"

	"keydesk/internal/kv"
)

func newRoster(t *testing.T) (*Roster, *kv.Memory) {
	t.Helper()
	store := kv.NewMemory()
	return New(store), store
}

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

func TestQuotaExhaustionAndManualReset(t *testing.T) {
	r, _ := newRoster(t)
	ctx := context.Background()

	m, err := r.Add(ctx, "east", "pw-east", 3)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	for i := 0; i < 3; i++ {
		if !r.CanCreate(m.ID) {
			t.Fatalf("quota refused at %d/3", i)
		}
		if err := r.IncrementUsage(ctx, m.ID); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	if r.CanCreate(m.ID) {
		t.Fatalf("quota allows creation at 3/3")
	}
	if got := r.Remaining(m.ID); got != 0 {
		t.Fatalf("remaining = %d, want 0", got)
	}

	if err := r.Update(ctx, m.ID, Patch{CreatedLicenses: intPtr(0)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !r.CanCreate(m.ID) {
		t.Fatalf("quota refused after manual reset")
	}
	if got := r.Remaining(m.ID); got != 3 {
		t.Fatalf("remaining = %d, want 3", got)
	}
}

func TestIncrementUsage(t *testing.T) {
	r, _ := newRoster(t)
	ctx := context.Background()

	m, _ := r.Add(ctx, "west", "pw-west", 10)
	_ = r.IncrementUsage(ctx, m.ID)
	_ = r.IncrementUsage(ctx, m.ID)

	got, _ := r.GetByID(m.ID)
	if got.CreatedLicenses != 2 {
		t.Fatalf("created licenses = %d, want 2", got.CreatedLicenses)
	}

	before := r.List()
	if err := r.IncrementUsage(ctx, "no-such-id"); err != nil {
		t.Fatalf("increment on missing id: %v", err)
	}
	after := r.List()
	if len(before) != len(after) || before[0].CreatedLicenses != after[0].CreatedLicenses {
		t.Fatalf("roster changed by a missing-id increment")
	}
}

func TestValidateLoginIgnoresInactive(t *testing.T) {
	r, _ := newRoster(t)
	ctx := context.Background()

	m, _ := r.Add(ctx, "south", "pw-south", 5)
	if err := r.Update(ctx, m.ID, Patch{IsActive: boolPtr(false)}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, ok := r.ValidateLogin("pw-south"); ok {
		t.Fatalf("inactive manager matched")
	}

	if err := r.Update(ctx, m.ID, Patch{IsActive: boolPtr(true)}); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	got, ok := r.ValidateLogin("pw-south")
	if !ok || got.ID != m.ID {
		t.Fatalf("reactivated manager did not match")
	}
}

func TestMissingEntries(t *testing.T) {
	r, _ := newRoster(t)
	if r.CanCreate("missing") {
		t.Fatalf("missing id can create")
	}
	if got := r.Remaining("missing"); got != 0 {
		t.Fatalf("remaining for missing id = %d", got)
	}
}

func TestRemainingClampsBelowZero(t *testing.T) {
	r, _ := newRoster(t)
	ctx := context.Background()

	m, _ := r.Add(ctx, "north", "pw-north", 2)
	if err := r.Update(ctx, m.ID, Patch{CreatedLicenses: intPtr(7)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := r.Remaining(m.ID); got != 0 {
		t.Fatalf("remaining = %d, want clamp to 0", got)
	}
	if r.CanCreate(m.ID) {
		t.Fatalf("over-consumed manager can still create")
	}
}

func TestRosterPersistsAcrossLoads(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	first := New(store)
	m, err := first.Add(ctx, "persisted", "pw-persisted", 4)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	_ = first.IncrementUsage(ctx, m.ID)

	second := New(store)
	if err := second.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	got, ok := second.GetByID(m.ID)
	if !ok {
		t.Fatalf("manager lost across load")
	}
	if got.CreatedLicenses != 1 || got.MaxLicenses != 4 || !got.IsActive {
		t.Fatalf("reloaded manager %+v", got)
	}
	if _, ok := second.ValidateLogin("pw-persisted"); !ok {
		t.Fatalf("reloaded credential does not validate")
	}
}

func TestRemoveAndPasswordInUse(t *testing.T) {
	r, _ := newRoster(t)
	ctx := context.Background()

	m1, _ := r.Add(ctx, "one", "shared-pw", 1)
	if !r.PasswordInUse("shared-pw") {
		t.Fatalf("password not reported in use")
	}
	if r.PasswordInUse("other-pw") {
		t.Fatalf("unused password reported in use")
	}

	if err := r.Remove(ctx, m1.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := r.GetByID(m1.ID); ok {
		t.Fatalf("manager still present after remove")
	}
	if r.PasswordInUse("shared-pw") {
		t.Fatalf("removed manager's password still in use")
	}
}
