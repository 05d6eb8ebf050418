package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"keydesk/internal/models"
	"keydesk/internal/presence"
)

func TestHeartbeatUpsertsOneRow(t *testing.T) {
	db := newTestDB(t)
	hub := presence.NewHub()
	h := Heartbeat(db, hub, testLogger())

	w := httptest.NewRecorder()
	req := postJSON(t, map[string]string{"device_name": "Windows - Chrome"})
	req.Header.Set("User-Agent", "test-agent")
	h(w, asAdmin(req))
	if w.Code != http.StatusOK {
		t.Fatalf("first beat status = %d", w.Code)
	}
	var dev models.OnlineDevice
	if err := json.Unmarshal(w.Body.Bytes(), &dev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dev.ID == "" {
		t.Fatalf("no device id generated")
	}

	// Repeat beats with the returned id update the row instead of adding one.
	w = httptest.NewRecorder()
	h(w, asAdmin(postJSON(t, map[string]string{"device_id": dev.ID, "device_name": "renamed"})))
	if w.Code != http.StatusOK {
		t.Fatalf("second beat status = %d", w.Code)
	}
	var count int64
	db.Model(&models.OnlineDevice{}).Count(&count)
	if count != 1 {
		t.Fatalf("device rows = %d, want 1", count)
	}
	var got models.OnlineDevice
	db.First(&got, "id = ?", dev.ID)
	if got.DeviceName != "renamed" {
		t.Fatalf("device name = %q", got.DeviceName)
	}
}

func TestHeartbeatDerivesNameFromUserAgent(t *testing.T) {
	db := newTestDB(t)
	h := Heartbeat(db, presence.NewHub(), testLogger())

	w := httptest.NewRecorder()
	req := postJSON(t, map[string]string{})
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64) Chrome/120.0")
	h(w, asAdmin(req))

	var dev models.OnlineDevice
	if err := json.Unmarshal(w.Body.Bytes(), &dev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dev.DeviceName != "Windows - Chrome" {
		t.Fatalf("derived name = %q", dev.DeviceName)
	}
}

func TestListDevicesSweepsStaleRows(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	fresh := models.OnlineDevice{ID: "fresh", DeviceName: "a", UserType: "admin", LastSeen: now, IsOnline: true}
	idle := models.OnlineDevice{ID: "idle", DeviceName: "b", UserType: "manager", LastSeen: now.Add(-90 * time.Second), IsOnline: true}
	stale := models.OnlineDevice{ID: "stale", DeviceName: "c", UserType: "manager", LastSeen: now.Add(-5 * time.Minute), IsOnline: true}
	for _, d := range []models.OnlineDevice{fresh, idle, stale} {
		if err := db.Create(&d).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	w := httptest.NewRecorder()
	ListDevices(db, testLogger())(w, asAdmin(httptest.NewRequest(http.MethodGet, "/", nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Devices     []models.OnlineDevice `json:"devices"`
		OnlineCount int                   `json:"online_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Devices) != 2 {
		t.Fatalf("devices after sweep = %d, want 2", len(resp.Devices))
	}
	// idle is past the one-minute online grace, fresh is within it.
	if resp.OnlineCount != 1 {
		t.Fatalf("online count = %d, want 1", resp.OnlineCount)
	}
}

func TestListBansDropsExpired(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	live := models.BannedDevice{ID: newID(), DeviceName: "bad", BannedAt: now, BannedUntil: now.Add(time.Hour), BannedBy: "admin"}
	expired := models.BannedDevice{ID: newID(), DeviceName: "old", BannedAt: now.Add(-2 * time.Hour), BannedUntil: now.Add(-time.Hour), BannedBy: "admin"}
	for _, b := range []models.BannedDevice{live, expired} {
		if err := db.Create(&b).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	w := httptest.NewRecorder()
	ListBans(db, testLogger())(w, asAdmin(httptest.NewRequest(http.MethodGet, "/", nil)))
	var bans []models.BannedDevice
	if err := json.Unmarshal(w.Body.Bytes(), &bans); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(bans) != 1 || bans[0].DeviceName != "bad" {
		t.Fatalf("bans = %+v", bans)
	}
}

func TestBanDeviceValidation(t *testing.T) {
	db := newTestDB(t)
	h := BanDevice(db, testLogger())

	w := httptest.NewRecorder()
	h(w, asAdmin(postJSON(t, map[string]any{"device_name": "", "minutes": 10})))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty name status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	h(w, asAdmin(postJSON(t, map[string]any{"device_name": "x", "minutes": 0})))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("zero minutes status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	h(w, asAdmin(postJSON(t, map[string]any{"device_name": "x", "minutes": 30})))
	if w.Code != http.StatusOK {
		t.Fatalf("valid ban status = %d", w.Code)
	}
	var ban models.BannedDevice
	if err := json.Unmarshal(w.Body.Bytes(), &ban); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if until := ban.BannedUntil.Sub(ban.BannedAt); until != 30*time.Minute {
		t.Fatalf("ban window = %v", until)
	}
}
