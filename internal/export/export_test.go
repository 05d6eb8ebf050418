package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"keydesk/internal/models"
)

func TestStatusExpiryWinsOverUsed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name    string
		license models.License
		want    string
	}{
		{"fresh", models.License{}, "active"},
		{"used", models.License{Used: true}, "used"},
		{"expired", models.License{ExpiresAt: &past}, "expired"},
		{"expired and used", models.License{ExpiresAt: &past, Used: true}, "expired"},
		{"future expiry", models.License{ExpiresAt: &future, Used: true}, "used"},
	}
	for _, tc := range cases {
		if got := Status(tc.license, now); got != tc.want {
			t.Errorf("%s: status = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestCSVStartsWithBOM(t *testing.T) {
	now := time.Now()
	var buf bytes.Buffer
	err := CSV(&buf, []models.License{{Key: "K-1", UserName: "Алиса", CreatedAt: now}}, now)
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "\ufeff") {
		t.Fatalf("csv output missing BOM prefix")
	}
	if !strings.Contains(out, "Алиса") {
		t.Fatalf("csv output missing user name: %q", out)
	}
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(out, "\ufeff")), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines = %d, want header + 1 row", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Key,User,Expires") {
		t.Fatalf("csv header = %q", lines[0])
	}
}

func TestExcelHTMLEscapesCellContent(t *testing.T) {
	now := time.Now()
	var buf bytes.Buffer
	err := ExcelHTML(&buf, []models.License{{Key: "K-1", Notes: "<script>alert(1)</script>", CreatedAt: now}}, now)
	if err != nil {
		t.Fatalf("excel: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "<script>") {
		t.Fatalf("cell content not escaped")
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Fatalf("escaped content missing: %q", out)
	}
	if !strings.Contains(out, "<th>Key</th>") {
		t.Fatalf("header cells missing")
	}
}
