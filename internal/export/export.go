// Package export renders license lists into the two download formats the
// dashboard offers: CSV and an HTML table Excel opens natively.
package export

import (
	"encoding/csv"
	"html/template"
	"io"
	"time"

	"keydesk/internal/models"
)

var headers = []string{"Key", "User", "Expires", "HWID", "Status", "Notes", "Created"}

// Status derives the display status. Expiry wins over used.
func Status(l models.License, now time.Time) string {
	if l.ExpiresAt != nil && l.ExpiresAt.Before(now) {
		return "expired"
	}
	if l.Used {
		return "used"
	}
	return "active"
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func row(l models.License, now time.Time) []string {
	created := l.CreatedAt
	return []string{
		l.Key,
		l.UserName,
		formatDate(l.ExpiresAt),
		l.HWID,
		Status(l, now),
		l.Notes,
		formatDate(&created),
	}
}

// CSV writes the list prefixed with a UTF-8 BOM so Excel renders non-Latin
// text correctly.
func CSV(w io.Writer, licenses []models.License, now time.Time) error {
	if _, err := w.Write([]byte("\uFEFF")); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	for _, l := range licenses {
		if err := cw.Write(row(l, now)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var excelTmpl = template.Must(template.New("excel").Parse(`<html xmlns:o="urn:schemas-microsoft-com:office:office" xmlns:x="urn:schemas-microsoft-com:office:excel">
<head>
<meta charset="UTF-8">
<style>
table { border-collapse: collapse; }
th, td { border: 1px solid #000; padding: 8px; }
th { background-color: #4f46e5; color: white; font-weight: bold; }
</style>
</head>
<body>
<table>
<thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
</body>
</html>
`))

// ExcelHTML writes an HTML table meant to be served with the
// application/vnd.ms-excel content type.
func ExcelHTML(w io.Writer, licenses []models.License, now time.Time) error {
	rows := make([][]string, 0, len(licenses))
	for _, l := range licenses {
		rows = append(rows, row(l, now))
	}
	return excelTmpl.Execute(w, struct {
		Headers []string
		Rows    [][]string
	}{Headers: headers, Rows: rows})
}
