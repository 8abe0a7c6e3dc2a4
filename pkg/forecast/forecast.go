// Package forecast parses the canonical forecast input (spec.md §6.1),
// expands count-bearing tour rows into individual tour instances, and
// computes the canonical input_hash used throughout the determinism
// contract (spec.md §4.9).
package forecast

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/nimbusline/rosterctl/pkg/domain"
	"github.com/nimbusline/rosterctl/pkg/hashutil"
	"github.com/nimbusline/rosterctl/pkg/rosterr"
)

// TourRow is one line of the raw forecast document, before count expansion.
type TourRow struct {
	ExternalID string `json:"external_id"`
	Day        int    `json:"day"` // 1..7, Monday=1
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	CrossesMidnight bool `json:"crosses_midnight"`
	Count      int    `json:"count"`
	Depot      string `json:"depot,omitempty"`
	Skill      string `json:"skill,omitempty"`
}

// Document is the canonical forecast input schema of spec.md §6.1.
type Document struct {
	TenantCode    string    `json:"tenant_code"`
	SiteCode      string    `json:"site_code"`
	WeekAnchorDate string   `json:"week_anchor_date"`
	ServiceCode   string    `json:"service_code,omitempty"`
	Tours         []TourRow `json:"tours"`
}

// Parse decodes raw JSON bytes into a Document without validating it.
func Parse(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, rosterr.Wrap(err, rosterr.ValidationError, "forecast document is not valid JSON")
	}
	return doc, nil
}

// Validate checks the hard schema rules of spec.md §6.1.
func (d Document) Validate() error {
	if d.TenantCode == "" || d.SiteCode == "" {
		return rosterr.New(rosterr.ValidationError, "tenant_code and site_code are required")
	}
	for _, row := range d.Tours {
		if row.Day < 1 || row.Day > 7 {
			return rosterr.New(rosterr.ValidationError, fmt.Sprintf("tour %s: day %d outside 1..7", row.ExternalID, row.Day))
		}
		if row.Count < 1 {
			return rosterr.New(rosterr.ValidationError, fmt.Sprintf("tour %s: count must be >= 1", row.ExternalID))
		}
		startMin, err := parseHHMM(row.StartTime)
		if err != nil {
			return rosterr.Wrap(err, rosterr.ValidationError, fmt.Sprintf("tour %s: start_time", row.ExternalID))
		}
		endMin, err := parseHHMM(row.EndTime)
		if err != nil {
			return rosterr.Wrap(err, rosterr.ValidationError, fmt.Sprintf("tour %s: end_time", row.ExternalID))
		}
		if endMin <= startMin && !row.CrossesMidnight {
			return rosterr.New(rosterr.ValidationError, fmt.Sprintf("tour %s: end_time must be after start_time unless crosses_midnight", row.ExternalID))
		}
	}
	return nil
}

func parseHHMM(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%2d:%2d", &h, &m); err != nil {
		return 0, errors.Wrapf(err, "invalid HH:MM %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, errors.Errorf("invalid HH:MM %q", s)
	}
	return h*60 + m, nil
}

// dayToWeekday converts the forecast's 1..7 (Monday=1) convention to domain.Weekday (Monday=0).
func dayToWeekday(day int) domain.Weekday {
	return domain.Weekday(day - 1)
}

// Expand turns each count-bearing row into Count individual domain.Tour
// instances sharing every other field. A row with Count > 1 numbers its
// instances "<external_id>#<n>" so IDs stay stable and sortable; a row with
// Count 1 keeps its external_id as the tour ID (spec.md §6.1: "count expands into count tour
// instances sharing all other fields").
func (d Document) Expand() []domain.Tour {
	var out []domain.Tour
	for _, row := range d.Tours {
		startMin, _ := parseHHMM(row.StartTime)
		endMin, _ := parseHHMM(row.EndTime)
		for n := 1; n <= row.Count; n++ {
			id := row.ExternalID
			if row.Count > 1 {
				id = fmt.Sprintf("%s#%d", row.ExternalID, n)
			}
			out = append(out, domain.Tour{
				ID:               id,
				Day:              dayToWeekday(row.Day),
				StartMin:         startMin,
				EndMin:           endMin,
				CrossesMidnight:  row.CrossesMidnight,
				Depot:            row.Depot,
				RequiredSkill:    row.Skill,
			})
		}
	}
	return out
}

var weekdayAbbr = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// CanonicalLine renders one tour in the fixed hash-input shape of spec.md
// §4.9: "<day-abbr> <HH:MM>-<HH:MM> [Depot <depot>]".
func CanonicalLine(t domain.Tour) string {
	line := fmt.Sprintf("%s %s-%s", weekdayAbbr[t.Day], minToHHMM(t.StartMin), minToHHMM(t.EndMin%1440))
	if t.Depot != "" {
		line += fmt.Sprintf(" Depot %s", t.Depot)
	}
	return line
}

func minToHHMM(m int) string {
	return fmt.Sprintf("%02d:%02d", (m/60)%24, m%60)
}

// InputHash computes spec.md §4.9's input_hash: sha256 over the sorted set
// of canonical tour lines.
func InputHash(tours []domain.Tour) string {
	lines := make([]string, len(tours))
	for i, t := range tours {
		lines[i] = CanonicalLine(t)
	}
	return hashutil.CanonicalHash(lines)
}
