package forecast

import (
	"testing"

	"github.com/nimbusline/rosterctl/pkg/domain"
)

const sampleDoc = `{
	"tenant_code": "acme",
	"site_code": "site-1",
	"week_anchor_date": "2026-08-03",
	"tours": [
		{"external_id": "T1", "day": 1, "start_time": "08:00", "end_time": "12:00", "count": 2, "depot": "D1"},
		{"external_id": "T2", "day": 3, "start_time": "23:00", "end_time": "02:00", "crosses_midnight": true, "count": 1}
	]
}`

func TestParseAndValidate(t *testing.T) {
	doc, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := doc.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestExpandCountProducesOneInstancePerUnit(t *testing.T) {
	doc, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatal(err)
	}
	tours := doc.Expand()
	if len(tours) != 3 {
		t.Fatalf("expected 3 expanded tour instances, got %d", len(tours))
	}

	var t1Count int
	for _, tr := range tours {
		if tr.ID == "T1#1" || tr.ID == "T1#2" {
			t1Count++
		}
	}
	if t1Count != 2 {
		t.Fatalf("expected 2 instances of T1, got %d", t1Count)
	}
}

func TestValidateRejectsBadDay(t *testing.T) {
	bad := `{"tenant_code":"a","site_code":"b","tours":[{"external_id":"X","day":8,"start_time":"08:00","end_time":"09:00","count":1}]}`
	doc, err := Parse([]byte(bad))
	if err != nil {
		t.Fatal(err)
	}
	if err := doc.Validate(); err == nil {
		t.Fatal("expected a validation error for day=8")
	}
}

func TestValidateRequiresCrossesMidnightFlagForWrappedTours(t *testing.T) {
	bad := `{"tenant_code":"a","site_code":"b","tours":[{"external_id":"X","day":1,"start_time":"23:00","end_time":"02:00","count":1}]}`
	doc, err := Parse([]byte(bad))
	if err != nil {
		t.Fatal(err)
	}
	if err := doc.Validate(); err == nil {
		t.Fatal("expected a validation error when end < start without crosses_midnight")
	}
}

func TestInputHashStableUnderTourReordering(t *testing.T) {
	a := []domain.Tour{
		{ID: "a", Day: domain.Weekday(0), StartMin: 480, EndMin: 600},
		{ID: "b", Day: domain.Weekday(2), StartMin: 60, EndMin: 120},
	}
	b := []domain.Tour{a[1], a[0]}

	if InputHash(a) != InputHash(b) {
		t.Fatal("expected input_hash to be independent of tour slice order")
	}
}

func TestCanonicalLineFormat(t *testing.T) {
	tr := domain.Tour{Day: domain.Weekday(0), StartMin: 480, EndMin: 600, Depot: "D1"}
	got := CanonicalLine(tr)
	want := "Mon 08:00-10:00 Depot D1"
	if got != want {
		t.Fatalf("CanonicalLine = %q, want %q", got, want)
	}
}
