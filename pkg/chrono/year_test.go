package chrono

import (
	"math"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/curiousdates/pkg/model"
)

func TestParseYear(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"2560 BC", -2560},
		{"1969", 1969},
		{"AD 500", 500},
		{"no digits here", 0},
		{"", 0},
		{"c. 280 bc", -280},
		{"44 B.C.", -44},
		{"300 BCE", -300},
		{"Oct 4, 1957", 4},
		{"1960s", 1960},
		{"0", 0},
		{"Abc 12", -12}, // marker may appear anywhere, even inside a word
	}
	for _, tt := range tests {
		if got := ParseYear(tt.in); got != tt.want {
			t.Errorf("ParseYear(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseYearOK(t *testing.T) {
	if y, ok := ParseYearOK("no digits"); ok || y != 0 {
		t.Errorf("ParseYearOK(no digits) = %d, %v", y, ok)
	}
	if y, ok := ParseYearOK("0 AD"); !ok || y != 0 {
		t.Errorf("ParseYearOK(0 AD) = %d, %v", y, ok)
	}
}

func TestParseYear_Saturates(t *testing.T) {
	if got := ParseYear("99999999999999999999999"); got != math.MaxInt {
		t.Errorf("expected saturation, got %d", got)
	}
	if got := ParseYear("99999999999999999999999 BC"); got != -math.MaxInt {
		t.Errorf("expected negative saturation, got %d", got)
	}
}

func TestParseYear_Pure(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "text")
		a := ParseYear(s)
		b := ParseYear(s)
		if a != b {
			t.Fatalf("ParseYear(%q) not deterministic: %d vs %d", s, a, b)
		}
	})
}

func TestParseYear_RoundTripsFormat(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		y := rapid.IntRange(-100000, 100000).Draw(t, "year")
		if got := ParseYear(FormatYear(y)); got != y {
			t.Fatalf("ParseYear(FormatYear(%d)) = %d", y, got)
		}
	})
}

func events(years ...string) []model.TimelineEvent {
	out := make([]model.TimelineEvent, len(years))
	for i, y := range years {
		out[i] = model.TimelineEvent{ID: y, Year: y, Title: y}
	}
	return out
}

func TestMaxAdjacentGap(t *testing.T) {
	tests := []struct {
		name  string
		years []string
		want  int
	}{
		{"moon landing", []string{"1957", "1961", "1962", "1969"}, 7},
		{"single", []string{"1969"}, 1},
		{"empty", nil, 1},
		{"equal years", []string{"1969", "1969"}, 1},
		{"crosses era", []string{"280 BC", "AD 20"}, 300},
		{"backwards", []string{"1969", "1957"}, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxAdjacentGap(events(tt.years...)); got != tt.want {
				t.Errorf("MaxAdjacentGap = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGaps(t *testing.T) {
	gaps := Gaps(events("2560 BC", "600 BC", "598 BC"))
	if len(gaps) != 2 {
		t.Fatalf("expected 2 gaps, got %d", len(gaps))
	}
	if gaps[0].Years != 1960 || !gaps[0].ShowMarker() {
		t.Errorf("first gap = %+v", gaps[0])
	}
	if gaps[0].Label() != "1960 years later..." {
		t.Errorf("label = %q", gaps[0].Label())
	}
	if gaps[1].Years != 2 || gaps[1].ShowMarker() {
		t.Errorf("second gap = %+v", gaps[1])
	}
	if Gaps(events("1969")) != nil {
		t.Error("single event should have no gaps")
	}
}

func TestGap_MarkerThresholdIsExclusive(t *testing.T) {
	g := Gap{Index: 1, Years: GapMarkerThreshold}
	if g.ShowMarker() {
		t.Error("a gap equal to the threshold must not show a marker")
	}
}

func TestDistance(t *testing.T) {
	if d := Distance(math.MaxInt, -math.MaxInt); d != math.MaxInt {
		t.Errorf("Distance should saturate, got %d", d)
	}
	if d := Distance(-2560, 1969); d != 4529 {
		t.Errorf("Distance = %d", d)
	}
}

func TestFormatYear(t *testing.T) {
	if got := FormatYear(-2560); got != "2560 BC" {
		t.Errorf("FormatYear(-2560) = %q", got)
	}
	if got := FormatYear(1969); got != "1969" {
		t.Errorf("FormatYear(1969) = %q", got)
	}
}
