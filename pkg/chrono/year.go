// Package chrono converts free-form era strings into signed years on a single
// BCE/CE axis and measures the gaps between adjacent events.
//
// Parsing is deliberately forgiving: the first run of decimal digits is the
// magnitude and any "bc", "b.c." or "bce" marker negates it. There is no
// failure path; text without digits parses as year 0.
package chrono

import (
	"math"
	"strconv"
	"strings"

	"github.com/vanderheijden86/curiousdates/pkg/model"
)

// GapMarkerThreshold is the smallest forward gap (exclusive) that earns a
// "N years later..." marker between two events.
const GapMarkerThreshold = 5

// ParseYear returns the signed year encoded in text. "2560 BC" -> -2560,
// "1969" -> 1969, "AD 500" -> 500, "no digits here" -> 0.
func ParseYear(text string) int {
	y, _ := ParseYearOK(text)
	return y
}

// ParseYearOK is ParseYear plus whether text contained any digits at all.
// Digit runs too large for an int saturate at math.MaxInt.
func ParseYearOK(text string) (int, bool) {
	start := strings.IndexFunc(text, isDigit)
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(text) && isDigit(rune(text[end])) {
		end++
	}

	n, err := strconv.Atoi(text[start:end])
	if err != nil {
		// Only a range error is possible for a pure digit run.
		n = math.MaxInt
	}
	if isBCE(text) {
		n = -n
	}
	return n, true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// isBCE reports whether the lowercased text carries a negation marker
// anywhere. "bce" and "b.c." both contain or extend "bc", but all three are
// checked so the rule reads like the documented contract.
func isBCE(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "bc") ||
		strings.Contains(lower, "b.c.") ||
		strings.Contains(lower, "bce")
}

// FormatYear renders a signed year for display: negative years get a " BC"
// suffix, everything else is the plain number.
func FormatYear(y int) string {
	if y < 0 {
		return strconv.Itoa(-y) + " BC"
	}
	return strconv.Itoa(y)
}

// Distance returns |a-b| without overflowing for saturated years.
func Distance(a, b int) int {
	var d uint64
	if a >= b {
		d = uint64(a) - uint64(b)
	} else {
		d = uint64(b) - uint64(a)
	}
	if d > math.MaxInt {
		return math.MaxInt
	}
	return int(d)
}

// MaxAdjacentGap is the largest absolute year gap between consecutive events,
// floored at 1 so it can be used as a divisor.
func MaxAdjacentGap(events []model.TimelineEvent) int {
	maxGap := 1
	for i := 1; i < len(events); i++ {
		g := Distance(ParseYear(events[i].Year), ParseYear(events[i-1].Year))
		if g > maxGap {
			maxGap = g
		}
	}
	return maxGap
}

// Gap is the signed forward year difference leading into the event at Index.
type Gap struct {
	Index int // position of the later event
	Years int // year[Index] - year[Index-1]
}

// ShowMarker reports whether the gap is large enough for a "later" marker.
func (g Gap) ShowMarker() bool { return g.Years > GapMarkerThreshold }

// Label is the marker text drawn between events.
func (g Gap) Label() string {
	return strconv.Itoa(g.Years) + " years later..."
}

// Gaps returns one Gap per event after the first.
func Gaps(events []model.TimelineEvent) []Gap {
	if len(events) < 2 {
		return nil
	}
	gaps := make([]Gap, 0, len(events)-1)
	prev := ParseYear(events[0].Year)
	for i := 1; i < len(events); i++ {
		cur := ParseYear(events[i].Year)
		gaps = append(gaps, Gap{Index: i, Years: cur - prev})
		prev = cur
	}
	return gaps
}
