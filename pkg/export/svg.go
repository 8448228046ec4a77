package export

import (
	"fmt"
	"image/color"
	"io"

	svg "github.com/ajstarks/svgo"

	"github.com/vanderheijden86/curiousdates/pkg/chrono"
	"github.com/vanderheijden86/curiousdates/pkg/correlation"
	"github.com/vanderheijden86/curiousdates/pkg/model"
)

// SVGOptions sizes the rendered strip.
type SVGOptions struct {
	Width      int // total width in px; 0 means 1200
	LaneHeight int // vertical space per lane; 0 means 90
	// NoParallels draws only the timeline itself.
	NoParallels bool
}

var (
	colorBackdrop = color.RGBA{0x0f, 0x17, 0x2a, 0xff}
	colorAxis     = color.RGBA{0x94, 0xa3, 0xb8, 0xff}
	colorEvent    = color.RGBA{0xf5, 0x9e, 0x0b, 0xff}
	colorParallel = color.RGBA{0x38, 0xbd, 0xf8, 0xff}
	colorText     = color.RGBA{0xe2, 0xe8, 0xf0, 0xff}
	colorSubtle   = color.RGBA{0x94, 0xa3, 0xb8, 0xff}
	colorAlt      = color.RGBA{0xa7, 0x8b, 0xfa, 0xff}
)

const (
	svgMargin = 60
	svgHeader = 70
)

type lane struct {
	timeline model.Timeline
	y        int
	marks    []laneMark
}

type laneMark struct {
	event model.TimelineEvent
	x     int
	// from is the x of the home event the parallel belongs to.
	from int
}

// svgLayout maps events to x positions by parsed year. Events without a
// year, or a timeline whose events share one year, fall back to even spacing.
type svgLayout struct {
	width   int
	minYear int
	maxYear int
	byYear  bool
}

func newLayout(tl model.Timeline, width int) svgLayout {
	l := svgLayout{width: width}
	first := true
	for _, ev := range tl.Events {
		y, ok := chrono.ParseYearOK(ev.Year)
		if !ok {
			return l
		}
		if first || y < l.minYear {
			l.minYear = y
		}
		if first || y > l.maxYear {
			l.maxYear = y
		}
		first = false
	}
	l.byYear = !first && l.maxYear > l.minYear
	return l
}

func (l svgLayout) span() int { return l.width - 2*svgMargin }

// xForIndex is the even-spacing fallback.
func (l svgLayout) xForIndex(i, n int) int {
	if n <= 1 {
		return l.width / 2
	}
	return svgMargin + i*l.span()/(n-1)
}

// xForYear places year on the axis, clamped to the margins.
func (l svgLayout) xForYear(year int) int {
	frac := float64(year-l.minYear) / float64(l.maxYear-l.minYear)
	frac = max(0, min(1, frac))
	return svgMargin + int(frac*float64(l.span()))
}

// SVG writes tl as a horizontal strip. Each event is a marker on the main
// axis; unless disabled, timelines holding parallels get their own lane
// below with links back to the home event.
func SVG(w io.Writer, tl model.Timeline, ws model.WorkingSet, opts SVGOptions) error {
	width := opts.Width
	if width <= 0 {
		width = 1200
	}
	laneH := opts.LaneHeight
	if laneH <= 0 {
		laneH = 90
	}

	layout := newLayout(tl, width)
	xs := make([]int, len(tl.Events))
	for i, ev := range tl.Events {
		if layout.byYear {
			xs[i] = layout.xForYear(chrono.ParseYear(ev.Year))
		} else {
			xs[i] = layout.xForIndex(i, len(tl.Events))
		}
	}

	mainY := svgHeader + laneH/2 + 20
	var lanes []*lane
	if !opts.NoParallels {
		byTimeline := map[string]*lane{}
		for i, ev := range tl.Events {
			for _, p := range correlation.FindParallels(ev, tl.ID, ws) {
				ln, ok := byTimeline[p.TimelineID()]
				if !ok {
					ln = &lane{timeline: p.Timeline, y: mainY + laneH*(len(lanes)+1)}
					byTimeline[p.TimelineID()] = ln
					lanes = append(lanes, ln)
				}
				x := xs[i]
				if layout.byYear {
					x = layout.xForYear(chrono.ParseYear(p.Event.Year))
				}
				ln.marks = append(ln.marks, laneMark{event: p.Event, x: x, from: xs[i]})
			}
		}
	}

	height := mainY + laneH*(len(lanes)+1)
	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, fmt.Sprintf("fill:%s", css(colorBackdrop)))

	accent := colorEvent
	if tl.Category == model.CategoryAlternate {
		accent = colorAlt
	}
	canvas.Text(svgMargin, 36, tl.Title, fmt.Sprintf("fill:%s;font-size:20px;font-family:sans-serif;font-weight:bold", css(colorText)))
	canvas.Text(svgMargin, 56, fmt.Sprintf("%s · %d events", tl.Category.Label(), len(tl.Events)),
		fmt.Sprintf("fill:%s;font-size:12px;font-family:sans-serif", css(colorSubtle)))

	canvas.Line(svgMargin-20, mainY, width-svgMargin+20, mainY, fmt.Sprintf("stroke:%s;stroke-width:2", css(colorAxis)))

	// Parallel links first so markers draw on top.
	for _, ln := range lanes {
		canvas.Line(svgMargin-20, ln.y, width-svgMargin+20, ln.y,
			fmt.Sprintf("stroke:%s;stroke-width:1;stroke-dasharray:4,4", css(colorSubtle)))
		canvas.Text(svgMargin-20, ln.y-laneH/2+14, truncate(ln.timeline.Title, 48),
			fmt.Sprintf("fill:%s;font-size:11px;font-family:sans-serif;font-style:italic", css(colorSubtle)))
		for _, m := range ln.marks {
			canvas.Line(m.from, mainY, m.x, ln.y,
				fmt.Sprintf("stroke:%s;stroke-width:1;stroke-opacity:0.6", css(colorParallel)))
		}
	}

	for i, ev := range tl.Events {
		x := xs[i]
		canvas.Circle(x, mainY, 7, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:2", css(accent), css(colorBackdrop)))
		// Alternate labels above and below the axis to limit overlap.
		labelY := mainY - 32
		if i%2 == 1 {
			labelY = mainY + 28
		}
		canvas.Text(x, labelY, ev.Year,
			fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace;font-weight:bold;text-anchor:middle", css(accent)))
		canvas.Text(x, labelY+14, truncate(ev.Title, 28),
			fmt.Sprintf("fill:%s;font-size:11px;font-family:sans-serif;text-anchor:middle", css(colorText)))
	}

	for _, ln := range lanes {
		for _, m := range ln.marks {
			canvas.Circle(m.x, ln.y, 5, fmt.Sprintf("fill:%s", css(colorParallel)))
			canvas.Text(m.x, ln.y+18, m.event.Year+" "+truncate(m.event.Title, 24),
				fmt.Sprintf("fill:%s;font-size:10px;font-family:sans-serif;text-anchor:middle", css(colorSubtle)))
		}
	}

	canvas.End()
	return nil
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
