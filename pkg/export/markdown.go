// Package export renders timelines for use outside the terminal: a Markdown
// document for notes and wikis, and an SVG strip for slides.
package export

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/vanderheijden86/curiousdates/pkg/chrono"
	"github.com/vanderheijden86/curiousdates/pkg/correlation"
	"github.com/vanderheijden86/curiousdates/pkg/model"
)

var slugNonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a title into a Markdown anchor / file name fragment.
func Slug(s string) string {
	slug := slugNonAlphanumericRegex.ReplaceAllString(strings.ToLower(s), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "timeline"
	}
	return slug
}

// MarkdownOptions controls optional sections.
type MarkdownOptions struct {
	// Now stamps the document; nil omits the stamp (stable output for tests).
	Now func() time.Time
	// NoCorrelations drops the per-event "Meanwhile" and "Related" lists.
	NoCorrelations bool
}

// Markdown writes tl as a Markdown document. Parallels and related events
// are looked up in ws.
func Markdown(w io.Writer, tl model.Timeline, ws model.WorkingSet, opts MarkdownOptions) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", tl.Title)
	meta := fmt.Sprintf("%s · %d events", tl.Category.Label(), len(tl.Events))
	if tl.IsGenerated {
		meta += " · generated"
	}
	fmt.Fprintf(&sb, "*%s*\n\n", meta)
	if opts.Now != nil {
		fmt.Fprintf(&sb, "*Exported: %s*\n\n", opts.Now().Format(time.RFC1123))
	}
	if tl.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", tl.Description)
	}

	// Table of contents
	if len(tl.Events) > 0 {
		sb.WriteString("| Year | Event |\n|------|-------|\n")
		for _, ev := range tl.Events {
			fmt.Fprintf(&sb, "| %s | [%s](#%s) |\n", escapeCell(ev.Year), escapeCell(ev.Title), Slug(ev.Year+" "+ev.Title))
		}
		sb.WriteString("\n---\n\n")
	}

	gaps := chrono.Gaps(tl.Events)
	for i, ev := range tl.Events {
		if i > 0 && gaps[i-1].ShowMarker() {
			fmt.Fprintf(&sb, "> *%s*\n\n", gaps[i-1].Label())
		}

		fmt.Fprintf(&sb, "## %s %s\n\n", ev.Year, ev.Title)
		if ev.Description != "" {
			fmt.Fprintf(&sb, "%s\n\n", ev.Description)
		}
		if ev.ImageURL != "" && !strings.HasPrefix(ev.ImageURL, "data:") {
			fmt.Fprintf(&sb, "![%s](%s)\n\n", ev.Title, ev.ImageURL)
		}

		if opts.NoCorrelations {
			continue
		}
		if parallels := correlation.FindParallels(ev, tl.ID, ws); len(parallels) > 0 {
			sb.WriteString("**Meanwhile:**\n\n")
			for _, p := range parallels {
				fmt.Fprintf(&sb, "- %s · %s (*%s*)\n", p.Event.Year, p.Event.Title, p.Timeline.Title)
			}
			sb.WriteString("\n")
		}
		if related := correlation.FindRelated(ev, tl.ID, ws); len(related) > 0 {
			sb.WriteString("**Related:**\n\n")
			for _, r := range related {
				fmt.Fprintf(&sb, "- %s · %s (*%s*, %s)\n", r.Event.Year, r.Event.Title, r.Timeline.Title,
					correlation.Explain(r, ev, tl.ID))
			}
			sb.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func escapeCell(s string) string {
	return strings.NewReplacer("|", "\\|", "\n", " ").Replace(s)
}
