// Package extract converts unstructured scraped content (markdown or HTML)
// into the structured fields staging items expect. This is explicitly
// heuristic, not a parser with a grammar: the pattern throughout is keyword
// trigger, windowed line capture, length filter, capped count. No field is
// guaranteed populated and empty input yields an empty result.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"istanbul-explorer/internal/models"
)

const (
	minDescriptionLen = 50
	maxWhyVisit       = 5
	maxHighlights     = 5
	maxInsiderTips    = 3
	maxOpeningHours   = 3
	minLineLen        = 20
	maxLineLen        = 200
)

// Extraction is the best-effort structured view of one scraped page.
type Extraction struct {
	Description  string
	WhyVisit     []string
	Facilities   *models.Facilities
	Access       *models.Accessibility
	Practical    *models.PracticalInfo
	InsiderTips  []string
	Highlights   []string
	OpeningHours []string
}

// FieldNames lists the non-empty fields, for enrichment responses.
func (e Extraction) FieldNames() []string {
	var out []string
	if e.Description != "" {
		out = append(out, "description")
	}
	if len(e.WhyVisit) > 0 {
		out = append(out, "why_visit")
	}
	if e.Facilities != nil {
		out = append(out, "facilities")
	}
	if e.Access != nil {
		out = append(out, "accessibility")
	}
	if e.Practical != nil {
		out = append(out, "practical_info")
	}
	if len(e.InsiderTips) > 0 {
		out = append(out, "insider_tips")
	}
	if len(e.Highlights) > 0 {
		out = append(out, "highlights")
	}
	if len(e.OpeningHours) > 0 {
		out = append(out, "opening_hours")
	}
	return out
}

var (
	bulletRe   = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+(.+)$`)
	digitRe    = regexp.MustCompile(`\d`)
	markdownRe = regexp.MustCompile(`[#*_\x60\[\]()>]`)
)

// FromContent runs all heuristics over raw scraped text. HTML is reduced to
// plain text first. Never fails; empty or garbage input returns an empty
// Extraction.
func FromContent(content string) Extraction {
	content = strings.TrimSpace(content)
	if content == "" {
		return Extraction{}
	}
	if looksLikeHTML(content) {
		content = htmlToText(content)
	}

	lines := splitLines(content)
	lower := strings.ToLower(content)

	return Extraction{
		Description:  extractDescription(content),
		WhyVisit:     extractWhyVisit(lines),
		Facilities:   extractFacilities(lower),
		Access:       extractAccessibility(lower),
		Practical:    extractPracticalInfo(lines, lower),
		InsiderTips:  collectKeywordLines(lines, tipKeywords, maxInsiderTips),
		Highlights:   collectKeywordLines(lines, highlightKeywords, maxHighlights),
		OpeningHours: extractOpeningHours(lines),
	}
}

func looksLikeHTML(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "<html") || strings.Contains(lower, "<body") ||
		strings.Contains(lower, "<div") || strings.Contains(lower, "<p>")
}

func htmlToText(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("script, style, nav, footer").Remove()
	text := doc.Text()
	// Collapse runs of blank lines left behind by removed markup.
	var sb strings.Builder
	blank := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func splitLines(content string) []string {
	raw := strings.Split(content, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		out = append(out, strings.TrimSpace(l))
	}
	return out
}

// extractDescription returns the first paragraph over the minimum length
// threshold, skipping markdown headings.
func extractDescription(content string) string {
	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" || strings.HasPrefix(para, "#") {
			continue
		}
		flat := strings.Join(strings.Fields(para), " ")
		if len(markdownRe.ReplaceAllString(flat, "")) >= minDescriptionLen {
			return flat
		}
	}
	return ""
}

// extractWhyVisit captures the bullet or numbered list that follows a line
// containing "why visit" or "must see".
func extractWhyVisit(lines []string) []string {
	var out []string
	capturing := false
	for _, line := range lines {
		lower := strings.ToLower(line)
		if !capturing {
			if strings.Contains(lower, "why visit") || strings.Contains(lower, "must see") || strings.Contains(lower, "must-see") {
				capturing = true
			}
			continue
		}
		m := bulletRe.FindStringSubmatch(line)
		if m == nil {
			if len(out) > 0 {
				break // list ended
			}
			if line == "" {
				continue // blank between header and list
			}
			break
		}
		item := strings.TrimSpace(markdownRe.ReplaceAllString(m[1], ""))
		if item != "" {
			out = append(out, item)
		}
		if len(out) >= maxWhyVisit {
			break
		}
	}
	return out
}

func extractFacilities(lower string) *models.Facilities {
	f := models.Facilities{
		Wifi:        strings.Contains(lower, "wifi") || strings.Contains(lower, "wi-fi"),
		Parking:     strings.Contains(lower, "parking"),
		Toilets:     strings.Contains(lower, "toilet") || strings.Contains(lower, "restroom"),
		GiftShop:    strings.Contains(lower, "gift shop") || strings.Contains(lower, "souvenir"),
		AudioGuide:  strings.Contains(lower, "audio guide") || strings.Contains(lower, "audioguide"),
		GuidedTours: strings.Contains(lower, "guided tour"),
		Cafe:        strings.Contains(lower, "cafe") || strings.Contains(lower, "café") || strings.Contains(lower, "restaurant"),
	}
	if !f.Any() {
		return nil
	}
	return &f
}

func extractAccessibility(lower string) *models.Accessibility {
	a := models.Accessibility{
		WheelchairAccessible: strings.Contains(lower, "wheelchair"),
		StrollerFriendly:     strings.Contains(lower, "stroller") || strings.Contains(lower, "pram"),
		KidFriendly:          strings.Contains(lower, "kid-friendly") || strings.Contains(lower, "kid friendly") || strings.Contains(lower, "child-friendly") || strings.Contains(lower, "children"),
		SeniorFriendly:       strings.Contains(lower, "senior") || strings.Contains(lower, "elderly"),
	}
	if !a.Any() {
		return nil
	}
	return &a
}

func extractPracticalInfo(lines []string, lower string) *models.PracticalInfo {
	p := models.PracticalInfo{}

	for _, line := range lines {
		ll := strings.ToLower(line)
		if p.DressCode == "" && strings.Contains(ll, "dress code") {
			p.DressCode = truncate(line, maxLineLen)
		}
		if p.EntryRequirements == "" &&
			(strings.Contains(ll, "entry requirement") || strings.Contains(ll, "ticket required") || strings.Contains(ll, "admission")) {
			p.EntryRequirements = truncate(line, maxLineLen)
		}
	}

	if strings.Contains(lower, "photography allowed") || strings.Contains(lower, "photos allowed") ||
		strings.Contains(lower, "photography is permitted") {
		p.PhotographyAllowed = true
	}

	if p.DressCode == "" && p.EntryRequirements == "" && !p.PhotographyAllowed {
		return nil
	}
	return &p
}

var tipKeywords = []string{"tip:", "insider", "recommend", "advice", "best time", "avoid the crowds"}

var highlightKeywords = []string{"highlight", "famous", "known for", "popular", "stunning", "breathtaking", "iconic", "unmissable"}

// collectKeywordLines keeps length-filtered lines containing any trigger
// keyword, capped at max.
func collectKeywordLines(lines []string, keywords []string, max int) []string {
	var out []string
	for _, line := range lines {
		if len(out) >= max {
			break
		}
		clean := strings.TrimSpace(markdownRe.ReplaceAllString(line, ""))
		if len(clean) < minLineLen || len(clean) > maxLineLen {
			continue
		}
		lower := strings.ToLower(clean)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				out = append(out, clean)
				break
			}
		}
	}
	return out
}

func extractOpeningHours(lines []string) []string {
	var out []string
	for _, line := range lines {
		if len(out) >= maxOpeningHours {
			break
		}
		clean := strings.TrimSpace(markdownRe.ReplaceAllString(line, ""))
		if len(clean) == 0 || len(clean) > 120 {
			continue
		}
		lower := strings.ToLower(clean)
		hasKeyword := strings.Contains(lower, "hour") || strings.Contains(lower, "open") ||
			strings.Contains(lower, "closed") || strings.Contains(lower, "daily")
		hasTime := digitRe.MatchString(clean) || strings.Contains(lower, "am") || strings.Contains(lower, "pm")
		if hasKeyword && hasTime {
			out = append(out, clean)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
