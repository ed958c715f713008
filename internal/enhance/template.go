package enhance

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"istanbul-explorer/internal/models"
	"istanbul-explorer/pkg/utils"
)

const (
	templateModel = "template-v1"
	location      = "Istanbul"

	minDescriptionChars = 10
	targetHighlights    = 5
	maxHighlightsTotal  = 8
)

// TemplateEnhancer is the terminal element of the fallback chain: a
// deterministic local engine with no external dependency. It must always
// succeed so an enhancement request is never hard-failing.
type TemplateEnhancer struct {
	set *TemplateSet

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewTemplateEnhancer(set *TemplateSet) *TemplateEnhancer {
	return &TemplateEnhancer{
		set: set,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// newSeededTemplateEnhancer pins the random source for tests.
func newSeededTemplateEnhancer(set *TemplateSet, seed int64) *TemplateEnhancer {
	return &TemplateEnhancer{set: set, rnd: rand.New(rand.NewSource(seed))}
}

func (e *TemplateEnhancer) Name() string { return "template" }

func (e *TemplateEnhancer) Enhance(_ context.Context, item models.StagingItem, cfg Config) (*Result, error) {
	cfg.Normalize()
	return &Result{
		Title:       e.enhanceTitle(item.Title, cfg),
		Description: e.enhanceDescription(item, cfg),
		Highlights:  e.enhanceHighlights(item),
		Model:       templateModel,
	}, nil
}

// enhanceTitle substitutes the original title into a random template from
// the audience x style bucket, falling back to tourists/engaging when the
// specific bucket is absent.
func (e *TemplateEnhancer) enhanceTitle(title string, cfg Config) string {
	bucket := e.set.Titles[string(cfg.Audience)][string(cfg.Style)]
	if len(bucket) == 0 {
		bucket = e.set.Titles[string(AudienceTourists)][string(StyleEngaging)]
	}
	if len(bucket) == 0 {
		return title
	}
	tpl := bucket[e.intn(len(bucket))]
	return strings.ReplaceAll(tpl, "{title}", title)
}

// enhanceDescription rewrites the description per the template rules: a
// too-short original gets a fully default description from category and
// location; otherwise whitespace and trailing punctuation are normalized,
// an audience framing sentence is prepended (only when the text does not
// already mention the location) and an audience closing appended.
func (e *TemplateEnhancer) enhanceDescription(item models.StagingItem, cfg Config) string {
	orig := strings.TrimSpace(item.Raw.Description)

	if len(orig) < minDescriptionChars {
		tpl := e.set.DefaultDescriptions[string(item.Category)]
		if tpl == "" {
			tpl = "{title} is a notable destination in {location}."
		}
		tpl = strings.ReplaceAll(tpl, "{title}", item.Title)
		return strings.ReplaceAll(tpl, "{location}", location)
	}

	desc := strings.Join(strings.Fields(orig), " ")
	desc = strings.TrimRight(desc, ".!? ")
	desc += "."

	if !strings.Contains(strings.ToLower(desc), strings.ToLower(location)) {
		if opening := e.audienceSentence(e.set.Openings, cfg.Audience); opening != "" {
			desc = opening + " " + desc
		}
	}
	if closing := e.audienceSentence(e.set.Closings, cfg.Audience); closing != "" {
		desc = desc + " " + closing
	}
	return desc
}

func (e *TemplateEnhancer) audienceSentence(m map[string]string, a Audience) string {
	if s, ok := m[string(a)]; ok {
		return s
	}
	return m[string(AudienceTourists)]
}

// enhanceHighlights tops up the existing highlights from the category pool:
// while fewer than five and the pool is non-empty, draw an entry whose first
// word is not already contained in any current highlight, appending it and
// removing it from the pool to avoid repeats. The final list caps at eight.
func (e *TemplateEnhancer) enhanceHighlights(item models.StagingItem) []string {
	highlights := append([]string(nil), item.Raw.Highlights...)
	pool := append([]string(nil), e.set.HighlightPools[string(item.Category)]...)

	for len(highlights) < targetHighlights && len(pool) > 0 {
		idx := e.intn(len(pool))
		candidate := pool[idx]
		pool = append(pool[:idx], pool[idx+1:]...)

		if containsFirstWord(highlights, candidate) {
			continue
		}
		highlights = append(highlights, candidate)
	}

	if len(highlights) > maxHighlightsTotal {
		highlights = highlights[:maxHighlightsTotal]
	}
	return highlights
}

func containsFirstWord(existing []string, candidate string) bool {
	fw := utils.FirstWord(candidate)
	if fw == "" {
		return true
	}
	for _, h := range existing {
		if strings.Contains(strings.ToLower(h), fw) {
			return true
		}
	}
	return false
}

func (e *TemplateEnhancer) intn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rnd.Intn(n)
}
