package enhance

import (
	"context"
	"strings"
	"testing"

	"istanbul-explorer/internal/models"
)

func testSet(t *testing.T) *TemplateSet {
	t.Helper()
	set, err := LoadTemplates("")
	if err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}
	return set
}

func testItem() models.StagingItem {
	return models.StagingItem{
		ID:       1,
		Title:    "Hagia Sophia",
		Category: models.CategoryActivities,
		Status:   models.StatusPending,
		Raw: models.RawContent{
			Description: "Hagia Sophia is a vast architectural marvel spanning fifteen centuries of history.",
			Highlights:  []string{"Byzantine mosaics"},
		},
	}
}

func TestLoadTemplatesEmbedded(t *testing.T) {
	set := testSet(t)
	if len(set.Titles["tourists"]["engaging"]) == 0 {
		t.Error("tourists/engaging title bucket empty; the fallback bucket must exist")
	}
	for _, cat := range []string{"activities", "restaurants", "hotels", "shopping"} {
		if set.DefaultDescriptions[cat] == "" {
			t.Errorf("no default description for category %q", cat)
		}
		if len(set.HighlightPools[cat]) == 0 {
			t.Errorf("no highlight pool for category %q", cat)
		}
	}
}

func TestTemplateEnhancerNeverFails(t *testing.T) {
	e := newSeededTemplateEnhancer(testSet(t), 1)
	cfgs := []Config{
		{Type: TypeFull},
		{Type: TypeFull, Audience: AudienceLocals, Style: StyleCasual},
		{Type: TypeFull, Audience: AudienceCouples, Style: StyleProfessional}, // bucket absent, falls back
	}
	for _, cfg := range cfgs {
		res, err := e.Enhance(context.Background(), testItem(), cfg)
		if err != nil {
			t.Fatalf("Enhance(%+v) error: %v", cfg, err)
		}
		if res.Title == "" || res.Description == "" {
			t.Errorf("Enhance(%+v) returned empty fields: %+v", cfg, res)
		}
		if res.Model != templateModel {
			t.Errorf("Model = %q, want %q", res.Model, templateModel)
		}
	}
}

func TestTemplateTitleSubstitution(t *testing.T) {
	e := newSeededTemplateEnhancer(testSet(t), 42)
	res, err := e.Enhance(context.Background(), testItem(), Config{Type: TypeTitle})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Title, "Hagia Sophia") {
		t.Errorf("Title = %q, want the original title substituted in", res.Title)
	}
	if strings.Contains(res.Title, "{title}") {
		t.Errorf("Title = %q, placeholder left unsubstituted", res.Title)
	}
}

func TestTemplateDescriptionShortOriginal(t *testing.T) {
	e := newSeededTemplateEnhancer(testSet(t), 1)
	item := testItem()
	item.Raw.Description = "ok"

	res, err := e.Enhance(context.Background(), item, Config{Type: TypeDescription})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Description, "Hagia Sophia") {
		t.Errorf("default description missing title: %q", res.Description)
	}
	if !strings.Contains(res.Description, "Istanbul") {
		t.Errorf("default description missing location: %q", res.Description)
	}
	if strings.Contains(res.Description, "{") {
		t.Errorf("unsubstituted placeholder in %q", res.Description)
	}
}

func TestTemplateDescriptionFraming(t *testing.T) {
	set := testSet(t)
	e := newSeededTemplateEnhancer(set, 1)

	// No location mention: opening is prepended, closing appended.
	item := testItem()
	item.Raw.Description = "A vast domed basilica   with layered imperial history\n and glittering mosaics!!"
	res, err := e.Enhance(context.Background(), item, Config{Type: TypeDescription, Audience: AudienceTourists})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(res.Description, set.Openings["tourists"]) {
		t.Errorf("Description = %q, want opening prefix", res.Description)
	}
	if !strings.HasSuffix(res.Description, set.Closings["tourists"]) {
		t.Errorf("Description = %q, want closing suffix", res.Description)
	}
	if strings.Contains(res.Description, "  ") {
		t.Errorf("whitespace not normalized: %q", res.Description)
	}
	if strings.Contains(res.Description, "!!") {
		t.Errorf("trailing punctuation not normalized: %q", res.Description)
	}

	// Location already mentioned: no opening.
	item.Raw.Description = "Centuries of Istanbul history condensed into one building and courtyard."
	res, err = e.Enhance(context.Background(), item, Config{Type: TypeDescription, Audience: AudienceTourists})
	if err != nil {
		t.Fatal(err)
	}
	if strings.HasPrefix(res.Description, set.Openings["tourists"]) {
		t.Errorf("Description = %q, opening should be skipped when the location is mentioned", res.Description)
	}
}

func TestTemplateHighlightsTopUp(t *testing.T) {
	e := newSeededTemplateEnhancer(testSet(t), 7)
	item := testItem()

	res, err := e.Enhance(context.Background(), item, Config{Type: TypeHighlights})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Highlights) < targetHighlights {
		t.Errorf("len(Highlights) = %d, want >= %d", len(res.Highlights), targetHighlights)
	}
	if len(res.Highlights) > maxHighlightsTotal {
		t.Errorf("len(Highlights) = %d, cap is %d", len(res.Highlights), maxHighlightsTotal)
	}
	if res.Highlights[0] != "Byzantine mosaics" {
		t.Errorf("existing highlights must stay first, got %v", res.Highlights)
	}
	seen := map[string]bool{}
	for _, h := range res.Highlights {
		if seen[h] {
			t.Errorf("duplicate highlight %q", h)
		}
		seen[h] = true
	}
}

func TestTemplateHighlightsUnknownCategoryPool(t *testing.T) {
	e := newSeededTemplateEnhancer(testSet(t), 7)
	item := testItem()
	item.Category = models.Category("mystery")
	item.Raw.Highlights = []string{"Only one"}

	res, err := e.Enhance(context.Background(), item, Config{Type: TypeHighlights})
	if err != nil {
		t.Fatal(err)
	}
	// No pool to draw from: existing highlights pass through unchanged.
	if len(res.Highlights) != 1 || res.Highlights[0] != "Only one" {
		t.Errorf("Highlights = %v, want passthrough", res.Highlights)
	}
}
