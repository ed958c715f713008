package publish

import (
	"context"
	"strings"
	"testing"

	"istanbul-explorer/internal/models"
	testutil "istanbul-explorer/internal/testing"
	"istanbul-explorer/pkg/logging"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hagia Sophia", "hagia-sophia"},
		{"Topkapı Palace & Harem!", "topkap-palace-harem"},
		{"  spaced   out  ", "spaced-out"},
		{"already-hyphenated", "already-hyphenated"},
		{"--leading and trailing--", "leading-and-trailing"},
		{"Çırağan Palace", "raan-palace"},
		{"123 Steps", "123-steps"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugifyDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		if got := Slugify("Grand Bazaar Tour"); got != "grand-bazaar-tour" {
			t.Fatalf("Slugify unstable: %q", got)
		}
	}
}

func TestDeriveSubcategory(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"a world-class museum of byzantine art", "museum"},
		{"an art gallery in beyoglu", "museum"},
		{"ottoman palace on the bosphorus", "historic_site"},
		{"the mosque is an ancient wonder", "historic_site"},
		{"whirling dervish show every evening", "entertainment"},
		{"a walking tour of the old city", "outdoor"},
		{"the grand bazaar market", "shopping"},
		{"bosphorus cruise by ferry", "transport"},
		{"just a nice place", "general"},
		{"", "general"},
		// museum wins over historic_site when both match
		{"museum inside an ancient palace", "museum"},
	}
	for _, tt := range tests {
		if got := DeriveSubcategory(tt.text); got != tt.want {
			t.Errorf("DeriveSubcategory(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func approvedItem(id int64, title string) models.StagingItem {
	return models.StagingItem{
		ID:              id,
		Title:           title,
		Category:        models.CategoryActivities,
		Status:          models.StatusApproved,
		Images:          []string{"https://x.com/a.jpg"},
		ConfidenceScore: 90,
		SourceURLs:      []string{"https://example.org/page"},
		Raw: models.RawContent{
			Description: "A museum of world history.",
			Price:       "€25",
			Rating:      4.7,
			ReviewCount: 1200,
		},
	}
}

func TestBuildEntity(t *testing.T) {
	item := approvedItem(7, "Hagia Sophia")
	e, err := BuildEntity(&item, "hagia-sophia", 85)
	if err != nil {
		t.Fatal(err)
	}

	if e.Name != "Hagia Sophia" || e.Slug != "hagia-sophia" {
		t.Errorf("Name/Slug = %q/%q", e.Name, e.Slug)
	}
	if e.Subcategory != "museum" {
		t.Errorf("Subcategory = %q, want museum", e.Subcategory)
	}
	if !e.Featured {
		t.Error("Featured = false, confidence 90 >= threshold 85")
	}
	if e.Metadata.OriginalStagingID != 7 {
		t.Errorf("OriginalStagingID = %d", e.Metadata.OriginalStagingID)
	}
	if len(e.Metadata.SourceURLs) != 1 {
		t.Errorf("SourceURLs = %v", e.Metadata.SourceURLs)
	}
	if e.Metadata.PublishedAt.IsZero() {
		t.Error("PublishedAt not set")
	}
	if e.Rating != 4.7 || e.ReviewCount != 1200 || e.Price != "€25" {
		t.Errorf("commerce fields not copied: %+v", e)
	}
}

func TestBuildEntityNotFeaturedBelowThreshold(t *testing.T) {
	item := approvedItem(7, "Hagia Sophia")
	item.ConfidenceScore = 84
	e, err := BuildEntity(&item, "hagia-sophia", 85)
	if err != nil {
		t.Fatal(err)
	}
	if e.Featured {
		t.Error("Featured = true for confidence below threshold")
	}
}

func TestBuildEntityValidation(t *testing.T) {
	item := approvedItem(1, "")
	if _, err := BuildEntity(&item, "x", 85); err == nil {
		t.Error("want error for empty title")
	}

	item = approvedItem(1, "ok title")
	item.Category = "mystery"
	if _, err := BuildEntity(&item, "ok-title", 85); err == nil {
		t.Error("want error for unknown category")
	}

	item = approvedItem(1, "ok title")
	if _, err := BuildEntity(&item, "", 85); err == nil {
		t.Error("want error for empty slug")
	}
}

func newTestPipeline(repo *testutil.MockRepository) *Pipeline {
	return NewPipeline(repo, testutil.NewMockUOWFactory(repo), 85, logging.New(logging.DefaultConfig()))
}

func TestPublishApprovedOnly(t *testing.T) {
	repo := testutil.NewMockRepository()
	repo.Add(approvedItem(1, "Hagia Sophia"))

	pending := approvedItem(2, "Blue Mosque")
	pending.Status = models.StatusPending
	repo.Add(pending)

	published := approvedItem(3, "Basilica Cistern")
	published.Status = models.StatusPublished
	repo.Add(published)

	out, err := newTestPipeline(repo).Publish(context.Background(), []int64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}

	if len(out.Published) != 1 || out.Published[0].StagingID != 1 {
		t.Fatalf("Published = %+v, want only item 1", out.Published)
	}
	if len(out.Errors) != 0 {
		t.Errorf("Errors = %v, non-approved items are skipped silently", out.Errors)
	}
	if repo.Items[1].Status != models.StatusPublished {
		t.Errorf("item 1 status = %q, want published", repo.Items[1].Status)
	}
	if repo.Items[2].Status != models.StatusPending {
		t.Errorf("item 2 status = %q, must be untouched", repo.Items[2].Status)
	}
}

func TestPublishNoApprovedItems(t *testing.T) {
	repo := testutil.NewMockRepository()
	item := approvedItem(1, "Hagia Sophia")
	item.Status = models.StatusRejected
	repo.Add(item)

	out, err := newTestPipeline(repo).Publish(context.Background(), []int64{1})
	if err != nil {
		t.Fatal(err)
	}
	if out.Message == "" {
		t.Error("want a no-approved-items message, not an error")
	}
	if len(out.Published) != 0 {
		t.Errorf("Published = %+v", out.Published)
	}
}

func TestPublishEmptyIDs(t *testing.T) {
	repo := testutil.NewMockRepository()
	if _, err := newTestPipeline(repo).Publish(context.Background(), nil); err == nil {
		t.Fatal("want validation error for empty id list")
	}
}

func TestPublishSlugCollision(t *testing.T) {
	repo := testutil.NewMockRepository()
	repo.Slugs["activities/hagia-sophia"] = true
	repo.Add(approvedItem(1, "Hagia Sophia"))

	out, err := newTestPipeline(repo).Publish(context.Background(), []int64{1})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Published) != 1 {
		t.Fatalf("Published = %+v", out.Published)
	}
	if !repo.Slugs["activities/hagia-sophia-2"] {
		t.Error("collision should produce the -2 suffix slug")
	}
}

func TestPublishPartialFailure(t *testing.T) {
	repo := testutil.NewMockRepository()
	repo.Add(approvedItem(1, "Hagia Sophia"))
	repo.Add(approvedItem(2, "Blue Mosque"))
	repo.Add(approvedItem(3, "Basilica Cistern"))
	repo.InsertErr[2] = context.DeadlineExceeded

	out, err := newTestPipeline(repo).Publish(context.Background(), []int64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}

	if len(out.Published) != 2 {
		t.Fatalf("Published = %+v, want items 1 and 3", out.Published)
	}
	if len(out.Errors) != 1 {
		t.Fatalf("Errors = %v, want one entry", out.Errors)
	}
	if !strings.Contains(out.Errors[0], `Failed to publish "Blue Mosque"`) {
		t.Errorf("error message = %q, want the item title in it", out.Errors[0])
	}

	// The failed item keeps its approved status; the others flipped.
	if repo.Items[2].Status != models.StatusApproved {
		t.Errorf("failed item status = %q, want approved", repo.Items[2].Status)
	}
	if repo.Items[1].Status != models.StatusPublished || repo.Items[3].Status != models.StatusPublished {
		t.Error("successful items must flip to published")
	}
}
