package staging

import (
	"context"
	"errors"
	"strings"
	"testing"

	"istanbul-explorer/internal/enhance"
	"istanbul-explorer/internal/models"
	"istanbul-explorer/internal/publish"
	testutil "istanbul-explorer/internal/testing"
	"istanbul-explorer/pkg/logging"
)

type fixture struct {
	repo     *testutil.MockRepository
	enhancer *testutil.MockEnhancer
	scraper  *testutil.MockScraper
	searcher *testutil.MockSearcher
	places   *testutil.MockPlaces
	events   *testutil.MockEventStore
	svc      *Service
}

func newFixture() *fixture {
	log := logging.New(logging.DefaultConfig())
	repo := testutil.NewMockRepository()
	f := &fixture{
		repo:     repo,
		enhancer: testutil.NewMockEnhancer(),
		scraper:  &testutil.MockScraper{},
		searcher: &testutil.MockSearcher{},
		places:   &testutil.MockPlaces{},
		events:   &testutil.MockEventStore{},
	}
	f.svc = NewService(Deps{
		Repo:            repo,
		Pipeline:        publish.NewPipeline(repo, testutil.NewMockUOWFactory(repo), 85, log),
		Enhancer:        f.enhancer,
		Scraper:         f.scraper,
		Places:          f.places,
		Searcher:        f.searcher,
		Events:          f.events,
		Log:             log,
		ConfidenceDelta: 10,
	})
	return f
}

func pendingItem(id int64, title string) models.StagingItem {
	return models.StagingItem{
		ID:              id,
		Title:           title,
		Category:        models.CategoryActivities,
		Status:          models.StatusPending,
		Images:          []string{"https://x.com/a.jpg"},
		ConfidenceScore: 70,
		SourceURLs:      []string{"https://istanbul.com/place/" + title},
		Raw: models.RawContent{
			Description: "An original description long enough to survive enhancement untouched.",
			Website:     "https://istanbul.com/place",
		},
	}
}

func TestApprove(t *testing.T) {
	f := newFixture()
	f.repo.Add(pendingItem(1, "Hagia Sophia"))
	f.repo.Add(pendingItem(2, "Blue Mosque"))

	rejected := pendingItem(3, "Closed Venue")
	rejected.Status = models.StatusRejected
	f.repo.Add(rejected)

	n, err := f.svc.Approve(context.Background(), []int64{1, 2, 3}, "looks good", nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("affected = %d, want 2 (rejected item is not pending)", n)
	}
	if f.repo.Items[1].Status != models.StatusApproved {
		t.Errorf("item 1 status = %q", f.repo.Items[1].Status)
	}
	if f.repo.Items[3].Status != models.StatusRejected {
		t.Errorf("item 3 status = %q, must stay rejected", f.repo.Items[3].Status)
	}
	if types := f.events.Types(); len(types) != 3 || types[0] != "item.approved" {
		t.Errorf("events = %v", types)
	}
}

func TestApproveEmptyIDs(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Approve(context.Background(), nil, "", nil); err == nil {
		t.Fatal("want validation error for empty ids")
	}
}

func TestAuditFailureIsSwallowed(t *testing.T) {
	f := newFixture()
	f.repo.Add(pendingItem(1, "Hagia Sophia"))
	f.events.AppendErr = errors.New("events table missing")

	n, err := f.svc.Approve(context.Background(), []int64{1}, "", nil)
	if err != nil {
		t.Fatalf("audit failure must not surface: %v", err)
	}
	if n != 1 {
		t.Errorf("affected = %d, want 1", n)
	}
}

func TestReject(t *testing.T) {
	f := newFixture()
	f.repo.Add(pendingItem(1, "Hagia Sophia"))

	n, err := f.svc.Reject(context.Background(), []int64{1}, "duplicate", nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || f.repo.Items[1].Status != models.StatusRejected {
		t.Errorf("n = %d, status = %q", n, f.repo.Items[1].Status)
	}
}

func TestOverrideThumbnail(t *testing.T) {
	f := newFixture()
	f.repo.Add(pendingItem(1, "Hagia Sophia"))

	if err := f.svc.OverrideThumbnail(context.Background(), 1, nil, nil); err == nil {
		t.Fatal("want validation error when thumbnail data missing")
	}
	if err := f.svc.OverrideThumbnail(context.Background(), 1, &Thumbnail{}, nil); err == nil {
		t.Fatal("want validation error when thumbnail url empty")
	}

	idx := 2
	err := f.svc.OverrideThumbnail(context.Background(), 1, &Thumbnail{
		URL:    "https://x.com/hero.jpg",
		Index:  &idx,
		Reason: "better framing",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	item := f.repo.Items[1]
	if item.PrimaryImage == nil || *item.PrimaryImage != "https://x.com/hero.jpg" {
		t.Errorf("PrimaryImage = %v", item.PrimaryImage)
	}
	if item.Raw.ThumbnailReason != "better framing" {
		t.Errorf("ThumbnailReason = %q", item.Raw.ThumbnailReason)
	}
}

func TestEnhanceBatchPartialFailure(t *testing.T) {
	f := newFixture()
	f.repo.Add(pendingItem(1, "Hagia Sophia"))
	f.repo.Add(pendingItem(2, "Blue Mosque"))
	f.repo.Add(pendingItem(3, "Basilica Cistern"))
	f.enhancer.Err[2] = errors.New("provider exploded")

	out, err := f.svc.EnhanceBatch(context.Background(), []int64{1, 2, 3}, enhance.Config{Type: enhance.TypeFull}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(out.Enhanced) != 2 {
		t.Fatalf("Enhanced = %+v, want 2 entries", out.Enhanced)
	}
	if len(out.Errors) != 1 || !strings.Contains(out.Errors[0], "Blue Mosque") {
		t.Fatalf("Errors = %v", out.Errors)
	}
	if out.Summary != "2 enhanced, 1 failed" {
		t.Errorf("Summary = %q", out.Summary)
	}

	// Failed item untouched; succeeded items updated and bumped.
	if f.repo.Items[2].Title != "Blue Mosque" || f.repo.Items[2].ConfidenceScore != 70 {
		t.Errorf("failed item mutated: %+v", f.repo.Items[2])
	}
	one := f.repo.Items[1]
	if one.Title != "Enhanced Hagia Sophia" {
		t.Errorf("Title = %q", one.Title)
	}
	if one.ConfidenceScore != 80 {
		t.Errorf("ConfidenceScore = %d, want 70+10", one.ConfidenceScore)
	}
	if one.Raw.Original == nil || one.Raw.Original.Title != "Hagia Sophia" {
		t.Errorf("original snapshot = %+v", one.Raw.Original)
	}
	if len(one.Raw.EnhancementLog) != 1 {
		t.Fatalf("EnhancementLog = %+v", one.Raw.EnhancementLog)
	}
	entry := one.Raw.EnhancementLog[0]
	if entry.ConfidenceBefore != 70 || entry.ConfidenceAfter != 80 || entry.Model != "mock-model" {
		t.Errorf("log entry = %+v", entry)
	}
}

func TestEnhanceConfidenceCap(t *testing.T) {
	f := newFixture()
	item := pendingItem(1, "Hagia Sophia")
	item.ConfidenceScore = 95
	f.repo.Add(item)

	if _, err := f.svc.EnhanceBatch(context.Background(), []int64{1}, enhance.Config{Type: enhance.TypeFull}, nil); err != nil {
		t.Fatal(err)
	}
	if got := f.repo.Items[1].ConfidenceScore; got != 100 {
		t.Errorf("ConfidenceScore = %d, want capped at 100", got)
	}
}

func TestEnhanceSnapshotFirstWins(t *testing.T) {
	f := newFixture()
	f.repo.Add(pendingItem(1, "Hagia Sophia"))

	for i := 0; i < 2; i++ {
		if _, err := f.svc.EnhanceBatch(context.Background(), []int64{1}, enhance.Config{Type: enhance.TypeFull}, nil); err != nil {
			t.Fatal(err)
		}
	}

	orig := f.repo.Items[1].Raw.Original
	if orig == nil || orig.Title != "Hagia Sophia" {
		t.Errorf("Original = %+v, first snapshot must win", orig)
	}
	if len(f.repo.Items[1].Raw.EnhancementLog) != 2 {
		t.Errorf("EnhancementLog entries = %d, want 2", len(f.repo.Items[1].Raw.EnhancementLog))
	}
}

func TestEnhanceBatchRejectsBadConfig(t *testing.T) {
	f := newFixture()
	f.repo.Add(pendingItem(1, "Hagia Sophia"))
	if _, err := f.svc.EnhanceBatch(context.Background(), []int64{1}, enhance.Config{Type: "banana"}, nil); err == nil {
		t.Fatal("want validation error")
	}
	if _, err := f.svc.EnhanceBatch(context.Background(), nil, enhance.Config{Type: enhance.TypeFull}, nil); err == nil {
		t.Fatal("want validation error for empty ids")
	}
}

func TestEnrich(t *testing.T) {
	f := newFixture()
	f.repo.Add(pendingItem(1, "Hagia Sophia"))
	f.scraper.Markdown = "The Hagia Sophia is a historic marvel with centuries of stories to tell visitors.\n\nFree wifi available.\n\nOpening hours: daily 9am to 5pm."

	out, err := f.svc.Enrich(context.Background(), 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.Skipped {
		t.Fatalf("Skipped = true: %s", out.SkipReason)
	}
	if out.CreditsUsed != 1 {
		t.Errorf("CreditsUsed = %d", out.CreditsUsed)
	}
	if len(out.EnrichedFields) == 0 {
		t.Fatal("no enriched fields reported")
	}

	item := f.repo.Items[1]
	if item.Raw.EnrichedAt == nil {
		t.Error("EnrichedAt not set")
	}
	if item.Raw.Facilities == nil || !item.Raw.Facilities.Wifi {
		t.Errorf("facilities not merged: %+v", item.Raw.Facilities)
	}
	// Existing description is never overwritten by extraction.
	if !strings.HasPrefix(item.Raw.Description, "An original description") {
		t.Errorf("description overwritten: %q", item.Raw.Description)
	}
}

func TestEnrichSkipReason(t *testing.T) {
	f := newFixture()
	f.repo.Add(pendingItem(1, "Hagia Sophia"))
	f.scraper.Deny = true
	f.scraper.Reason = "domain example.net is not on the enrichment allowlist"

	out, err := f.svc.Enrich(context.Background(), 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Skipped || out.SkipReason == "" {
		t.Fatalf("out = %+v, want skip with reason", out)
	}
	if f.scraper.Calls != 0 {
		t.Errorf("Scrape called %d times, skip must spend no credits", f.scraper.Calls)
	}
}

func TestEnrichNoWebsite(t *testing.T) {
	f := newFixture()
	item := pendingItem(1, "Hagia Sophia")
	item.Raw.Website = ""
	item.SourceURLs = nil
	f.repo.Add(item)

	out, err := f.svc.Enrich(context.Background(), 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Skipped {
		t.Fatal("want skip when the item has no URL at all")
	}
}

func TestRescrapeValidation(t *testing.T) {
	f := newFixture()
	f.repo.Add(pendingItem(1, "Hagia Sophia"))
	if _, err := f.svc.Rescrape(context.Background(), 1, RescrapeIntent{}, 0, nil); err == nil {
		t.Fatal("want validation error when no intent selected")
	}
}

func TestRescrapeImages(t *testing.T) {
	f := newFixture()
	f.repo.Add(pendingItem(1, "Hagia Sophia"))
	f.searcher.URLs = []string{
		"https://x.com/a.jpg?w=999", // dup of the existing image
		"https://x.com/b.jpg",
		"https://x.com/c.jpg",
		"https://x.com/d.jpg",
	}

	out, err := f.svc.Rescrape(context.Background(), 1, RescrapeIntent{Images: true}, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.ChangesSummary) != 1 {
		t.Fatalf("ChangesSummary = %v", out.ChangesSummary)
	}

	imgs := f.repo.Items[1].Images
	want := []string{"https://x.com/a.jpg", "https://x.com/b.jpg", "https://x.com/c.jpg"}
	if len(imgs) != len(want) {
		t.Fatalf("Images = %v, want %v", imgs, want)
	}
	for i := range want {
		if imgs[i] != want[i] {
			t.Errorf("Images[%d] = %q, want %q", i, imgs[i], want[i])
		}
	}
}

func TestRescrapeReplaceImages(t *testing.T) {
	f := newFixture()
	f.repo.Add(pendingItem(1, "Hagia Sophia"))
	f.searcher.URLs = []string{"https://x.com/new1.jpg", "https://x.com/new2.jpg", "https://x.com/new3.jpg"}

	_, err := f.svc.Rescrape(context.Background(), 1, RescrapeIntent{ReplaceImages: true}, 2, nil)
	if err != nil {
		t.Fatal(err)
	}

	imgs := f.repo.Items[1].Images
	if len(imgs) != 2 || imgs[0] != "https://x.com/new1.jpg" {
		t.Errorf("Images = %v, want the two new images only", imgs)
	}
}

func TestRescrapeDescriptionUpdate(t *testing.T) {
	f := newFixture()
	f.repo.Add(pendingItem(1, "Hagia Sophia"))

	out, err := f.svc.Rescrape(context.Background(), 1, RescrapeIntent{DescriptionUpdate: true}, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.ChangesSummary) != 1 || !strings.Contains(out.ChangesSummary[0], "description rewritten") {
		t.Errorf("ChangesSummary = %v", out.ChangesSummary)
	}
	if f.repo.Items[1].Raw.Description != "Enhanced description." {
		t.Errorf("Description = %q", f.repo.Items[1].Raw.Description)
	}
}

func TestRescrapeFullRefreshesPlaceFacts(t *testing.T) {
	f := newFixture()
	f.repo.Add(pendingItem(1, "Hagia Sophia"))
	f.scraper.Markdown = "A long informative paragraph about the venue that clears the length threshold easily."
	f.searcher.URLs = []string{"https://x.com/b.jpg"}

	out, err := f.svc.Rescrape(context.Background(), 1, RescrapeIntent{FullRescrape: true}, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.ChangesSummary) == 0 {
		t.Fatal("empty ChangesSummary")
	}

	item := f.repo.Items[1]
	if item.Raw.Rating != 4.5 || item.Raw.ReviewCount != 100 {
		t.Errorf("place facts not applied: rating %v reviews %d", item.Raw.Rating, item.Raw.ReviewCount)
	}
}

func TestPublishDelegatesAndRecordsEvents(t *testing.T) {
	f := newFixture()
	item := pendingItem(1, "Hagia Sophia")
	item.Status = models.StatusApproved
	item.ConfidenceScore = 90
	f.repo.Add(item)

	out, err := f.svc.Publish(context.Background(), []int64{1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Published) != 1 {
		t.Fatalf("Published = %+v", out.Published)
	}

	found := false
	for _, typ := range f.events.Types() {
		if typ == "item.published" {
			found = true
		}
	}
	if !found {
		t.Errorf("no item.published event recorded: %v", f.events.Types())
	}
}

func TestStats(t *testing.T) {
	f := newFixture()
	f.repo.Add(pendingItem(1, "A"))
	approved := pendingItem(2, "B")
	approved.Status = models.StatusApproved
	f.repo.Add(approved)

	stats, err := f.svc.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 2 || stats.ByStatus[models.StatusPending] != 1 || stats.ByStatus[models.StatusApproved] != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
