// Package staging orchestrates the review lifecycle of scraped venue
// candidates: bulk approve/reject, thumbnail override, AI enhancement,
// external enrichment, image rescrape, and publication.
package staging

import (
	"context"
	"fmt"
	"time"

	"istanbul-explorer/internal/domain"
	"istanbul-explorer/internal/enhance"
	"istanbul-explorer/internal/extract"
	"istanbul-explorer/internal/images"
	"istanbul-explorer/internal/models"
	"istanbul-explorer/internal/publish"
	"istanbul-explorer/internal/scraper"
	"istanbul-explorer/pkg/batch"
	errs "istanbul-explorer/pkg/errors"
	"istanbul-explorer/pkg/events"
	"istanbul-explorer/pkg/logging"
	"istanbul-explorer/pkg/metrics"
	"istanbul-explorer/pkg/utils"
)

const defaultImageCount = 5

// Enhancer is the slice of the enhancement chain the service needs.
type Enhancer interface {
	Enhance(ctx context.Context, item models.StagingItem, cfg enhance.Config) (*enhance.Result, error)
}

// Service wires the review operations to storage, providers, and the audit
// trail. All batch operations run sequentially in input order and isolate
// per-item failures.
type Service struct {
	repo     domain.Repository
	pipeline *publish.Pipeline
	enhancer Enhancer
	scraper  scraper.ContentScraper
	places   scraper.PlaceRefresher
	searcher images.Searcher
	events   events.EventStore
	log      *logging.Logger

	confidenceDelta int

	approvals    *metrics.Counter
	rejections   *metrics.Counter
	publishes    *metrics.Counter
	enhancements *metrics.Counter
	credits      *metrics.Counter
}

// Deps carries the service's collaborators. Places and Searcher may be nil
// when the corresponding provider is not configured; operations needing them
// degrade per their best-effort rules.
type Deps struct {
	Repo            domain.Repository
	Pipeline        *publish.Pipeline
	Enhancer        Enhancer
	Scraper         scraper.ContentScraper
	Places          scraper.PlaceRefresher
	Searcher        images.Searcher
	Events          events.EventStore
	Log             *logging.Logger
	ConfidenceDelta int
}

func NewService(d Deps) *Service {
	delta := d.ConfidenceDelta
	if delta <= 0 {
		delta = 10
	}
	return &Service{
		repo:            d.Repo,
		pipeline:        d.Pipeline,
		enhancer:        d.Enhancer,
		scraper:         d.Scraper,
		places:          d.Places,
		searcher:        d.Searcher,
		events:          d.Events,
		log:             d.Log.WithComponent("staging"),
		confidenceDelta: delta,
		approvals:       metrics.Default.Counter("staging_approvals_total", "Items approved"),
		rejections:      metrics.Default.Counter("staging_rejections_total", "Items rejected"),
		publishes:       metrics.Default.Counter("staging_publishes_total", "Items published"),
		enhancements:    metrics.Default.Counter("staging_enhancements_total", "Items enhanced"),
		credits:         metrics.Default.Counter("enrichment_credits_total", "Scrape credits spent"),
	}
}

// recordEvent appends to the audit trail. The trail is best-effort: a failed
// insert is logged and swallowed, never surfaced to the caller.
func (s *Service) recordEvent(ctx context.Context, e events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, e); err != nil {
		s.log.Warn("audit event insert failed", "type", e.Type(), "staging_id", e.StagingID(), "error", err)
	}
}

// Approve flips pending items to approved and returns the affected count.
func (s *Service) Approve(ctx context.Context, ids []int64, notes string, admin *string) (int64, error) {
	if len(ids) == 0 {
		return 0, errs.NewValidation("staging.Approve", "no item ids provided", nil)
	}
	n, err := s.repo.UpdateStatusCtx(ctx, ids, models.StatusPending, models.StatusApproved)
	if err != nil {
		return 0, err
	}
	s.approvals.Add(n)
	for _, id := range ids {
		s.recordEvent(ctx, events.ItemApproved{Base: events.NewBase(id, admin), Notes: notes})
	}
	return n, nil
}

// Reject flips pending items to rejected and returns the affected count.
func (s *Service) Reject(ctx context.Context, ids []int64, notes string, admin *string) (int64, error) {
	if len(ids) == 0 {
		return 0, errs.NewValidation("staging.Reject", "no item ids provided", nil)
	}
	n, err := s.repo.UpdateStatusCtx(ctx, ids, models.StatusPending, models.StatusRejected)
	if err != nil {
		return 0, err
	}
	s.rejections.Add(n)
	for _, id := range ids {
		s.recordEvent(ctx, events.ItemRejected{Base: events.NewBase(id, admin), Notes: notes})
	}
	return n, nil
}

// Thumbnail is an editor's explicit hero image choice.
type Thumbnail struct {
	URL    string `json:"thumbnailUrl"`
	Index  *int   `json:"thumbnailIndex,omitempty"`
	Reason string `json:"thumbnailReason,omitempty"`
}

// OverrideThumbnail sets the primary image for one item.
func (s *Service) OverrideThumbnail(ctx context.Context, id int64, t *Thumbnail, admin *string) error {
	if t == nil || t.URL == "" {
		return errs.NewValidation("staging.OverrideThumbnail", "thumbnailData is required", nil)
	}
	if _, err := s.repo.GetStagingItemCtx(ctx, id); err != nil {
		return err
	}
	if err := s.repo.UpdateThumbnailCtx(ctx, id, t.URL, t.Index, t.Reason); err != nil {
		return err
	}
	s.recordEvent(ctx, events.ThumbnailOverridden{
		Base:         events.NewBase(id, admin),
		ThumbnailURL: t.URL,
		Reason:       t.Reason,
	})
	return nil
}

// Publish runs the publish pipeline over ids and records audit events for
// each row that landed.
func (s *Service) Publish(ctx context.Context, ids []int64, admin *string) (*publish.Outcome, error) {
	out, err := s.pipeline.Publish(ctx, ids)
	if err != nil {
		return nil, err
	}
	s.publishes.Add(int64(len(out.Published)))
	for _, p := range out.Published {
		s.recordEvent(ctx, events.ItemPublished{
			Base:     events.NewBase(p.StagingID, admin),
			EntityID: p.ActivityID,
			Slug:     publish.Slugify(p.Title),
		})
	}
	return out, nil
}

// EnhancedItem summarizes one successful enhancement for the batch response.
type EnhancedItem struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Model           string `json:"model"`
	ConfidenceScore int    `json:"confidence_score"`
}

// EnhanceOutcome is the enhancement batch response.
type EnhanceOutcome struct {
	Enhanced []EnhancedItem `json:"enhanced_items"`
	Errors   []string       `json:"errors,omitempty"`
	Summary  string         `json:"summary"`
}

// EnhanceBatch rewrites text for each item through the provider chain.
// Items are processed in input order; one item's failure is recorded and the
// batch continues.
func (s *Service) EnhanceBatch(ctx context.Context, ids []int64, cfg enhance.Config, admin *string) (*EnhanceOutcome, error) {
	if len(ids) == 0 {
		return nil, errs.NewValidation("staging.EnhanceBatch", "no staging ids provided", nil)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	items, err := s.repo.GetStagingItemsByIDsCtx(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errs.NewNotFound("staging.EnhanceBatch", "no staging items match the given ids", nil)
	}

	res := batch.Map(items,
		func(item models.StagingItem) string { return fmt.Sprintf("%q", item.Title) },
		func(item models.StagingItem) (EnhancedItem, error) {
			return s.enhanceOne(ctx, item, cfg, admin)
		})

	s.enhancements.Add(int64(len(res.Successes)))
	return &EnhanceOutcome{
		Enhanced: res.Successes,
		Errors:   res.ErrorStrings(),
		Summary:  fmt.Sprintf("%d enhanced, %d failed", len(res.Successes), len(res.Failures)),
	}, nil
}

func (s *Service) enhanceOne(ctx context.Context, item models.StagingItem, cfg enhance.Config, admin *string) (EnhancedItem, error) {
	started := time.Now()

	result, err := s.enhancer.Enhance(ctx, item, cfg)
	if err != nil {
		return EnhancedItem{}, err
	}

	item.Raw.SnapshotOriginal(item.Title)
	before := item.ConfidenceScore
	inputTitle := item.Title
	applyEnhancement(&item, result, cfg.Type)
	item.BumpConfidence(s.confidenceDelta)

	item.Raw.EnhancementLog = append(item.Raw.EnhancementLog, models.EnhancementLogEntry{
		Timestamp:        time.Now().UTC(),
		EnhancementType:  string(cfg.Type),
		Audience:         string(cfg.Audience),
		Style:            string(cfg.Style),
		Model:            result.Model,
		InputTitle:       inputTitle,
		OutputTitle:      item.Title,
		ConfidenceBefore: before,
		ConfidenceAfter:  item.ConfidenceScore,
		ProcessingMs:     time.Since(started).Milliseconds(),
	})

	if err := s.repo.UpdateContentCtx(ctx, &item); err != nil {
		return EnhancedItem{}, err
	}

	s.recordEvent(ctx, events.ItemEnhanced{
		Base:            events.NewBase(item.ID, admin),
		Model:           result.Model,
		EnhancementType: string(cfg.Type),
		Audience:        string(cfg.Audience),
		Style:           string(cfg.Style),
		ConfidenceAfter: item.ConfidenceScore,
	})

	return EnhancedItem{
		ID:              item.ID,
		Title:           item.Title,
		Model:           result.Model,
		ConfidenceScore: item.ConfidenceScore,
	}, nil
}

// applyEnhancement writes the provider result into the item, restricted to
// the fields the enhancement type covers.
func applyEnhancement(item *models.StagingItem, r *enhance.Result, t enhance.Type) {
	if (t == enhance.TypeTitle || t == enhance.TypeFull) && r.Title != "" {
		item.Title = r.Title
	}
	if (t == enhance.TypeDescription || t == enhance.TypeFull) && r.Description != "" {
		item.Raw.Description = r.Description
	}
	if (t == enhance.TypeHighlights || t == enhance.TypeFull) && len(r.Highlights) > 0 {
		item.Raw.Highlights = r.Highlights
	}
}

// EnrichOutcome is the enrichment response. A skip (no URL, domain not on
// the allowlist) is a non-error outcome carrying the reason.
type EnrichOutcome struct {
	Skipped        bool     `json:"skipped,omitempty"`
	SkipReason     string   `json:"skipReason,omitempty"`
	CreditsUsed    int      `json:"creditsUsed"`
	EnrichedFields []string `json:"enrichedFields,omitempty"`
}

// Enrich scrapes the item's stored website, extracts structured fields, and
// merges them into raw_content without overwriting populated fields.
func (s *Service) Enrich(ctx context.Context, id int64, admin *string) (*EnrichOutcome, error) {
	if s.scraper == nil {
		return nil, errs.NewExternal("staging.Enrich", "firecrawl", "scraping provider not configured", nil)
	}
	item, err := s.repo.GetStagingItemCtx(ctx, id)
	if err != nil {
		return nil, err
	}

	url := item.Raw.Website
	if url == "" && len(item.SourceURLs) > 0 {
		url = item.SourceURLs[0]
	}
	if ok, reason := s.scraper.AllowedURL(url); !ok {
		return &EnrichOutcome{Skipped: true, SkipReason: reason}, nil
	}

	res, err := s.scraper.Scrape(ctx, url)
	if err != nil {
		return nil, err
	}
	s.credits.Add(int64(res.CreditsUsed))

	ex := extract.FromContent(res.Markdown)
	enriched := mergeExtraction(&item.Raw, ex)

	now := time.Now().UTC()
	item.Raw.EnrichedAt = &now
	item.Raw.EnrichmentSource = utils.ExtractDomain(url)

	if err := s.repo.UpdateContentCtx(ctx, item); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, events.ItemEnriched{
		Base:           events.NewBase(id, admin),
		SourceURL:      url,
		CreditsUsed:    res.CreditsUsed,
		EnrichedFields: enriched,
	})

	return &EnrichOutcome{CreditsUsed: res.CreditsUsed, EnrichedFields: enriched}, nil
}

// mergeExtraction fills empty raw_content fields from the extraction and
// appends new list entries; populated fields are never overwritten. Returns
// the names of fields that actually changed.
func mergeExtraction(rc *models.RawContent, ex extract.Extraction) []string {
	var changed []string

	if rc.Description == "" && ex.Description != "" {
		rc.Description = ex.Description
		changed = append(changed, "description")
	}
	if n := appendMissing(&rc.Highlights, ex.Highlights); n > 0 {
		changed = append(changed, "highlights")
	}
	if n := appendMissing(&rc.WhyVisit, ex.WhyVisit); n > 0 {
		changed = append(changed, "why_visit")
	}
	if n := appendMissing(&rc.InsiderTips, ex.InsiderTips); n > 0 {
		changed = append(changed, "insider_tips")
	}
	if n := appendMissing(&rc.OpeningHours, ex.OpeningHours); n > 0 {
		changed = append(changed, "opening_hours")
	}
	if rc.Facilities == nil && ex.Facilities != nil {
		rc.Facilities = ex.Facilities
		changed = append(changed, "facilities")
	}
	if rc.Access == nil && ex.Access != nil {
		rc.Access = ex.Access
		changed = append(changed, "accessibility")
	}
	if rc.Practical == nil && ex.Practical != nil {
		rc.Practical = ex.Practical
		changed = append(changed, "practical_info")
	}
	return changed
}

func appendMissing(dst *[]string, src []string) int {
	seen := make(map[string]struct{}, len(*dst))
	for _, v := range *dst {
		seen[v] = struct{}{}
	}
	added := 0
	for _, v := range src {
		if _, dup := seen[v]; dup {
			continue
		}
		*dst = append(*dst, v)
		seen[v] = struct{}{}
		added++
	}
	return added
}

// RescrapeIntent selects which rescrape sub-operations run.
type RescrapeIntent struct {
	Images            bool `json:"images"`
	ReplaceImages     bool `json:"replace_images"`
	DescriptionUpdate bool `json:"description_update"`
	FullRescrape      bool `json:"full_rescrape"`
}

// RescrapeOutcome reports what a rescrape changed, one line per sub-operation.
type RescrapeOutcome struct {
	ChangesSummary []string `json:"changesSummary"`
}

// Rescrape performs the requested sub-operations on one item. Sub-operations
// run sequentially; a failing one aborts the call but changes already
// persisted by earlier sub-operations remain.
func (s *Service) Rescrape(ctx context.Context, id int64, intent RescrapeIntent, imageCount int, admin *string) (*RescrapeOutcome, error) {
	if !intent.Images && !intent.ReplaceImages && !intent.DescriptionUpdate && !intent.FullRescrape {
		return nil, errs.NewValidation("staging.Rescrape", "no rescrape intent selected", nil)
	}
	item, err := s.repo.GetStagingItemCtx(ctx, id)
	if err != nil {
		return nil, err
	}
	if imageCount <= 0 {
		imageCount = defaultImageCount
	}

	out := &RescrapeOutcome{}

	if intent.FullRescrape {
		summary, ferr := s.fullRescrape(ctx, item, admin)
		if ferr != nil {
			return nil, ferr
		}
		out.ChangesSummary = append(out.ChangesSummary, summary...)
	}

	if intent.Images || intent.ReplaceImages || intent.FullRescrape {
		summary, ierr := s.refreshImages(ctx, item, intent.ReplaceImages, imageCount, admin)
		if ierr != nil {
			return nil, ierr
		}
		out.ChangesSummary = append(out.ChangesSummary, summary)
	}

	if intent.DescriptionUpdate {
		result, derr := s.enhanceOne(ctx, *item, enhance.Config{Type: enhance.TypeDescription}, admin)
		if derr != nil {
			return nil, derr
		}
		out.ChangesSummary = append(out.ChangesSummary,
			fmt.Sprintf("description rewritten by %s", result.Model))
	}

	if len(out.ChangesSummary) == 0 {
		out.ChangesSummary = append(out.ChangesSummary, "no changes")
	}
	return out, nil
}

// refreshImages searches the stock providers with the item's exact title and
// merges the results. Exact-title search means every result is treated as
// relevant; the provider's ranking is trusted.
func (s *Service) refreshImages(ctx context.Context, item *models.StagingItem, replace bool, count int, admin *string) (string, error) {
	if s.searcher == nil {
		return "", errs.NewExternal("staging.refreshImages", "images", "no image provider configured", nil)
	}
	candidates, err := s.searcher.Search(ctx, item.Title, count*2)
	if err != nil {
		return "", err
	}

	var merged images.MergeResult
	mode := "append"
	var primary *string
	if replace {
		mode = "replace"
		merged = images.MergeReplace(candidates, count)
	} else {
		merged = images.MergeAppend(item.Images, candidates, count)
		primary = item.PrimaryImage
	}
	if merged.Shortfall > 0 {
		s.log.Warn("image merge shortfall",
			"staging_id", item.ID, "requested", count, "added", merged.Added)
	}

	if err := s.repo.UpdateImagesCtx(ctx, item.ID, merged.Images, primary); err != nil {
		return "", err
	}
	item.Images = merged.Images
	item.PrimaryImage = primary

	s.recordEvent(ctx, events.ImagesUpdated{
		Base:      events.NewBase(item.ID, admin),
		Mode:      mode,
		Added:     merged.Added,
		Total:     len(merged.Images),
		Shortfall: merged.Shortfall,
	})
	return fmt.Sprintf("%s mode: %d images added, %d total", mode, merged.Added, len(merged.Images)), nil
}

// fullRescrape re-fetches the item's website content and refreshes place
// facts. The places lookup is best-effort and never aborts the rescrape.
func (s *Service) fullRescrape(ctx context.Context, item *models.StagingItem, admin *string) ([]string, error) {
	var summary []string

	if out, err := s.Enrich(ctx, item.ID, admin); err != nil {
		return nil, err
	} else if out.Skipped {
		summary = append(summary, "content skipped: "+out.SkipReason)
	} else {
		summary = append(summary, fmt.Sprintf("content refreshed: %d fields", len(out.EnrichedFields)))
		// Enrich persisted a newer raw_content; reload before further writes.
		fresh, gerr := s.repo.GetStagingItemCtx(ctx, item.ID)
		if gerr != nil {
			return nil, gerr
		}
		*item = *fresh
	}

	if s.places != nil {
		facts, err := s.places.Refresh(ctx, item.Raw.PlaceID, item.Title)
		if err != nil {
			s.log.Warn("places refresh failed", "staging_id", item.ID, "error", err)
		} else {
			item.Raw.Rating = facts.Rating
			item.Raw.ReviewCount = facts.ReviewCount
			if facts.Website != "" {
				item.Raw.Website = facts.Website
			}
			item.Raw.PlaceID = facts.PlaceID
			if err := s.repo.UpdateContentCtx(ctx, item); err != nil {
				return nil, err
			}
			summary = append(summary, fmt.Sprintf("place facts refreshed: rating %.1f (%d reviews)",
				facts.Rating, facts.ReviewCount))
		}
	}
	return summary, nil
}

// List returns staging items matching the filter plus the unpaginated total.
func (s *Service) List(ctx context.Context, f domain.StagingFilter) ([]models.StagingItem, int, error) {
	return s.repo.ListStagingItemsCtx(ctx, f)
}

// Stats returns the aggregate dashboard counts.
func (s *Service) Stats(ctx context.Context) (*models.StagingStats, error) {
	return s.repo.GetStagingStatsCtx(ctx)
}
