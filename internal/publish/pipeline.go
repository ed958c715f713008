package publish

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"istanbul-explorer/internal/domain"
	"istanbul-explorer/internal/models"
	"istanbul-explorer/pkg/batch"
	errs "istanbul-explorer/pkg/errors"
	"istanbul-explorer/pkg/logging"
)

// subcategoryRules map keyword hits in the item's text to a subcategory.
// First matching rule wins; order matters (museum before historic_site so
// "museum palace" classifies as museum).
var subcategoryRules = []struct {
	subcategory string
	keywords    []string
}{
	{"museum", []string{"museum", "gallery"}},
	{"historic_site", []string{"palace", "mosque", "church", "historic", "ancient"}},
	{"entertainment", []string{"show", "performance", "theater"}},
	{"outdoor", []string{"park", "garden", "outdoor", "walking", "tour"}},
	{"shopping", []string{"bazaar", "market", "shopping", "shop"}},
	{"transport", []string{"cruise", "boat", "ferry", "transport"}},
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9 -]`)

// Slugify derives a URL slug from a title: lowercase, strip everything but
// letters, digits, spaces, and hyphens, turn whitespace runs into single
// hyphens, collapse repeated hyphens, trim hyphens at both ends.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = nonSlugChars.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), "-")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}

// DeriveSubcategory classifies the item's flattened text by keyword,
// defaulting to general.
func DeriveSubcategory(searchText string) string {
	for _, rule := range subcategoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(searchText, kw) {
				return rule.subcategory
			}
		}
	}
	return "general"
}

// BuildEntity projects an approved staging item into a published row.
// Commerce fields fall back to empty/zero when the raw content lacks them.
func BuildEntity(item *models.StagingItem, slug string, featuredThreshold int) (*models.PublishedEntity, error) {
	if strings.TrimSpace(item.Title) == "" {
		return nil, errs.NewValidation("publish.BuildEntity", "staging item has no title", nil)
	}
	if !models.ValidCategory(item.Category) {
		return nil, errs.NewValidation("publish.BuildEntity",
			fmt.Sprintf("staging item has unknown category %q", item.Category), nil)
	}
	if slug == "" {
		return nil, errs.NewValidation("publish.BuildEntity", "could not derive a slug from the title", nil)
	}

	return &models.PublishedEntity{
		Name:            item.Title,
		Slug:            slug,
		Description:     item.Raw.Description,
		Category:        item.Category,
		Subcategory:     DeriveSubcategory(item.Raw.SearchText(item.Title)),
		Images:          append([]string(nil), item.Images...),
		PrimaryImage:    item.PrimaryImage,
		Price:           item.Raw.Price,
		Duration:        item.Raw.Duration,
		Rating:          item.Raw.Rating,
		ReviewCount:     item.Raw.ReviewCount,
		Featured:        item.ConfidenceScore >= featuredThreshold,
		ConfidenceScore: item.ConfidenceScore,
		Metadata: models.PublishMetadata{
			OriginalStagingID: item.ID,
			ScrapingJobID:     item.ScrapingJobID,
			SourceURLs:        append([]string(nil), item.SourceURLs...),
			RawContent:        item.Raw,
			PublishedAt:       time.Now().UTC(),
		},
	}, nil
}

// PublishedItem identifies one row created by a publish run.
type PublishedItem struct {
	StagingID  int64  `json:"staging_id"`
	ActivityID int64  `json:"activity_id"`
	Title      string `json:"title"`
}

// Outcome is the publish batch response: what landed and what did not.
type Outcome struct {
	Published []PublishedItem `json:"published_items"`
	Errors    []string        `json:"errors,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// Pipeline publishes approved staging items into the per-category tables.
type Pipeline struct {
	repo              domain.Repository
	uowFactory        domain.UnitOfWorkFactory
	featuredThreshold int
	log               *logging.Logger
}

func NewPipeline(repo domain.Repository, uowFactory domain.UnitOfWorkFactory, featuredThreshold int, log *logging.Logger) *Pipeline {
	if featuredThreshold <= 0 {
		featuredThreshold = 85
	}
	return &Pipeline{
		repo:              repo,
		uowFactory:        uowFactory,
		featuredThreshold: featuredThreshold,
		log:               log.WithComponent("publish"),
	}
}

// Publish processes the given staging ids. Items not currently approved are
// skipped without error; each eligible item gets its own transaction so one
// failure never rolls back another item's publish.
func (p *Pipeline) Publish(ctx context.Context, ids []int64) (*Outcome, error) {
	if len(ids) == 0 {
		return nil, errs.NewValidation("publish.Publish", "no item ids provided", nil)
	}

	items, err := p.repo.GetStagingItemsByIDsCtx(ctx, ids)
	if err != nil {
		return nil, err
	}

	eligible := items[:0]
	for _, item := range items {
		if item.Status == models.StatusApproved {
			eligible = append(eligible, item)
		}
	}
	if len(eligible) == 0 {
		return &Outcome{Message: "no approved items to publish"}, nil
	}

	res := batch.Map(eligible,
		func(item models.StagingItem) string {
			return fmt.Sprintf("Failed to publish %q", item.Title)
		},
		func(item models.StagingItem) (PublishedItem, error) {
			return p.publishOne(ctx, &item)
		})

	p.log.Info("publish batch finished",
		"requested", len(ids),
		"eligible", len(eligible),
		"published", len(res.Successes),
		"failed", len(res.Failures))

	return &Outcome{
		Published: res.Successes,
		Errors:    res.ErrorStrings(),
	}, nil
}

func (p *Pipeline) publishOne(ctx context.Context, item *models.StagingItem) (PublishedItem, error) {
	slug, err := p.uniqueSlug(ctx, item.Category, Slugify(item.Title))
	if err != nil {
		return PublishedItem{}, err
	}

	entity, err := BuildEntity(item, slug, p.featuredThreshold)
	if err != nil {
		return PublishedItem{}, err
	}

	uow, err := p.uowFactory.Begin(ctx)
	if err != nil {
		return PublishedItem{}, err
	}
	defer uow.Rollback()

	newID, err := uow.InsertPublishedCtx(ctx, entity)
	if err != nil {
		return PublishedItem{}, err
	}
	if _, err := uow.UpdateStatusCtx(ctx, []int64{item.ID}, models.StatusApproved, models.StatusPublished); err != nil {
		return PublishedItem{}, err
	}
	if err := uow.Commit(); err != nil {
		return PublishedItem{}, err
	}

	return PublishedItem{StagingID: item.ID, ActivityID: newID, Title: item.Title}, nil
}

// uniqueSlug appends -2, -3, ... until the slug is free in the item's
// category table. Gives up after 50 attempts rather than loop forever.
func (p *Pipeline) uniqueSlug(ctx context.Context, category models.Category, base string) (string, error) {
	if base == "" {
		return "", errs.NewValidation("publish.uniqueSlug", "empty slug", nil)
	}
	slug := base
	for i := 2; i <= 50; i++ {
		exists, err := p.repo.SlugExistsCtx(ctx, category, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
	return "", errs.NewBiz("publish.uniqueSlug", "could not find a free slug for "+base, nil)
}
