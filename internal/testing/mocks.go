package testutil

import (
	"context"
	"fmt"
	"sync"

	"istanbul-explorer/internal/domain"
	"istanbul-explorer/internal/enhance"
	"istanbul-explorer/internal/models"
	"istanbul-explorer/internal/scraper"
	"istanbul-explorer/pkg/events"
)

// MockRepository implements domain.Repository on in-memory maps.
type MockRepository struct {
	Mu        sync.Mutex
	Items     map[int64]*models.StagingItem
	Published []*models.PublishedEntity
	Slugs     map[string]bool // "category/slug"

	// Error injection, keyed by staging id.
	GetErr    map[int64]error
	UpdateErr map[int64]error
	InsertErr map[int64]error
	StatusErr error
	nextPubID int64
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		Items:     map[int64]*models.StagingItem{},
		Slugs:     map[string]bool{},
		GetErr:    map[int64]error{},
		UpdateErr: map[int64]error{},
		InsertErr: map[int64]error{},
	}
}

func (m *MockRepository) Add(item models.StagingItem) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	cp := item
	m.Items[item.ID] = &cp
}

func (m *MockRepository) GetStagingItemCtx(_ context.Context, id int64) (*models.StagingItem, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if err, ok := m.GetErr[id]; ok {
		return nil, err
	}
	item, ok := m.Items[id]
	if !ok {
		return nil, fmt.Errorf("staging item %d not found", id)
	}
	cp := *item
	return &cp, nil
}

func (m *MockRepository) GetStagingItemsByIDsCtx(_ context.Context, ids []int64) ([]models.StagingItem, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	var out []models.StagingItem
	for _, id := range ids {
		if item, ok := m.Items[id]; ok {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (m *MockRepository) ListStagingItemsCtx(_ context.Context, f domain.StagingFilter) ([]models.StagingItem, int, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	var out []models.StagingItem
	for _, item := range m.Items {
		if f.Status != "" && item.Status != f.Status {
			continue
		}
		if f.Category != "" && item.Category != f.Category {
			continue
		}
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (m *MockRepository) GetStagingStatsCtx(_ context.Context) (*models.StagingStats, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	stats := &models.StagingStats{
		ByStatus:   map[models.Status]int{},
		ByCategory: map[models.Category]int{},
	}
	for _, item := range m.Items {
		stats.Total++
		stats.ByStatus[item.Status]++
		stats.ByCategory[item.Category]++
	}
	return stats, nil
}

func (m *MockRepository) UpdateStatusCtx(_ context.Context, ids []int64, from, to models.Status) (int64, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.StatusErr != nil {
		return 0, m.StatusErr
	}
	var n int64
	for _, id := range ids {
		item, ok := m.Items[id]
		if !ok {
			continue
		}
		if from != "" && item.Status != from {
			continue
		}
		item.Status = to
		n++
	}
	return n, nil
}

func (m *MockRepository) UpdateThumbnailCtx(_ context.Context, id int64, url string, index *int, reason string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if err, ok := m.UpdateErr[id]; ok {
		return err
	}
	item, ok := m.Items[id]
	if !ok {
		return fmt.Errorf("staging item %d not found", id)
	}
	item.PrimaryImage = &url
	item.Raw.ThumbnailIndex = index
	item.Raw.ThumbnailReason = reason
	return nil
}

func (m *MockRepository) UpdateImagesCtx(_ context.Context, id int64, imgs []string, primary *string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if err, ok := m.UpdateErr[id]; ok {
		return err
	}
	item, ok := m.Items[id]
	if !ok {
		return fmt.Errorf("staging item %d not found", id)
	}
	item.Images = append([]string(nil), imgs...)
	item.PrimaryImage = primary
	return nil
}

func (m *MockRepository) UpdateContentCtx(_ context.Context, updated *models.StagingItem) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if err, ok := m.UpdateErr[updated.ID]; ok {
		return err
	}
	item, ok := m.Items[updated.ID]
	if !ok {
		return fmt.Errorf("staging item %d not found", updated.ID)
	}
	item.Title = updated.Title
	item.ConfidenceScore = updated.ConfidenceScore
	item.Raw = updated.Raw
	return nil
}

func (m *MockRepository) InsertPublishedCtx(_ context.Context, e *models.PublishedEntity) (int64, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if err, ok := m.InsertErr[e.Metadata.OriginalStagingID]; ok {
		return 0, err
	}
	key := string(e.Category) + "/" + e.Slug
	if m.Slugs[key] {
		return 0, fmt.Errorf("duplicate slug %s", e.Slug)
	}
	m.Slugs[key] = true
	m.nextPubID++
	cp := *e
	cp.ID = m.nextPubID
	m.Published = append(m.Published, &cp)
	return cp.ID, nil
}

func (m *MockRepository) SlugExistsCtx(_ context.Context, category models.Category, slug string) (bool, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Slugs[string(category)+"/"+slug], nil
}

// MockUnitOfWork delegates to the shared MockRepository; Commit and Rollback
// only record that they ran.
type MockUnitOfWork struct {
	*MockRepository
	Committed  bool
	RolledBack bool
	CommitErr  error
}

func (u *MockUnitOfWork) Commit() error {
	if u.CommitErr != nil {
		return u.CommitErr
	}
	u.Committed = true
	return nil
}

func (u *MockUnitOfWork) Rollback() error {
	if !u.Committed {
		u.RolledBack = true
	}
	return nil
}

// MockUOWFactory hands out units of work over one MockRepository.
type MockUOWFactory struct {
	Repo     *MockRepository
	BeginErr error
	Created  []*MockUnitOfWork
}

func NewMockUOWFactory(repo *MockRepository) *MockUOWFactory {
	return &MockUOWFactory{Repo: repo}
}

func (f *MockUOWFactory) Begin(_ context.Context) (domain.UnitOfWork, error) {
	if f.BeginErr != nil {
		return nil, f.BeginErr
	}
	uow := &MockUnitOfWork{MockRepository: f.Repo}
	f.Created = append(f.Created, uow)
	return uow, nil
}

// MockEnhancer returns a canned result or error per staging id.
type MockEnhancer struct {
	Mu   sync.Mutex
	Resp map[int64]*enhance.Result
	Err  map[int64]error
}

func NewMockEnhancer() *MockEnhancer {
	return &MockEnhancer{Resp: map[int64]*enhance.Result{}, Err: map[int64]error{}}
}

func (m *MockEnhancer) Enhance(_ context.Context, item models.StagingItem, _ enhance.Config) (*enhance.Result, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if err, ok := m.Err[item.ID]; ok {
		return nil, err
	}
	if r, ok := m.Resp[item.ID]; ok {
		return r, nil
	}
	return &enhance.Result{
		Title:       "Enhanced " + item.Title,
		Description: "Enhanced description.",
		Highlights:  []string{"Enhanced highlight"},
		Model:       "mock-model",
	}, nil
}

// MockScraper implements scraper.ContentScraper with a fixed markdown body.
type MockScraper struct {
	Markdown string
	Err      error
	Deny     bool
	Reason   string
	Calls    int
}

func (m *MockScraper) AllowedURL(url string) (bool, string) {
	if url == "" {
		return false, "item has no usable website URL"
	}
	if m.Deny {
		return false, m.Reason
	}
	return true, ""
}

func (m *MockScraper) Scrape(_ context.Context, url string) (*scraper.ScrapeResult, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return &scraper.ScrapeResult{Markdown: m.Markdown, SourceURL: url, CreditsUsed: 1}, nil
}

// MockSearcher returns a fixed list of image URLs.
type MockSearcher struct {
	URLs  []string
	Err   error
	Calls int
}

func (m *MockSearcher) Name() string { return "mock" }

func (m *MockSearcher) Search(_ context.Context, _ string, count int) ([]string, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if count > len(m.URLs) {
		count = len(m.URLs)
	}
	return append([]string(nil), m.URLs[:count]...), nil
}

// MockPlaces returns fixed place facts.
type MockPlaces struct {
	Facts *scraper.PlaceFacts
	Err   error
}

func (m *MockPlaces) Refresh(_ context.Context, placeID, _ string) (*scraper.PlaceFacts, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Facts != nil {
		return m.Facts, nil
	}
	return &scraper.PlaceFacts{Rating: 4.5, ReviewCount: 100, PlaceID: placeID}, nil
}

// MockEventStore collects appended events; AppendErr simulates a failing
// audit table, which callers must swallow.
type MockEventStore struct {
	Mu        sync.Mutex
	Events    []events.Event
	AppendErr error
}

func (m *MockEventStore) Append(_ context.Context, e events.Event) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.Events = append(m.Events, e)
	return nil
}

func (m *MockEventStore) RecentByStagingID(_ context.Context, _ int64, _ int) ([]events.StoredEvent, error) {
	return nil, nil
}

// Types collects the event type strings in append order.
func (m *MockEventStore) Types() []string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	out := make([]string, 0, len(m.Events))
	for _, e := range m.Events {
		out = append(out, e.Type())
	}
	return out
}
