package enhance

import (
	"context"
	"errors"
	"testing"

	"istanbul-explorer/internal/models"
	"istanbul-explorer/pkg/logging"
)

type stubEnhancer struct {
	name  string
	res   *Result
	err   error
	calls int
}

func (s *stubEnhancer) Name() string { return s.name }

func (s *stubEnhancer) Enhance(_ context.Context, _ models.StagingItem, _ Config) (*Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.res, nil
}

func testLogger() *logging.Logger {
	return logging.New(logging.DefaultConfig())
}

func TestChainFirstProviderWins(t *testing.T) {
	primary := &stubEnhancer{name: "primary", res: &Result{Title: "from primary", Model: "p1"}}
	secondary := &stubEnhancer{name: "secondary", res: &Result{Title: "from secondary", Model: "p2"}}
	chain := NewChain(testLogger(), primary, secondary)

	res, err := chain.Enhance(context.Background(), models.StagingItem{ID: 1}, Config{Type: TypeFull})
	if err != nil {
		t.Fatal(err)
	}
	if res.Model != "p1" {
		t.Errorf("Model = %q, want p1", res.Model)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary called %d times, want 0", secondary.calls)
	}
}

func TestChainFallsBack(t *testing.T) {
	primary := &stubEnhancer{name: "primary", err: errors.New("rate limited")}
	secondary := &stubEnhancer{name: "secondary", res: &Result{Title: "rescued", Model: "p2"}}
	chain := NewChain(testLogger(), primary, secondary)

	res, err := chain.Enhance(context.Background(), models.StagingItem{ID: 1}, Config{Type: TypeFull})
	if err != nil {
		t.Fatal(err)
	}
	if res.Model != "p2" {
		t.Errorf("Model = %q, want p2", res.Model)
	}
	if primary.calls != 1 {
		t.Errorf("primary calls = %d, want 1", primary.calls)
	}
}

func TestChainAllFail(t *testing.T) {
	chain := NewChain(testLogger(),
		&stubEnhancer{name: "a", err: errors.New("down")},
		&stubEnhancer{name: "b", err: errors.New("also down")},
	)
	if _, err := chain.Enhance(context.Background(), models.StagingItem{ID: 1}, Config{Type: TypeFull}); err == nil {
		t.Fatal("want error when every provider fails")
	}
}

func TestChainTemplateTerminatorNeverFails(t *testing.T) {
	set, err := LoadTemplates("")
	if err != nil {
		t.Fatal(err)
	}
	chain := NewChain(testLogger(),
		&stubEnhancer{name: "primary", err: errors.New("down")},
		&stubEnhancer{name: "secondary", err: errors.New("down")},
		NewTemplateEnhancer(set),
	)

	item := models.StagingItem{ID: 1, Title: "Topkapi Palace", Category: models.CategoryActivities}
	res, err := chain.Enhance(context.Background(), item, Config{Type: TypeFull})
	if err != nil {
		t.Fatalf("chain with template terminator must not fail: %v", err)
	}
	if res.Model != templateModel {
		t.Errorf("Model = %q, want %q", res.Model, templateModel)
	}
}

func TestChainRejectsInvalidConfig(t *testing.T) {
	chain := NewChain(testLogger(), &stubEnhancer{name: "a", res: &Result{}})

	if _, err := chain.Enhance(context.Background(), models.StagingItem{}, Config{Type: "banana"}); err == nil {
		t.Fatal("want validation error for unknown enhancement type")
	}
	if _, err := chain.Enhance(context.Background(), models.StagingItem{}, Config{Type: TypeFull, Audience: "nobody"}); err == nil {
		t.Fatal("want validation error for unknown audience")
	}
}

func TestConfigNormalize(t *testing.T) {
	cfg := Config{Type: TypeFull}
	cfg.Normalize()
	if cfg.Audience != AudienceTourists || cfg.Style != StyleEngaging {
		t.Errorf("Normalize() = %+v, want tourists/engaging defaults", cfg)
	}

	cfg = Config{Type: TypeFull, Audience: AudienceLocals, Style: StyleCasual}
	cfg.Normalize()
	if cfg.Audience != AudienceLocals || cfg.Style != StyleCasual {
		t.Errorf("Normalize() overwrote explicit values: %+v", cfg)
	}
}
