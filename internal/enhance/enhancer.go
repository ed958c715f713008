// Package enhance rewrites staging item text (title, description,
// highlights) for a target audience and style. Providers are tried in order
// behind one capability interface; the final element of every chain is the
// local template engine, which has no external dependency, so an enhancement
// call as a whole never hard-fails.
package enhance

import (
	"context"
	"time"

	"istanbul-explorer/internal/models"
	"istanbul-explorer/pkg/circuit"
	errs "istanbul-explorer/pkg/errors"
	"istanbul-explorer/pkg/logging"
)

// Type selects which fields an enhancement pass rewrites.
type Type string

const (
	TypeDescription Type = "description"
	TypeTitle       Type = "title"
	TypeHighlights  Type = "highlights"
	TypeFull        Type = "full"
)

// Audience the rewritten copy targets.
type Audience string

const (
	AudienceTourists Audience = "tourists"
	AudienceLocals   Audience = "locals"
	AudienceFamilies Audience = "families"
	AudienceCouples  Audience = "couples"
	AudienceGeneral  Audience = "general"
)

// Style of the rewritten copy.
type Style string

const (
	StyleProfessional Style = "professional"
	StyleCasual       Style = "casual"
	StyleEngaging     Style = "engaging"
	StyleInformative  Style = "informative"
)

// Config is one enhancement request's parameters.
type Config struct {
	Type     Type
	Audience Audience
	Style    Style
}

// Normalize fills defaults for missing optional fields.
func (c *Config) Normalize() {
	if c.Audience == "" {
		c.Audience = AudienceTourists
	}
	if c.Style == "" {
		c.Style = StyleEngaging
	}
}

// Validate checks the enumerated fields.
func (c Config) Validate() error {
	switch c.Type {
	case TypeDescription, TypeTitle, TypeHighlights, TypeFull:
	default:
		return errs.NewValidation("enhance.Config", "invalid enhancement_type: "+string(c.Type), nil)
	}
	switch c.Audience {
	case AudienceTourists, AudienceLocals, AudienceFamilies, AudienceCouples, AudienceGeneral, "":
	default:
		return errs.NewValidation("enhance.Config", "invalid target_audience: "+string(c.Audience), nil)
	}
	switch c.Style {
	case StyleProfessional, StyleCasual, StyleEngaging, StyleInformative, "":
	default:
		return errs.NewValidation("enhance.Config", "invalid style: "+string(c.Style), nil)
	}
	return nil
}

// Result is the rewritten copy one provider produced.
type Result struct {
	Title       string
	Description string
	Highlights  []string
	Model       string
}

// Enhancer is one provider capable of rewriting item text.
type Enhancer interface {
	Name() string
	Enhance(ctx context.Context, item models.StagingItem, cfg Config) (*Result, error)
}

// Chain tries enhancers in order until one succeeds. Each provider sits
// behind its own circuit breaker so a flapping provider fails fast into the
// next one instead of eating its full timeout every call.
type Chain struct {
	enhancers []Enhancer
	breakers  []*circuit.Breaker
	log       *logging.Logger
}

// NewChain builds a chain in fallback order. The caller is expected to place
// the template engine last.
func NewChain(log *logging.Logger, enhancers ...Enhancer) *Chain {
	breakers := make([]*circuit.Breaker, len(enhancers))
	for i, e := range enhancers {
		breakers[i] = circuit.New(e.Name(), 3, 30*time.Second)
	}
	return &Chain{enhancers: enhancers, breakers: breakers, log: log.WithComponent("enhance")}
}

// Enhance runs the fallback cascade. Returns the first provider's successful
// result; an error only if every provider fails, which cannot happen when
// the template engine terminates the chain.
func (c *Chain) Enhance(ctx context.Context, item models.StagingItem, cfg Config) (*Result, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var lastErr error
	for i, e := range c.enhancers {
		var res *Result
		err := c.breakers[i].Execute(func() error {
			var callErr error
			res, callErr = e.Enhance(ctx, item, cfg)
			return callErr
		})
		if err != nil {
			lastErr = err
			c.log.Warn("enhancer failed, falling back",
				"provider", e.Name(), "staging_id", item.ID, "error", err)
			continue
		}
		return res, nil
	}
	return nil, errs.NewExternal("enhance.Chain", "enhance", "all providers failed", lastErr)
}
