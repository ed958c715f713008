package scraper

import (
	"context"

	"googlemaps.github.io/maps"

	errs "istanbul-explorer/pkg/errors"
	"istanbul-explorer/pkg/logging"
)

// PlaceFacts are the commerce fields a full rescrape refreshes from the
// Places API.
type PlaceFacts struct {
	Rating      float64
	ReviewCount int
	Website     string
	PlaceID     string
}

// PlaceRefresher looks up current venue facts by place ID or title search.
type PlaceRefresher interface {
	Refresh(ctx context.Context, placeID, title string) (*PlaceFacts, error)
}

type PlacesClient struct {
	client *maps.Client
	log    *logging.Logger
}

func NewPlacesClient(apiKey string, log *logging.Logger) (*PlacesClient, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, errs.NewExternal("scraper.NewPlacesClient", "places", "client init failed", err)
	}
	return &PlacesClient{client: client, log: log.WithComponent("places")}, nil
}

// Refresh resolves the place (stored ID first, text search on the title
// otherwise) and returns its current rating, review count, and website.
func (p *PlacesClient) Refresh(ctx context.Context, placeID, title string) (*PlaceFacts, error) {
	if placeID == "" {
		searchResp, err := p.client.TextSearch(ctx, &maps.TextSearchRequest{
			Query: title + " Istanbul",
		})
		if err != nil {
			return nil, errs.NewExternal("places.Refresh", "places", "text search failed", err)
		}
		if len(searchResp.Results) == 0 {
			return nil, errs.NewNotFound("places.Refresh", "no place matches "+title, nil)
		}
		placeID = searchResp.Results[0].PlaceID
	}

	details, err := p.client.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
		PlaceID: placeID,
		Fields: []maps.PlaceDetailsFieldMask{
			maps.PlaceDetailsFieldMaskName,
			maps.PlaceDetailsFieldMaskWebsite,
			maps.PlaceDetailsFieldMaskUserRatingsTotal,
			maps.PlaceDetailsFieldMaskBusinessStatus,
		},
	})
	if err != nil {
		return nil, errs.NewExternal("places.Refresh", "places", "place details failed", err)
	}

	facts := &PlaceFacts{
		Rating:      float64(details.Rating),
		ReviewCount: details.UserRatingsTotal,
		Website:     details.Website,
		PlaceID:     placeID,
	}
	p.log.Debug("refreshed place facts", "place_id", placeID, "rating", facts.Rating)
	return facts, nil
}
