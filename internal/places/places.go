// Package places checks a business's place record with the Google Maps
// Places API before its reviews are synced.
package places

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"

	"github.com/bizrank/review-service/internal/http/ratelimit"
)

// Business status values reported by the Places API
const (
	StatusOperational       = "OPERATIONAL"
	StatusClosedTemporarily = "CLOSED_TEMPORARILY"
	StatusClosedPermanently = "CLOSED_PERMANENTLY"
)

// ErrPlaceClosed marks a place that will never have new reviews. It is
// permanent so the sync job is not retried.
var ErrPlaceClosed = fmt.Errorf("place permanently closed: %w", ratelimit.ErrPermanent)

//go:generate mockgen -destination=mocks/mock_maps_client.go -package=mocks github.com/bizrank/review-service/internal/places MapsClient

// MapsClient is the subset of *maps.Client used here
type MapsClient interface {
	PlaceDetails(ctx context.Context, r *maps.PlaceDetailsRequest) (maps.PlaceDetailsResult, error)
	TextSearch(ctx context.Context, r *maps.TextSearchRequest) (maps.PlacesSearchResponse, error)
}

// Place is the slice of place details the service cares about
type Place struct {
	PlaceID          string  `json:"placeId"`
	Name             string  `json:"name"`
	Address          string  `json:"address,omitempty"`
	BusinessStatus   string  `json:"businessStatus"`
	Rating           float32 `json:"rating"`
	UserRatingsTotal int     `json:"userRatingsTotal"`
}

// Resolver looks up places
type Resolver struct {
	client  MapsClient
	limiter *ratelimit.RateLimiter
	logger  zerolog.Logger
}

// NewClient builds a Places API client from an API key
func NewClient(apiKey string) (*maps.Client, error) {
	if apiKey == "" {
		return nil, errors.New("google maps api key is required")
	}
	return maps.NewClient(maps.WithAPIKey(apiKey))
}

// NewResolver wraps client; limiter may be nil
func NewResolver(client MapsClient, limiter *ratelimit.RateLimiter, logger *zerolog.Logger) *Resolver {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "places").Logger()
	}
	return &Resolver{client: client, limiter: limiter, logger: l}
}

var detailFields = []maps.PlaceDetailsFieldMask{
	maps.PlaceDetailsFieldMaskPlaceID,
	maps.PlaceDetailsFieldMaskName,
	maps.PlaceDetailsFieldMaskFormattedAddress,
	maps.PlaceDetailsFieldMaskBusinessStatus,
	maps.PlaceDetailsFieldMaskUserRatingsTotal,
}

// Lookup fetches the details of placeID
func (r *Resolver) Lookup(ctx context.Context, placeID string) (*Place, error) {
	if err := r.throttle(ctx); err != nil {
		return nil, err
	}
	details, err := r.client.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
		PlaceID: placeID,
		Fields:  detailFields,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up place %s: %w", placeID, err)
	}
	return &Place{
		PlaceID:          placeID,
		Name:             details.Name,
		Address:          details.FormattedAddress,
		BusinessStatus:   details.BusinessStatus,
		Rating:           details.Rating,
		UserRatingsTotal: details.UserRatingsTotal,
	}, nil
}

// CheckSyncable returns ErrPlaceClosed for permanently closed places. Lookup
// failures are returned as is so the caller can decide to proceed.
func (r *Resolver) CheckSyncable(ctx context.Context, placeID string) (*Place, error) {
	p, err := r.Lookup(ctx, placeID)
	if err != nil {
		return nil, err
	}
	if p.BusinessStatus == StatusClosedPermanently {
		r.logger.Info().Str("place_id", placeID).Str("name", p.Name).Msg("Place permanently closed")
		return p, fmt.Errorf("%s: %w", placeID, ErrPlaceClosed)
	}
	return p, nil
}

// Search finds candidate places for a free-text query such as "name, city"
func (r *Resolver) Search(ctx context.Context, query string) ([]Place, error) {
	if err := r.throttle(ctx); err != nil {
		return nil, err
	}
	resp, err := r.client.TextSearch(ctx, &maps.TextSearchRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("failed to search places for %q: %w", query, err)
	}
	out := make([]Place, 0, len(resp.Results))
	for _, res := range resp.Results {
		out = append(out, Place{
			PlaceID:          res.PlaceID,
			Name:             res.Name,
			Address:          res.FormattedAddress,
			BusinessStatus:   res.BusinessStatus,
			Rating:           res.Rating,
			UserRatingsTotal: res.UserRatingsTotal,
		})
	}
	return out, nil
}

func (r *Resolver) throttle(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	return r.limiter.Throttle(ctx)
}
