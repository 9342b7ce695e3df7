package forecast

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockwell/replenish/internal/domain"
)

// Service owns the in-memory forecast state: series profiles and fitted
// forecasts per product. State is replaced wholesale on refit and only read
// through accessors; a retrain that fails leaves the last-known-good state.
type Service struct {
	forecaster *Forecaster

	mu        sync.RWMutex
	profiles  map[string]*domain.ProductSeriesProfile
	forecasts map[string]*domain.DemandForecast
	refitTime time.Time

	log zerolog.Logger
}

// NewService creates a new forecast service.
func NewService(forecaster *Forecaster, log zerolog.Logger) *Service {
	return &Service{
		forecaster: forecaster,
		profiles:   make(map[string]*domain.ProductSeriesProfile),
		forecasts:  make(map[string]*domain.DemandForecast),
		log:        log.With().Str("service", "forecast").Logger(),
	}
}

// Refit replaces all profiles and fitted forecasts. Called by the retrain
// pipeline after a successful aggregation + extraction pass.
func (s *Service) Refit(profiles map[string]*domain.ProductSeriesProfile) {
	forecasts := make(map[string]*domain.DemandForecast, len(profiles))
	for productID, profile := range profiles {
		if fitted := s.forecaster.Fit(profile); fitted != nil {
			forecasts[productID] = fitted
		}
	}

	s.mu.Lock()
	s.profiles = profiles
	s.forecasts = forecasts
	s.refitTime = time.Now().UTC()
	s.mu.Unlock()

	s.log.Info().
		Int("profiles", len(profiles)).
		Int("forecasts", len(forecasts)).
		Msg("Forecasts refitted")
}

// GetDemandForecast returns a forward-looking projection for the product.
// Returns domain.ErrNoForecast for products with no history; callers must
// handle that explicitly rather than defaulting to zero demand.
func (s *Service) GetDemandForecast(productID string, days int) (*domain.DemandForecast, error) {
	s.mu.RLock()
	fitted, ok := s.forecasts[productID]
	profile := s.profiles[productID]
	s.mu.RUnlock()

	if !ok || fitted == nil || profile == nil {
		return nil, domain.ErrNoForecast
	}

	points := s.forecaster.Project(fitted, profile.Seasonal, days)

	return &domain.DemandForecast{
		ProductID:   productID,
		Points:      points,
		Confidence:  fitted.Confidence,
		Model:       fitted.Model,
		LastUpdated: fitted.LastUpdated,
	}, nil
}

// FittedForecast returns the fitted historical forecast for a product, or
// domain.ErrNoForecast if the product has no history.
func (s *Service) FittedForecast(productID string) (*domain.DemandForecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fitted, ok := s.forecasts[productID]
	if !ok || fitted == nil {
		return nil, domain.ErrNoForecast
	}
	return fitted, nil
}

// Profile returns the series profile for a product, or nil if absent.
func (s *Service) Profile(productID string) *domain.ProductSeriesProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profiles[productID]
}

// Snapshot returns the current forecasts keyed by product. The map is a
// fresh copy; the forecasts themselves are treated as immutable after fit.
func (s *Service) Snapshot() map[string]*domain.DemandForecast {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*domain.DemandForecast, len(s.forecasts))
	for k, v := range s.forecasts {
		out[k] = v
	}
	return out
}

// Profiles returns a copy of the current profiles map.
func (s *Service) Profiles() map[string]*domain.ProductSeriesProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*domain.ProductSeriesProfile, len(s.profiles))
	for k, v := range s.profiles {
		out[k] = v
	}
	return out
}

// LastRefit reports when forecasts were last refitted (zero time if never).
func (s *Service) LastRefit() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refitTime
}
