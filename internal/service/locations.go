package service

import (
	"context"
	"fmt"

	"booking-service/api"
	"booking-service/internal/civildate"
	"booking-service/internal/models"
	"booking-service/pkg/response"
)

func (s *Service) CreateLocation(ctx context.Context, req api.LocationRequest) (*api.LocationResponse, error) {
	const op = "service.CreateLocation"

	if req.ProviderID == "" {
		return nil, fmt.Errorf("%s: provider_id is required: %w", op, response.ErrBadRequest)
	}

	if _, err := s.store.GetProvider(ctx, req.ProviderID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	location := &models.ProviderLocation{
		ProviderID: req.ProviderID,
		City:       req.City,
		State:      req.State,
		Country:    req.Country,
		Timezone:   req.Timezone,
		IsDefault:  req.IsDefault,
	}

	if err := applyLocationDates(location, req.StartDate, req.EndDate); err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, err, response.ErrBadRequest)
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if location.IsDefault {
		if err := s.store.ClearDefaultLocations(ctx, tx, req.ProviderID); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	id, err := s.store.CreateProviderLocation(ctx, tx, location)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	location.ID = id

	return locationToAPI(location), nil
}

func (s *Service) GetLocation(ctx context.Context, id string) (*api.LocationResponse, error) {
	const op = "service.GetLocation"

	location, err := s.store.GetProviderLocation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return locationToAPI(location), nil
}

func (s *Service) ListLocations(ctx context.Context, providerID string) ([]*api.LocationResponse, error) {
	const op = "service.ListLocations"

	locations, err := s.store.ListProviderLocations(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]*api.LocationResponse, 0, len(locations))
	for _, l := range locations {
		result = append(result, locationToAPI(l))
	}

	return result, nil
}

func (s *Service) UpdateLocation(ctx context.Context, id string, req api.LocationRequest) (*api.LocationResponse, error) {
	const op = "service.UpdateLocation"

	location, err := s.store.GetProviderLocation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	location.City = req.City
	location.State = req.State
	location.Country = req.Country
	location.Timezone = req.Timezone

	wasDefault := location.IsDefault
	location.IsDefault = req.IsDefault
	if err := applyLocationDates(location, req.StartDate, req.EndDate); err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, err, response.ErrBadRequest)
	}

	if location.IsDefault && !wasDefault {
		tx, err := s.store.BeginTx(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := s.store.ClearDefaultLocations(ctx, tx, location.ProviderID); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := s.store.UpdateProviderLocation(ctx, location); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return locationToAPI(location), nil
}

func (s *Service) DeleteLocation(ctx context.Context, id string) error {
	const op = "service.DeleteLocation"

	if err := s.store.DeleteProviderLocation(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// applyLocationDates fills the location's date range. A default location gets
// the sentinel open range regardless of the payload; any other location needs
// a finite range with start strictly before end.
func applyLocationDates(location *models.ProviderLocation, startDate, endDate string) error {
	if location.IsDefault {
		location.StartDate = models.DefaultLocationStart
		location.EndDate = models.DefaultLocationEnd
		return nil
	}

	start, err := civildate.Parse(startDate)
	if err != nil {
		return err
	}
	end, err := civildate.Parse(endDate)
	if err != nil {
		return err
	}
	if !start.Before(end) {
		return fmt.Errorf("start_date %s must be before end_date %s", start, end)
	}

	location.StartDate = start
	location.EndDate = end

	return nil
}

func locationToAPI(l *models.ProviderLocation) *api.LocationResponse {
	return &api.LocationResponse{
		ID:         l.ID,
		ProviderID: l.ProviderID,
		City:       l.City,
		State:      l.State,
		Country:    l.Country,
		Timezone:   l.Timezone,
		StartDate:  l.StartDate.String(),
		EndDate:    l.EndDate.String(),
		IsDefault:  l.IsDefault,
	}
}
