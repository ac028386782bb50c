package service

import (
	"context"
	"fmt"

	"booking-service/api"
	"booking-service/internal/models"
	"booking-service/pkg/response"
)

func (s *Service) CreateTemplate(ctx context.Context, req api.AvailabilityTemplateRequest) (*api.AvailabilityTemplateResponse, error) {
	const op = "service.CreateTemplate"

	if req.ProviderID == "" {
		return nil, fmt.Errorf("%s: provider_id is required: %w", op, response.ErrBadRequest)
	}

	if _, err := s.store.GetProvider(ctx, req.ProviderID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	weekly, err := weeklyFromAPI(req.Weekly)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, err, response.ErrBadRequest)
	}

	template := &models.AvailabilityTemplate{
		ProviderID:             req.ProviderID,
		Timezone:               req.Timezone,
		Weekly:                 weekly,
		DefaultDurationMinutes: req.DefaultDurationMinutes,
		IsDefault:              req.IsDefault,
		IsActive:               req.IsActive,
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

	// at most one default template per provider
	if template.IsDefault {
		if err := s.store.ClearDefaultTemplates(ctx, tx, req.ProviderID); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	id, err := s.store.CreateAvailabilityTemplate(ctx, tx, template)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	template.ID = id

	return templateToAPI(template), nil
}

func (s *Service) GetTemplate(ctx context.Context, id string) (*api.AvailabilityTemplateResponse, error) {
	const op = "service.GetTemplate"

	template, err := s.store.GetAvailabilityTemplate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return templateToAPI(template), nil
}

func (s *Service) UpdateTemplate(ctx context.Context, id string, req api.AvailabilityTemplateRequest) (*api.AvailabilityTemplateResponse, error) {
	const op = "service.UpdateTemplate"

	template, err := s.store.GetAvailabilityTemplate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	weekly, err := weeklyFromAPI(req.Weekly)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, err, response.ErrBadRequest)
	}

	template.Timezone = req.Timezone
	template.Weekly = weekly
	template.DefaultDurationMinutes = req.DefaultDurationMinutes
	template.IsActive = req.IsActive

	if req.IsDefault && !template.IsDefault {
		tx, err := s.store.BeginTx(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := s.store.ClearDefaultTemplates(ctx, tx, template.ProviderID); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	template.IsDefault = req.IsDefault

	if err := s.store.UpdateAvailabilityTemplate(ctx, template); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return templateToAPI(template), nil
}

func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	const op = "service.DeleteTemplate"

	if err := s.store.DeleteAvailabilityTemplate(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func templateToAPI(t *models.AvailabilityTemplate) *api.AvailabilityTemplateResponse {
	return &api.AvailabilityTemplateResponse{
		ID:                     t.ID,
		ProviderID:             t.ProviderID,
		Timezone:               t.Timezone,
		Weekly:                 weeklyToAPI(t.Weekly),
		DefaultDurationMinutes: t.DefaultDurationMinutes,
		IsDefault:              t.IsDefault,
		IsActive:               t.IsActive,
	}
}
