package service

import (
	"context"
	"fmt"
	"time"

	"booking-service/api"
	"booking-service/internal/civildate"
	"booking-service/internal/models"
	"booking-service/pkg/response"
)

func (s *Service) CreateSchedule(ctx context.Context, req api.AdvancedScheduleRequest) (*api.AdvancedScheduleResponse, error) {
	const op = "service.CreateSchedule"

	if req.TemplateID == "" {
		return nil, fmt.Errorf("%s: template_id is required: %w", op, response.ErrBadRequest)
	}

	if _, err := s.store.GetAvailabilityTemplate(ctx, req.TemplateID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	schedule, err := scheduleFromAPI(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, err, response.ErrBadRequest)
	}

	id, err := s.store.CreateAdvancedSchedule(ctx, schedule)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	schedule.ID = id

	return scheduleToAPI(schedule), nil
}

func (s *Service) GetSchedule(ctx context.Context, id string) (*api.AdvancedScheduleResponse, error) {
	const op = "service.GetSchedule"

	schedule, err := s.store.GetAdvancedSchedule(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return scheduleToAPI(schedule), nil
}

func (s *Service) ListSchedules(ctx context.Context, templateID string) ([]*api.AdvancedScheduleResponse, error) {
	const op = "service.ListSchedules"

	schedules, err := s.store.ListAdvancedSchedules(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]*api.AdvancedScheduleResponse, 0, len(schedules))
	for _, sch := range schedules {
		result = append(result, scheduleToAPI(sch))
	}

	return result, nil
}

func (s *Service) UpdateSchedule(ctx context.Context, id string, req api.AdvancedScheduleRequest) (*api.AdvancedScheduleResponse, error) {
	const op = "service.UpdateSchedule"

	existing, err := s.store.GetAdvancedSchedule(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	schedule, err := scheduleFromAPI(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, err, response.ErrBadRequest)
	}
	schedule.ID = existing.ID
	schedule.TemplateID = existing.TemplateID

	if err := s.store.UpdateAdvancedSchedule(ctx, schedule); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return scheduleToAPI(schedule), nil
}

func (s *Service) DeleteSchedule(ctx context.Context, id string) error {
	const op = "service.DeleteSchedule"

	if err := s.store.DeleteAdvancedSchedule(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func scheduleFromAPI(req api.AdvancedScheduleRequest) (*models.AdvancedAvailabilitySchedule, error) {
	start, err := civildate.Parse(req.StartDate)
	if err != nil {
		return nil, err
	}

	var end *civildate.Date
	if req.EndDate != "" {
		parsed, err := civildate.Parse(req.EndDate)
		if err != nil {
			return nil, err
		}
		if parsed.Before(start) {
			return nil, fmt.Errorf("end_date %s is before start_date %s", parsed, start)
		}
		end = &parsed
	}

	weekly, err := weeklyFromAPI(req.Weekly)
	if err != nil {
		return nil, err
	}

	recurrence, err := recurrenceFromAPI(req.Recurrence)
	if err != nil {
		return nil, err
	}

	return &models.AdvancedAvailabilitySchedule{
		TemplateID: req.TemplateID,
		StartDate:  start,
		EndDate:    end,
		Recurrence: recurrence,
		Priority:   req.Priority,
		IsActive:   req.IsActive,
		Weekly:     weekly,
	}, nil
}

func recurrenceFromAPI(cfg *api.RecurrenceConfig) (*models.RecurrenceRule, error) {
	if cfg == nil {
		return nil, nil
	}

	rule := &models.RecurrenceRule{
		Interval:    cfg.Interval,
		WeekOfMonth: cfg.WeekOfMonth,
		Count:       cfg.Count,
	}

	switch models.RecurrenceType(cfg.Type) {
	case models.RecurDaily, models.RecurWeekly, models.RecurMonthly, models.RecurYearly:
		rule.Type = models.RecurrenceType(cfg.Type)
	default:
		return nil, fmt.Errorf("invalid recurrence type %q", cfg.Type)
	}

	for _, day := range cfg.DaysOfWeek {
		wd, ok := parseWeekdayFlexible(day)
		if !ok {
			return nil, fmt.Errorf("invalid recurrence day of week %q", day)
		}
		rule.DaysOfWeek = append(rule.DaysOfWeek, wd)
	}

	if cfg.MonthOfYear != 0 {
		if cfg.MonthOfYear < 1 || cfg.MonthOfYear > 12 {
			return nil, fmt.Errorf("invalid recurrence month %d", cfg.MonthOfYear)
		}
		rule.MonthOfYear = time.Month(cfg.MonthOfYear)
	}

	switch models.RecurrenceEndType(cfg.EndType) {
	case models.RecurEndOnDate:
		rule.EndType = models.RecurEndOnDate
		if cfg.EndDate == "" {
			return nil, fmt.Errorf("recurrence end type ON_DATE requires end_date")
		}
		parsed, err := civildate.Parse(cfg.EndDate)
		if err != nil {
			return nil, err
		}
		rule.EndDate = &parsed
	case models.RecurEndAfterCount:
		rule.EndType = models.RecurEndAfterCount
		if cfg.Count <= 0 {
			return nil, fmt.Errorf("recurrence end type AFTER_COUNT requires a positive count")
		}
	case models.RecurEndNever, "":
		rule.EndType = models.RecurEndNever
	default:
		return nil, fmt.Errorf("invalid recurrence end type %q", cfg.EndType)
	}

	return rule, nil
}

func scheduleToAPI(sch *models.AdvancedAvailabilitySchedule) *api.AdvancedScheduleResponse {
	resp := &api.AdvancedScheduleResponse{
		ID:         sch.ID,
		TemplateID: sch.TemplateID,
		StartDate:  sch.StartDate.String(),
		Priority:   sch.Priority,
		IsActive:   sch.IsActive,
		Weekly:     weeklyToAPI(sch.Weekly),
	}
	if sch.EndDate != nil {
		resp.EndDate = sch.EndDate.String()
	}
	if sch.Recurrence != nil {
		resp.Recurrence = recurrenceToAPI(sch.Recurrence)
	}
	return resp
}

func recurrenceToAPI(rule *models.RecurrenceRule) *api.RecurrenceConfig {
	cfg := &api.RecurrenceConfig{
		Type:        string(rule.Type),
		Interval:    rule.Interval,
		WeekOfMonth: rule.WeekOfMonth,
		MonthOfYear: int(rule.MonthOfYear),
		EndType:     string(rule.EndType),
		Count:       rule.Count,
	}
	for _, wd := range rule.DaysOfWeek {
		cfg.DaysOfWeek = append(cfg.DaysOfWeek, weekdayKey(wd))
	}
	if rule.EndDate != nil {
		cfg.EndDate = rule.EndDate.String()
	}
	return cfg
}
