// Package mealplan provides the application layer for per-date meal slots.
// Writes use optimistic concurrency on the plan version.
package mealplan

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/nutriplan/engine/internal/domain/mealplan"
	"github.com/nutriplan/engine/internal/domain/shared"
	"github.com/nutriplan/engine/internal/ports/inbound"
	"github.com/nutriplan/engine/internal/ports/outbound"
	"github.com/nutriplan/engine/pkg/errors"
	"github.com/nutriplan/engine/pkg/validation"
)

const (
	outcomeSuccess  = "success"
	outcomeNoop     = "noop"
	outcomeConflict = "conflict"
	outcomeError    = "error"
)

// SlotService implements inbound.MealPlanService
type SlotService struct {
	plans     outbound.MealPlanRepository
	publisher outbound.EventPublisher
	metrics   outbound.EngineMetrics
	validator *validation.Validator
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewSlotService creates a new slot service
func NewSlotService(
	plans outbound.MealPlanRepository,
	publisher outbound.EventPublisher,
	metrics outbound.EngineMetrics,
	validator *validation.Validator,
	logger *zap.Logger,
) *SlotService {
	return &SlotService{
		plans:     plans,
		publisher: publisher,
		metrics:   metrics,
		validator: validator,
		logger:    logger.Named("slot-service"),
		tracer:    otel.Tracer("nutriplan/application/mealplan"),
	}
}

var _ inbound.MealPlanService = (*SlotService)(nil)

// GetPlan returns the stored plan for date
func (s *SlotService) GetPlan(ctx context.Context, userID uuid.UUID, date shared.Date) (*inbound.MealPlanDTO, error) {
	if err := checkKey(userID, date); err != nil {
		return nil, err
	}

	plan, err := s.plans.FindByDate(ctx, userID, date)
	if err != nil {
		if stderrors.Is(err, mealplan.ErrNotFound) {
			return nil, errors.NewMealPlanNotFoundError(date.String())
		}
		return nil, errors.NewDatabaseError("find meal plan", err)
	}
	return inbound.ToMealPlanDTO(plan), nil
}

// ListPlans returns the stored plans inside r, ordered by date
func (s *SlotService) ListPlans(ctx context.Context, userID uuid.UUID, r shared.DateRange) ([]*inbound.MealPlanDTO, error) {
	if userID == uuid.Nil {
		return nil, errors.NewValidationError(mealplan.ErrMissingUser.Error())
	}
	if err := r.Validate(); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	plans, err := s.plans.FindByDateRange(ctx, userID, r)
	if err != nil {
		return nil, errors.NewDatabaseError("list meal plans", err)
	}

	dtos := make([]*inbound.MealPlanDTO, 0, len(plans))
	for _, p := range plans {
		dtos = append(dtos, inbound.ToMealPlanDTO(p))
	}
	return dtos, nil
}

// Ensure returns the plan for date, creating an empty one if needed
func (s *SlotService) Ensure(ctx context.Context, userID uuid.UUID, date shared.Date) (*inbound.MealPlanDTO, error) {
	if err := checkKey(userID, date); err != nil {
		return nil, err
	}

	plan, err := s.plans.Ensure(ctx, userID, date)
	if err != nil {
		return nil, errors.NewDatabaseError("ensure meal plan", err)
	}
	return inbound.ToMealPlanDTO(plan), nil
}

// SetSlot replaces a slot's recipe list
func (s *SlotService) SetSlot(ctx context.Context, cmd inbound.SetSlotCommand) (*inbound.SlotMutationResult, error) {
	if err := s.validate(cmd, cmd.SlotTarget); err != nil {
		return nil, err
	}
	return s.mutate(ctx, cmd.SlotTarget, mealplan.OpSet, true, func(p *mealplan.MealPlan) (mealplan.ReplaceResult, error) {
		changed, err := p.SetSlot(cmd.Slot, cmd.RecipeIDs)
		return mealplan.ReplaceResult{Changed: changed}, err
	})
}

// AddToSlot appends a recipe, creating the plan if needed
func (s *SlotService) AddToSlot(ctx context.Context, cmd inbound.SlotRecipeCommand) (*inbound.SlotMutationResult, error) {
	if err := s.validate(cmd, cmd.SlotTarget); err != nil {
		return nil, err
	}
	return s.mutate(ctx, cmd.SlotTarget, mealplan.OpAdd, true, func(p *mealplan.MealPlan) (mealplan.ReplaceResult, error) {
		changed, err := p.AddToSlot(cmd.Slot, cmd.RecipeID)
		return mealplan.ReplaceResult{Changed: changed}, err
	})
}

// RemoveFromSlot drops every occurrence of a recipe. Removing from a date
// with no plan is a no-op and returns a nil plan.
func (s *SlotService) RemoveFromSlot(ctx context.Context, cmd inbound.SlotRecipeCommand) (*inbound.SlotMutationResult, error) {
	if err := s.validate(cmd, cmd.SlotTarget); err != nil {
		return nil, err
	}
	return s.mutate(ctx, cmd.SlotTarget, mealplan.OpRemove, false, func(p *mealplan.MealPlan) (mealplan.ReplaceResult, error) {
		changed, err := p.RemoveFromSlot(cmd.Slot, cmd.RecipeID)
		return mealplan.ReplaceResult{Changed: changed}, err
	})
}

// ReplaceInSlot swaps one recipe for another, adding the new one when the
// old one is absent
func (s *SlotService) ReplaceInSlot(ctx context.Context, cmd inbound.ReplaceInSlotCommand) (*inbound.SlotMutationResult, error) {
	if err := s.validate(cmd, cmd.SlotTarget); err != nil {
		return nil, err
	}
	return s.mutate(ctx, cmd.SlotTarget, mealplan.OpReplace, true, func(p *mealplan.MealPlan) (mealplan.ReplaceResult, error) {
		return p.ReplaceInSlot(cmd.Slot, cmd.OldRecipeID, cmd.NewRecipeID)
	})
}

func (s *SlotService) mutate(
	ctx context.Context,
	target inbound.SlotTarget,
	op mealplan.Operation,
	create bool,
	apply func(*mealplan.MealPlan) (mealplan.ReplaceResult, error),
) (result *inbound.SlotMutationResult, err error) {
	ctx, span := s.tracer.Start(ctx, "mealplan.SlotService."+string(op), trace.WithAttributes(
		attribute.String("user.id", target.UserID.String()),
		attribute.String("plan.date", target.Date.String()),
		attribute.String("plan.slot", string(target.Slot)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	plan, err := s.load(ctx, target, create)
	if err != nil {
		s.metrics.SlotMutation(string(op), outcomeError)
		return nil, err
	}
	if plan == nil {
		s.metrics.SlotMutation(string(op), outcomeNoop)
		return &inbound.SlotMutationResult{}, nil
	}

	expected := plan.Version()
	if target.ExpectedVersion != nil && *target.ExpectedVersion != expected {
		s.metrics.SlotMutation(string(op), outcomeConflict)
		return nil, errors.NewVersionConflictError(plan.ID().String(), *target.ExpectedVersion).
			WithMetadata("current_version", expected)
	}

	res, err := apply(plan)
	if err != nil {
		s.metrics.SlotMutation(string(op), outcomeError)
		return nil, errors.NewValidationError(err.Error())
	}
	if !res.Changed {
		s.metrics.SlotMutation(string(op), outcomeNoop)
		return &inbound.SlotMutationResult{Plan: inbound.ToMealPlanDTO(plan), Fallback: res.Fallback}, nil
	}

	if err := s.plans.UpdateSlots(ctx, plan, expected); err != nil {
		if stderrors.Is(err, mealplan.ErrVersionConflict) {
			s.metrics.SlotMutation(string(op), outcomeConflict)
			s.logger.Info("Meal plan write lost a concurrent update",
				zap.String("meal_plan_id", plan.ID().String()),
				zap.Int("expected_version", expected),
			)
			return nil, errors.NewVersionConflictError(plan.ID().String(), expected)
		}
		s.metrics.SlotMutation(string(op), outcomeError)
		return nil, errors.NewDatabaseError("update meal plan slots", err)
	}

	s.metrics.SlotMutation(string(op), outcomeSuccess)
	span.SetAttributes(attribute.Int("plan.version", plan.Version()))
	s.publish(ctx, plan)

	s.logger.Debug("Meal slot updated",
		zap.String("meal_plan_id", plan.ID().String()),
		zap.String("slot", string(target.Slot)),
		zap.String("operation", string(op)),
		zap.Int("version", plan.Version()),
		zap.Bool("fallback", res.Fallback),
	)

	return &inbound.SlotMutationResult{
		Plan:     inbound.ToMealPlanDTO(plan),
		Changed:  true,
		Fallback: res.Fallback,
	}, nil
}

func (s *SlotService) load(ctx context.Context, target inbound.SlotTarget, create bool) (*mealplan.MealPlan, error) {
	if create {
		plan, err := s.plans.Ensure(ctx, target.UserID, target.Date)
		if err != nil {
			return nil, errors.NewDatabaseError("ensure meal plan", err)
		}
		return plan, nil
	}

	plan, err := s.plans.FindByDate(ctx, target.UserID, target.Date)
	if err != nil {
		if stderrors.Is(err, mealplan.ErrNotFound) {
			if target.ExpectedVersion != nil {
				return nil, errors.NewMealPlanNotFoundError(target.Date.String())
			}
			return nil, nil
		}
		return nil, errors.NewDatabaseError("find meal plan", err)
	}
	return plan, nil
}

// publish stamps the persisted version on pending events and fans them out.
// Delivery failures are logged; the write has already succeeded.
func (s *SlotService) publish(ctx context.Context, plan *mealplan.MealPlan) {
	for _, event := range plan.Events() {
		if changed, ok := event.(mealplan.SlotChangedEvent); ok {
			changed.Version = plan.Version()
			event = changed
		}
		if err := s.publisher.Publish(ctx, plan.UserID(), event); err != nil {
			s.logger.Warn("Failed to publish meal plan event",
				zap.String("event", event.EventName()),
				zap.String("meal_plan_id", plan.ID().String()),
				zap.Error(err),
			)
		}
	}
}

func (s *SlotService) validate(cmd interface{}, target inbound.SlotTarget) error {
	if err := s.validator.Struct(cmd); err != nil {
		return err
	}
	if target.Date.IsZero() {
		return errors.NewValidationError(mealplan.ErrMissingDate.Error())
	}
	return nil
}

func checkKey(userID uuid.UUID, date shared.Date) error {
	if userID == uuid.Nil {
		return errors.NewValidationError(mealplan.ErrMissingUser.Error())
	}
	if date.IsZero() {
		return errors.NewValidationError(mealplan.ErrMissingDate.Error())
	}
	return nil
}
