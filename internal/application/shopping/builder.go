// Package shopping builds priced shopping lists from the meal plans of a
// date range.
package shopping

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	apprecipe "github.com/nutriplan/engine/internal/application/recipe"
	"github.com/nutriplan/engine/internal/domain/shopping"
	"github.com/nutriplan/engine/internal/ports/inbound"
	"github.com/nutriplan/engine/internal/ports/outbound"
	"github.com/nutriplan/engine/pkg/errors"
	"github.com/nutriplan/engine/pkg/validation"
)

// Config holds shopping list defaults
type Config struct {
	DefaultServings int     `mapstructure:"default_servings"`
	SavingFactor    float64 `mapstructure:"saving_factor"`
}

// Builder implements inbound.ShoppingService
type Builder struct {
	plans     outbound.MealPlanRepository
	resolver  *apprecipe.Resolver
	prices    inbound.PricingService
	metrics   outbound.EngineMetrics
	validator *validation.Validator
	logger    *zap.Logger
	tracer    trace.Tracer
	cfg       Config
	now       func() time.Time
}

// NewBuilder creates a shopping list builder
func NewBuilder(
	plans outbound.MealPlanRepository,
	resolver *apprecipe.Resolver,
	prices inbound.PricingService,
	metrics outbound.EngineMetrics,
	validator *validation.Validator,
	logger *zap.Logger,
	cfg Config,
) *Builder {
	if cfg.DefaultServings <= 0 {
		cfg.DefaultServings = shopping.DefaultServings
	}
	if cfg.SavingFactor <= 0 || cfg.SavingFactor > 1 {
		cfg.SavingFactor = shopping.DefaultSavingFactor
	}
	return &Builder{
		plans:     plans,
		resolver:  resolver,
		prices:    prices,
		metrics:   metrics,
		validator: validator,
		logger:    logger.Named("shopping-builder"),
		tracer:    otel.Tracer("nutriplan/application/shopping"),
		cfg:       cfg,
		now:       time.Now,
	}
}

var _ inbound.ShoppingService = (*Builder)(nil)

// BuildList aggregates, scales and prices the demand of every plan in range
func (b *Builder) BuildList(ctx context.Context, q inbound.BuildListQuery) (*shopping.List, error) {
	started := b.now()

	if err := b.validator.Struct(q); err != nil {
		return nil, err
	}
	if err := q.Range.Validate(); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	opts, err := b.options(q)
	if err != nil {
		return nil, err
	}

	ctx, span := b.tracer.Start(ctx, "shopping.Builder.BuildList", trace.WithAttributes(
		attribute.String("range.start", q.Range.Start.String()),
		attribute.String("range.end", q.Range.End.String()),
		attribute.Int("servings", opts.Servings),
		attribute.String("mode", string(opts.Mode)),
	))
	defer span.End()

	plans, err := b.plans.FindByDateRange(ctx, q.UserID, q.Range)
	if err != nil {
		span.RecordError(err)
		return nil, errors.NewDatabaseError("load meal plans", err)
	}

	comps, err := b.resolver.Load(ctx, shopping.RecipeIDs(plans))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	demand := shopping.Aggregate(plans, comps.Recipes)

	quotes, err := b.prices.Quotes(ctx, demand.Order)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	list := shopping.Build(demand, comps.Catalog, quotes, opts, b.now())
	list.Range = q.Range

	estimates := 0
	for _, item := range list.Items {
		if item.Estimate {
			estimates++
		}
	}
	b.metrics.ShoppingListBuilt(len(list.Items), estimates, list.Incomplete, b.now().Sub(started))
	span.SetAttributes(
		attribute.Int("items", len(list.Items)),
		attribute.Int("estimates", estimates),
		attribute.Bool("incomplete", list.Incomplete),
	)

	b.logger.Debug("Shopping list built",
		zap.String("user_id", q.UserID.String()),
		zap.Int("plans", len(plans)),
		zap.Int("recipe_occurrences", demand.Occurrences),
		zap.Int("items", len(list.Items)),
		zap.Int("missing_recipes", len(list.MissingRecipes)),
		zap.Int("unresolved_ingredients", len(list.UnresolvedIngredients)),
	)
	return &list, nil
}

// Summarize totals the list per currency, splitting out checked items
func (b *Builder) Summarize(items []shopping.Item, checked map[uuid.UUID]bool) shopping.Summary {
	return shopping.Summarize(items, checked)
}

func (b *Builder) options(q inbound.BuildListQuery) (shopping.Options, error) {
	mode, err := shopping.ParseMode(q.Mode)
	if err != nil {
		return shopping.Options{}, errors.NewValidationError(err.Error())
	}
	opts := shopping.Options{
		Servings:     q.Servings,
		Mode:         mode,
		SavingFactor: b.cfg.SavingFactor,
	}
	if opts.Servings == 0 {
		opts.Servings = b.cfg.DefaultServings
	}
	if err := opts.Validate(); err != nil {
		return shopping.Options{}, errors.NewValidationError(err.Error())
	}
	return opts, nil
}
