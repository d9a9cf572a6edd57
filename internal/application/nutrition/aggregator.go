// Package nutrition merges logged consumption with planned meals into
// per-day nutrition figures.
package nutrition

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apprecipe "github.com/nutriplan/engine/internal/application/recipe"
	"github.com/nutriplan/engine/internal/domain/foodlog"
	"github.com/nutriplan/engine/internal/domain/mealplan"
	"github.com/nutriplan/engine/internal/domain/nutrition"
	"github.com/nutriplan/engine/internal/domain/shared"
	"github.com/nutriplan/engine/internal/ports/inbound"
	"github.com/nutriplan/engine/internal/ports/outbound"
	"github.com/nutriplan/engine/pkg/errors"
	"github.com/nutriplan/engine/pkg/validation"
)

// maxParallelLoads bounds concurrent repository queries for sparse windows
const maxParallelLoads = 8

// Config holds aggregator settings
type Config struct {
	ExcludeNoDataDays bool `mapstructure:"exclude_no_data_days"`
}

// Aggregator implements inbound.NutritionService and inbound.FoodLogService
type Aggregator struct {
	plans     outbound.MealPlanRepository
	logs      outbound.FoodLogRepository
	resolver  *apprecipe.Resolver
	metrics   outbound.EngineMetrics
	validator *validation.Validator
	logger    *zap.Logger
	tracer    trace.Tracer
	policy    nutrition.AveragePolicy
}

// NewAggregator creates a nutrition aggregator
func NewAggregator(
	plans outbound.MealPlanRepository,
	logs outbound.FoodLogRepository,
	resolver *apprecipe.Resolver,
	metrics outbound.EngineMetrics,
	validator *validation.Validator,
	logger *zap.Logger,
	cfg Config,
) *Aggregator {
	return &Aggregator{
		plans:     plans,
		logs:      logs,
		resolver:  resolver,
		metrics:   metrics,
		validator: validator,
		logger:    logger.Named("nutrition-aggregator"),
		tracer:    otel.Tracer("nutriplan/application/nutrition"),
		policy:    nutrition.AveragePolicy{ExcludeNoData: cfg.ExcludeNoDataDays},
	}
}

var (
	_ inbound.NutritionService = (*Aggregator)(nil)
	_ inbound.FoodLogService   = (*Aggregator)(nil)
)

// DailyNutrition returns the figure for one date
func (a *Aggregator) DailyNutrition(ctx context.Context, userID uuid.UUID, date shared.Date) (*nutrition.Daily, error) {
	if date.IsZero() {
		return nil, errors.NewValidationError(shared.ErrInvalidDate.Error())
	}
	days, err := a.days(ctx, userID, []shared.Date{date})
	if err != nil {
		return nil, err
	}
	return &days[0], nil
}

// DailyRange returns one figure per date in r
func (a *Aggregator) DailyRange(ctx context.Context, userID uuid.UUID, r shared.DateRange) ([]nutrition.Daily, error) {
	if err := r.Validate(); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	return a.days(ctx, userID, r.Days())
}

// WindowAverage averages the supplied dates. Dates need not be contiguous
// and a repeated date is counted once per occurrence.
func (a *Aggregator) WindowAverage(ctx context.Context, userID uuid.UUID, dates []shared.Date, policy *nutrition.AveragePolicy) (*nutrition.Average, error) {
	p := a.policy
	if policy != nil {
		p = *policy
	}
	if len(dates) == 0 {
		avg := nutrition.WindowAverage(nil, p)
		return &avg, nil
	}

	days, err := a.days(ctx, userID, dates)
	if err != nil {
		return nil, err
	}
	avg := nutrition.WindowAverage(days, p)
	return &avg, nil
}

// WeeklySummary reports the Monday-to-Sunday week containing anyDay
func (a *Aggregator) WeeklySummary(ctx context.Context, userID uuid.UUID, anyDay shared.Date) (*inbound.WeeklySummary, error) {
	if anyDay.IsZero() {
		return nil, errors.NewValidationError(shared.ErrInvalidDate.Error())
	}
	week := shared.WeekOf(anyDay)

	days, err := a.days(ctx, userID, week.Days())
	if err != nil {
		return nil, err
	}

	sources := map[nutrition.Source]int{
		nutrition.SourceActual:  0,
		nutrition.SourcePlanned: 0,
		nutrition.SourceNone:    0,
	}
	for _, d := range days {
		sources[d.Source]++
	}

	return &inbound.WeeklySummary{
		Range:   week,
		Days:    days,
		Average: nutrition.WindowAverage(days, a.policy),
		Sources: sources,
	}, nil
}

// days computes the figure of each date, in the order given. The dates are
// grouped into runs of consecutive days; logs and plans of every run are
// loaded in parallel, and all referenced recipes are resolved in a single
// batch.
func (a *Aggregator) days(ctx context.Context, userID uuid.UUID, dates []shared.Date) ([]nutrition.Daily, error) {
	if userID == uuid.Nil {
		return nil, errors.NewValidationError(mealplan.ErrMissingUser.Error())
	}
	for _, d := range dates {
		if d.IsZero() {
			return nil, errors.NewValidationError(shared.ErrInvalidDate.Error())
		}
	}

	windows := runs(dates)
	ctx, span := a.tracer.Start(ctx, "nutrition.Aggregator.days", trace.WithAttributes(
		attribute.Int("dates.count", len(dates)),
		attribute.Int("windows.count", len(windows)),
	))
	defer span.End()

	var (
		mu      sync.Mutex
		entries []*foodlog.Entry
		plans   []*mealplan.MealPlan
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)
	for _, w := range windows {
		g.Go(func() error {
			found, err := a.logs.FindByDateRange(gctx, userID, w)
			if err != nil {
				return errors.NewDatabaseError("load food logs", err)
			}
			mu.Lock()
			entries = append(entries, found...)
			mu.Unlock()
			return nil
		})
		g.Go(func() error {
			found, err := a.plans.FindByDateRange(gctx, userID, w)
			if err != nil {
				return errors.NewDatabaseError("load meal plans", err)
			}
			mu.Lock()
			plans = append(plans, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	logsByDate := make(map[string][]*foodlog.Entry)
	for _, e := range entries {
		key := e.Date.String()
		logsByDate[key] = append(logsByDate[key], e)
	}
	planByDate := make(map[string]*mealplan.MealPlan, len(plans))
	for _, p := range plans {
		planByDate[p.Date().String()] = p
	}

	ids := foodlog.RecipeIDs(entries)
	for _, p := range plans {
		ids = append(ids, p.RecipeIDs()...)
	}
	comps, err := a.resolver.Load(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	resolve := func(id uuid.UUID) (nutrition.Macros, bool, bool) {
		c, ok := comps.Lookup(id)
		if !ok {
			return nutrition.Macros{}, false, false
		}
		return c.Totals, c.Incomplete, true
	}

	out := make([]nutrition.Daily, 0, len(dates))
	for _, d := range dates {
		key := d.String()
		actual := foodlog.Sum(logsByDate[key], resolve)
		planned := plannedIntake(planByDate[key], resolve)
		daily := nutrition.SelectDaily(d, actual, planned)
		a.metrics.NutritionDay(string(daily.Source), daily.Incomplete)
		out = append(out, daily)
	}

	a.logger.Debug("Computed daily nutrition",
		zap.String("user_id", userID.String()),
		zap.Int("dates", len(dates)),
		zap.Int("food_logs", len(entries)),
		zap.Int("meal_plans", len(plans)),
	)
	return out, nil
}

// plannedIntake sums the composition of every recipe occurrence in the plan
func plannedIntake(p *mealplan.MealPlan, resolve foodlog.RecipeNutrition) nutrition.Intake {
	var in nutrition.Intake
	if p == nil {
		return in
	}
	for _, id := range p.RecipeIDs() {
		in.Entries++
		m, incomplete, ok := resolve(id)
		if !ok {
			in.Incomplete = true
			continue
		}
		in.Resolved++
		in.Macros = in.Macros.Add(m)
		if incomplete {
			in.Incomplete = true
		}
	}
	return in
}

// runs splits the distinct dates into ranges of consecutive days, none
// longer than shared.MaxRangeDays
func runs(dates []shared.Date) []shared.DateRange {
	if len(dates) == 0 {
		return nil
	}
	sorted := append([]shared.Date(nil), dates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var out []shared.DateRange
	cur := shared.DateRange{Start: sorted[0], End: sorted[0]}
	for _, d := range sorted[1:] {
		switch {
		case d.Equal(cur.End):
			continue
		case d.Equal(cur.End.AddDays(1)) && cur.Len() < shared.MaxRangeDays:
			cur.End = d
		default:
			out = append(out, cur)
			cur = shared.DateRange{Start: d, End: d}
		}
	}
	return append(out, cur)
}
