package recipe

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/nutriplan/engine/internal/domain/ingredient"
	"github.com/nutriplan/engine/internal/domain/recipe"
	"github.com/nutriplan/engine/internal/ports/outbound"
	"github.com/nutriplan/engine/pkg/errors"
)

// Resolver batch-loads recipes and the ingredients they reference. Each
// call issues one recipe query and one catalog query regardless of how many
// ids are involved.
type Resolver struct {
	recipes outbound.RecipeStore
	catalog outbound.IngredientCatalog
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewResolver creates a composition resolver
func NewResolver(recipes outbound.RecipeStore, catalog outbound.IngredientCatalog, logger *zap.Logger) *Resolver {
	return &Resolver{
		recipes: recipes,
		catalog: catalog,
		logger:  logger.Named("composition-resolver"),
		tracer:  otel.Tracer("nutriplan/application/recipe"),
	}
}

// Compositions is a consistent snapshot of recipes, their ingredients and
// the derived nutrition of each recipe.
type Compositions struct {
	Recipes map[uuid.UUID]*recipe.Recipe
	Catalog ingredient.Snapshot
	derived map[uuid.UUID]recipe.Composition
}

// Lookup returns the lenient composition of a loaded recipe
func (c *Compositions) Lookup(id uuid.UUID) (recipe.Composition, bool) {
	comp, ok := c.derived[id]
	return comp, ok
}

// Load resolves ids, which may repeat, into a Compositions snapshot.
// Unknown recipes are simply absent from the result.
func (r *Resolver) Load(ctx context.Context, ids []uuid.UUID) (*Compositions, error) {
	ctx, span := r.tracer.Start(ctx, "recipe.Resolver.Load")
	defer span.End()

	unique := distinct(ids)
	span.SetAttributes(attribute.Int("recipes.requested", len(unique)))

	out := &Compositions{
		Recipes: make(map[uuid.UUID]*recipe.Recipe, len(unique)),
		derived: make(map[uuid.UUID]recipe.Composition, len(unique)),
	}
	if len(unique) == 0 {
		out.Catalog = ingredient.NewSnapshot()
		return out, nil
	}

	found, err := r.recipes.GetRecipes(ctx, unique)
	if err != nil {
		return nil, errors.NewDatabaseError("load recipes", err)
	}
	for _, rec := range found {
		out.Recipes[rec.ID()] = rec
	}

	snapshot, err := r.Snapshot(ctx, found...)
	if err != nil {
		return nil, err
	}
	out.Catalog = snapshot

	for id, rec := range out.Recipes {
		out.derived[id] = recipe.ComposeNutrition(rec, snapshot)
	}

	if missing := len(unique) - len(found); missing > 0 {
		r.logger.Debug("Some recipes could not be resolved",
			zap.Int("requested", len(unique)),
			zap.Int("missing", missing),
		)
	}
	span.SetAttributes(
		attribute.Int("recipes.found", len(found)),
		attribute.Int("ingredients.found", snapshot.Len()),
	)
	return out, nil
}

// Snapshot loads every ingredient referenced by recipes in one query
func (r *Resolver) Snapshot(ctx context.Context, recipes ...*recipe.Recipe) (ingredient.Snapshot, error) {
	var ids []uuid.UUID
	for _, rec := range recipes {
		ids = append(ids, rec.IngredientIDs()...)
	}
	ids = distinct(ids)
	if len(ids) == 0 {
		return ingredient.NewSnapshot(), nil
	}

	items, err := r.catalog.GetIngredients(ctx, ids)
	if err != nil {
		return ingredient.Snapshot{}, errors.NewDatabaseError("load ingredients", err)
	}
	return ingredient.NewSnapshot(items...), nil
}

func distinct(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
