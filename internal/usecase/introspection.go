package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/pgdeveloper/internal/domain"
	"github.com/fairyhunter13/pgdeveloper/internal/explorer"
)

// IntrospectionOptions tunes IntrospectionService.
type IntrospectionOptions struct {
	// Concurrency bounds how many schemas are read at once. Values < 1 mean 1.
	Concurrency int
	// Limiter throttles introspections per profile. Nil disables throttling.
	Limiter Limiter
	// Observe receives the outcome and duration of each introspection.
	Observe func(ok bool, d time.Duration)
	Now     func() time.Time
}

// IntrospectionService snapshots database structure into the cache and the
// search index, and renders the explorer tree from it.
type IntrospectionService struct {
	Meta     domain.Metadata
	Cache    domain.CacheStore
	Index    domain.SearchIndex
	Profiles Resolver
	Explorer *explorer.Explorer
	opts     IntrospectionOptions
}

// NewIntrospectionService constructs an IntrospectionService with the
// default object providers.
func NewIntrospectionService(meta domain.Metadata, cache domain.CacheStore, index domain.SearchIndex, profiles Resolver, opts IntrospectionOptions) *IntrospectionService {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &IntrospectionService{Meta: meta, Cache: cache, Index: index, Profiles: profiles, Explorer: explorer.New(), opts: opts}
}

// Introspect reads schemas, tables, functions and procedures of profile ("" for
// active), stores the snapshot and rebuilds the profile's search index rows.
func (s *IntrospectionService) Introspect(ctx domain.Context, profile string) (domain.DatabaseCache, error) {
	name, err := s.Profiles.Resolve(profile)
	if err != nil {
		return domain.DatabaseCache{}, err
	}
	if s.opts.Limiter != nil {
		allowed, retryAfter, lerr := s.opts.Limiter.Allow(ctx, "introspect:"+name)
		if lerr != nil {
			slog.Warn("introspection limiter unavailable", slog.String("profile", name), slog.Any("error", lerr))
		}
		if !allowed {
			return domain.DatabaseCache{}, fmt.Errorf("op=introspect: %w: profile %s, retry after %s", domain.ErrRateLimited, name, retryAfter.Round(time.Second))
		}
	}

	ctx, span := otel.Tracer("usecase").Start(ctx, "introspection.Introspect")
	defer span.End()
	span.SetAttributes(attribute.String("db.profile", name))

	start := time.Now()
	cache, err := s.snapshot(ctx, name)
	if s.opts.Observe != nil {
		s.opts.Observe(err == nil, time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
		slog.Error("introspection failed", slog.String("profile", name), slog.Any("error", err))
		return domain.DatabaseCache{}, err
	}

	if s.Cache != nil {
		if err := s.Cache.Put(ctx, cache); err != nil {
			return domain.DatabaseCache{}, fmt.Errorf("op=introspect.store: %w", err)
		}
	}
	if s.Index != nil {
		items := s.Explorer.IndexItems(cache)
		if err := s.Index.Replace(ctx, name, items); err != nil {
			return domain.DatabaseCache{}, fmt.Errorf("op=introspect.index: %w", err)
		}
		span.SetAttributes(attribute.Int("index.items", len(items)))
	}
	slog.Info("introspection completed", slog.String("profile", name), slog.Int("schemas", len(cache.Schemas)), slog.Duration("duration", time.Since(start)))
	return cache, nil
}

func (s *IntrospectionService) snapshot(ctx domain.Context, name string) (domain.DatabaseCache, error) {
	schemas, err := s.Meta.Schemas(ctx, name)
	if err != nil {
		return domain.DatabaseCache{}, err
	}
	results := make([]domain.SchemaCache, len(schemas))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, schema := range schemas {
		g.Go(func() error {
			sc, err := s.readSchema(gctx, name, schema)
			if err != nil {
				return fmt.Errorf("op=introspect.schema: %s: %w", schema, err)
			}
			results[i] = sc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.DatabaseCache{}, err
	}

	cache := domain.DatabaseCache{
		ConnectionName:        name,
		LastIntrospectionTime: s.opts.Now().UTC(),
		Schemas:               make(map[string]domain.SchemaCache, len(results)),
	}
	for _, sc := range results {
		cache.Schemas[sc.Name] = sc
	}
	return cache, nil
}

func (s *IntrospectionService) readSchema(ctx domain.Context, profile, schema string) (domain.SchemaCache, error) {
	tables, err := s.Meta.Tables(ctx, profile, schema)
	if err != nil {
		return domain.SchemaCache{}, err
	}
	functions, err := s.Meta.Functions(ctx, profile, schema)
	if err != nil {
		return domain.SchemaCache{}, err
	}
	procedures, err := s.Meta.Procedures(ctx, profile, schema)
	if err != nil {
		return domain.SchemaCache{}, err
	}
	sc := domain.SchemaCache{
		Name:       schema,
		Tables:     make([]domain.TableCache, 0, len(tables)),
		Functions:  nonNil(functions),
		Procedures: nonNil(procedures),
	}
	for _, t := range tables {
		sc.Tables = append(sc.Tables, domain.TableCache{Name: t.Name, Type: t.Type})
	}
	return sc, nil
}

// Cached returns the stored snapshot of profile, introspecting when none exists.
func (s *IntrospectionService) Cached(ctx domain.Context, profile string) (domain.DatabaseCache, error) {
	name, err := s.Profiles.Resolve(profile)
	if err != nil {
		return domain.DatabaseCache{}, err
	}
	if s.Cache != nil {
		c, err := s.Cache.Get(ctx, name)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Warn("cache read failed, introspecting", slog.String("profile", name), slog.Any("error", err))
		}
	}
	return s.Introspect(ctx, name)
}

// Tree returns the explorer tree of profile built from its snapshot.
func (s *IntrospectionService) Tree(ctx domain.Context, profile string) (*explorer.Node, error) {
	c, err := s.Cached(ctx, profile)
	if err != nil {
		return nil, err
	}
	return s.Explorer.BuildTree(c), nil
}

// Search looks query up in the object index. An empty profile searches
// every connection. The response is the explorer search tree.
func (s *IntrospectionService) Search(ctx domain.Context, profile, query string) (*explorer.Node, []domain.SearchResult, error) {
	if s.Index == nil {
		return explorer.SearchTree(nil), []domain.SearchResult{}, nil
	}
	results, err := s.Index.Search(ctx, profile, query)
	if err != nil {
		return nil, nil, fmt.Errorf("op=explorer.search: %w", err)
	}
	return explorer.SearchTree(results), results, nil
}

// EditorFor names the editor an explorer item opens in.
func (s *IntrospectionService) EditorFor(item domain.SidebarItem) string {
	return s.Explorer.EditorFor(item)
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
