package main

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/petatlas/internal/atlas"
	"github.com/sells-group/petatlas/internal/config"
	"github.com/sells-group/petatlas/internal/facility"
	"github.com/sells-group/petatlas/internal/fetcher"
	"github.com/sells-group/petatlas/internal/join"
	"github.com/sells-group/petatlas/internal/table"
)

// atlasEnv holds the pipeline and sources built from configuration for the
// load, query, and serve commands.
type atlasEnv struct {
	Pipeline *atlas.Pipeline
	Sources  atlas.Sources
	Cache    *atlas.Cache
}

// initAtlas validates the configuration for mode and builds the pipeline.
func initAtlas(mode string) (*atlasEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	policy, err := join.ParsePolicy(cfg.Join.Duplicates)
	if err != nil {
		return nil, err
	}
	catalog, err := facility.LoadCategoryCatalog(cfg.Categories.Path)
	if err != nil {
		return nil, err
	}

	opener := fetcher.NewOpener(
		fetcher.HTTPOptions{
			UserAgent:   cfg.Fetch.UserAgent,
			Timeout:     time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxRetries:  cfg.Fetch.MaxRetries,
			RatePerHost: rate.Limit(cfg.Fetch.RatePerHost),

			BreakerThreshold: cfg.Fetch.BreakerThreshold,
			BreakerCooldown:  time.Duration(cfg.Fetch.BreakerCooldownSecs) * time.Second,
		},
		fetcher.FTPOptions{Timeout: time.Duration(cfg.Fetch.TimeoutSecs) * time.Second},
	)
	cache := atlas.NewCache(cfg.Cache.MaxEntries)

	zap.L().Debug("atlas environment ready",
		zap.String("boundary", cfg.Sources.Boundary.Path),
		zap.String("duplicates", string(policy)),
		zap.Int("categories", len(catalog.Categories)),
	)

	return &atlasEnv{
		Pipeline: atlas.New(opener, cache, atlas.Options{
			Duplicates: policy,
			Catalog:    catalog,
			TempDir:    cfg.Fetch.TempDir,
		}),
		Sources: sourcesFromConfig(cfg.Sources),
		Cache:   cache,
	}, nil
}

// loadSnapshot runs one cycle with the configured sources.
func loadSnapshot(ctx context.Context) (*atlas.Snapshot, error) {
	env, err := initAtlas("load")
	if err != nil {
		return nil, err
	}
	return env.Pipeline.Run(ctx, env.Sources)
}

func sourcesFromConfig(sc config.SourcesConfig) atlas.Sources {
	return atlas.Sources{
		Boundary: atlas.BoundarySource{
			Location:  sc.Boundary.Path,
			Format:    atlas.BoundaryFormat(strings.ToLower(sc.Boundary.Format)),
			NameField: sc.Boundary.NameField,
			Charset:   sc.Boundary.Encoding,
		},
		Population:     tableSource(atlas.SourcePopulation, sc.Population),
		Pets:           tableSource(atlas.SourcePets, sc.Pets),
		Infrastructure: tableSource(atlas.SourceInfrastructure, sc.Infrastructure),
		Facilities:     tableSource(atlas.SourceFacilities, sc.Facilities),
	}
}

func tableSource(name string, tc config.TableConfig) atlas.TableSource {
	return atlas.TableSource{
		Source: table.Source{
			Name:     name,
			Location: tc.Path,
			Format:   table.Format(strings.ToLower(tc.Format)),
			Charset:  tc.Encoding,
			Sheet:    tc.Sheet,
			SkipRows: tc.SkipRows,
		},
		KeyColumn:   tc.KeyColumn,
		ValueColumn: tc.ValueColumn,
	}
}
