package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/smartmap-fr/smartmap/internal/app"
	"github.com/smartmap-fr/smartmap/internal/chat"
	"github.com/smartmap-fr/smartmap/internal/config"
	"github.com/smartmap-fr/smartmap/internal/dataset"
	"github.com/smartmap-fr/smartmap/internal/fetcher"
	"github.com/smartmap-fr/smartmap/internal/locale"
	"github.com/smartmap-fr/smartmap/internal/metrics"
)

// mapEnv holds the clients shared by the commands.
type mapEnv struct {
	Client *dataset.Client
	Loader *dataset.Loader
	Chat   *chat.Client
	Memory *dataset.MemoryCache // may be nil
	Disk   *dataset.SQLiteCache // may be nil
}

// Close releases resources held by the environment.
func (e *mapEnv) Close() {
	if e.Disk != nil {
		_ = e.Disk.Close()
	}
}

// controllerOptions returns the map controller options from config.
func controllerOptions(c *config.Config) app.Options {
	return app.Options{
		Language: locale.Parse(c.Chat.Language),
		StyleURL: c.Map.StyleURL,
	}
}

func newFetcher(c *config.Config) *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  c.API.UserAgent,
		Timeout:    time.Duration(c.API.TimeoutSecs) * time.Second,
		MaxRetries: c.API.MaxRetries,
		RateLimit:  rate.Limit(c.API.RateLimit),
		Observer:   metrics.ObserveFetch,

		BreakerThreshold: c.API.BreakerThreshold,
		BreakerCooldown:  time.Duration(c.API.BreakerCooldownSec) * time.Second,
	})
}

// initEnv builds the API clients and the geometry caches. Callers should
// defer env.Close().
func initEnv(ctx context.Context, c *config.Config, mode string) (*mapEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	f := newFetcher(c)
	env := &mapEnv{
		Client: dataset.NewClient(c.API.BaseURL, f),
		Chat:   chat.NewClient(c.API.BaseURL, f),
	}

	var tiers dataset.Tiered
	if c.Cache.MemoryEntries > 0 {
		env.Memory = dataset.NewMemoryCache(c.Cache.MemoryEntries, time.Duration(c.Cache.MemoryTTLMins)*time.Minute)
		tiers = append(tiers, env.Memory)
	}
	if c.Cache.Path != "" {
		disk, err := dataset.NewSQLiteCache(c.Cache.Path, time.Duration(c.Cache.GeometryTTLHours)*time.Hour)
		if err != nil {
			return nil, eris.Wrap(err, "open geometry cache")
		}
		if err := disk.Migrate(ctx); err != nil {
			_ = disk.Close()
			return nil, eris.Wrap(err, "migrate geometry cache")
		}
		if n, err := disk.DeleteExpired(ctx); err != nil {
			zap.L().Warn("geometry cache cleanup failed", zap.Error(err))
		} else if n > 0 {
			zap.L().Debug("geometry cache cleanup", zap.Int("deleted", n))
		}
		env.Disk = disk
		tiers = append(tiers, disk)
	}

	var cache dataset.GeometryCache
	if len(tiers) > 0 {
		cache = tiers
	}
	env.Loader = dataset.NewLoader(env.Client, cache)
	return env, nil
}
