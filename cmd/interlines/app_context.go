package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Jalkey-Chen/InterLines/internal/config"
	"github.com/Jalkey-Chen/InterLines/internal/llm"
	"github.com/Jalkey-Chen/InterLines/internal/logger"
	"github.com/Jalkey-Chen/InterLines/internal/printer"
	"github.com/Jalkey-Chen/InterLines/internal/runstore"
	"github.com/Jalkey-Chen/InterLines/internal/tracestore"
)

const redisPingTimeout = 3 * time.Second

// appContext bundles the settings and services shared by every command.
type appContext struct {
	cfg     config.Config
	log     *logger.Logger
	printer *printer.Printer
}

func newAppContext(cmd *cobra.Command, flags *rootFlags) (*appContext, error) {
	cfg, err := config.Load(config.Options{File: flags.configFile})
	if err != nil {
		return nil, err
	}

	if flags.noColor || cfg.IsProduction() {
		printer.DisableColor()
	}

	logOpts := cfg.LoggerOptions()
	logOpts.Writer = cmd.ErrOrStderr()
	logOpts.Component = "cli"
	if flags.verbose {
		logOpts.Level = "debug"
	}
	log, err := logger.New(logOpts)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	return &appContext{
		cfg:     cfg,
		log:     log,
		printer: printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr()),
	}, nil
}

// generator returns the configured text generator, or nil when the provider is none.
func (a *appContext) generator(ctx context.Context) (llm.Generator, error) {
	switch a.cfg.LLM.Provider {
	case "gemini":
		gen, err := llm.NewGemini(ctx, llm.GeminiOptions{
			APIKey:       a.cfg.LLM.APIKey,
			DefaultModel: a.cfg.LLM.Model,
			Logger:       a.log,
		})
		if err != nil {
			return nil, err
		}
		return llm.WithTimeout(gen, a.cfg.LLM.TimeoutOr(time.Minute)), nil
	default:
		return nil, nil
	}
}

// runStore opens the run registry, or returns nil when none is configured.
func (a *appContext) runStore() (*runstore.Store, error) {
	if a.cfg.RunStore.Path == "" {
		return nil, nil
	}
	return runstore.Open(a.cfg.RunStore.Path, runstore.WithLogger(a.log))
}

// redisStore connects the Redis trace store, or returns nil when disabled.
func (a *appContext) redisStore(ctx context.Context) (*tracestore.RedisStore, error) {
	if !a.cfg.Redis.Enabled {
		return nil, nil
	}
	store, err := tracestore.NewRedisStore(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	}, tracestore.RedisOptions{
		Prefix: a.cfg.Redis.KeyPrefix,
		TTL:    a.cfg.Redis.TTL,
	})
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("connect redis at %s: %w", a.cfg.Redis.Addr, err)
	}
	return store, nil
}
