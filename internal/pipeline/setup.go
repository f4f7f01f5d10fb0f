package pipeline

import (
	"log/slog"

	"csvchat/internal/config"
	"csvchat/internal/executor"
	"csvchat/internal/nl2sql"
	"csvchat/internal/session"
	"csvchat/internal/store"
)

// New builds a Pipeline from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	factory, err := nl2sql.NewFactory(cfg.LLM.FactoryConfig())
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Factory: factory,
		Executor: &executor.Executor{
			ReadOnly: cfg.Store.ReadOnly,
			Timeout:  cfg.Store.QueryTimeout,
			Logger:   logger,
		},
		GenerationTimeout: cfg.LLM.Timeout,
		Logger:            logger,
	}, nil
}

// SessionOptions returns the session settings described by cfg.
func SessionOptions(cfg *config.Config) session.Options {
	engine := cfg.Store.Engine
	return session.Options{
		Opener:      func() (store.Store, error) { return store.Open(engine) },
		Renamer:     cfg.Dataset.Renamer(),
		PreviewSkip: cfg.Dataset.PreviewSkip,
	}
}
