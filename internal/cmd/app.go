package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrison/maestro/internal/checkpoint"
	"github.com/harrison/maestro/internal/config"
	"github.com/harrison/maestro/internal/decision"
	"github.com/harrison/maestro/internal/engine"
	"github.com/harrison/maestro/internal/graph"
	"github.com/harrison/maestro/internal/logger"
	"github.com/harrison/maestro/internal/store"
	"github.com/harrison/maestro/internal/workspace"
)

// app holds the wired subsystems shared by all subcommands: config,
// state store, task graph, checkpoint store, and execution engine.
type app struct {
	cfg         *config.Config
	log         *logger.ConsoleLogger
	store       *store.Store
	graph       *graph.TaskGraph
	checkpoints *checkpoint.Store
	engine      *engine.Engine
}

// newApp loads configuration, opens the state database, and constructs
// the core objects with their persisted state.
func newApp(cmd *cobra.Command) (*app, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	log := logger.NewConsoleLogger(os.Stderr, cfg.LogLevel)

	st, err := store.NewStore(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	files := workspace.NewOSFileMutator()
	commands := workspace.NewShellRunner(cfg.WorkDir, cfg.CommandTimeout)
	decisions := newDecisionProvider(cfg)

	checkpoints := checkpoint.NewStore(files, decisions, cfg.CheckpointLimit, log)
	taskGraph := graph.New()
	eng := engine.New(files, commands, decisions, checkpoints, log)

	ctx := context.Background()
	if err := taskGraph.Load(ctx, st); err != nil {
		st.Close()
		return nil, err
	}
	if err := checkpoints.Load(ctx, st); err != nil {
		st.Close()
		return nil, err
	}

	return &app{
		cfg:         cfg,
		log:         log,
		store:       st,
		graph:       taskGraph,
		checkpoints: checkpoints,
		engine:      eng,
	}, nil
}

// Close persists the backlog and checkpoint list, then releases the
// state database.
func (a *app) Close() error {
	ctx := context.Background()
	var firstErr error

	if err := a.graph.Save(ctx, a.store); err != nil {
		firstErr = err
	}
	if err := a.checkpoints.Save(ctx, a.store); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// newDecisionProvider returns an interactive provider when stdin is a
// terminal, otherwise the configured headless defaults.
func newDecisionProvider(cfg *config.Config) decision.Provider {
	static := decision.Static{
		OnStepFailure:      decision.FailureChoice(cfg.OnStepFailure),
		OnRollbackConflict: decision.ConflictChoice(cfg.OnRollbackConflict),
	}
	if !stdinIsTerminal() {
		return static
	}
	return &consolePrompter{fallback: static}
}
