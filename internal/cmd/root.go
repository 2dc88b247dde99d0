// Package cmd wires the maestro CLI: plan execution, backlog and graph
// inspection, and checkpoint management.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for maestro.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maestro",
		Short: "Dependency-ordered task execution with checkpointed rollback",
		Long: `Maestro coordinates multi-step task plans produced by an upstream
planner, executes their steps against a workspace of files, and can
safely undo any executed batch.

Plans (Markdown or YAML) are validated, their affected files are
snapshotted into a checkpoint, and steps run sequentially while
respecting intra-plan dependencies. The task graph tracks the wider
backlog: cycle detection, topological execution order, and priority
assignment.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", ".maestro/config.yaml", "Path to the configuration file")

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewTasksCommand())
	cmd.AddCommand(NewGraphCommand())
	cmd.AddCommand(NewCheckpointCommand())

	return cmd
}
