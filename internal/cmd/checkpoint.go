package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewCheckpointCommand creates the checkpoint command group.
func NewCheckpointCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Manage workspace checkpoints",
	}
	cmd.AddCommand(newCheckpointListCommand())
	cmd.AddCommand(newCheckpointShowCommand())
	cmd.AddCommand(newCheckpointRollbackCommand())
	cmd.AddCommand(newCheckpointDeleteCommand())
	return cmd
}

func newCheckpointListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List checkpoints, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			checkpoints := a.checkpoints.List()
			if len(checkpoints) == 0 {
				fmt.Println("No checkpoints")
				return nil
			}

			for _, cp := range checkpoints {
				origin := "user"
				if cp.Meta.Auto {
					origin = "auto"
				}
				fmt.Printf("%s  %s  %-4s  %d file(s)  %s\n",
					cp.ID, cp.CreatedAt.Format(time.RFC3339), origin, len(cp.Files), cp.Name)
			}
			return nil
		},
	}
}

func newCheckpointShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <checkpoint-id>",
		Short: "Show a checkpoint and whether its files have diverged",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			cp, err := a.checkpoints.Get(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Checkpoint: %s\n", cp.Name)
			fmt.Printf("  ID:          %s\n", cp.ID)
			fmt.Printf("  Created:     %s\n", cp.CreatedAt.Format(time.RFC3339))
			if cp.Description != "" {
				fmt.Printf("  Description: %s\n", cp.Description)
			}
			if cp.Meta.TaskID != "" {
				fmt.Printf("  Task:        %s\n", cp.Meta.TaskID)
			}

			conflicts := a.checkpoints.DetectConflicts(cmd.Context(), cp)
			conflictSet := make(map[string]bool, len(conflicts))
			for _, path := range conflicts {
				conflictSet[path] = true
			}

			fmt.Printf("  Files:\n")
			for _, file := range cp.Files {
				if conflictSet[file.Path] {
					color.New(color.FgYellow).Printf("    %s (%d bytes) DIVERGED\n", file.Path, file.Size)
				} else {
					fmt.Printf("    %s (%d bytes)\n", file.Path, file.Size)
				}
			}
			return nil
		},
	}
}

func newCheckpointRollbackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <checkpoint-id>",
		Short: "Restore the workspace to a checkpoint",
		Long: `Restore every file captured in a checkpoint to its snapshotted
content. If any file changed since the checkpoint was taken, the
conflicts are listed and an explicit confirmation is required before
anything is overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.checkpoints.Rollback(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if len(result.Conflicts) > 0 && len(result.RestoredFiles) == 0 && len(result.FailedFiles) == 0 {
				fmt.Printf("Rollback aborted: %d conflicting file(s)\n", len(result.Conflicts))
				return nil
			}

			fmt.Printf("Restored %d file(s)\n", len(result.RestoredFiles))
			if len(result.FailedFiles) > 0 {
				color.New(color.FgRed).Printf("Failed to restore %d file(s):\n", len(result.FailedFiles))
				for _, path := range result.FailedFiles {
					fmt.Printf("  - %s\n", path)
				}
				return fmt.Errorf("rollback completed with failures")
			}
			return nil
		},
	}
}

func newCheckpointDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <checkpoint-id>",
		Short: "Delete a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.checkpoints.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted checkpoint %s\n", args[0])
			return nil
		},
	}
}
