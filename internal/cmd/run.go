package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/maestro/internal/models"
	"github.com/harrison/maestro/internal/parser"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <plan-file>",
		Short: "Execute a plan file",
		Long: `Execute a plan file (Markdown or YAML format).

The affected files are snapshotted into a checkpoint before any step
runs, steps execute sequentially respecting their declared
dependencies, and a summary of step outcomes is printed at the end.

Examples:
  maestro run plan.yaml
  maestro run docs/plans/add-greeting.md`,
		Args: cobra.ExactArgs(1),
		RunE: runPlan,
	}
	return cmd
}

func runPlan(cmd *cobra.Command, args []string) error {
	plan, err := parser.ParseFile(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	exec, err := a.engine.Execute(cmd.Context(), *plan)
	if err != nil {
		return err
	}

	final, err := a.engine.Wait(exec.ID)
	if err != nil {
		return err
	}

	printExecutionSummary(plan, final)

	if final.Status != models.ExecutionCompleted {
		return fmt.Errorf("execution finished with status %s", final.Status)
	}
	return nil
}

// printExecutionSummary prints per-step outcomes and the overall result.
func printExecutionSummary(plan *models.TaskPlan, exec *models.TaskExecution) {
	fmt.Printf("\nExecution Summary: %s\n", plan.Name)
	for i, result := range exec.Results {
		step := plan.Steps[i]
		line := fmt.Sprintf("  [%s] %s: %s", result.Status, step.ID, step.Description)
		switch result.Status {
		case models.StepCompleted:
			color.New(color.FgGreen).Println(line)
		case models.StepFailed:
			color.New(color.FgRed).Printf("%s (%s)\n", line, result.Error)
		case models.StepSkipped:
			color.New(color.FgYellow).Printf("%s (%s)\n", line, result.Error)
		default:
			fmt.Println(line)
		}
	}

	var duration time.Duration
	if exec.CompletedAt != nil {
		duration = exec.CompletedAt.Sub(exec.StartedAt)
	}
	fmt.Printf("\n  Status: %s\n", exec.Status)
	fmt.Printf("  Steps completed: %d/%d\n", exec.CompletedSteps(), len(exec.Results))
	fmt.Printf("  Duration: %s\n", duration.Round(time.Millisecond))
	if exec.CheckpointID != "" {
		fmt.Printf("  Checkpoint: %s (use 'maestro checkpoint rollback %s' to undo)\n", exec.CheckpointID, exec.CheckpointID)
	}
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <plan-file>",
		Short: "Validate a plan file without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := parser.ParseFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Plan %q is valid: %d step(s), %d affected file(s)\n",
				plan.Name, len(plan.Steps), len(plan.AffectedFiles()))
			return nil
		},
	}
}
