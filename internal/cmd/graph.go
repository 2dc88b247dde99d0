package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewGraphCommand creates the graph command group.
func NewGraphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect the task dependency graph",
	}
	cmd.AddCommand(newGraphOrderCommand())
	cmd.AddCommand(newGraphCyclesCommand())
	cmd.AddCommand(newGraphPrioritizeCommand())
	return cmd
}

func newGraphOrderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "order",
		Short: "Print the topological execution order of the backlog",
		Long: `Print a dependency-safe execution order for all backlog tasks.

Tasks on a dependency cycle are omitted from the order; run
'maestro graph cycles' to see them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			order := a.graph.ExecutionOrder()
			if len(order) == 0 {
				fmt.Println("No runnable tasks in the backlog")
				return nil
			}

			for i, id := range order {
				task, _ := a.graph.Get(id)
				fmt.Printf("%3d. %s  %s\n", i+1, id, task.Description)
			}
			if omitted := a.graph.Len() - len(order); omitted > 0 {
				fmt.Printf("\n%d task(s) omitted (cyclic or stranded dependencies)\n", omitted)
			}
			return nil
		},
	}
}

func newGraphCyclesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cycles",
		Short: "Report dependency cycles in the backlog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			cycles := a.graph.DetectCycles()
			if len(cycles) == 0 {
				fmt.Println("No dependency cycles detected")
				return nil
			}

			fmt.Printf("%d dependency cycle(s) detected:\n", len(cycles))
			for _, cycle := range cycles {
				fmt.Printf("  %s\n", cycle)
			}
			return nil
		},
	}
}

func newGraphPrioritizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prioritize",
		Short: "Derive task priorities from topological position",
		Long: `Bucket backlog tasks into priority quartiles by their position in
the execution order: the earliest quartile becomes urgent, the latest
becomes low. Tasks on a cycle keep their current priority.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			a.graph.AutoAssignPriorities()

			for _, task := range a.graph.Tasks() {
				fmt.Printf("  %-8s %s  %s\n", task.Priority, task.ID, task.Description)
			}
			return nil
		},
	}
}

// formatDeps renders a dependency list for display.
func formatDeps(deps []string) string {
	if len(deps) == 0 {
		return "-"
	}
	return strings.Join(deps, ", ")
}
