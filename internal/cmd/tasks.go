package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/maestro/internal/models"
)

// NewTasksCommand creates the tasks command group.
func NewTasksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage the task backlog",
	}
	cmd.AddCommand(newTasksListCommand())
	cmd.AddCommand(newTasksAddCommand())
	cmd.AddCommand(newTasksCompleteCommand())
	cmd.AddCommand(newTasksRemoveCommand())
	return cmd
}

func newTasksListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backlog tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			tasks := a.graph.Tasks()
			if len(tasks) == 0 {
				fmt.Println("Backlog is empty")
				return nil
			}

			fmt.Printf("%-12s %-12s %-8s %-16s %s\n", "ID", "STATUS", "PRIORITY", "DEPENDS ON", "DESCRIPTION")
			for _, task := range tasks {
				fmt.Printf("%-12s %-12s %-8s %-16s %s\n",
					task.ID, task.Status, task.Priority, formatDeps(task.Dependencies), task.Description)
			}
			return nil
		},
	}
}

func newTasksAddCommand() *cobra.Command {
	var deps []string
	var taskType string

	cmd := &cobra.Command{
		Use:   "add <id> <description>",
		Short: "Add a task to the backlog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			task := models.Task{
				ID:           args[0],
				Description:  args[1],
				Type:         taskType,
				Dependencies: deps,
			}
			if err := a.graph.Add(task); err != nil {
				return err
			}
			fmt.Printf("Added task %s\n", task.ID)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&deps, "deps", nil, "Task IDs this task depends on")
	cmd.Flags().StringVar(&taskType, "type", "", "Free-form task type tag")
	return cmd
}

func newTasksCompleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.graph.UpdateStatus(args[0], models.TaskCompleted); err != nil {
				return err
			}
			fmt.Printf("Completed task %s\n", args[0])
			return nil
		},
	}
}

func newTasksRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a task from the backlog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.graph.Remove(args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed task %s\n", args[0])
			return nil
		},
	}
}
