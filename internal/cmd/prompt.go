package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/maestro/internal/decision"
)

// stdinIsTerminal reports whether stdin can host an interactive prompt.
func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// consolePrompter asks the user on the terminal. Unreadable or
// unrecognized input after retries falls back to the configured
// defaults, which the callers treat conservatively anyway.
type consolePrompter struct {
	fallback decision.Static
}

// AskStepFailure prompts for a continue/pause/cancel decision.
func (p *consolePrompter) AskStepFailure(ctx context.Context, failure decision.StepFailure) (decision.FailureChoice, error) {
	color.New(color.FgRed).Fprintf(os.Stderr, "Step %s failed: %s\n", failure.StepID, failure.Err)
	fmt.Fprintf(os.Stderr, "  plan: %s, step: %s\n", failure.PlanName, failure.Description)

	answer, err := p.ask(ctx, "[c]ontinue, [p]ause, or [a]bort execution? ")
	if err != nil {
		return p.fallback.AskStepFailure(ctx, failure)
	}

	switch answer {
	case "c", "continue":
		return decision.FailureContinue, nil
	case "p", "pause":
		return decision.FailurePause, nil
	case "a", "abort", "cancel":
		return decision.FailureCancel, nil
	default:
		return p.fallback.AskStepFailure(ctx, failure)
	}
}

// AskRollbackConflict prompts for a proceed/abort decision.
func (p *consolePrompter) AskRollbackConflict(ctx context.Context, conflict decision.RollbackConflict) (decision.ConflictChoice, error) {
	color.New(color.FgYellow).Fprintf(os.Stderr, "Checkpoint %s has %d conflicting file(s):\n", conflict.Name, len(conflict.Conflicts))
	for _, path := range conflict.Conflicts {
		fmt.Fprintf(os.Stderr, "  - %s\n", path)
	}
	fmt.Fprintln(os.Stderr, "These files changed since the checkpoint was taken; proceeding will overwrite them.")

	answer, err := p.ask(ctx, "[p]roceed with rollback or [a]bort? ")
	if err != nil {
		return p.fallback.AskRollbackConflict(ctx, conflict)
	}

	switch answer {
	case "p", "proceed", "y", "yes":
		return decision.ConflictProceed, nil
	case "a", "abort", "n", "no":
		return decision.ConflictAbort, nil
	default:
		return p.fallback.AskRollbackConflict(ctx, conflict)
	}
}

// ask prints the prompt and reads one line from stdin.
func (p *consolePrompter) ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(os.Stderr, prompt)

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(line)), nil
}

// Ensure consolePrompter implements decision.Provider
var _ decision.Provider = (*consolePrompter)(nil)
