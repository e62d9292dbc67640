package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/agentgate/agentgate/internal/config"
	"github.com/agentgate/agentgate/internal/hookevent"
	"github.com/agentgate/agentgate/internal/logger"
	"github.com/agentgate/agentgate/internal/normalize"
	"github.com/spf13/cobra"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Evaluate one hook event from stdin and answer on stdout",
	Long: `Reads a single JSON hook event from stdin, evaluates it against the
configured policy, and writes a single JSON decision to stdout:

  {"decision": "allow"|"deny", "reason": "..."}

The exit code is 0 for any well-formed decision, including deny; a non-zero
exit is reserved for catastrophic internal failure. Malformed input fails
open with a warning, since blocking on it would halt the agent for reasons
unrelated to policy.

Event variants:

  {"event": "bash_command", "command": "..."}
  {"event": "file_edit", "path": "...", "old_content": "...", "new_content": "..."}
  {"event": "completion_check", "transcript": [{"role": "...", "content": "..."}]}`,
	RunE: hookCommand,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

func hookCommand(cmd *cobra.Command, args []string) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}

	event, err := hookevent.Parse(data)
	if err != nil {
		warn("%v", err)
		return hookevent.AllowDecision("").Write(os.Stdout)
	}

	c, err := buildComponents()
	if err != nil {
		// Without even a config dir there is no policy to apply; failing
		// open here mirrors the malformed-input path.
		warn("%v", err)
		return hookevent.AllowDecision("").Write(os.Stdout)
	}
	defer c.close()

	if c.cfg.Bypass || sessionDisablesHooks(c.session) {
		return hookevent.AllowDecision("").Write(os.Stdout)
	}

	decision := dispatch(cmd.Context(), c, event)
	return decision.Write(os.Stdout)
}

// sessionDisablesHooks reports whether an identified session explicitly
// opted out of evaluation. A session file that merely omits hooks_enabled
// keeps hooks on.
func sessionDisablesHooks(s *config.Session) bool {
	return s != nil && s.SessionID != "" && s.HooksEnabled != nil && !*s.HooksEnabled
}

// dispatch routes the event to its entry point and logs the decision.
// The switch is exhaustive over the event variants Parse can produce.
func dispatch(ctx context.Context, c *components, event hookevent.Event) hookevent.Decision {
	var decision hookevent.Decision
	logEvent := logger.Event{Hook: string(event.Kind)}

	switch event.Kind {
	case hookevent.KindBashCommand:
		decision = c.guard.Check(event.Bash.Command)
		norm := normalize.Normalize(event.Bash.Command, event.Bash.Cwd)
		logEvent.Subject = event.Bash.Command
		logEvent.Executable = norm.Executable
		logEvent.Paths = norm.Paths
	case hookevent.KindFileEdit:
		decision = c.gate.Check(ctx, event.Edit.Path, event.Edit.OldContent, event.Edit.NewContent)
		logEvent.Path = event.Edit.Path
	case hookevent.KindCompletionCheck:
		decision = c.moderator.Check(ctx, event.Completion.TranscriptTail)
	}

	logEvent.Decision = string(decision.Outcome)
	logEvent.RuleID = decision.RuleID
	logEvent.Reason = decision.Reason
	logEvent.Provider = c.cfg.Provider
	c.record(logEvent)

	return decision
}
