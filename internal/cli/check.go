package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/agentgate/agentgate/internal/transcript"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate a command, edit, or transcript from the shell",
	Long: `Ad hoc evaluation without the hook protocol. Useful for testing a
rule change before an agent trips over it.`,
}

var checkCommandCmd = &cobra.Command{
	Use:   "command <command string>",
	Short: "Evaluate a shell command against the command rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := buildComponents()
		if err != nil {
			return err
		}
		defer c.close()
		return c.guard.Check(args[0]).Write(os.Stdout)
	},
}

var checkEditCmd = &cobra.Command{
	Use:   "edit <path> <old-file> <new-file>",
	Short: "Evaluate a file edit against the content rules",
	Long: `Evaluates replacing <path> (whose current content is read from
<old-file>) with the content of <new-file>. Pass /dev/null as <old-file> for
a new file.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		oldContent, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read old content: %w", err)
		}
		newContent, err := os.ReadFile(args[2])
		if err != nil {
			return fmt.Errorf("read new content: %w", err)
		}

		c, err := buildComponents()
		if err != nil {
			return err
		}
		defer c.close()
		return c.gate.Check(cmd.Context(), args[0], string(oldContent), string(newContent)).Write(os.Stdout)
	},
}

var checkCompletionCmd = &cobra.Command{
	Use:   "completion <transcript.json>",
	Short: "Evaluate a completion claim against a transcript tail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read transcript: %w", err)
		}
		var tail []transcript.Message
		if err := json.Unmarshal(data, &tail); err != nil {
			return fmt.Errorf("parse transcript: %w", err)
		}

		c, err := buildComponents()
		if err != nil {
			return err
		}
		defer c.close()
		return c.moderator.Check(cmd.Context(), tail).Write(os.Stdout)
	},
}

func init() {
	checkCmd.AddCommand(checkCommandCmd)
	checkCmd.AddCommand(checkEditCmd)
	checkCmd.AddCommand(checkCompletionCmd)
	rootCmd.AddCommand(checkCmd)
}
