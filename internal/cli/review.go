package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/agentgate/agentgate/internal/audit"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Triage audits that failed closed",
	Long: `When the review backend is unreachable, ambiguous edits are denied
pending human review and queued. This command lists the queue; on a terminal
it walks each entry and lets you clear it.`,
	RunE: reviewCommand,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func reviewCommand(cmd *cobra.Command, args []string) error {
	c, err := buildComponents()
	if err != nil {
		return err
	}
	defer c.close()

	queue, err := audit.NewPendingQueue(c.cfg.ConfigDir)
	if err != nil {
		return fmt.Errorf("pending queue: %w", err)
	}
	entries, err := queue.List()
	if err != nil {
		return fmt.Errorf("list pending reviews: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No audits pending review.")
		return nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		for _, e := range entries {
			fmt.Printf("%s  %s  %s  rule=%s  (%s)\n",
				e.ID, e.CreatedAt.Format("2006-01-02 15:04"), e.Path, e.RuleID, e.Failure)
		}
		fmt.Printf("\n%d pending; run on a terminal to triage.\n", len(entries))
		return nil
	}

	reader := bufio.NewReader(os.Stdin)
	for _, e := range entries {
		fmt.Printf("\nPath:     %s\n", e.Path)
		fmt.Printf("Rule:     %s\n", e.RuleID)
		fmt.Printf("Question: %s\n", e.Question)
		fmt.Printf("Failure:  %s\n", e.Failure)

		for {
			fmt.Print("Clear this entry? [y]es / [s]kip / [q]uit: ")
			input, err := reader.ReadString('\n')
			if err != nil {
				return err
			}
			switch strings.TrimSpace(strings.ToLower(input)) {
			case "y", "yes":
				if err := queue.Resolve(e.ID); err != nil {
					return err
				}
			case "s", "skip":
			case "q", "quit":
				return nil
			default:
				continue
			}
			break
		}
	}
	return nil
}
