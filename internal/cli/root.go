package cli

import (
	"github.com/spf13/cobra"
)

var (
	rulesPath      string
	exemptionsPath string
	logPath        string
	cacheDir       string
	providerName   string
	modelName      string
)

var rootCmd = &cobra.Command{
	Use:   "agentgate",
	Short: "agentgate - policy and audit gateway for coding agents",
	Long: `agentgate mediates between an autonomous coding agent and the real
execution environment. Every shell command, file edit, and completion claim
passes through the gateway: deterministic pattern rules first, scoped
exemptions second, escalation to an external reviewer only when a rule needs
semantic judgment.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "Path to rules YAML (default: ~/.agentgate/rules.yaml)")
	rootCmd.PersistentFlags().StringVar(&exemptionsPath, "exemptions", "", "Path to exemptions YAML (default: ~/.agentgate/exemptions.yaml)")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "Path to decision log (default: ~/.agentgate/decisions.jsonl)")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "Audit cache directory (default: ~/.agentgate/cache)")
	rootCmd.PersistentFlags().StringVar(&providerName, "provider", "", "Review backend: claude, gemini, or codex")
	rootCmd.PersistentFlags().StringVar(&modelName, "model", "", "Model for the review backend")
}

func Execute() error {
	return rootCmd.Execute()
}
