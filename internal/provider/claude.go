package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ClaudeCLI invokes the claude binary in non-interactive print mode with
// structured JSON output.
type ClaudeCLI struct {
	// Binary is the executable name, overridable for tests.
	Binary string
}

func NewClaudeCLI() *ClaudeCLI {
	return &ClaudeCLI{Binary: "claude"}
}

var claudeModels = map[string]bool{
	"claude-opus-4-6":   true,
	"claude-sonnet-4-5": true,
	"claude-haiku-4-5":  true,
	"opus":              true,
	"sonnet":            true,
	"haiku":             true,
}

// claudeToolNames maps canonical names to the Claude tool vocabulary.
var claudeToolNames = map[string]string{
	ToolBash:  "Bash",
	ToolRead:  "Read",
	ToolWrite: "Write",
	ToolEdit:  "Edit",
}

func (c *ClaudeCLI) Name() string         { return "claude" }
func (c *ClaudeCLI) DefaultModel() string { return "claude-sonnet-4-5" }

func (c *ClaudeCLI) IsValidModel(model string) bool {
	return claudeModels[model]
}

func (c *ClaudeCLI) MapToolName(canonical string) string {
	if mapped, ok := claudeToolNames[canonical]; ok {
		return mapped
	}
	return canonical
}

// claudeResult is the envelope emitted by --output-format json.
type claudeResult struct {
	Type    string `json:"type"`
	Result  string `json:"result"`
	IsError bool   `json:"is_error"`
}

func (c *ClaudeCLI) Invoke(ctx context.Context, inv Invocation) (string, Metadata, error) {
	meta := Metadata{InvocationID: uuid.NewString(), Provider: c.Name()}

	model, err := resolveModel(c, inv.Model)
	if err != nil {
		return "", meta, err
	}
	meta.Model = model

	args := []string{"-p", "--output-format", "json", "--model", model}
	if len(inv.AllowedTools) > 0 {
		mapped := make([]string, len(inv.AllowedTools))
		for i, t := range inv.AllowedTools {
			mapped[i] = c.MapToolName(t)
		}
		args = append(args, "--allowedTools", strings.Join(mapped, ","))
	}

	start := time.Now()
	out, err := runCLI(ctx, c.Binary, args, inv.Instruction)
	meta.Duration = time.Since(start)
	if err != nil {
		return "", meta, err
	}

	var res claudeResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		return "", meta, fmt.Errorf("claude output is not valid JSON: %w", err)
	}
	if res.IsError {
		return "", meta, fmt.Errorf("claude reported an error: %s", tail(res.Result, 400))
	}
	return res.Result, meta, nil
}
