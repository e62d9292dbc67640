package provider

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GeminiCLI invokes the gemini binary. Unlike claude it answers in plain
// text, and its tool vocabulary uses snake_case function names.
type GeminiCLI struct {
	Binary string
}

func NewGeminiCLI() *GeminiCLI {
	return &GeminiCLI{Binary: "gemini"}
}

var geminiModels = map[string]bool{
	"gemini-2.5-pro":        true,
	"gemini-2.5-flash":      true,
	"gemini-2.5-flash-lite": true,
}

var geminiToolNames = map[string]string{
	ToolBash:  "run_shell_command",
	ToolRead:  "read_file",
	ToolWrite: "write_file",
	ToolEdit:  "replace",
}

func (g *GeminiCLI) Name() string         { return "gemini" }
func (g *GeminiCLI) DefaultModel() string { return "gemini-2.5-pro" }

func (g *GeminiCLI) IsValidModel(model string) bool {
	return geminiModels[model]
}

func (g *GeminiCLI) MapToolName(canonical string) string {
	if mapped, ok := geminiToolNames[canonical]; ok {
		return mapped
	}
	return canonical
}

func (g *GeminiCLI) Invoke(ctx context.Context, inv Invocation) (string, Metadata, error) {
	meta := Metadata{InvocationID: uuid.NewString(), Provider: g.Name()}

	model, err := resolveModel(g, inv.Model)
	if err != nil {
		return "", meta, err
	}
	meta.Model = model

	// The instruction travels on stdin like the other backends; putting file
	// contents in argv would leak them into process listings and hit ARG_MAX.
	args := []string{"-m", model}

	start := time.Now()
	out, err := runCLI(ctx, g.Binary, args, inv.Instruction)
	meta.Duration = time.Since(start)
	if err != nil {
		return "", meta, err
	}
	return strings.TrimSpace(out), meta, nil
}
