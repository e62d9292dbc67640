package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CodexCLI invokes the codex binary in exec mode. Output is a JSONL event
// stream; the final agent_message event carries the answer.
type CodexCLI struct {
	Binary string
}

func NewCodexCLI() *CodexCLI {
	return &CodexCLI{Binary: "codex"}
}

var codexModels = map[string]bool{
	"gpt-5-codex": true,
	"gpt-5":       true,
	"o4-mini":     true,
}

var codexToolNames = map[string]string{
	ToolBash:  "shell",
	ToolRead:  "read_file",
	ToolWrite: "apply_patch",
	ToolEdit:  "apply_patch",
}

func (c *CodexCLI) Name() string         { return "codex" }
func (c *CodexCLI) DefaultModel() string { return "gpt-5-codex" }

func (c *CodexCLI) IsValidModel(model string) bool {
	return codexModels[model]
}

func (c *CodexCLI) MapToolName(canonical string) string {
	if mapped, ok := codexToolNames[canonical]; ok {
		return mapped
	}
	return canonical
}

// codexEvent is one line of the exec --json stream. Only agent messages are
// interesting here; everything else (task lifecycle, token counts) is skipped.
type codexEvent struct {
	Msg struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"msg"`
}

func (c *CodexCLI) Invoke(ctx context.Context, inv Invocation) (string, Metadata, error) {
	meta := Metadata{InvocationID: uuid.NewString(), Provider: c.Name()}

	model, err := resolveModel(c, inv.Model)
	if err != nil {
		return "", meta, err
	}
	meta.Model = model

	args := []string{"exec", "--json", "-m", model, "-"}

	start := time.Now()
	out, err := runCLI(ctx, c.Binary, args, inv.Instruction)
	meta.Duration = time.Since(start)
	if err != nil {
		return "", meta, err
	}

	answer, err := lastAgentMessage(out)
	if err != nil {
		return "", meta, err
	}
	return answer, meta, nil
}

// lastAgentMessage scans the JSONL stream and returns the final agent
// message. Unparseable lines are skipped; codex interleaves non-JSON
// diagnostics on the same stream.
func lastAgentMessage(stream string) (string, error) {
	var last string
	scanner := bufio.NewScanner(strings.NewReader(stream))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}
		var ev codexEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue
		}
		if ev.Msg.Type == "agent_message" && ev.Msg.Message != "" {
			last = ev.Msg.Message
		}
	}
	if last == "" {
		return "", fmt.Errorf("codex stream contained no agent message")
	}
	return strings.TrimSpace(last), nil
}
