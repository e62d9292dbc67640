package provider

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRunCLI(t *testing.T) {
	ctx := context.Background()

	out, err := runCLI(ctx, "sh", []string{"-c", "cat"}, "hello\n")
	if err != nil {
		t.Fatalf("runCLI: %v", err)
	}
	if out != "hello\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestRunCLI_ExitErrorCarriesStderr(t *testing.T) {
	_, err := runCLI(context.Background(), "sh", []string{"-c", "echo broken >&2; exit 3"}, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "exited with 3") || !strings.Contains(err.Error(), "broken") {
		t.Errorf("error should carry exit code and stderr tail: %v", err)
	}
}

func TestRunCLI_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := runCLI(ctx, "sh", []string{"-c", "sleep 5"}, "")
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestRunCLI_MissingBinary(t *testing.T) {
	_, err := runCLI(context.Background(), "agentgate-no-such-binary", nil, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "failed to run") {
		t.Errorf("unexpected error: %v", err)
	}
}
