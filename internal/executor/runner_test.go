package executor

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestShellCommandRunner_Success(t *testing.T) {
	runner := NewShellCommandRunner("")

	output, code, err := runner.Run(context.Background(), "echo hello", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if strings.TrimSpace(output) != "hello" {
		t.Errorf("output = %q, want hello", output)
	}
}

func TestShellCommandRunner_NonZeroExitIsNotAnError(t *testing.T) {
	runner := NewShellCommandRunner("")

	_, code, err := runner.Run(context.Background(), "exit 3", nil)
	if err != nil {
		t.Fatalf("a command that ran and failed must not error, got %v", err)
	}
	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
}

func TestShellCommandRunner_MissingBinaryRunsViaShell(t *testing.T) {
	runner := NewShellCommandRunner("")

	// The shell itself starts fine; the missing binary surfaces as the
	// shell's 127 exit status, which is a step failure, not an
	// invocation failure.
	output, code, err := runner.Run(context.Background(), "definitely-not-a-real-binary-zzz", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if code != 127 {
		t.Errorf("exit code = %d, want 127", code)
	}
	if output == "" {
		t.Error("expected the shell's not-found message in output")
	}
}

func TestShellCommandRunner_BadWorkDirIsInvocationError(t *testing.T) {
	runner := NewShellCommandRunner("/nonexistent/path/for/gate/tests")

	_, code, err := runner.Run(context.Background(), "echo hi", nil)
	if err == nil {
		t.Fatal("expected invocation error for missing working directory")
	}
	if code != -1 {
		t.Errorf("exit code = %d, want -1", code)
	}
}

func TestShellCommandRunner_WorkDir(t *testing.T) {
	dir := t.TempDir()
	runner := NewShellCommandRunner(dir)

	output, code, err := runner.Run(context.Background(), "pwd", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	// TempDir may be behind a symlink (macOS), so compare suffixes.
	got := strings.TrimSpace(output)
	if !strings.HasSuffix(got, dir) && !strings.HasSuffix(dir, got) {
		t.Errorf("pwd = %q, want %q", got, dir)
	}
}

func TestShellCommandRunner_Env(t *testing.T) {
	runner := NewShellCommandRunner("")

	output, code, err := runner.Run(context.Background(), "echo \"$GATE_TEST_VALUE\"",
		map[string]string{"GATE_TEST_VALUE": "forty-two"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if strings.TrimSpace(output) != "forty-two" {
		t.Errorf("output = %q, want forty-two", output)
	}
}

func TestShellCommandRunner_EnvDoesNotDropInherited(t *testing.T) {
	runner := NewShellCommandRunner("")

	// PATH must survive when explicit entries are added.
	output, code, err := runner.Run(context.Background(), "echo \"$PATH\"",
		map[string]string{"GATE_TEST_VALUE": "x"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if strings.TrimSpace(output) == "" {
		t.Error("inherited PATH was lost")
	}
}

func TestShellCommandRunner_ContextKill(t *testing.T) {
	runner := NewShellCommandRunner("")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err := runner.Run(ctx, "sleep 10", nil)
	elapsed := time.Since(start)

	// Killed by the deadline; the orchestrator classifies this via ctx,
	// so the runner itself reports it as a completed (killed) command.
	if err != nil && ctx.Err() == nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed > 5*time.Second {
		t.Errorf("command was not killed by context, took %v", elapsed)
	}
}

func TestShellCommandRunner_CombinedOutput(t *testing.T) {
	runner := NewShellCommandRunner("")

	output, _, err := runner.Run(context.Background(), "echo out; echo err 1>&2", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(output, "out") || !strings.Contains(output, "err") {
		t.Errorf("combined output missing a stream: %q", output)
	}
}
