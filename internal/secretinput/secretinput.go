// Package secretinput provides masked terminal entry for passwords and
// API keys. ResolvePassword uses it as the last fallback for the
// startup connection's password; /llm key and /conn add take secrets
// only as arguments and do not prompt through it.
package secretinput

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"
)

// ReadMasked prompts on stderr and reads a line of input from stdin
// with terminal echo disabled, returning the entered value with no
// trailing newline.
func ReadMasked(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	raw, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	fmt.Fprintln(os.Stderr)

	return string(raw), nil
}

// ResolvePassword resolves a connection password using the same
// precedence as the original CLI: an explicit password_command, then
// PGPASSWORD, then an interactive masked prompt.
func ResolvePassword(passwordCommand string) (string, error) {
	if passwordCommand != "" {
		return runPasswordCommand(passwordCommand)
	}
	if v, ok := os.LookupEnv("PGPASSWORD"); ok {
		return v, nil
	}
	return ReadMasked("Enter database password: ")
}

func runPasswordCommand(command string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return "", fmt.Errorf("empty password command")
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("password command timed out after 5 seconds")
		}
		return "", fmt.Errorf("password command failed: %w (stderr: %s)", err, stderr.String())
	}

	password := strings.TrimSpace(stdout.String())
	if password == "" {
		return "", fmt.Errorf("password command returned empty output")
	}
	return password, nil
}
