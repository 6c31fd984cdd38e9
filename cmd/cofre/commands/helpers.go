package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/rmontero/cofre/internal/backup"
	"github.com/rmontero/cofre/internal/errors"
	"github.com/rmontero/cofre/internal/metrics"
	"github.com/rmontero/cofre/internal/paths"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorCyan   = "\033[36m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

// newManager builds the pipeline manager from the loaded configuration.
func newManager() *backup.Manager {
	return backup.NewManager(
		backup.WithOutputBase(paths.ExpandHome(cfg.OutputBase)),
		backup.WithWorkDir(paths.ExpandHome(cfg.WorkDir)),
	)
}

// readPassword prompts for a password without echo. On a non-terminal
// stdin it falls back to reading a line, so piped invocations work.
func readPassword(prompt string, confirmEntry bool) (string, error) {
	pw, err := promptSecret(prompt)
	if err != nil {
		return "", err
	}
	if pw == "" {
		return "", errors.NewUserError(errors.New("password must not be empty"), "")
	}
	if confirmEntry {
		again, err := promptSecret("Confirm password: ")
		if err != nil {
			return "", err
		}
		if pw != again {
			return "", errors.NewUserError(errors.New("passwords do not match"), "")
		}
	}
	return pw, nil
}

func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(syscall.Stdin)) {
		pw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", errors.Wrap(err, "reading password")
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.Wrap(err, "reading password")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirm asks a yes/no question on stdin.
func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// printStages renders the per-stage timing block when not in quiet mode.
func printStages(stages []metrics.Stage) {
	if quiet || len(stages) == 0 {
		return
	}
	fmt.Printf("%sStages:%s\n", colorGray, colorReset)
	for _, s := range stages {
		line := fmt.Sprintf("  %-10s %v", s.Name, s.Elapsed.Round(1_000_000))
		if s.Bytes > 0 {
			line += fmt.Sprintf("  (%s)", metrics.FormatBytes(s.Bytes))
		}
		fmt.Println(line)
	}
}

// truncate shortens a string to maxLen characters, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
