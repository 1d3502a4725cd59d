package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mindmorass/clipdeck/internal/augment"
)

// readInput joins the arguments, or reads stdin when there are none or the
// only argument is "-"
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// readSource reads a file argument, or stdin for "-" or no argument
func readSource(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		return readInput(cmd, nil)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func formatCreated(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}

// errDegraded marks output that came from a fallback rather than the provider
var errDegraded = errors.New("AI request degraded")

func degradedError(cause augment.Cause) error {
	return fmt.Errorf("%w: %s", errDegraded, cause)
}
