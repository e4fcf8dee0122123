package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"nextpatch/internal/config"
)

// uiChoice is everything that decides how a patch run reports progress.
type uiChoice struct {
	// setting is [output].ui, or --ui when given on the command line.
	setting string
	quiet   bool
	dryRun  bool
	tty     bool
}

// progressUI reports whether runPatch should render the progress view
// instead of plain report lines.
func progressUI(cmd *cobra.Command, cfg *config.Config, quiet, dryRun bool) (bool, error) {
	choice := uiChoice{setting: cfg.Output.UI, quiet: quiet, dryRun: dryRun, tty: isTerminal(os.Stdout)}
	if cmd.Flags().Changed("ui") {
		flag, err := cmd.Flags().GetString("ui")
		if err != nil {
			return false, err
		}
		choice.setting = flag
	}
	return choice.resolve()
}

func (c uiChoice) resolve() (bool, error) {
	var on bool
	switch strings.TrimSpace(strings.ToLower(c.setting)) {
	case "", "auto":
		on = c.tty
	case "on":
		on = true
	case "off":
	default:
		return false, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", c.setting)
	}
	// Diffs and quiet output only make sense as plain text.
	return on && !c.quiet && !c.dryRun, nil
}
