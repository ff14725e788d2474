package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"trigsched/internal/config"
	"trigsched/internal/module"
	"trigsched/internal/trigger"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config and report each trigger definition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewManager(configPath(cmd)).Load()
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), cfg)
		},
	}
}

// report prints one line per definition and fails when none is valid.
func report(w io.Writer, cfg *config.Config) error {
	valid := 0
	for _, d := range cfg.Triggers.IntervalTriggers {
		t := d.Trigger()
		if err := t.Validate(); err != nil {
			fmt.Fprintf(w, "invalid  interval %-20q %v\n", d.ID, err)
			continue
		}
		valid++
		fmt.Fprintf(w, "valid    interval %-20q every %s -> %s\n", d.ID, t.Period(), destination(t))
	}
	for _, d := range cfg.Triggers.RangeTriggers {
		t, err := d.Trigger()
		if err == nil {
			err = t.Validate()
		}
		if err != nil {
			fmt.Fprintf(w, "invalid  range    %-20q %v\n", d.ID, err)
			continue
		}
		valid++
		fmt.Fprintf(w, "valid    range    %-20q daily at %s -> %s\n", d.ID, t.Range.At, destination(t))
	}
	fmt.Fprintf(w, "%d of %d triggers valid (group %q)\n", valid, cfg.Triggers.Len(), cfg.Scheduler.Group)
	if valid == 0 {
		return module.ErrNoTriggers
	}
	return nil
}

func destination(t trigger.Trigger) string {
	if t.Cmd == "" {
		return t.PublishChannel
	}
	return t.PublishChannel + "$cmd"
}

