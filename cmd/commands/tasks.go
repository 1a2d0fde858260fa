package commands

import (
	"fmt"
	"text/tabwriter"

	"irys-monitor/internal/tasks"

	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List registered tasks and their schedules",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCRON\tTIMEZONE\tENABLED\tMISSING")
		for _, def := range tasks.Registry(cfg, tasks.NewFactories(cfg)) {
			missing := "-"
			if m := cfg.Missing(def.Requires...); len(m) > 0 {
				missing = fmt.Sprint(m)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", def.ID, def.Cron, def.Timezone, def.Enabled, missing)
		}
		return tw.Flush()
	},
}
