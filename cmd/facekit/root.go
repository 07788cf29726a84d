package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	scripts    []string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "facekit",
		Short: "Action and undo engine for 3D face models",
		Long: `facekit runs the action engine of a face-scan workbench headlessly.

Examples:
  facekit actions
  facekit demo
  facekit demo model.load edit.transform model.undo
  facekit demo --script scripts/centre.lua --answer "Open model=s01.obj"`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format (auto, console, json)")
	flags.StringArrayVar(&opts.scripts, "script", nil, "Lua script defining extra actions (repeatable)")

	cmd.AddCommand(
		newDemoCmd(opts),
		newActionsCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "facekit %s\n", version)
			fmt.Fprintf(out, "Commit: %s\n", commit)
			fmt.Fprintf(out, "Built: %s\n", date)
		},
	}
}
