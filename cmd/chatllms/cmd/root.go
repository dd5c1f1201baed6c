// Package cmd contains the chatllms command tree.
package cmd

import (
	"os"

	internal "github.com/ZanzyTHEbar/chatllms-go/chatllms"
	"github.com/ZanzyTHEbar/chatllms-go/chatllms/config"
	"github.com/ZanzyTHEbar/chatllms-go/chatllms/ports"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app is the state shared by every subcommand once the root has loaded the
// configuration.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger zerolog.Logger
	ui     ports.Interactor
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   internal.DefaultAppCMDShortCut,
		Short: "Prepare and collate instruction-tuning datasets",
		Long: heredoc.Doc(`
			Prepare and collate instruction-tuning datasets.

			Datasets are read from local JSON, JSONL, CSV or TSV files, formatted
			into input/output pairs and collated into padded, loss-masked batches.
		`),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			level := cfg.Log.Level
			if a.logLevel != "" {
				level = a.logLevel
			}
			a.logger = internal.GetLevelLogger(level)
			a.ui = ports.NewTerminal(cmd.OutOrStdout())
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default searches ./config.yaml and ~/.config/chatllms)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(newFormatsCmd(a))
	root.AddCommand(newPrepareCmd(a))
	root.AddCommand(newCollateCmd(a))
	return root
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
