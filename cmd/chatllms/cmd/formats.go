package cmd

import (
	"github.com/ZanzyTHEbar/chatllms-go/chatllms/dataset"

	"github.com/spf13/cobra"
)

func newFormatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the dataset names with a registered format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range dataset.Formats() {
				a.ui.Output(name)
			}
			return nil
		},
	}
}
