package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"declutter/internal/config"
)

var sampleOutput string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect declutter configuration",
}

var configSampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Print a commented sample configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sampleOutput == "" {
			fmt.Fprint(cmd.OutOrStdout(), config.Sample())
			return nil
		}

		if err := config.CreateSample(sampleOutput); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sample configuration written to: %s\n", sampleOutput)
		return nil
	},
}

func init() {
	configSampleCmd.Flags().StringVarP(&sampleOutput, "output", "o", "", "write the sample to this file instead of stdout")
	configCmd.AddCommand(configSampleCmd)
	rootCmd.AddCommand(configCmd)
}
