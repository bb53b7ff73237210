package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stream-manager",
	Short: "Relay and mix live MJPEG camera feeds",
	Long: `stream-manager ingests MJPEG camera streams over HTTP, keeps the
freshest frame from each source, composites two sources with a timed
crossfade, and re-serves raw and mixed feeds as multipart MJPEG.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(newServeCmd())
}
