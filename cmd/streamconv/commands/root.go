package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "streamconv",
	Short: "Convert trained audio models for streaming inference",
	Long: `streamconv converts a trained keyword-spotting graph into inference
graphs: whole-spectrogram, streaming with internal state, or streaming
with caller-managed external state.

Examples:
  # Convert a trained graph for internal-state streaming
  streamconv convert --model train/saved --config settings.yaml \
      --mode stream_internal_state --out out/stream

  # Quantize a converted graph for an embedded target
  streamconv quantize --model out/stream --samples calib.json \
      --out out/graph_int8.pb

  # Inspect a saved graph
  streamconv summary --model out/stream
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(quantizeCmd)
	rootCmd.AddCommand(summaryCmd)
}

func initLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
