package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"streamconv/export"
	"streamconv/graph"
	"streamconv/streaming"
)

var (
	convertModel  string
	convertConfig string
	convertOut    string
	convertMode   string
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a trained graph into an inference graph",
	Long: `Convert loads a trained saved graph, re-targets it for the requested
inference mode and writes the result as a new saved-graph directory.

Modes:
  non_stream             - whole-spectrogram inference
  stream_internal_state  - frame-by-frame, state held inside the graph
  stream_external_state  - frame-by-frame, state threaded by the caller

The settings file is YAML:
  batch_size: 32
  spectrogram_length: 49
  feature_size: 40
  frame_stride: 1
`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&convertModel, "model", "", "trained saved-graph directory (required)")
	convertCmd.Flags().StringVar(&convertConfig, "config", "", "conversion settings YAML file (required)")
	convertCmd.Flags().StringVar(&convertOut, "out", "", "output saved-graph directory (required)")
	convertCmd.Flags().StringVar(&convertMode, "mode", "stream_internal_state", "inference mode")
	convertCmd.MarkFlagRequired("model")
	convertCmd.MarkFlagRequired("config")
	convertCmd.MarkFlagRequired("out")
}

func runConvert(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(convertConfig)
	if err != nil {
		return err
	}
	mode, err := graph.ParseMode(convertMode)
	if err != nil {
		return err
	}
	trained, err := export.Load(convertModel)
	if err != nil {
		return fmt.Errorf("failed to load trained graph: %w", err)
	}

	// external-state graphs go through the converter directly: their
	// saved form carries the state boundary for the caller to manage
	if mode == graph.ModeExternalState {
		converted, err := streaming.ToInference(trained, mode, settings)
		if err != nil {
			return err
		}
		if err := export.Save(converted, convertOut); err != nil {
			return err
		}
		slog.Info("saved inference graph", "mode", mode.String(), "dir", convertOut)
		return nil
	}
	return export.NewDriver(slog.Default()).SaveInference(trained, settings, mode, convertOut)
}

func loadSettings(path string) (streaming.Settings, error) {
	var s streaming.Settings
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse settings: %w", err)
	}
	return s, nil
}
