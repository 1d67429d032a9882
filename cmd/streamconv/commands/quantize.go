package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"streamconv/export"
)

var (
	quantizeModel   string
	quantizeSamples string
	quantizeLimit   int
	quantizeOut     string
)

var quantizeCmd = &cobra.Command{
	Use:   "quantize",
	Short: "Produce an int8 artifact from a saved graph",
	Long: `Quantize loads a saved graph, calibrates an int8 affine quantization on
representative feature frames and writes a flat binary artifact.

The samples file is a JSON array of feature frames:
  [[0.1, 3.2, ...], [1.4, 0.0, ...]]
`,
	RunE: runQuantize,
}

func init() {
	quantizeCmd.Flags().StringVar(&quantizeModel, "model", "", "saved-graph directory (required)")
	quantizeCmd.Flags().StringVar(&quantizeSamples, "samples", "", "representative samples JSON file (required)")
	quantizeCmd.Flags().IntVar(&quantizeLimit, "limit", 0, "max calibration frames (0 means the cap)")
	quantizeCmd.Flags().StringVar(&quantizeOut, "out", "", "output artifact path (required)")
	quantizeCmd.MarkFlagRequired("model")
	quantizeCmd.MarkFlagRequired("samples")
	quantizeCmd.MarkFlagRequired("out")
}

func runQuantize(cmd *cobra.Command, args []string) error {
	samples, err := loadSamples(quantizeSamples)
	if err != nil {
		return err
	}
	return export.NewDriver(slog.Default()).QuantizeSaved(quantizeModel, samples, quantizeLimit, quantizeOut)
}

func loadSamples(path string) ([][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}
	var samples [][]float32
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("failed to parse samples: %w", err)
	}
	return samples, nil
}
