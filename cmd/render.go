package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/0xc0d3d00d/klinechart/internal/api"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func renderCmd(configPath *string) *cobra.Command {
	var symbol, out string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the chart of one symbol to a PNG file",
		Long: `Run the chart pipeline once and write the PNG to disk.

Example:
  klinechart render --symbol 2330.TW
  klinechart render -s AAPL -o charts/aapl.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			svc, err := newService(cfg, nil)
			if err != nil {
				return err
			}
			_, err = renderChart(cmd.Context(), svc, afero.NewOsFs(), symbol, out)
			return err
		},
	}

	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "Ticker symbol, e.g. AAPL or 2330.TW")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default <symbol>.png)")
	_ = cmd.MarkFlagRequired("symbol")
	return cmd
}

// renderChart writes the chart of symbol to out on fsys and returns the path
// written.
func renderChart(ctx context.Context, charter api.Charter, fsys afero.Fs, symbol, out string) (string, error) {
	img, err := charter.Chart(ctx, symbol)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", symbol, err)
	}

	if out == "" {
		out = symbol + ".png"
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	if err := afero.WriteFile(fsys, out, img, 0o644); err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "chart written", "symbol", symbol, "path", out, "bytes", len(img))
	return out, nil
}
