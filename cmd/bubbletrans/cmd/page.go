package cmd

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/bubbletrans/internal/config"
	"github.com/MeKo-Tech/bubbletrans/internal/pipeline"
)

const (
	outputFormatJSON = "json"
	outputFormatText = "text"
	outputFormatCSV  = "csv"
)

var outputFormats = []string{outputFormatJSON, outputFormatText, outputFormatCSV}

// pageCmd processes single page images.
var pageCmd = &cobra.Command{
	Use:   "page <image>...",
	Short: "Detect, recognize and translate the bubbles of page images",
	Long: `Process one or more page images. Each page is run through bubble
detection, every enabled recognition engine, arbitration and translation.

Supported formats: JPEG, PNG, BMP, TIFF, WebP

Examples:
  bubbletrans page page01.png
  bubbletrans page page01.png --source ko --target en --format text
  bubbletrans page *.png --format json --output pages.json
  bubbletrans page page01.png --overlay page01.overlay.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := commandConfig(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		if !slices.Contains(outputFormats, format) {
			return fmt.Errorf("invalid output format: %s (must be one of: %s)", format, strings.Join(outputFormats, ", "))
		}
		overlay, _ := cmd.Flags().GetString("overlay")
		if overlay != "" && len(args) > 1 {
			return errors.New("--overlay needs exactly one input image")
		}

		ctx := cmd.Context()
		proc, err := buildProcessor(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = proc.Close() }()

		pages := make([]*pipeline.ProcessedPage, 0, len(args))
		for _, path := range args {
			page, err := pipeline.LoadPage(path, cfg.Translation.SourceLang, cfg.Translation.TargetLang)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			page.Source = filepath.Base(path)

			res, err := proc.Process(ctx, page)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			slog.Debug("page processed", "source", path,
				"regions", res.Summary.TotalRegions, "translated", res.Summary.TranslatedRegions)
			pages = append(pages, res)

			if overlay != "" {
				if err := writeOverlay(overlay, page, res); err != nil {
					return err
				}
			}
		}

		out, err := formatPages(pages, format)
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")
		return writeOutput(cmd, output, out)
	},
}

func init() {
	rootCmd.AddCommand(pageCmd)
	addPipelineFlags(pageCmd)
	pageCmd.Flags().StringP("format", "f", outputFormatText, "output format (text, json, csv)")
	pageCmd.Flags().StringP("output", "o", "", "write results to file instead of stdout")
	pageCmd.Flags().String("overlay", "", "write a PNG with the detected bubbles drawn on the page")
}

// addPipelineFlags registers the flags shared by commands that run pages.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("source", "s", "", "source language (empty lets the engines decide)")
	cmd.Flags().StringP("target", "t", "", "target language")
	cmd.Flags().StringSlice("engines", nil, "recognition engines to run (paddle, vision, tesseract)")
	cmd.Flags().Bool("no-translate", false, "only detect and recognize")
	cmd.Flags().Int("workers", 0, "regions processed concurrently (0 = config)")
}

// commandConfig applies the pipeline flags of cmd on top of the loaded configuration.
func commandConfig(cmd *cobra.Command) (*config.Config, error) {
	loaded, err := GetConfig()
	if err != nil {
		return nil, err
	}
	cfg := *loaded
	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Translation.SourceLang, _ = flags.GetString("source")
	}
	if flags.Changed("target") {
		cfg.Translation.TargetLang, _ = flags.GetString("target")
	}
	if flags.Changed("engines") {
		cfg.Engines.Enabled, _ = flags.GetStringSlice("engines")
	}
	if noTranslate, _ := flags.GetBool("no-translate"); noTranslate {
		cfg.Translation.Enabled = false
	}
	if flags.Changed("workers") {
		cfg.Pipeline.Workers, _ = flags.GetInt("workers")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func buildProcessor(ctx context.Context, cfg *config.Config) (*pipeline.Processor, error) {
	proc, err := pipeline.NewBuilderWithOptions(cfg.ToPipelineOptions()).Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("building pipeline: %w", err)
	}
	return proc, nil
}

func formatPages(pages []*pipeline.ProcessedPage, format string) (string, error) {
	if format == outputFormatJSON {
		if len(pages) == 1 {
			return pipeline.ToJSON(pages[0])
		}
		return pipeline.ToJSONPages(pages)
	}

	var b strings.Builder
	for i, p := range pages {
		var (
			s   string
			err error
		)
		if format == outputFormatCSV {
			s, err = pipeline.ToCSV(p)
		} else {
			s, err = pipeline.ToPlainText(p)
		}
		if err != nil {
			return "", err
		}
		if len(pages) > 1 && format == outputFormatText {
			fmt.Fprintf(&b, "== %s ==\n", p.Source)
		}
		if i > 0 && format == outputFormatCSV {
			// one header per document
			_, s, _ = strings.Cut(s, "\n")
		}
		b.WriteString(s)
		if format == outputFormatText && s != "" {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

func writeOverlay(path string, page *pipeline.Page, res *pipeline.ProcessedPage) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating overlay: %w", err)
	}
	defer func() { _ = f.Close() }()
	if err := png.Encode(f, pipeline.RenderOverlay(page.Image, res)); err != nil {
		return fmt.Errorf("encoding overlay: %w", err)
	}
	return nil
}

func writeOutput(cmd *cobra.Command, path, content string) error {
	if path == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}
