package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/bubbletrans/internal/pipeline"
	"github.com/MeKo-Tech/bubbletrans/internal/volume"
)

// volumeCmd processes every page of a PDF volume or an image directory.
var volumeCmd = &cobra.Command{
	Use:   "volume <pdf|directory>",
	Short: "Translate all pages of a PDF volume or a directory of page images",
	Long: `Extract the page images of a PDF (or list the images of a directory in
natural order) and process them one by one. A page that fails is reported and
the remaining pages are still processed.

Examples:
  bubbletrans volume chapter1.pdf
  bubbletrans volume chapter1.pdf --pages 1-5,8 --format json -o chapter1.json
  bubbletrans volume ./scans --target en --no-progress`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := commandConfig(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		if !slices.Contains([]string{outputFormatJSON, outputFormatText}, format) {
			return fmt.Errorf("invalid output format: %s (must be one of: json, text)", format)
		}
		pages, _ := cmd.Flags().GetString("pages")

		ctx := cmd.Context()
		proc, err := buildProcessor(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = proc.Close() }()

		opts := volume.Options{
			PageRange:  pages,
			SourceLang: cfg.Translation.SourceLang,
			TargetLang: cfg.Translation.TargetLang,
		}
		if noProgress, _ := cmd.Flags().GetBool("no-progress"); !noProgress {
			opts.Progress = pipeline.NewConsoleProgressCallback(cmd.ErrOrStderr(), "pages")
		}

		res, runErr := volume.Process(ctx, proc, args[0], opts)
		if res == nil {
			return runErr
		}

		var out string
		if format == outputFormatJSON {
			b, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding result: %w", err)
			}
			out = string(b) + "\n"
		} else {
			out = volumeText(res)
		}
		output, _ := cmd.Flags().GetString("output")
		return errors.Join(runErr, writeOutput(cmd, output, out))
	},
}

func init() {
	rootCmd.AddCommand(volumeCmd)
	addPipelineFlags(volumeCmd)
	volumeCmd.Flags().String("pages", "", "page range, e.g. 1-5,8 (default all pages)")
	volumeCmd.Flags().StringP("format", "f", outputFormatText, "output format (text, json)")
	volumeCmd.Flags().StringP("output", "o", "", "write results to file instead of stdout")
	volumeCmd.Flags().Bool("no-progress", false, "do not print a progress bar")
}

func volumeText(res *volume.Result) string {
	var b strings.Builder
	for _, p := range res.Pages {
		fmt.Fprintf(&b, "== page %d: %s ==\n", p.Number, p.Name)
		if p.Error != "" {
			fmt.Fprintf(&b, "error: %s\n", p.Error)
			continue
		}
		if text, _ := pipeline.ToPlainText(p.Page); text != "" {
			b.WriteString(text)
			b.WriteByte('\n')
		}
	}
	fmt.Fprintf(&b, "%d pages, %d failed, %d/%d regions translated in %dms\n",
		len(res.Pages), res.FailedPages, res.TranslatedRegions, res.TotalRegions, res.ProcessingTimeMs)
	return b.String()
}
