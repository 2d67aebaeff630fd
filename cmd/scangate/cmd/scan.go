package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/MeKo-Tech/scangate/internal/pipeline"
	"github.com/MeKo-Tech/scangate/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	progressBar = "bar"
	progressLog = "log"
)

// scanCmd represents the scan command.
var scanCmd = &cobra.Command{
	Use:   "scan IMAGE...",
	Short: "Decode barcodes in still images and gate them",
	Long: `Decode every barcode in one or more images and report the acceptance
decision for each of them.

Images are rotated upright before decoding so boxes are in display
orientation. The scan window comes from the configured overlay layout unless
--overlay-top and --overlay-height give it in screen pixels.

Supported formats: PNG, JPEG, GIF, BMP, TIFF, WebP

Examples:
  scangate scan frame.png
  scangate scan *.jpg --formats qrCode,ean13 --output csv
  scangate scan captures/ --recursive --exclude 'thumb_*'
  scangate scan frame.jpg --rotation 90 --view-height 2400 --density 2.75 --output json`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("no input files provided")
		}

		recursive, _ := cmd.Flags().GetBool("recursive")
		include, _ := cmd.Flags().GetString("include")
		exclude, _ := cmd.Flags().GetString("exclude")
		paths, err := utils.DiscoverImages(args, recursive, splitList(include), splitList(exclude))
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return errors.New("no images found")
		}
		for _, path := range paths {
			if !utils.IsSupportedImage(path) {
				return fmt.Errorf("unsupported image format: %s", path)
			}
		}
		slog.Debug("Discovered images", "count", len(paths))

		// Output format and density are validated when the configuration loads.
		cfg := GetConfig()
		format := cfg.Output.Format

		workers, _ := cmd.Flags().GetInt("workers")
		maxSide, _ := cmd.Flags().GetInt("max-image-side")

		builder := pipeline.NewBuilder().
			WithFormats(cfg.Scanner.Formats...).
			WithTryHarder(cfg.Scanner.TryHarder).
			WithLayout(cfg.OverlayLayout()).
			WithDensity(cfg.Scanner.Density).
			WithMaxImageSide(maxSide).
			WithParallelWorkers(workers)
		progress, err := progressCallback(cmd)
		if err != nil {
			return err
		}
		if progress != nil {
			builder = builder.WithProgressCallback(progress)
		}

		p, err := builder.Build()
		if err != nil {
			return fmt.Errorf("failed to build scan pipeline: %w", err)
		}
		if !p.Engine.Filter().Unrestricted() {
			slog.Debug("Scanning with format filter", "formats", p.Engine.Filter().Names())
		}

		frame, err := frameFromFlags(cmd)
		if err != nil {
			return err
		}

		results, err := p.ProcessFiles(cmd.Context(), paths, frame)
		if err != nil && results == nil {
			return err
		}
		if err != nil {
			slog.Warn("Some images could not be scanned", "error", err)
		}

		out, ferr := formatScanResults(format, results)
		if ferr != nil {
			return ferr
		}
		if _, werr := fmt.Fprintln(cmd.OutOrStdout(), out); werr != nil {
			return fmt.Errorf("failed to write to stdout: %w", werr)
		}
		return err
	},
}

// progressCallback selects the reporter for --progress: a bar on stderr or
// structured log records.
func progressCallback(cmd *cobra.Command) (pipeline.ProgressCallback, error) {
	mode, _ := cmd.Flags().GetString("progress")
	switch mode {
	case "":
		return nil, nil
	case progressBar:
		return pipeline.NewConsoleProgressCallback(cmd.ErrOrStderr(), "Scanning"), nil
	case progressLog:
		return pipeline.NewLogProgressCallback(slog.Default(), ""), nil
	default:
		return nil, fmt.Errorf("invalid progress mode: %s (must be one of: bar, log)", mode)
	}
}

// frameFromFlags reads the capture parameters shared by all images.
func frameFromFlags(cmd *cobra.Command) (pipeline.Frame, error) {
	var frame pipeline.Frame
	frame.Rotation, _ = cmd.Flags().GetInt("rotation")
	switch ((frame.Rotation % 360) + 360) % 360 {
	case 0, 90, 180, 270:
	default:
		return frame, fmt.Errorf("invalid rotation: %d (must be a multiple of 90)", frame.Rotation)
	}
	frame.ViewHeight, _ = cmd.Flags().GetFloat64("view-height")
	if frame.ViewHeight < 0 {
		return frame, fmt.Errorf("invalid view height: %v (must not be negative)", frame.ViewHeight)
	}
	if cmd.Flags().Changed("overlay-top") {
		top, _ := cmd.Flags().GetFloat64("overlay-top")
		frame.OverlayTop = &top
	}
	if cmd.Flags().Changed("overlay-height") {
		height, _ := cmd.Flags().GetFloat64("overlay-height")
		frame.OverlayHeight = &height
	}
	return frame, nil
}

func formatScanResults(format string, results []*pipeline.ScanImageResult) (string, error) {
	var (
		out string
		err error
	)
	switch format {
	case outputFormatJSON:
		if len(results) == 1 {
			out, err = pipeline.ToJSONImage(results[0])
		} else {
			out, err = pipeline.ToJSONImages(results)
		}
	case outputFormatYAML:
		out, err = pipeline.ToYAMLImages(results)
	case outputFormatCSV:
		out, err = pipeline.ToCSVImages(results)
	default:
		out, err = pipeline.ToPlainTextImages(results)
	}
	if err != nil {
		return "", fmt.Errorf("failed to format results: %w", err)
	}
	return strings.TrimRight(out, "\n"), nil
}

// bindScanFlags binds the scan flags that have a configuration key.
func bindScanFlags(cmd *cobra.Command) {
	flagBindings := []struct {
		key  string
		flag string
	}{
		{"output.format", "output"},
		{"scanner.formats", "formats"},
		{"scanner.density", "density"},
		{"scanner.try_harder", "try-harder"},
	}

	for _, binding := range flagBindings {
		if err := viper.BindPFlag(binding.key, cmd.Flags().Lookup(binding.flag)); err != nil {
			fmt.Fprintf(os.Stderr, "failed to bind flag %s: %v\n", binding.flag, err)
		}
	}
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Int("rotation", 0, "clockwise rotation to display the images upright (0, 90, 180, 270)")
	scanCmd.Flags().Float64("view-height", 0, "preview height in screen pixels (default: upright image height)")
	scanCmd.Flags().Float64("overlay-top", 0, "scan window top in screen pixels (default: from layout)")
	scanCmd.Flags().Float64("overlay-height", 0, "scan window height in screen pixels (default: from layout)")
	scanCmd.Flags().Float64("density", 1, "display density used to resolve the overlay layout")
	scanCmd.Flags().String("formats", "", "comma-separated allow-list (default: all formats)")
	scanCmd.Flags().Bool("try-harder", false, "spend more time looking for barcodes")
	scanCmd.Flags().Int("max-image-side", 0, "downscale images whose longer side exceeds this (0 = no limit)")
	scanCmd.Flags().Int("workers", 0, "number of images decoded in parallel (default: number of CPUs)")
	scanCmd.Flags().String("progress", "", "report progress on stderr: bar, or log for structured records")
	scanCmd.Flags().Lookup("progress").NoOptDefVal = progressBar
	scanCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories of directory arguments")
	scanCmd.Flags().String("include", "", "comma-separated file name patterns to include (e.g. *.png)")
	scanCmd.Flags().String("exclude", "", "comma-separated file name patterns to skip")
	scanCmd.Flags().StringP("output", "o", outputFormatText, "output format: text, json, yaml, csv")

	bindScanFlags(scanCmd)
}
