package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/scangate/internal/barcode"
	"github.com/MeKo-Tech/scangate/internal/gate"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	outputFormatText = "text"
	outputFormatJSON = "json"
	outputFormatYAML = "yaml"
	outputFormatCSV  = "csv"
)

// evaluateResult is the machine-readable output of the evaluate command.
type evaluateResult struct {
	Decision gate.Decision     `json:"decision" yaml:"decision"`
	Viewport gate.Viewport     `json:"viewport" yaml:"viewport"`
	Event    map[string]string `json:"event,omitempty" yaml:"event,omitempty"`
}

// evaluateCmd represents the evaluate command.
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Decide whether a single detection would be accepted",
	Long: `Evaluate one barcode detection against a viewport and format allow-list.

The detection is described by its symbology, decoded payload and bounding box.
Omitting --payload models a symbol that was located but not decoded; omitting
--box models a detector that reported no bounds.

Overlay values are on-screen pixels. When --overlay-top or --overlay-height
are not given they are resolved from the configured overlay layout and the
display density.

Examples:
  scangate evaluate --format qrCode --payload abc --box 100,560,300,640 --image-size 720x1280
  scangate evaluate --format ean13 --payload 4006381333931 --box 0.1,0.45,0.6,0.5 --normalized \
    --image-size 1280x720 --rotation 90 --view-height 2000 --overlay-top 900 --overlay-height 300
  scangate evaluate --vendor mlkit --format 256 --payload abc --box 100,560,300,640 --image-size 720x1280`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		format := cfg.Output.Format
		if cmd.Flags().Changed("output") {
			format, _ = cmd.Flags().GetString("output")
		}
		if format == outputFormatCSV {
			return errors.New("csv output is only supported by scan")
		}

		if cmd.Flags().Changed("formats") {
			list, _ := cmd.Flags().GetString("formats")
			cfg.Scanner.Formats = splitList(list)
		}
		filter, unrecognized := cfg.ToFormatFilter()
		if len(unrecognized) > 0 {
			slog.Warn("Ignoring unrecognized formats", "formats", unrecognized)
		}

		detection, err := detectionFromFlags(cmd, cfg.CoordinateConvention())
		if err != nil {
			return err
		}

		viewport, err := viewportFromFlags(cmd, cfg.OverlayLayout(), cfg.Scanner.Density)
		if err != nil {
			return err
		}

		decision := gate.Evaluate(detection, viewport, filter)
		slog.Debug("Evaluated detection",
			"outcome", decision.Outcome.String(),
			"type", decision.Name,
			"viewport", viewport)

		return writeEvaluateResult(cmd, format, evaluateResult{
			Decision: decision,
			Viewport: viewport,
			Event:    decision.Event(),
		})
	},
}

// detectionFromFlags builds the detection described by the command line.
func detectionFromFlags(cmd *cobra.Command, convention gate.Convention) (gate.Detection, error) {
	name, _ := cmd.Flags().GetString("format")
	if name == "" {
		return gate.Detection{}, errors.New("--format is required")
	}
	vendor, _ := cmd.Flags().GetString("vendor")

	d := gate.Detection{
		Symbology:  barcode.ParseVendorFormat(vendor, name),
		Convention: convention,
	}

	if cmd.Flags().Changed("normalized") {
		if normalized, _ := cmd.Flags().GetBool("normalized"); normalized {
			d.Convention = gate.Normalized
		} else {
			d.Convention = gate.Pixel
		}
	}

	if cmd.Flags().Changed("payload") {
		payload, _ := cmd.Flags().GetString("payload")
		d.Payload = &payload
	}

	if cmd.Flags().Changed("box") {
		raw, _ := cmd.Flags().GetString("box")
		box, err := gate.ParseBox(raw)
		if err != nil {
			return gate.Detection{}, fmt.Errorf("invalid --box: %w", err)
		}
		d.Box = &box
	}

	return d, nil
}

// viewportFromFlags builds the viewport from the frame flags and the layout.
func viewportFromFlags(cmd *cobra.Command, layout gate.OverlayLayout, density float64) (gate.Viewport, error) {
	size, _ := cmd.Flags().GetString("image-size")
	width, height, err := parseImageSize(size)
	if err != nil {
		return gate.Viewport{}, err
	}

	rotation, _ := cmd.Flags().GetInt("rotation")
	if cmd.Flags().Changed("density") {
		density, _ = cmd.Flags().GetFloat64("density")
		if !(density > 0) {
			return gate.Viewport{}, fmt.Errorf("invalid density: %v (must be positive)", density)
		}
	}

	vp := layout.Viewport(width, height, rotation, 0, density)
	// The preview defaults to the upright image height, i.e. a 1:1 mapping.
	vp.ViewHeight = float64(vp.EffectiveHeight())
	if cmd.Flags().Changed("view-height") {
		vp.ViewHeight, _ = cmd.Flags().GetFloat64("view-height")
	}
	if cmd.Flags().Changed("overlay-top") {
		vp.OverlayTop, _ = cmd.Flags().GetFloat64("overlay-top")
	}
	if cmd.Flags().Changed("overlay-height") {
		vp.OverlayHeight, _ = cmd.Flags().GetFloat64("overlay-height")
	}
	return vp, nil
}

// parseImageSize parses "WxH".
func parseImageSize(s string) (int, int, error) {
	if s == "" {
		return 0, 0, errors.New("--image-size is required")
	}
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid image size %q (expected WxH)", s)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("invalid image width in %q", s)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("invalid image height in %q", s)
	}
	return width, height, nil
}

// splitList splits a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func writeEvaluateResult(cmd *cobra.Command, format string, res evaluateResult) error {
	var out string
	switch format {
	case outputFormatJSON:
		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		out = string(b)
	case outputFormatYAML:
		b, err := yaml.Marshal(res)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		out = strings.TrimRight(string(b), "\n")
	case outputFormatText, "":
		out = fmt.Sprintf("%s\t%s\t%s", res.Decision.Outcome, res.Decision.Name, res.Decision.Payload)
	default:
		return fmt.Errorf("invalid output format: %s (must be one of: text, json, yaml)", format)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().String("format", "", "symbology of the detection (canonical name, or vendor id with --vendor)")
	evaluateCmd.Flags().String("vendor", "", "interpret --format as a vendor id: mlkit, vision or zxing")
	evaluateCmd.Flags().String("payload", "", "decoded payload; omit for an undecoded detection")
	evaluateCmd.Flags().String("box", "", "bounding box as left,top,right,bottom; omit for no box")
	evaluateCmd.Flags().Bool("normalized", false, "box coordinates are fractions of the image size")
	evaluateCmd.Flags().String("image-size", "", "analyzed image size as WxH, before rotation")
	evaluateCmd.Flags().Int("rotation", 0, "clockwise rotation to display the image upright (0, 90, 180, 270)")
	evaluateCmd.Flags().Float64("view-height", 0, "preview height in screen pixels (default: upright image height)")
	evaluateCmd.Flags().Float64("overlay-top", 0, "scan window top in screen pixels (default: from layout)")
	evaluateCmd.Flags().Float64("overlay-height", 0, "scan window height in screen pixels (default: from layout)")
	evaluateCmd.Flags().Float64("density", 1, "display density used to resolve the overlay layout")
	evaluateCmd.Flags().String("formats", "", "comma-separated allow-list (default: configured formats)")
	evaluateCmd.Flags().StringP("output", "o", outputFormatText, "output format: text, json, yaml")
}
