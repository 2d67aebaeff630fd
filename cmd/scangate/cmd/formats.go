package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/MeKo-Tech/scangate/internal/barcode"
	"github.com/MeKo-Tech/scangate/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// formatRow is one line of the symbology table.
type formatRow struct {
	Name   string `json:"name" yaml:"name"`
	MLKit  *int   `json:"mlkit,omitempty" yaml:"mlkit,omitempty"`
	Vision string `json:"vision,omitempty" yaml:"vision,omitempty"`
	ZXing  string `json:"zxing,omitempty" yaml:"zxing,omitempty"`
}

// formatsReport is the json and yaml shape of the formats command.
type formatsReport struct {
	Filter      []string    `json:"filter" yaml:"filter"`
	MLKitMask   int         `json:"mlkit_mask" yaml:"mlkit_mask"`
	Symbologies []formatRow `json:"symbologies" yaml:"symbologies"`
}

func symbologyTable(vendor string) []formatRow {
	rows := make([]formatRow, 0, len(barcode.AllSymbologies()))
	for _, s := range barcode.AllSymbologies() {
		row := formatRow{Name: barcode.SymbologyToName(s)}
		if vendor == "" || vendor == barcode.VendorMLKit {
			if f, ok := barcode.MLKitFormat(s); ok {
				row.MLKit = &f
			}
		}
		if vendor == "" || vendor == barcode.VendorVision {
			row.Vision, _ = barcode.VisionSymbology(s)
		}
		if vendor == "" || vendor == barcode.VendorZXing {
			row.ZXing, _ = barcode.ZXingName(s)
		}
		rows = append(rows, row)
	}
	return rows
}

// formatsCmd represents the formats command.
var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported symbologies and their vendor identifiers",
	Long: `List the canonical symbology names accepted by --formats and the
configuration, together with the ML Kit format constants, Vision symbology
identifiers and ZXing format names they map to. A dash marks a symbology
the vendor does not report.

The active filter (from the configuration or --formats) is reported with the
ML Kit format mask a scanner built from it would use.

Examples:
  scangate formats
  scangate formats --vendor mlkit
  scangate formats --formats qrCode,ean13 --output json`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		vendor, _ := cmd.Flags().GetString("vendor")
		vendor = strings.ToLower(strings.TrimSpace(vendor))
		switch vendor {
		case "", barcode.VendorMLKit, barcode.VendorVision, barcode.VendorZXing:
		default:
			return fmt.Errorf("unknown vendor: %s (must be one of: mlkit, vision, zxing)", vendor)
		}
		cfg := GetConfig()
		if cmd.Flags().Changed("formats") {
			list, _ := cmd.Flags().GetString("formats")
			cfg.Scanner.Formats = splitList(list)
		}
		report := activeFormats(cfg, vendor)

		format, _ := cmd.Flags().GetString("output")
		switch format {
		case outputFormatJSON:
			b, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal formats: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		case outputFormatYAML:
			b, err := yaml.Marshal(report)
			if err != nil {
				return fmt.Errorf("failed to marshal formats: %w", err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(b))
			return err
		case outputFormatText:
			if err := writeFormatsTable(cmd, vendor, report.Symbologies); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "\nActive filter: %s (ML Kit mask %d)\n",
				strings.Join(report.Filter, ","), report.MLKitMask)
			return err
		default:
			return fmt.Errorf("invalid output format: %s (must be one of: text, json, yaml)", format)
		}
	},
}

// activeFormats resolves the configured filter against the symbology table.
func activeFormats(cfg *config.Config, vendor string) formatsReport {
	filter, unrecognized := cfg.ToFormatFilter()
	if len(unrecognized) > 0 {
		slog.Warn("Ignoring unrecognized formats", "formats", unrecognized)
	}
	return formatsReport{
		Filter:      filter.Names(),
		MLKitMask:   barcode.MLKitMask(filter.Symbologies()),
		Symbologies: symbologyTable(vendor),
	}
}

func writeFormatsTable(cmd *cobra.Command, vendor string, rows []formatRow) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

	header := []string{"NAME"}
	if vendor == "" || vendor == barcode.VendorMLKit {
		header = append(header, "MLKIT")
	}
	if vendor == "" || vendor == barcode.VendorVision {
		header = append(header, "VISION")
	}
	if vendor == "" || vendor == barcode.VendorZXing {
		header = append(header, "ZXING")
	}
	_, _ = fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, r := range rows {
		cols := []string{r.Name}
		if vendor == "" || vendor == barcode.VendorMLKit {
			mlkit := "-"
			if r.MLKit != nil {
				mlkit = strconv.Itoa(*r.MLKit)
			}
			cols = append(cols, mlkit)
		}
		if vendor == "" || vendor == barcode.VendorVision {
			cols = append(cols, orDash(r.Vision))
		}
		if vendor == "" || vendor == barcode.VendorZXing {
			cols = append(cols, orDash(r.ZXing))
		}
		_, _ = fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(formatsCmd)

	formatsCmd.Flags().String("formats", "", "comma-separated allow-list to report instead of the configured one")
	formatsCmd.Flags().String("vendor", "", "only show identifiers of one vendor: mlkit, vision, zxing")
	formatsCmd.Flags().StringP("output", "o", outputFormatText, "output format: text, json, yaml")
}
