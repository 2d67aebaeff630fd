package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ToJSONImage serializes a single ScanImageResult to pretty JSON.
func ToJSONImage(res *ScanImageResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToJSONImages serializes multiple results to pretty JSON.
func ToJSONImages(results []*ScanImageResult) (string, error) {
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToYAMLImages serializes multiple results to YAML.
func ToYAMLImages(results []*ScanImageResult) (string, error) {
	b, err := yaml.Marshal(results)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToPlainTextImage lists one line per barcode: outcome, type and value.
func ToPlainTextImage(res *ScanImageResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	if res.Error != "" {
		return "error: " + res.Error, nil
	}
	if len(res.Barcodes) == 0 {
		return "no barcodes", nil
	}
	lines := make([]string, 0, len(res.Barcodes))
	for _, b := range res.Barcodes {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s", b.Decision.Outcome, b.Type, b.Value))
	}
	return strings.Join(lines, "\n"), nil
}

// ToPlainTextImages renders each result under a header naming its file.
func ToPlainTextImages(results []*ScanImageResult) (string, error) {
	var sb strings.Builder
	for i, res := range results {
		text, err := ToPlainTextImage(res)
		if err != nil {
			return "", fmt.Errorf("result %d: %w", i, err)
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if len(results) > 1 && res.Path != "" {
			sb.WriteString("# " + res.Path + "\n")
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

// ToCSVImages exports one row per barcode with header.
func ToCSVImages(results []*ScanImageResult) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"path", "type", "value", "outcome", "left", "top", "right", "bottom"})
	for _, res := range results {
		if res == nil {
			return "", errors.New("nil result")
		}
		for _, b := range res.Barcodes {
			row := []string{res.Path, b.Type, b.Value, b.Decision.Outcome.String(), "", "", "", ""}
			if b.Box != nil {
				row[4] = strconv.FormatFloat(b.Box.Left, 'f', -1, 64)
				row[5] = strconv.FormatFloat(b.Box.Top, 'f', -1, 64)
				row[6] = strconv.FormatFloat(b.Box.Right, 'f', -1, 64)
				row[7] = strconv.FormatFloat(b.Box.Bottom, 'f', -1, 64)
			}
			_ = w.Write(row)
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}
