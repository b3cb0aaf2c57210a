package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/remtav/stac-browser/stac"
)

// Output formats
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

var outputFormat string

func validateOutputFormat(format string) error {
	switch format {
	case outputTable, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("invalid output format: %s (must be table, json or yaml)", format)
}

// render writes v to stdout as JSON or YAML
func render(format string, v any) error {
	return encode(os.Stdout, format, v)
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case outputJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("failed to encode as JSON: %w", err)
		}
		return nil
	case outputYAML:
		// Round trip through JSON so the STAC field names are kept
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode as YAML: %w", err)
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to encode as YAML: %w", err)
		}
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode as YAML: %w", err)
		}
		return encoder.Close()
	default:
		return validateOutputFormat(format)
	}
}

// itemRow is the table representation of a search result item
func itemRow(item *stac.Item) []string {
	apiID := ""
	if api := item.API(); api != nil {
		apiID = api.ID()
	}

	datetime := ""
	if dt, ok := item.Datetime(); ok {
		datetime = dt.UTC().Format(stac.TimeFormat)
	}

	cloud := ""
	if cc, ok := item.CloudCover(); ok {
		cloud = strconv.FormatFloat(cc, 'f', 1, 64)
	}

	return []string{
		apiID,
		item.Collection,
		item.ID,
		datetime,
		cloud,
		item.Platform(),
		strconv.Itoa(len(item.Assets)),
	}
}
