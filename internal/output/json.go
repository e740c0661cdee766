package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// JSONAdapter outputs reports as an indented JSON array.
type JSONAdapter struct {
	outputPath string
}

// NewJSONAdapter creates a JSON adapter.
func NewJSONAdapter(config Config) *JSONAdapter {
	return &JSONAdapter{outputPath: config.Path}
}

func (a *JSONAdapter) Name() string {
	return "json"
}

func (a *JSONAdapter) Write(w io.Writer, reports []PromptReport) error {
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	data = append(data, '\n')

	if a.outputPath != "" {
		if err := os.WriteFile(a.outputPath, data, 0o644); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
		return nil
	}
	_, err = w.Write(data)
	return err
}
