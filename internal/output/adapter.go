package output

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// PromptReport is a generated meta-prompt and what went into it.
type PromptReport struct {
	UserID      string    `json:"user_id"`
	MetaPrompt  string    `json:"meta_prompt"`
	Sections    []string  `json:"sections"`
	GeneratedAt time.Time `json:"generated_at"`
}

// NewPromptReport builds a report, listing the section headers found in the
// prompt in order.
func NewPromptReport(userID, prompt string, at time.Time) PromptReport {
	sections := []string{}
	for _, line := range strings.Split(prompt, "\n") {
		if h, ok := strings.CutPrefix(line, "## "); ok {
			sections = append(sections, h)
		}
	}
	return PromptReport{UserID: userID, MetaPrompt: prompt, Sections: sections, GeneratedAt: at.UTC()}
}

// Adapter is the interface all output adapters must implement.
type Adapter interface {
	// Name returns the adapter identifier for logging.
	Name() string

	// Write renders the reports.
	Write(w io.Writer, reports []PromptReport) error
}

// Config configures output adapter behavior.
type Config struct {
	// Path writes to a file instead of the given writer.
	Path string

	// Color enables styled terminal output for the text adapter.
	Color bool
}

// New returns the adapter for a format name.
func New(format string, config Config) (Adapter, error) {
	switch format {
	case "text", "":
		return NewTextAdapter(config), nil
	case "json":
		return NewJSONAdapter(config), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}
