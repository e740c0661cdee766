package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dhabedank/fin-advisor/internal/tui"
)

// TextAdapter prints meta-prompts as they are sent to the model, optionally
// with styled section headers.
type TextAdapter struct {
	outputPath string
	color      bool
}

func NewTextAdapter(config Config) *TextAdapter {
	return &TextAdapter{outputPath: config.Path, color: config.Color && config.Path == ""}
}

func (a *TextAdapter) Name() string {
	return "text"
}

func (a *TextAdapter) Write(w io.Writer, reports []PromptReport) error {
	var b strings.Builder
	for i, r := range reports {
		if i > 0 {
			b.WriteString("\n")
		}
		if len(reports) > 1 {
			b.WriteString(a.title(fmt.Sprintf("# %s", r.UserID)) + "\n")
		}
		for _, line := range strings.Split(r.MetaPrompt, "\n") {
			if strings.HasPrefix(line, "## ") {
				line = a.title(line)
			}
			b.WriteString(line + "\n")
		}
	}

	if a.outputPath != "" {
		if err := os.WriteFile(a.outputPath, []byte(b.String()), 0o644); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
		return nil
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (a *TextAdapter) title(s string) string {
	if !a.color {
		return s
	}
	return tui.TitleStyle.Render(s)
}
