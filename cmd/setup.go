package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/dhabedank/fin-advisor/internal/llm"
	"github.com/dhabedank/fin-advisor/internal/tui"
	"github.com/dhabedank/fin-advisor/internal/version"
)

var resetConfig bool

// SetupCmd represents the setup command.
var SetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive configuration wizard",
	Long: `Configure fin-advisor with an interactive wizard.

The wizard picks the LLM provider and the chat model the advisor answers
with. Other settings already in the config file are kept.

Configuration is saved to ~/` + version.ConfigFileName,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func init() {
	SetupCmd.Flags().BoolVar(&resetConfig, "reset", false, "Reset configuration to defaults")
}

// providerInfo describes a selectable LLM provider.
type providerInfo struct {
	ID          string
	Name        string
	Description string
	// Vendor limits the model list to one vendor's models; empty means all.
	Vendor string
}

var providers = []providerInfo{
	{ID: "auto", Name: "Auto-detect", Description: "Anthropic API, then Claude CLI, then Codex CLI"},
	{ID: "anthropic-api", Name: "Anthropic API", Description: "Direct API access with ANTHROPIC_API_KEY (supports images)", Vendor: "anthropic"},
	{ID: "claude-cli", Name: "Claude CLI", Description: "Claude Code installed locally", Vendor: "anthropic"},
	{ID: "codex-cli", Name: "Codex CLI", Description: "OpenAI Codex installed locally", Vendor: "openai"},
	{ID: "offline", Name: "Offline", Description: "Canned replies, no model required"},
}

func runSetup(cmd *cobra.Command, args []string) error {
	configPath := homeConfigPath()

	if resetConfig {
		if err := os.Remove(configPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove config: %w", err)
		}
		fmt.Println(tui.SuccessStyle.Render("✓") + " Configuration reset to defaults")
		fmt.Printf("  Removed: %s\n", configPath)
		return nil
	}

	models := llm.AllModels()
	if len(models) == 0 {
		fmt.Println(tui.WarningStyle.Render("!") + " No LLM providers detected. Set ANTHROPIC_API_KEY or install Claude Code or Codex CLI.")
		fmt.Println("  Only the offline responder will be usable.")
	}

	p := tea.NewProgram(newSetupModel(models))
	m, err := p.Run()
	if err != nil {
		return fmt.Errorf("wizard failed: %w", err)
	}

	finalModel := m.(setupModel)
	if finalModel.cancelled {
		fmt.Println("Setup cancelled")
		return nil
	}

	cfg, err := readConfigFile(existingFile(configPath))
	if err != nil {
		return err
	}
	cfg.LLM = finalModel.provider
	cfg.Model = finalModel.model

	if err := writeConfigFile(configPath, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	if home, err := os.UserHomeDir(); err == nil {
		_ = version.MarkInitialized(home)
	}

	fmt.Println()
	fmt.Println(tui.SuccessStyle.Render("✓") + " Configuration saved to " + configPath)
	fmt.Println(tui.BoxStyle.Render(setupSummary(cfg.LLM, cfg.Model)))
	return nil
}

// setupSummary lists the chosen provider and model, with the model's
// pricing when one was picked.
func setupSummary(provider, model string) string {
	if model == "" {
		return fmt.Sprintf("Provider: %s\nModel:    %s", tui.ModelStyle.Render(provider), tui.ModelStyle.Render("provider default"))
	}
	return fmt.Sprintf("Provider: %s\nModel:    %s\nPricing:  %s",
		tui.ModelStyle.Render(provider), tui.ModelStyle.Render(model), tui.CostStyle.Render(tui.FormatPricing(model)))
}

func existingFile(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// Bubble Tea model for the setup wizard

const (
	stepProvider = iota
	stepModel
	stepDone
)

type setupModel struct {
	step      int
	providers list.Model
	models    list.Model
	allModels []llm.ModelInfo
	provider  string
	model     string
	cancelled bool
}

type wizardItem struct {
	id, title, desc string
}

func (i wizardItem) Title() string       { return i.title }
func (i wizardItem) Description() string { return i.desc }
func (i wizardItem) FilterValue() string { return i.title }

func newWizardList(title string, items []list.Item) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(tui.ColorPrimary)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(tui.ColorMuted)

	l := list.New(items, delegate, 60, 14)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = tui.TitleStyle
	return l
}

func newSetupModel(models []llm.ModelInfo) setupModel {
	items := make([]list.Item, len(providers))
	for i, p := range providers {
		items[i] = wizardItem{id: p.ID, title: p.Name, desc: p.Description}
	}
	return setupModel{
		step:      stepProvider,
		providers: newWizardList("Select LLM Provider", items),
		models:    newWizardList("Select Chat Model", nil),
		allModels: models,
	}
}

// modelItems lists the models a provider can serve.
func modelItems(provider string, models []llm.ModelInfo) []list.Item {
	vendor := ""
	for _, p := range providers {
		if p.ID == provider {
			vendor = p.Vendor
		}
	}
	var items []list.Item
	for _, m := range models {
		if vendor == "" || m.Provider == vendor {
			items = append(items, wizardItem{id: m.ID, title: m.Name, desc: m.Description})
		}
	}
	return items
}

func (m setupModel) Init() tea.Cmd {
	return nil
}

func (m setupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.providers.SetSize(msg.Width, msg.Height-4)
		m.models.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancelled = true
			return m, tea.Quit

		case "enter":
			switch m.step {
			case stepProvider:
				if item, ok := m.providers.SelectedItem().(wizardItem); ok {
					m.provider = item.id
				}
				items := modelItems(m.provider, m.allModels)
				if m.provider == "offline" || len(items) == 0 {
					m.model = ""
					m.step = stepDone
					return m, tea.Quit
				}
				cmd := m.models.SetItems(items)
				m.models.Select(0)
				m.step = stepModel
				return m, cmd
			case stepModel:
				if item, ok := m.models.SelectedItem().(wizardItem); ok {
					m.model = item.id
				}
				m.step = stepDone
				return m, tea.Quit
			}

		case "left", "h":
			if m.step == stepModel {
				m.step = stepProvider
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.step {
	case stepProvider:
		m.providers, cmd = m.providers.Update(msg)
	case stepModel:
		m.models, cmd = m.models.Update(msg)
	}
	return m, cmd
}

func (m setupModel) View() string {
	if m.cancelled || m.step == stepDone {
		return ""
	}

	steps := []string{"Provider", "Model"}
	progress := "\n  "
	for i, s := range steps {
		if i == m.step {
			progress += tui.SelectedStyle.Render(fmt.Sprintf("[%s]", s))
		} else if i < m.step {
			progress += tui.SuccessStyle.Render(fmt.Sprintf("✓ %s", s))
		} else {
			progress += tui.UnselectedStyle.Render(fmt.Sprintf("○ %s", s))
		}
		if i < len(steps)-1 {
			progress += " → "
		}
	}
	progress += "\n\n"

	help := tui.HelpStyle.Render("\n  ↑/↓: navigate • enter: select • ←: back • q: quit")

	current := m.providers
	if m.step == stepModel {
		current = m.models
	}
	return progress + current.View() + help
}
