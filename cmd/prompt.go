package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/dhabedank/fin-advisor/internal/docstore"
	"github.com/dhabedank/fin-advisor/internal/metaprompt"
	"github.com/dhabedank/fin-advisor/internal/output"
)

var (
	outputFormat string
	outputPath   string
	noColor      bool
)

// PromptCmd prints the meta-prompt generated for one or more users.
var PromptCmd = &cobra.Command{
	Use:   "prompt <user-id>...",
	Short: "Print the meta-prompt built for a user",
	Long: `Load the profile datasets and print the meta-prompt the advisor would
receive for each given user: demographics, financial profile, investment
profile, spending patterns and social media insights.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPrompt,
}

func init() {
	addCommonFlags(PromptCmd)
	addDataFlags(PromptCmd)

	PromptCmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format (text/json)")
	PromptCmd.Flags().StringVar(&outputPath, "output-path", "", "Write output to a file instead of stdout")
	PromptCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable styled output")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := newLogger(verbose)
	ctx := context.Background()

	out, err := output.New(outputFormat, output.Config{
		Path:  outputPath,
		Color: !noColor && outputPath == "" && isatty.IsTerminal(os.Stdout.Fd()),
	})
	if err != nil {
		return err
	}

	var docs docstore.Store = docstore.NewMemoryStore()
	if dataSource == "db" {
		if docs, err = openDocStore(ctx, log); err != nil {
			return err
		}
	}
	defer docs.Close()

	src, err := profileSource(docs)
	if err != nil {
		return err
	}
	generator, err := metaprompt.NewGenerator(metaprompt.GeneratorConfig{
		Logger:   log,
		Store:    loadProfiles(ctx, log, src),
		Insights: insightConfig,
	})
	if err != nil {
		return fmt.Errorf("failed to create meta-prompt generator: %w", err)
	}

	reports := make([]output.PromptReport, 0, len(args))
	for _, userID := range args {
		reports = append(reports, output.NewPromptReport(userID, generator.Generate(ctx, userID), time.Now()))
	}

	if err := out.Write(cmd.OutOrStdout(), reports); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if outputPath != "" {
		log.Info("wrote meta-prompts", "path", outputPath, "users", len(reports))
	}
	return nil
}
