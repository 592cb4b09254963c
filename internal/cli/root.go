package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apresai/interviewer/internal/backend"
	"github.com/apresai/interviewer/internal/observability"
	"github.com/apresai/interviewer/internal/pipeline"
	"github.com/apresai/interviewer/internal/progress"
	"github.com/apresai/interviewer/internal/report"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "interviewer",
	Short: "Interview a synthetic consumer persona about your product",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd, args)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("interviewer %s\n", Version)
	},
}

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run a guided research interview in the terminal",
	RunE:  runInteractive,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a fully automated research session and write a report",
	RunE:  runUnattended,
}

var exportCmd = &cobra.Command{
	Use:   "export <session.json> <report.md>",
	Short: "Re-render a saved session as a markdown report",
	Args:  cobra.ExactArgs(2),
	RunE:  runExport,
}

var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "List the supported persona/moderator models",
	Run: func(cmd *cobra.Command, args []string) {
		for _, m := range backend.ModelNames() {
			fmt.Println(m)
		}
	},
}

var (
	flagIndustry   string
	flagAudience   string
	flagObjectives string
	flagMandatory  []string
	flagMaterials  []string
	flagModel      string
	flagOutput     string
	flagMaxTurns   int
	flagVerbose    bool
)

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(interviewCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(listModelsCmd)

	for _, cmd := range []*cobra.Command{interviewCmd, runCmd, rootCmd} {
		cmd.Flags().StringVarP(&flagIndustry, "industry", "i", "", "Industry or product category to research")
		cmd.Flags().StringVarP(&flagAudience, "audience", "a", "", "Target audience description")
		cmd.Flags().StringVarP(&flagModel, "model", "m", "haiku", "Model: haiku, sonnet, nova-lite, gemini-flash, gemini-pro")
		cmd.Flags().StringArrayVarP(&flagMaterials, "material", "M", nil, "Reference material (text file, PDF, or URL); repeatable")
		cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	}
	runCmd.Flags().StringVarP(&flagObjectives, "objectives", "O", "", "Research objectives for guide generation")
	runCmd.Flags().StringArrayVarP(&flagMandatory, "question", "q", nil, "Question that must appear in the guide; repeatable")
	runCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Report output path (.md)")
	runCmd.Flags().IntVarP(&flagMaxTurns, "max-turns", "t", pipeline.DefaultMaxTurns, "Maximum automated interview turns")
}

func Execute() error {
	return rootCmd.Execute()
}

func validateCommon() error {
	if !backend.IsValidModel(flagModel) {
		return fmt.Errorf("invalid model %q: must be one of %s", flagModel, strings.Join(backend.ModelNames(), ", "))
	}
	return checkAPIKeys(flagModel)
}

func checkAPIKeys(model string) error {
	switch model {
	case "haiku", "sonnet":
		if os.Getenv("ANTHROPIC_API_KEY") == "" {
			return fmt.Errorf("missing required environment variable ANTHROPIC_API_KEY")
		}
	case "gemini-flash", "gemini-pro":
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("missing required environment variable GEMINI_API_KEY")
		}
	case "nova-lite":
		// Uses the AWS default credential chain; failures surface on first call.
	}
	return nil
}

func runUnattended(cmd *cobra.Command, args []string) error {
	if err := validateCommon(); err != nil {
		return err
	}
	if flagIndustry == "" || flagAudience == "" {
		return fmt.Errorf("--industry (-i) and --audience (-a) are required")
	}

	logger := observability.NewLogger(os.Stderr, flagVerbose)

	if observability.TracingEnabled() {
		tp, err := observability.InitTracer(cmd.Context(), "interviewer", Version)
		if err != nil {
			return fmt.Errorf("initializing tracing: %w", err)
		}
		defer tp.Shutdown(cmd.Context())
	}

	opts := pipeline.Options{
		Industry:   flagIndustry,
		Audience:   flagAudience,
		Objectives: flagObjectives,
		Mandatory:  flagMandatory,
		Materials:  flagMaterials,
		Model:      flagModel,
		MaxTurns:   flagMaxTurns,
		Output:     flagOutput,
		Logger:     logger,
	}

	if !flagVerbose {
		r := progress.NewBarRenderer(os.Stdout)
		defer r.Finish()
		opts.OnProgress = r.Handle
	}

	return pipeline.Run(cmd.Context(), opts)
}

func runExport(cmd *cobra.Command, args []string) error {
	sess, err := report.LoadJSON(args[0])
	if err != nil {
		return err
	}
	if err := report.SaveMarkdown(sess, args[1]); err != nil {
		return err
	}
	fmt.Printf("Report written to %s\n", args[1])
	return nil
}
