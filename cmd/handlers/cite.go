package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"advisorbrief/internal/citations"
	"advisorbrief/internal/config"
	"advisorbrief/internal/core"
)

// sourceFile is the on-disk form of the three source collections.
type sourceFile struct {
	Industry []core.SourceItem `yaml:"industry"`
	Holdings []core.SourceItem `yaml:"holdings"`
	Macro    []core.SourceItem `yaml:"macro"`
}

func loadSources(path string) (citations.Sources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return citations.Sources{}, fmt.Errorf("failed to read sources: %w", err)
	}
	var f sourceFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return citations.Sources{}, fmt.Errorf("failed to parse sources %s: %w", path, err)
	}
	return citations.Sources{Industry: f.Industry, Holdings: f.Holdings, Macro: f.Macro}, nil
}

// citeOutput is what the cite command prints.
type citeOutput struct {
	Text       string                `json:"text" yaml:"text"`
	Inserted   int                   `json:"inserted" yaml:"inserted"`
	Claims     []citations.Claim     `json:"claims,omitempty" yaml:"claims,omitempty"`
	References []citations.Reference `json:"references,omitempty" yaml:"references,omitempty"`
}

// NewCiteCmd creates the cite command
func NewCiteCmd() *cobra.Command {
	var (
		summaryFile string
		sourcesFile string
		format      string
	)

	cmd := &cobra.Command{
		Use:   "cite",
		Short: "Add inline citations to a summary",
		Long: `Attribute the claims of a summary to the URLs of a source file and insert
[[n]](url) markers after the supported sentences. Only URLs present in the
source file are ever cited.

The source file is YAML with optional industry, holdings and macro lists of
items (title, snippet, date, link).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCite(cmd.Context(), cmd.OutOrStdout(), summaryFile, sourcesFile, format)
		},
	}

	cmd.Flags().StringVarP(&summaryFile, "summary", "s", "", "file holding the summary text")
	cmd.Flags().StringVar(&sourcesFile, "sources", "", "YAML file holding the source collections")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: json or yaml")
	_ = cmd.MarkFlagRequired("summary")
	_ = cmd.MarkFlagRequired("sources")

	return cmd
}

func runCite(ctx context.Context, out io.Writer, summaryFile, sourcesFile, format string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Get()
	if format == "" {
		format = cfg.App.OutputFormat
	}

	summary, err := os.ReadFile(summaryFile)
	if err != nil {
		return fmt.Errorf("failed to read summary: %w", err)
	}
	srcs, err := loadSources(sourcesFile)
	if err != nil {
		return err
	}

	completer, err := newCompleter(ctx, cfg, sources{})
	if err != nil {
		return err
	}
	attributor := citations.NewAttributor(completer, citations.Options{
		MaxChunkLength:  cfg.Citations.MaxChunkLength,
		MaxURLsPerClaim: cfg.Citations.MaxURLsPerClaim,
	})

	res, err := attributor.Attribute(ctx, string(summary), srcs)
	if err != nil {
		return err
	}
	return writeOutput(out, format, citeOutput{
		Text:       res.Text,
		Inserted:   res.Inserted,
		Claims:     res.Claims,
		References: citations.References(res.Text),
	})
}
