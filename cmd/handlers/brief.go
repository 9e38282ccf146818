package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"advisorbrief/internal/citations"
	"advisorbrief/internal/config"
	"advisorbrief/internal/core"
	"advisorbrief/internal/logger"
	"advisorbrief/internal/pipeline"
	"advisorbrief/internal/render"
)

// Request identifies the meeting to brief.
type Request struct {
	ClientName         string `yaml:"client_name" json:"client_name"`
	ClientEmail        string `yaml:"client_email" json:"client_email"`
	MeetingTimestamp   string `yaml:"meeting_timestamp" json:"meeting_timestamp"`
	MeetingDescription string `yaml:"meeting_description" json:"meeting_description"`
	UserEmail          string `yaml:"user_email" json:"user_email"`
}

// overlay copies the non-empty fields of o onto r.
func (r Request) overlay(o Request) Request {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&r.ClientName, o.ClientName)
	set(&r.ClientEmail, o.ClientEmail)
	set(&r.MeetingTimestamp, o.MeetingTimestamp)
	set(&r.MeetingDescription, o.MeetingDescription)
	set(&r.UserEmail, o.UserEmail)
	return r
}

// State builds the pipeline entry state.
func (r Request) State() (core.BriefingState, error) {
	return core.NewBriefingState(r.ClientName, r.ClientEmail, r.MeetingTimestamp, r.MeetingDescription, r.UserEmail)
}

func loadRequest(path string) (Request, error) {
	var req Request
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("failed to read request: %w", err)
	}
	if err := yaml.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("failed to parse request %s: %w", path, err)
	}
	return req, nil
}

// Briefing is the command output.
type Briefing struct {
	RunID      string                   `json:"run_id" yaml:"run_id"`
	Client     *core.ClientProfile      `json:"client,omitempty" yaml:"client,omitempty"`
	Meeting    *core.MeetingFocus       `json:"meeting,omitempty" yaml:"meeting,omitempty"`
	Sections   *core.Sections           `json:"sections,omitempty" yaml:"sections,omitempty"`
	Sourced    *core.SourcedSections    `json:"sourced,omitempty" yaml:"sourced,omitempty"`
	References []citations.Reference    `json:"references,omitempty" yaml:"references,omitempty"`
	Indicators []core.IndicatorSnapshot `json:"macro_indicators,omitempty" yaml:"macro_indicators,omitempty"`
	Stages     []pipeline.StageTiming   `json:"stages" yaml:"stages"`
	State      *core.BriefingState      `json:"state,omitempty" yaml:"state,omitempty"`
}

func newBriefing(res *pipeline.Result, full bool) Briefing {
	s := res.State
	b := Briefing{
		RunID:      res.RunID,
		Client:     s.Client,
		Meeting:    s.Meeting,
		Sections:   s.Sections,
		Sourced:    s.Sourced,
		Indicators: s.MacroIndicators,
		Stages:     res.Stages,
	}
	if s.Sourced != nil {
		b.References = citations.References(s.Sourced.FinanceHoldings + "\n" + s.Sourced.ClientNews)
	}
	if full {
		b.State = &s
	}
	return b
}

func writeOutput(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	}
	return fmt.Errorf("unsupported output format %q (use json or yaml)", format)
}

// NewBriefCmd creates the brief command
func NewBriefCmd() *cobra.Command {
	var (
		requestFile string
		req         Request
		src         sources
		format      string
		fullState   bool
		timeout     time.Duration
		stagesOnly  bool
		outputDir   string
	)

	cmd := &cobra.Command{
		Use:   "brief",
		Short: "Generate a meeting briefing",
		Long: `Run the briefing pipeline for one meeting and print the result.

The meeting is read from --request (YAML) and any identity flag overrides the file.
The meeting timestamp uses the layout "2006-01-02 15:04:05".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if requestFile != "" {
				fromFile, err := loadRequest(requestFile)
				if err != nil {
					return err
				}
				req = fromFile.overlay(req)
			}
			return runBrief(cmd.Context(), cmd.OutOrStdout(), req, src, briefOutput{
				format:     format,
				fullState:  fullState,
				stagesOnly: stagesOnly,
				dir:        outputDir,
			}, timeout)
		},
	}

	cmd.Flags().StringVarP(&requestFile, "request", "r", "", "YAML file with the meeting request")
	cmd.Flags().StringVar(&req.ClientName, "client-name", "", "client name")
	cmd.Flags().StringVar(&req.ClientEmail, "client-email", "", "client email address")
	cmd.Flags().StringVar(&req.MeetingTimestamp, "meeting-time", "", "meeting timestamp (2006-01-02 15:04:05)")
	cmd.Flags().StringVar(&req.MeetingDescription, "description", "", "meeting description")
	cmd.Flags().StringVar(&req.UserEmail, "user-email", "", "email of the requesting advisor")
	cmd.Flags().StringVar(&src.fixture, "fixture", "", "CRM fixture YAML used instead of the database")
	cmd.Flags().BoolVar(&src.offline, "offline", false, "use placeholder model and search results")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: json, yaml or markdown (default app.output_format)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "also write the markdown briefing into this directory")
	cmd.Flags().BoolVar(&fullState, "full-state", false, "include the complete briefing state in the output")
	cmd.Flags().BoolVar(&stagesOnly, "stages", false, "print the stage plan and exit")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "overall run timeout")

	return cmd
}

// briefOutput selects what runBrief prints.
type briefOutput struct {
	format     string
	fullState  bool
	stagesOnly bool
	dir        string
}

func runBrief(ctx context.Context, out io.Writer, req Request, src sources, opts briefOutput, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cfg := config.Get()
	if opts.format == "" {
		opts.format = cfg.App.OutputFormat
	}
	stop := startMetrics(cfg)
	defer stop()

	p, release, err := buildPipeline(ctx, cfg, src)
	if err != nil {
		return err
	}
	defer release()

	if opts.stagesOnly {
		for i, name := range p.StageNames() {
			fmt.Fprintf(out, "%2d. %s\n", i+1, name)
		}
		return nil
	}

	state, err := req.State()
	if err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	res, err := p.Run(ctx, state)
	if err != nil {
		return fmt.Errorf("briefing run %s failed: %w", res.RunID, err)
	}
	return emit(out, res, opts)
}

// emit prints the run result and, with an output directory, saves the markdown file.
func emit(out io.Writer, res *pipeline.Result, opts briefOutput) error {
	if opts.dir != "" {
		path, err := render.WriteBriefing(render.Markdown(res.State), opts.dir, render.Filename(res.State))
		if err != nil {
			return err
		}
		logger.Info("briefing written", "run_id", res.RunID, "path", path)
	}

	switch strings.ToLower(opts.format) {
	case "markdown", "md":
		_, err := io.WriteString(out, render.Markdown(res.State))
		return err
	}
	return writeOutput(out, opts.format, newBriefing(res, opts.fullState))
}
