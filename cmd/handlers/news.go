package handlers

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"advisorbrief/internal/config"
	"advisorbrief/internal/core"
	"advisorbrief/internal/retrieval"
)

type newsOptions struct {
	company     string
	industry    string
	holding     string
	meetingTime string
	lastMeeting string
	offline     bool
	format      string
}

// NewNewsCmd creates the news command with one subcommand per retrieval topic
func NewNewsCmd() *cobra.Command {
	opts := &newsOptions{}

	cmd := &cobra.Command{
		Use:   "news",
		Short: "Run news retrieval for a single topic",
		Long: `Search the trusted sites for one topic and print the items that survive
deduplication, scoring and date filtering, with the tier that kept each one.

Subcommands:
  macro     - macro-economic news
  industry  - news about a company and its industry
  holdings  - news about one holding`,
	}

	cmd.PersistentFlags().StringVar(&opts.meetingTime, "meeting-time", "", "meeting timestamp (default now)")
	cmd.PersistentFlags().StringVar(&opts.lastMeeting, "last-meeting", "", "previous meeting timestamp; the topic fallback window applies when empty")
	cmd.PersistentFlags().BoolVar(&opts.offline, "offline", false, "use the mock search provider")
	cmd.PersistentFlags().StringVarP(&opts.format, "format", "f", "", "output format: json or yaml")

	macro := &cobra.Command{
		Use:   "macro",
		Short: "Macro-economic news",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNews(cmd.Context(), cmd.OutOrStdout(), retrieval.TopicMacro, nil, opts)
		},
	}

	industry := &cobra.Command{
		Use:   "industry",
		Short: "Company and industry news",
		RunE: func(cmd *cobra.Command, args []string) error {
			values := map[string]string{"company": opts.company, "industry": opts.industry}
			return runNews(cmd.Context(), cmd.OutOrStdout(), retrieval.TopicIndustry, values, opts)
		},
	}
	industry.Flags().StringVar(&opts.company, "company", "", "client company")
	industry.Flags().StringVar(&opts.industry, "industry", "", "client industry")
	_ = industry.MarkFlagRequired("company")

	holdings := &cobra.Command{
		Use:   "holdings",
		Short: "News about one holding",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNews(cmd.Context(), cmd.OutOrStdout(), retrieval.TopicHoldings, map[string]string{"holding": opts.holding}, opts)
		},
	}
	holdings.Flags().StringVar(&opts.holding, "holding", "", "holding name")
	_ = holdings.MarkFlagRequired("holding")

	cmd.AddCommand(macro, industry, holdings)
	return cmd
}

func parseMeetingTime(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	t, err := time.Parse(core.MeetingTimeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	return t, nil
}

func runNews(ctx context.Context, out io.Writer, topic retrieval.Topic, values map[string]string, opts *newsOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Get()
	format := opts.format
	if format == "" {
		format = cfg.App.OutputFormat
	}

	meeting, err := parseMeetingTime(opts.meetingTime, time.Now().UTC().Truncate(time.Second))
	if err != nil {
		return err
	}
	var last *time.Time
	if opts.lastMeeting != "" {
		t, err := parseMeetingTime(opts.lastMeeting, time.Time{})
		if err != nil {
			return err
		}
		last = &t
	}

	provider, err := newSearchProvider(cfg, sources{offline: opts.offline})
	if err != nil {
		return err
	}
	items, err := retrieval.New(provider, retrievalSettings(cfg)).CollectTopic(ctx, topic, values, meeting, last)
	if err != nil {
		return err
	}
	return writeOutput(out, format, core.SourceCollection{Topic: string(topic), Items: items})
}
