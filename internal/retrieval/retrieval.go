// Package retrieval turns a logical news query into a scored, filtered source
// collection by issuing one site-restricted search per trusted domain.
package retrieval

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"advisorbrief/internal/core"
	"advisorbrief/internal/logger"
	"advisorbrief/internal/metrics"
	"advisorbrief/internal/relevance"
	"advisorbrief/internal/search"
)

// Stage names owned by this package.
const (
	StageMacro    = "retrieve_macro_news"
	StageIndustry = "retrieve_industry_news"
	StageHoldings = "retrieve_holdings_news"
)

// Topic identifies a retrieval topic.
type Topic string

const (
	TopicMacro    Topic = "macro"
	TopicIndustry Topic = "industry"
	TopicHoldings Topic = "holdings"
)

// TopicSettings configures one topic. Query may reference {company}, {industry}
// and {holding}.
type TopicSettings struct {
	Query             string
	MaxResultsPerSite int
	WindowFallback    time.Duration
	Recency           time.Duration
	Keywords          []string
}

// Settings configures a Retriever.
type Settings struct {
	Sites            []string
	Language         string
	Macro            TopicSettings
	Industry         TopicSettings
	Holdings         TopicSettings
	ParallelHoldings bool
	// MaxConcurrency bounds per-holding fan-out; zero means one goroutine per holding.
	MaxConcurrency int
}

// Retriever runs the per-site search, aggregate, dedupe, score and filter procedure.
type Retriever struct {
	provider search.Provider
	settings Settings
}

// New creates a Retriever over provider.
func New(provider search.Provider, settings Settings) *Retriever {
	return &Retriever{provider: provider, settings: settings}
}

func (r *Retriever) topic(t Topic) TopicSettings {
	switch t {
	case TopicMacro:
		return r.settings.Macro
	case TopicIndustry:
		return r.settings.Industry
	default:
		return r.settings.Holdings
	}
}

// Policy builds the relevance policy for a topic from the meeting window.
func (r *Retriever) Policy(t Topic, meeting time.Time, lastMeeting *time.Time) relevance.Policy {
	ts := r.topic(t)
	return relevance.NewPolicy(r.settings.Sites, ts.Keywords, meeting, lastMeeting, ts.WindowFallback, ts.Recency)
}

// Collect issues one query per trusted site in allow-list order, aggregates the results
// in that order and returns the retained items. Any search failure is fatal.
func (r *Retriever) Collect(ctx context.Context, t Topic, query string, policy relevance.Policy) ([]core.SourceItem, error) {
	ts := r.topic(t)
	cfg := search.Config{
		MaxResults: ts.MaxResultsPerSite,
		SinceTime:  policy.Lookback(),
		Language:   r.settings.Language,
	}

	var aggregated []core.SourceItem
	for _, site := range r.settings.Sites {
		results, err := r.provider.Search(ctx, search.SiteQuery(site, query), cfg)
		metrics.RecordExternal("search", err)
		if err != nil {
			return nil, core.External("search", r.provider.GetName()+" "+site, err)
		}
		for _, res := range results {
			aggregated = append(aggregated, core.SourceItem{
				Title:   res.Title,
				Snippet: res.Snippet,
				Date:    res.Date,
				Link:    res.URL,
			})
		}
	}

	kept := relevance.Process(aggregated, policy)
	for _, item := range kept {
		metrics.RetainedItems.WithLabelValues(string(t), string(item.RetainedBy)).Inc()
	}
	logger.Debug("retrieval finished", "topic", t, "query", query, "aggregated", len(aggregated), "retained", len(kept))
	return kept, nil
}

// CollectTopic expands the topic query with values and collects it for a meeting
// outside of a pipeline run.
func (r *Retriever) CollectTopic(ctx context.Context, t Topic, values map[string]string, meeting time.Time, lastMeeting *time.Time) ([]core.SourceItem, error) {
	query := expand(r.topic(t).Query, values)
	return r.Collect(ctx, t, query, r.Policy(t, meeting, lastMeeting))
}

// RetrieveMacro populates MacroNews.
func (r *Retriever) RetrieveMacro(ctx context.Context, state core.BriefingState) (core.BriefingState, error) {
	last, err := lastMeeting(StageMacro, state)
	if err != nil {
		return state, err
	}
	items, err := r.Collect(ctx, TopicMacro, r.settings.Macro.Query, r.Policy(TopicMacro, state.MeetingTime, last))
	if err != nil {
		return state, err
	}
	state.MacroNews = &core.SourceCollection{Topic: string(TopicMacro), Items: items}
	return state, nil
}

// RetrieveIndustry populates IndustryNews from the client's company and industry.
func (r *Retriever) RetrieveIndustry(ctx context.Context, state core.BriefingState) (core.BriefingState, error) {
	if state.Client == nil {
		return state, core.Missing(StageIndustry, core.FieldClient)
	}
	last, err := lastMeeting(StageIndustry, state)
	if err != nil {
		return state, err
	}
	query := expand(r.settings.Industry.Query, map[string]string{
		"company":  state.Client.Company,
		"industry": state.Client.Industry,
	})
	items, err := r.Collect(ctx, TopicIndustry, query, r.Policy(TopicIndustry, state.MeetingTime, last))
	if err != nil {
		return state, err
	}
	state.IndustryNews = &core.SourceCollection{Topic: string(TopicIndustry), Items: items}
	return state, nil
}

// RetrieveHoldings runs the full procedure independently for every holding. Results keep
// the order of the client's holdings whether or not holdings are fetched concurrently.
func (r *Retriever) RetrieveHoldings(ctx context.Context, state core.BriefingState) (core.BriefingState, error) {
	if state.Client == nil {
		return state, core.Missing(StageHoldings, core.FieldClient)
	}
	last, err := lastMeeting(StageHoldings, state)
	if err != nil {
		return state, err
	}
	policy := r.Policy(TopicHoldings, state.MeetingTime, last)
	holdings := state.Client.Holdings
	news := make([]core.HoldingNews, len(holdings))

	fetch := func(ctx context.Context, i int) error {
		query := expand(r.settings.Holdings.Query, map[string]string{"holding": holdings[i]})
		items, err := r.Collect(ctx, TopicHoldings, query, policy)
		if err != nil {
			return err
		}
		news[i] = core.NewHoldingNews(holdings[i], items)
		return nil
	}

	if r.settings.ParallelHoldings {
		g, gctx := errgroup.WithContext(ctx)
		if r.settings.MaxConcurrency > 0 {
			g.SetLimit(r.settings.MaxConcurrency)
		}
		for i := range holdings {
			g.Go(func() error { return fetch(gctx, i) })
		}
		if err := g.Wait(); err != nil {
			return state, err
		}
	} else {
		for i := range holdings {
			if err := fetch(ctx, i); err != nil {
				return state, err
			}
		}
	}

	state.HoldingsNews = &core.HoldingsCollection{Holdings: news}
	return state, nil
}

// lastMeeting requires the correspondence stage to have run; a nil timestamp inside it
// selects the topic's fallback window.
func lastMeeting(stage string, state core.BriefingState) (*time.Time, error) {
	if state.Correspondence == nil {
		return nil, core.Missing(stage, core.FieldCorrespondence)
	}
	return state.Correspondence.LastMeeting, nil
}

func expand(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
