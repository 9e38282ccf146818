package summarize

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"advisorbrief/internal/core"
	"advisorbrief/internal/llm"
	"advisorbrief/internal/logger"
	"advisorbrief/internal/preferences"
)

// Assembler writes the preference-driven sections of a briefing.
type Assembler struct {
	llm      llm.Completer
	registry *Registry
	prefs    preferences.Provider
}

// NewAssembler creates an Assembler; a nil registry uses DefaultRegistry.
func NewAssembler(completer llm.Completer, registry *Registry, prefs preferences.Provider) *Assembler {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Assembler{llm: completer, registry: registry, prefs: prefs}
}

// AssembleSections looks up the requesting user's detail levels and produces one section
// per topic. A topic at level none is an empty string and costs no model call.
func (a *Assembler) AssembleSections(ctx context.Context, state core.BriefingState) (core.BriefingState, error) {
	if state.UserEmail == "" {
		return state, core.Missing(StageAssembleSections, core.FieldUserEmail)
	}
	prefs, err := a.prefs.Lookup(ctx, state.UserEmail)
	if err != nil {
		return state, fmt.Errorf("look up preferences for %s: %w", state.UserEmail, err)
	}

	var sections core.Sections
	targets := map[core.Topic]*string{
		core.TopicFinance:        &sections.FinanceHoldings,
		core.TopicClientNews:     &sections.ClientNews,
		core.TopicCommunications: &sections.Communications,
	}
	for _, topic := range core.Topics {
		text, err := a.Section(ctx, state, topic, prefs.Level(topic))
		if err != nil {
			return state, err
		}
		*targets[topic] = text
	}

	state.Preferences = &prefs
	state.Sections = &sections
	logger.Info("sections assembled", "run_id", state.RunID,
		"finance", prefs.Finance, "client_news", prefs.ClientNews, "communications", prefs.Communications)
	return state, nil
}

// Section renders and completes the template for one topic.
func (a *Assembler) Section(ctx context.Context, state core.BriefingState, topic core.Topic, level core.DetailLevel) (string, error) {
	if level == core.DetailNone || level == "" {
		return "", nil
	}
	tmpl, ok := a.registry.Lookup(topic, level)
	if !ok {
		return "", fmt.Errorf("no %s template for %s: %w", level, topic, core.ErrInvalidDetailLevel)
	}
	prompt, err := tmpl.Render(state)
	if err != nil {
		return "", err
	}
	out, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if level == core.DetailShort {
		out = NormalizeBullets(out)
	}
	return out, nil
}

var bulletPattern = regexp.MustCompile(`(?m)^[ \t]*(?:[•*▪‣–-]|\d{1,2}[.)])[ \t]+`)

// NormalizeBullets rewrites bullet and numbered list markers at the start of a line to "- ".
func NormalizeBullets(text string) string {
	return bulletPattern.ReplaceAllString(text, "- ")
}
