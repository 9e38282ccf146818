package pipeline

import (
	"errors"

	"advisorbrief/internal/citations"
	"advisorbrief/internal/crm"
	"advisorbrief/internal/macro"
	"advisorbrief/internal/retrieval"
	"advisorbrief/internal/summarize"
)

// RetrievalGroup names the group of the three retrieval stages.
const RetrievalGroup = "retrieve_news"

// Builder helps construct the default briefing pipeline
type Builder struct {
	loader     *crm.Loader
	summarizer *summarize.Summarizer
	retriever  *retrieval.Retriever
	indicators *macro.Collector
	assembler  *summarize.Assembler
	attributor *citations.Attributor

	parallelRetrieval bool
	categorize        bool
}

// NewBuilder creates a builder with meeting categorization enabled and sequential retrieval.
func NewBuilder() *Builder {
	return &Builder{categorize: true}
}

// WithCRM sets the SQL stages.
func (b *Builder) WithCRM(loader *crm.Loader) *Builder {
	b.loader = loader
	return b
}

// WithSummarizer sets the correspondence, categorization and digest stages.
func (b *Builder) WithSummarizer(s *summarize.Summarizer) *Builder {
	b.summarizer = s
	return b
}

// WithRetriever sets the news retrieval stages.
func (b *Builder) WithRetriever(r *retrieval.Retriever) *Builder {
	b.retriever = r
	return b
}

// WithIndicators enables the macro indicator stage.
func (b *Builder) WithIndicators(c *macro.Collector) *Builder {
	b.indicators = c
	return b
}

// WithAssembler sets the section assembly stage.
func (b *Builder) WithAssembler(a *summarize.Assembler) *Builder {
	b.assembler = a
	return b
}

// WithAttributor sets the citation stage.
func (b *Builder) WithAttributor(a *citations.Attributor) *Builder {
	b.attributor = a
	return b
}

// WithParallelRetrieval runs the three retrieval stages concurrently.
func (b *Builder) WithParallelRetrieval(enabled bool) *Builder {
	b.parallelRetrieval = enabled
	return b
}

// WithMeetingCategorization toggles the model-based meeting categorization. When off, the
// meeting focus defaults without a model call.
func (b *Builder) WithMeetingCategorization(enabled bool) *Builder {
	b.categorize = enabled
	return b
}

// Build assembles the stages in their fixed order.
func (b *Builder) Build() (*Pipeline, error) {
	switch {
	case b.loader == nil:
		return nil, errors.New("CRM loader is required")
	case b.summarizer == nil:
		return nil, errors.New("summarizer is required")
	case b.retriever == nil:
		return nil, errors.New("retriever is required")
	case b.assembler == nil:
		return nil, errors.New("section assembler is required")
	case b.attributor == nil:
		return nil, errors.New("citation attributor is required")
	}

	categorize := NewStage(summarize.StageCategorizeMeeting, summarize.DefaultMeetingFocus)
	if b.categorize {
		categorize = NewStage(summarize.StageCategorizeMeeting, b.summarizer.CategorizeMeeting)
	}

	retrievalStages := []Stage{
		NewStage(retrieval.StageMacro, b.retriever.RetrieveMacro),
		NewStage(retrieval.StageIndustry, b.retriever.RetrieveIndustry),
		NewStage(retrieval.StageHoldings, b.retriever.RetrieveHoldings),
	}

	stages := []Stage{
		NewStage(crm.StageClientMetadata, b.loader.RetrieveClientMetadata),
		NewStage(crm.StageCorrespondence, b.loader.LoadCorrespondence),
		NewStage(summarize.StagePastCorrespondence, b.summarizer.SummarizePastCorrespondence),
		NewStage(summarize.StageRecentCorrespondence, b.summarizer.SummarizeRecentCorrespondence),
		NewStage(summarize.StageClientQuestions, b.summarizer.ExtractClientQuestions),
		categorize,
	}
	if b.parallelRetrieval {
		stages = append(stages, Parallel(RetrievalGroup, retrievalStages...))
	} else {
		stages = append(stages, retrievalStages...)
	}
	if b.indicators != nil {
		stages = append(stages, NewStage(macro.StageName, b.indicators.FetchMacroIndicators))
	}
	stages = append(stages,
		NewStage(summarize.StageFinanceDigest, b.summarizer.SummarizeFinanceNews),
		NewStage(summarize.StageAssembleSections, b.assembler.AssembleSections),
		NewStage(citations.StageName, b.attributor.AttributeSections),
	)

	return New(stages...), nil
}
