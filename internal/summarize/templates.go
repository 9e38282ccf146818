package summarize

import (
	"fmt"
	"sort"
	"strings"
	"text/template"

	"advisorbrief/internal/core"
)

// resolver reads one template field from the state. stateField names the state field
// reported when the value is unavailable.
type resolver struct {
	stateField string
	value      func(core.BriefingState) (string, bool)
}

var resolvers = map[string]resolver{
	"ClientName": {core.FieldClientName, func(s core.BriefingState) (string, bool) {
		return s.ClientName, s.ClientName != ""
	}},
	"MeetingDescription": {core.FieldMeetingDescription, func(s core.BriefingState) (string, bool) {
		return s.MeetingDescription, s.MeetingDescription != ""
	}},
	"Company": {core.FieldClient, func(s core.BriefingState) (string, bool) {
		if s.Client == nil {
			return "", false
		}
		return s.Client.Company, true
	}},
	"Holdings": {core.FieldClient, func(s core.BriefingState) (string, bool) {
		if s.Client == nil {
			return "", false
		}
		return strings.Join(s.Client.Holdings, ", "), true
	}},
	"NewsFocus": {core.FieldMeeting, func(s core.BriefingState) (string, bool) {
		if s.Meeting == nil {
			return "", false
		}
		return s.Meeting.NewsFocus, true
	}},
	"MeetingCategory": {core.FieldMeeting, func(s core.BriefingState) (string, bool) {
		if s.Meeting == nil {
			return "", false
		}
		return s.Meeting.Category, true
	}},
	"FinanceDigest": {core.FieldFinanceDigest, func(s core.BriefingState) (string, bool) {
		return deref(s.FinanceDigest)
	}},
	"IndustryNews": {core.FieldIndustryNews, func(s core.BriefingState) (string, bool) {
		if s.IndustryNews == nil {
			return "", false
		}
		return formatItems(s.IndustryNews.Items), true
	}},
	"EmailSummary": {core.FieldEmailSummary, func(s core.BriefingState) (string, bool) {
		return deref(s.EmailSummary)
	}},
	"RecentEmailSummary": {core.FieldRecentEmailSummary, func(s core.BriefingState) (string, bool) {
		return deref(s.RecentEmailSummary)
	}},
	"ClientQuestions": {core.FieldClientQuestions, func(s core.BriefingState) (string, bool) {
		return deref(s.ClientQuestions)
	}},
}

func deref(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	return *p, true
}

// Template is the prompt of one (topic, detail level) pair. It is rendered against the
// declared fields only.
type Template struct {
	Topic  core.Topic
	Level  core.DetailLevel
	Fields []string
	tmpl   *template.Template
}

// Render formats the template. A declared field that no earlier stage populated yields
// a MissingFieldError.
func (t *Template) Render(state core.BriefingState) (string, error) {
	data := make(map[string]string, len(t.Fields))
	for _, name := range t.Fields {
		r := resolvers[name]
		v, ok := r.value(state)
		if !ok {
			return "", core.Missing(StageAssembleSections, r.stateField)
		}
		data[name] = v
	}

	var b strings.Builder
	if err := t.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s/%s template: %w", t.Topic, t.Level, err)
	}
	return b.String(), nil
}

type templateKey struct {
	topic core.Topic
	level core.DetailLevel
}

// Registry maps (topic, detail level) to the template that produces the section.
// Level none never has a template.
type Registry struct {
	templates map[templateKey]*Template
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{templates: make(map[templateKey]*Template)}
}

// Register parses body and stores it for (topic, level). Fields must name known state
// fields, and the body may reference no others.
func (r *Registry) Register(topic core.Topic, level core.DetailLevel, fields []string, body string) error {
	if level == core.DetailNone {
		return fmt.Errorf("no template can be registered for detail level %q", level)
	}
	for _, f := range fields {
		if _, ok := resolvers[f]; !ok {
			return fmt.Errorf("template %s/%s declares unknown field %q", topic, level, f)
		}
	}
	tmpl, err := template.New(string(topic) + "/" + string(level)).Option("missingkey=error").Parse(body)
	if err != nil {
		return fmt.Errorf("parse %s/%s template: %w", topic, level, err)
	}
	r.templates[templateKey{topic, level}] = &Template{
		Topic:  topic,
		Level:  level,
		Fields: append([]string(nil), fields...),
		tmpl:   tmpl,
	}
	return nil
}

// Lookup returns the template for (topic, level).
func (r *Registry) Lookup(topic core.Topic, level core.DetailLevel) (*Template, bool) {
	t, ok := r.templates[templateKey{topic, level}]
	return t, ok
}

// Fields lists every field name a template may declare.
func Fields() []string {
	names := make([]string, 0, len(resolvers))
	for name := range resolvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns the built-in section templates.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, d := range defaultTemplates {
		if err := r.Register(d.topic, d.level, d.fields, d.body); err != nil {
			panic(err)
		}
	}
	return r
}

var defaultTemplates = []struct {
	topic  core.Topic
	level  core.DetailLevel
	fields []string
	body   string
}{
	{
		topic:  core.TopicFinance,
		level:  core.DetailFull,
		fields: []string{"ClientName", "Company", "MeetingDescription", "NewsFocus", "Holdings", "FinanceDigest"},
		body: `You are a skilled financial advisor preparing for an upcoming meeting with {{.ClientName}}, who works at {{.Company}}.
The meeting will focus on: {{.MeetingDescription}}.
Your job is to write a report section about the client's financial holdings. When available in the context, highlight information on {{.NewsFocus}}.

Use the financial summary to write paragraphs covering:
- Performance of {{.Holdings}}, which are the client's holdings
- General market trends
- Macroeconomic developments that affect the holdings

Important Instructions:
1. DO NOT use any section headings or titles
2. DO NOT return a multi-section report
3. DO NOT comment on the availability of news in the context

Inputs:
Client Holdings: {{.Holdings}}
Financial summary: {{.FinanceDigest}}
`,
	},
	{
		topic:  core.TopicFinance,
		level:  core.DetailShort,
		fields: []string{"ClientName", "Company", "MeetingDescription", "NewsFocus", "Holdings", "FinanceDigest"},
		body: `You are a skilled financial advisor preparing for an upcoming meeting with {{.ClientName}}, who works at {{.Company}}.
The meeting will focus on: {{.MeetingDescription}}.
Your job is to write a report section about the client's financial holdings. When available in the context, highlight information on {{.NewsFocus}}.

Use the financial summary to write a bullet point list of relevant financial data, including:
- Performance of {{.Holdings}}, which are the client's holdings
- General market trends

Important Instructions:
1. DO NOT use any section headings or titles
2. DO NOT return a multi-section report
3. Return a single flat list of 3-4 bullet points total
4. Each bullet point should begin with a - symbol
5. DO NOT number your points
6. DO NOT comment on the availability of news in the context

Inputs:
Client Holdings: {{.Holdings}}
Financial summary: {{.FinanceDigest}}
`,
	},
	{
		topic:  core.TopicClientNews,
		level:  core.DetailFull,
		fields: []string{"ClientName", "Company", "MeetingDescription", "NewsFocus", "IndustryNews"},
		body: `You are a skilled financial advisor preparing for an upcoming meeting with {{.ClientName}}, who works at {{.Company}}.
Your job is to write a report section that summarizes recent news about {{.Company}}. The meeting will focus on: {{.MeetingDescription}}.
When available in the context, highlight information on {{.NewsFocus}}.

Use the client news below to write a paragraph summarizing relevant news, including:
- News about {{.Company}}
- Industry trends

If there is no relevant news, then write nothing. DO NOT comment on the availability of news in the context. Write about 5-7 sentences.

Client News:
{{.IndustryNews}}`,
	},
	{
		topic:  core.TopicClientNews,
		level:  core.DetailShort,
		fields: []string{"ClientName", "Company", "MeetingDescription", "IndustryNews"},
		body: `You are a skilled financial advisor preparing for an upcoming meeting with {{.ClientName}}, who works at {{.Company}}.
The meeting will focus on: {{.MeetingDescription}}.

Write a bullet point list of the most important recent news about {{.Company}} and its industry.

Important Instructions:
1. DO NOT use any section headings or titles
2. Return a single flat list of 2-3 bullet points total
3. Each bullet point should begin with a - symbol
4. If there is no relevant news, then write nothing

Client News:
{{.IndustryNews}}`,
	},
	{
		topic:  core.TopicCommunications,
		level:  core.DetailFull,
		fields: []string{"ClientName", "Company", "MeetingDescription", "MeetingCategory", "RecentEmailSummary", "EmailSummary", "ClientQuestions"},
		body: `You are a skilled financial advisor preparing for an upcoming meeting with {{.ClientName}}, who works at {{.Company}}. The meeting will focus on the following topic: {{.MeetingDescription}}.

Write a concise paragraph summarizing earlier correspondence. Include only relevant content and exclude any discussion about scheduling, availability, or meeting logistics.
When possible, focus on communications about {{.MeetingCategory}}. Pay particular attention to the recent email summary, and mention any open client questions.

Inputs:
Recent email summary: {{.RecentEmailSummary}}
Past email summary: {{.EmailSummary}}
Client questions: {{.ClientQuestions}}
`,
	},
	{
		topic:  core.TopicCommunications,
		level:  core.DetailShort,
		fields: []string{"ClientName", "Company", "MeetingDescription", "MeetingCategory", "RecentEmailSummary"},
		body: `You are a skilled financial advisor preparing for an upcoming meeting with {{.ClientName}}, who works at {{.Company}}. The meeting will focus on: {{.MeetingDescription}}.

Write a bullet point list of key discussion topics from recent client emails. When possible, focus on communications about {{.MeetingCategory}}.

Important Instructions:
1. DO NOT use any section headings or titles
2. DO NOT return a multi-section report
3. ONLY return a single flat list of 2-3 bullet points total
4. Each bullet point should begin with a - symbol
5. DO NOT number your points
6. Keep each bullet to 1-2 sentences maximum

Inputs:
Recent email summary: {{.RecentEmailSummary}}
`,
	},
}
