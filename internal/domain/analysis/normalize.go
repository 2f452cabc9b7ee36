package analysis

import (
	"encoding/json"
	"net/url"
	"strings"
)

// Fallback branding when the model omits colors entirely.
var fallbackColors = []string{"#6366F1", "#0F172A"}

// The screens list shown under visuals is a static placeholder regardless of
// what the model returns.
var placeholderScreens = []Screen{
	{Name: "Map", Description: "Primary discovery view"},
	{Name: "Feed", Description: "Activity and updates"},
	{Name: "Profile", Description: "Account and settings"},
}

const placeholderTimeline = "4-6 weeks to MVP"

// modelOutput is the flat schema the prompt instructs the model to emit.
// Every field is optional here; Normalize is responsible for defaults.
type modelOutput struct {
	AppName         string   `json:"appName"`
	Tagline         string   `json:"tagline"`
	Colors          []string `json:"colors"`
	Domains         []string `json:"domains"`
	DomainAvailable bool     `json:"domainAvailable"`

	Monetization []Monetization `json:"monetization"`

	Interface string   `json:"interface"`
	TechStack []string `json:"techStack"`

	DistributionChannels []Channel `json:"distributionChannels"`

	TAM       Metric `json:"tam"`
	SAM       Metric `json:"sam"`
	SOM       Metric `json:"som"`
	AIInsight string `json:"aiInsight"`

	Competitors  []Competitor    `json:"competitors"`
	Risks        []Risk          `json:"risks"`
	SearchVolume []KeywordSeries `json:"searchVolume"`
	MarketGap    MarketGap       `json:"marketGap"`
	Scores       Scores          `json:"scores"`

	CustomerSegments []Segment    `json:"customerSegments"`
	PromptChain      []PromptStep `json:"promptChain"`

	// Inline sources the model may emit itself. Only used when the
	// generation endpoint returned no grounding citations at all.
	Sources struct {
		Market      []SourceRef `json:"market"`
		Competitors []SourceRef `json:"competitors"`
	} `json:"sources"`
}

// Normalize parses raw model output and reshapes it into the nested display
// schema. It is pure: identical input always yields identical output, and it
// performs no I/O. A genuinely unparsable payload yields a *ParseError;
// merely sparse output is filled with safe defaults instead.
func Normalize(rawText string, citations []Citation, queries []string) (*Data, error) {
	text := StripFences(rawText)

	var m modelOutput
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return nil, &ParseError{Raw: rawText, Err: err}
	}

	colors := m.Colors
	if len(colors) == 0 {
		colors = append([]string(nil), fallbackColors...)
	}

	competitors := clampCompetitors(m.Competitors)

	d := &Data{
		Identity: Identity{
			Name:            m.AppName,
			Tagline:         m.Tagline,
			Colors:          colors,
			Domains:         ensure(m.Domains),
			DomainAvailable: m.DomainAvailable,
		},
		Monetization: ensureMonetization(m.Monetization),
		Visuals: Visuals{
			Interface: m.Interface,
			Screens:   append([]Screen(nil), placeholderScreens...),
		},
		Blueprint: Blueprint{
			TechStack:  ensure(m.TechStack),
			Complexity: ComplexityLabel(m.Scores.Complexity),
			Timeline:   placeholderTimeline,
		},
		DistributionChannels: ensureSlice(m.DistributionChannels),
		Validation: Validation{
			TAM:             m.TAM,
			SAM:             m.SAM,
			SOM:             m.SOM,
			AIInsight:       m.AIInsight,
			CompetitorCount: len(competitors),
			Competitors:     competitors,
			Risks:           ensureSlice(m.Risks),
			SearchVolume:    ensureSeries(m.SearchVolume),
			MarketGap:       clampGap(m.MarketGap),
			Scores: Scores{
				Viability:   clampScore(m.Scores.Viability),
				Scalability: clampScore(m.Scores.Scalability),
				Complexity:  clampScore(m.Scores.Complexity),
			},
		},
		Sources:          bucketSources(citations, queries, m),
		CustomerSegments: ensureSlice(m.CustomerSegments),
		PromptChain:      ensureSlice(m.PromptChain),
	}

	return d, nil
}

// StripFences removes incidental markdown code-fence wrapping the model adds
// despite being told not to. Content between the fences is untouched.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "```json")
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ComplexityLabel maps the numeric complexity score to a display label.
// Boundaries are exact: 70 is Medium, 40 is Low.
func ComplexityLabel(score float64) string {
	switch {
	case score > 70:
		return "High"
	case score > 40:
		return "Medium"
	default:
		return "Low"
	}
}

// bucketSources splits grounding citations at the ordered midpoint: the first
// ceil(n/2) become market sources and the remainder competitor sources. This
// is a positional heuristic, not semantic classification. Without any
// citations the model's own inline sources are used as-is.
func bucketSources(citations []Citation, queries []string, m modelOutput) Sources {
	kept := make([]Citation, 0, len(citations))
	for _, c := range citations {
		if c.URI != "" {
			kept = append(kept, c)
		}
	}

	src := Sources{
		Citations:   kept,
		Queries:     ensure(queries),
		Market:      []SourceRef{},
		Competitors: []SourceRef{},
	}

	if len(kept) == 0 {
		src.Market = ensureSlice(m.Sources.Market)
		src.Competitors = ensureSlice(m.Sources.Competitors)
		return src
	}

	mid := (len(kept) + 1) / 2
	src.Market = toRefs(kept[:mid])
	src.Competitors = toRefs(kept[mid:])
	return src
}

func toRefs(cs []Citation) []SourceRef {
	out := make([]SourceRef, 0, len(cs))
	for _, c := range cs {
		name := c.Title
		if name == "" {
			name = hostOf(c.URI)
		}
		out = append(out, SourceRef{Name: name, URL: c.URI})
	}
	return out
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clampCompetitors(in []Competitor) []Competitor {
	out := make([]Competitor, 0, len(in))
	for _, c := range in {
		c.X = clampScore(c.X)
		c.Y = clampScore(c.Y)
		out = append(out, c)
	}
	return out
}

func clampGap(g MarketGap) MarketGap {
	g.YourPosition.X = clampScore(g.YourPosition.X)
	g.YourPosition.Y = clampScore(g.YourPosition.Y)
	return g
}

func ensure(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func ensureSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func ensureMonetization(in []Monetization) []Monetization {
	out := make([]Monetization, 0, len(in))
	for _, m := range in {
		m.Strategies = ensure(m.Strategies)
		m.Examples = ensure(m.Examples)
		out = append(out, m)
	}
	return out
}

func ensureSeries(in []KeywordSeries) []KeywordSeries {
	out := make([]KeywordSeries, 0, len(in))
	for _, s := range in {
		if s.Data == nil {
			s.Data = []VolumePoint{}
		}
		out = append(out, s)
	}
	return out
}
