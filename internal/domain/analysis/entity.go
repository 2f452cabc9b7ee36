package analysis

import (
	"time"

	"github.com/ideaforge-app/ideaforge-api/internal/domain/keys"
)

// RecordID identifier type
type RecordID string

// Record is one persisted idea analysis. Records are created after a
// successful generation, listed newest-first per key, and deleted only after
// an ownership check. Never updated in place.
type Record struct {
	ID        RecordID   `json:"id"`
	KeyID     keys.KeyID `json:"keyId"`
	Idea      string     `json:"idea"`
	Data      *Data      `json:"data"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Data is the normalized, display-ready analysis shape. Every array is
// non-nil and every score sits in 0..100 so the UI can render unconditionally.
type Data struct {
	Identity             Identity       `json:"identity"`
	Monetization         []Monetization `json:"monetization"`
	Visuals              Visuals        `json:"visuals"`
	Blueprint            Blueprint      `json:"blueprint"`
	DistributionChannels []Channel      `json:"distributionChannels"`
	Validation           Validation     `json:"validation"`
	Sources              Sources        `json:"sources"`
	CustomerSegments     []Segment      `json:"customerSegments"`
	PromptChain          []PromptStep   `json:"promptChain"`
}

// Identity holds naming and branding suggestions.
type Identity struct {
	Name            string   `json:"name"`
	Tagline         string   `json:"tagline"`
	Colors          []string `json:"colors"`
	Domains         []string `json:"domains"`
	DomainAvailable bool     `json:"domainAvailable"`
}

// Monetization describes one revenue model with comparable companies.
type Monetization struct {
	Model      string   `json:"model"`
	Pricing    string   `json:"pricing"`
	Strategies []string `json:"strategies"`
	Examples   []string `json:"examples"`
}

// Visuals describes the proposed product interface. Screens is always the
// fixed three-entry placeholder, never model output.
type Visuals struct {
	Interface string   `json:"interface"`
	Screens   []Screen `json:"screens"`
}

type Screen struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Blueprint holds the build plan. Complexity is a derived label, not a score.
type Blueprint struct {
	TechStack  []string `json:"techStack"`
	Complexity string   `json:"complexity"`
	Timeline   string   `json:"timeline"`
}

// Channel is one distribution channel with a member-count indicator.
type Channel struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Members string `json:"members"`
}

// Validation carries the market evidence for the idea.
type Validation struct {
	TAM             Metric          `json:"tam"`
	SAM             Metric          `json:"sam"`
	SOM             Metric          `json:"som"`
	AIInsight       string          `json:"aiInsight"`
	CompetitorCount int             `json:"competitorCount"`
	Competitors     []Competitor    `json:"competitors"`
	Risks           []Risk          `json:"risks"`
	SearchVolume    []KeywordSeries `json:"searchVolume"`
	MarketGap       MarketGap       `json:"marketGap"`
	Scores          Scores          `json:"scores"`
}

type Metric struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Competitor positions a rival on the 0..100 perceptual map.
type Competitor struct {
	Name     string  `json:"name"`
	USP      string  `json:"usp"`
	Weakness string  `json:"weakness"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

type Risk struct {
	Risk           string `json:"risk"`
	Mitigation     string `json:"mitigation"`
	ProductFeature string `json:"productFeature"`
}

// KeywordSeries is a search-volume time series for one keyword.
type KeywordSeries struct {
	Keyword string        `json:"keyword"`
	Data    []VolumePoint `json:"data"`
}

type VolumePoint struct {
	Name  string  `json:"name"`
	Users float64 `json:"users"`
}

// MarketGap describes the open position on a two-axis market map.
type MarketGap struct {
	XAxis        Axis   `json:"xAxis"`
	YAxis        Axis   `json:"yAxis"`
	YourPosition Point  `json:"yourPosition"`
	YourGap      string `json:"yourGap"`
}

type Axis struct {
	Label string `json:"label"`
	Low   string `json:"low"`
	High  string `json:"high"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Scores are 0..100 ratings for the idea.
type Scores struct {
	Viability   float64 `json:"viability"`
	Scalability float64 `json:"scalability"`
	Complexity  float64 `json:"complexity"`
}

// Sources holds the raw grounding citations plus the two derived buckets.
type Sources struct {
	Citations   []Citation  `json:"citations"`
	Queries     []string    `json:"queries"`
	Market      []SourceRef `json:"market"`
	Competitors []SourceRef `json:"competitors"`
}

// Citation is one grounding reference as reported by the generation endpoint.
type Citation struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

type SourceRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Segment struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PromptStep is one ordered build-prompt in the suggested prompt chain.
type PromptStep struct {
	Step   int    `json:"step"`
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}
