// Package metrics computes the quantitative analysis of a parsed
// conversation: per-person volume stats, response-time distributions,
// engagement signals, temporal patterns, activity heatmaps, and monthly
// trends. All computations are deterministic: the same conversation always
// produces an identical result.
package metrics

// PersonStats holds volume and lexical statistics for one participant.
type PersonStats struct {
	MessageCount      int     `json:"messageCount"`
	WordCount         int     `json:"wordCount"`
	CharCount         int     `json:"charCount"`
	AvgMessageLength  float64 `json:"avgMessageLength"`
	AvgWordsPerMsg    float64 `json:"avgWordsPerMessage"`
	QuestionsAsked    int     `json:"questionsAsked"`
	MediaCount        int     `json:"mediaCount"`
	LinkCount         int     `json:"linkCount"`
	StickerCount      int     `json:"stickerCount"`
	MessagesPerDay    float64 `json:"messagesPerDay"`
	LongestMessage    int     `json:"longestMessage"`
}

// ResponseTimeStats is the full distribution summary of one person's
// response-time samples, in minutes. Zero-length distributions yield zeros.
type ResponseTimeStats struct {
	Count       int     `json:"count"`
	Mean        float64 `json:"mean"`
	Median      float64 `json:"median"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	TrimmedMean float64 `json:"trimmedMean"`
	StdDev      float64 `json:"stdDev"`
	Q1          float64 `json:"q1"`
	Q3          float64 `json:"q3"`
	IQR         float64 `json:"iqr"`
	P75         float64 `json:"p75"`
	P90         float64 `json:"p90"`
	P95         float64 `json:"p95"`
	Skewness    float64 `json:"skewness"`
}

// Silence is the single longest quiet window in the conversation.
type Silence struct {
	Start           int64   `json:"start"`
	End             int64   `json:"end"`
	DurationHours   float64 `json:"durationHours"`
	LastSender      string  `json:"lastSender"`
	BrokenBy        string  `json:"brokenBy"`
}

// TimingStats groups response-time and rhythm metrics.
type TimingStats struct {
	ResponseTimes  map[string]ResponseTimeStats `json:"responseTimes"`
	Initiations    map[string]int               `json:"initiations"`
	Endings        map[string]int               `json:"endings"`
	LongestSilence Silence                      `json:"longestSilence"`
	LateNight      map[string]int               `json:"lateNight"`
}

// EngagementStats groups interaction-quality metrics.
type EngagementStats struct {
	DoubleTexts       map[string]int     `json:"doubleTexts"`
	LongestStreak     map[string]int     `json:"longestStreak"`
	MessageRatio      map[string]float64 `json:"messageRatio"`
	ReactionsGiven    map[string]int     `json:"reactionsGiven"`
	ReactionsReceived map[string]int     `json:"reactionsReceived"`
	SessionCount      int                `json:"sessionCount"`
	AvgSessionLength  float64            `json:"avgSessionLength"`
}

// MonthCount is one month's message volume, keyed "2006-01".
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// Burst is an interval of unusually dense messaging.
type Burst struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
	Count int   `json:"count"`
}

// PatternStats groups temporal-pattern metrics. TrendSlope is a least-squares
// slope over monthly volume, normalized by mean volume so magnitude roughly
// indicates strength; TrendDirection applies a dead band around zero.
type PatternStats struct {
	MonthlyVolume   []MonthCount `json:"monthlyVolume"`
	WeekdayMessages int          `json:"weekdayMessages"`
	WeekendMessages int          `json:"weekendMessages"`
	TrendSlope      float64      `json:"trendSlope"`
	TrendDirection  string       `json:"trendDirection"`
	Bursts          []Burst      `json:"bursts"`
}

// HeatmapGrid is message counts by weekday (Sunday=0) and hour of day.
type HeatmapGrid [7][24]int

// HeatmapStats holds per-person and combined activity grids.
type HeatmapStats struct {
	Combined  HeatmapGrid            `json:"combined"`
	PerPerson map[string]HeatmapGrid `json:"perPerson"`
}

// TrendPoint is one month's value in a trend series.
type TrendPoint struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

// TrendStats holds monthly series consumed by percentile and trend
// computations downstream.
type TrendStats struct {
	ResponseTime    []TrendPoint            `json:"responseTime"`
	MessageLength   []TrendPoint            `json:"messageLength"`
	InitiationShare map[string][]TrendPoint `json:"initiationShare"`
}

// QuantitativeAnalysis aggregates every sub-model. Computed once per
// conversation; re-computation replaces the whole structure.
type QuantitativeAnalysis struct {
	PerPerson  map[string]PersonStats `json:"perPerson"`
	Timing     TimingStats            `json:"timing"`
	Engagement EngagementStats        `json:"engagement"`
	Patterns   PatternStats           `json:"patterns"`
	Heatmap    HeatmapStats           `json:"heatmap"`
	Trends     TrendStats             `json:"trends"`
}
