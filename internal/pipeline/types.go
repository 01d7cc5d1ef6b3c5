package pipeline

import (
	"time"

	"github.com/MeKo-Tech/bubbletrans/internal/arbiter"
	"github.com/MeKo-Tech/bubbletrans/internal/engine"
	"github.com/MeKo-Tech/bubbletrans/internal/utils"
)

// State is a processing stage of a page or a region.
type State string

// Page states run Detecting -> Regions -> Assembling -> Done, or end in
// Failed when detection fails. Regions move through the per-region states.
const (
	StateDetecting     State = "detecting"
	StateRegions       State = "regions"
	StatePreprocessing State = "preprocessing"
	StateRecognizing   State = "recognizing"
	StateArbitrating   State = "arbitrating"
	StateTranslating   State = "translating"
	StateAssembling    State = "assembling"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// Status is the final outcome of one region.
type Status string

const (
	StatusTranslated        Status = "translated"
	StatusNoText            Status = "no_text"
	StatusTranslationFailed Status = "translation_failed"
	StatusPreprocessFailed  Status = "preprocess_failed"
	StatusCancelled         Status = "cancelled"
	// StatusSkipped means text was recognized but no translator is configured.
	StatusSkipped Status = "skipped"
)

// RegionResult is the outcome for one detected bubble. Index is the
// detector's stable index; ReadingIndex is the position in reading order.
type RegionResult struct {
	Index               int                `json:"index"`
	ReadingIndex        int                `json:"reading_index"`
	Box                 utils.Box          `json:"box"`
	DetectionConfidence float64            `json:"detection_confidence"`
	Text                string             `json:"text"`
	Language            string             `json:"language,omitempty"`
	Confidence          float64            `json:"confidence"`
	Engine              string             `json:"engine,omitempty"`
	Tier                arbiter.Tier       `json:"tier,omitempty"`
	Translation         string             `json:"translation,omitempty"`
	Status              Status             `json:"status"`
	Error               string             `json:"error,omitempty"`
	Candidates          []engine.Candidate `json:"candidates,omitempty"`
}

// HasText reports whether a transcription was chosen for the region.
func (r RegionResult) HasText() bool { return r.Text != "" }

// Summary aggregates region outcomes.
type Summary struct {
	TotalRegions      int            `json:"total_regions"`
	RegionsWithText   int            `json:"regions_with_text"`
	TranslatedRegions int            `json:"translated_regions"`
	FailedRegions     int            `json:"failed_regions"`
	OCRSuccessRate    float64        `json:"ocr_success_rate"`
	TranslationRate   float64        `json:"translation_success_rate"`
	ProcessingTime    time.Duration  `json:"-"`
	ProcessingTimeMs  int64          `json:"processing_time_ms"`
	EngineWins        map[string]int `json:"engine_wins,omitempty"`
}

// ProcessedPage is the terminal artifact for one page. It is not modified
// after Process returns.
type ProcessedPage struct {
	PageID     string         `json:"page_id"`
	Source     string         `json:"source,omitempty"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	SourceLang string         `json:"source_lang"`
	TargetLang string         `json:"target_lang"`
	State      State          `json:"state"`
	Error      string         `json:"error,omitempty"`
	Regions    []RegionResult `json:"regions"`
	Summary    Summary        `json:"summary"`
}

// Summarize computes the summary of regions.
func Summarize(regions []RegionResult, elapsed time.Duration) Summary {
	s := Summary{
		TotalRegions:     len(regions),
		ProcessingTime:   elapsed,
		ProcessingTimeMs: elapsed.Milliseconds(),
	}
	attempted := 0
	for _, r := range regions {
		if r.HasText() {
			s.RegionsWithText++
			if s.EngineWins == nil {
				s.EngineWins = map[string]int{}
			}
			s.EngineWins[r.Engine]++
		}
		switch r.Status {
		case StatusTranslated:
			s.TranslatedRegions++
			attempted++
		case StatusTranslationFailed:
			s.FailedRegions++
			attempted++
		case StatusPreprocessFailed:
			s.FailedRegions++
		}
	}
	if s.TotalRegions > 0 {
		s.OCRSuccessRate = float64(s.RegionsWithText) / float64(s.TotalRegions)
	}
	if attempted > 0 {
		s.TranslationRate = float64(s.TranslatedRegions) / float64(attempted)
	}
	return s
}
