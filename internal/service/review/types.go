package review

import (
	"time"

	"flight-mail-review-go/internal/model"
)

// Batch size bounds for FetchNextBatch
const (
	DefaultBatchSize = 20
	MaxBatchSize     = 100
)

// CandidateView is the card shown to the reviewer. ID is the message id.
type CandidateView struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	Sender      string    `json:"sender"`
	Date        time.Time `json:"date"`
	PreviewText string    `json:"preview_text"`
	BodyHTML    *string   `json:"body_html,omitempty"`
	Score       int       `json:"score"`
	Reasons     []string  `json:"reasons"`
	Reviewed    bool      `json:"reviewed"`
}

// NewCandidateView builds a view of c, carrying the HTML body when withBody is set
func NewCandidateView(c model.Candidate, withBody bool) CandidateView {
	reasons := c.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	view := CandidateView{
		ID:          c.MessageID,
		Subject:     c.Subject,
		Sender:      c.Sender,
		Date:        c.Date,
		PreviewText: c.PreviewText,
		Score:       c.Score,
		Reasons:     reasons,
		Reviewed:    c.Reviewed,
	}
	if withBody {
		view.BodyHTML = c.BodyHTML
	}
	return view
}

func newCandidateViews(candidates []model.Candidate, withBody bool) []CandidateView {
	views := make([]CandidateView, 0, len(candidates))
	for _, c := range candidates {
		views = append(views, NewCandidateView(c, withBody))
	}
	return views
}

// Batch is the next set of unreviewed candidates
type Batch struct {
	Candidates     []CandidateView `json:"candidates"`
	TotalRemaining int64           `json:"total_remaining"`
}

// DecisionInput is a reviewer verdict. A nil Verdict is rejected as invalid.
type DecisionInput struct {
	MessageID string
	Verdict   *bool
	Note      *string
}

// Stats aggregates review progress
type Stats struct {
	TotalCandidates   int64 `json:"total_candidates"`
	Reviewed          int64 `json:"reviewed"`
	Unreviewed        int64 `json:"unreviewed"`
	ConfirmedCount    int64 `json:"confirmed_count"`
	RejectedCount     int64 `json:"rejected_count"`
	ReviewRatePercent int   `json:"review_rate_percent"`
}

// SearchResult holds candidates matching a search query
type SearchResult struct {
	Results []CandidateView `json:"results"`
	Count   int             `json:"count"`
}

// IngestResult reports what happened to one ingestion batch.
// Candidates counts rows attempted; Inserted counts rows actually stored.
type IngestResult struct {
	Received   int `json:"received"`
	Skipped    int `json:"skipped"`
	Discarded  int `json:"discarded"`
	Candidates int `json:"candidates"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
}

// DecisionPage is one page of the decision history
type DecisionPage struct {
	Decisions []model.ReviewDecision `json:"decisions"`
	Total     int64                  `json:"total"`
	Page      int                    `json:"page"`
	Limit     int                    `json:"limit"`
}
