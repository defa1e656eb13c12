// Package judge scores generated answers against a fixed four-criterion rubric.
package judge

import "math"

const (
	// Threshold is the minimum total for a passing evaluation.
	Threshold = 32
	// MinCriterion is the highest sub-score that fails an evaluation on its own.
	MinCriterion = 3
	// FallbackScore is the sub-score used when no evaluation could be obtained.
	FallbackScore = 7

	fallbackRetry = "Please provide more specific legal citations and actionable steps."
)

// Scores holds the four rubric criteria and their sum.
type Scores struct {
	LegalAccuracy   int `json:"legal_accuracy"`
	Completeness    int `json:"completeness"`
	Actionability   int `json:"actionability"`
	CitationQuality int `json:"citation_quality"`
	Total           int `json:"total"`
}

// Feedback explains a score and tells the agent how to improve.
type Feedback struct {
	Strengths         []string `json:"strengths"`
	Weaknesses        []string `json:"weaknesses"`
	MissingTopics     []string `json:"missing_topics"`
	RetryInstructions string   `json:"retry_instructions"`
}

// Signal is a reusable lesson the judge wants folded into the domain strategy.
type Signal struct {
	Learned      string `json:"learned"`
	UpdatePrompt bool   `json:"update_prompt"`
}

// Evaluation is the judge's verdict on one answer.
type Evaluation struct {
	Scores            Scores   `json:"scores"`
	Pass              bool     `json:"pass"`
	Threshold         int      `json:"threshold"`
	Feedback          Feedback `json:"feedback"`
	ImprovementSignal *Signal  `json:"improvement_signal"`
}

// Fallback is the verdict used when the judge produced nothing usable.
func Fallback(weakness string) Evaluation {
	return Evaluation{
		Scores: Scores{
			LegalAccuracy:   FallbackScore,
			Completeness:    FallbackScore,
			Actionability:   FallbackScore,
			CitationQuality: FallbackScore,
			Total:           4 * FallbackScore,
		},
		Pass:      false,
		Threshold: Threshold,
		Feedback: Feedback{
			Strengths:         []string{},
			Weaknesses:        []string{weakness},
			MissingTopics:     []string{},
			RetryInstructions: fallbackRetry,
		},
	}
}

// Decide recomputes Total and Pass from the sub-scores.
func (e *Evaluation) Decide() {
	s := &e.Scores
	s.Total = s.LegalAccuracy + s.Completeness + s.Actionability + s.CitationQuality
	e.Threshold = Threshold
	e.Pass = s.Total >= Threshold &&
		s.LegalAccuracy > MinCriterion &&
		s.Completeness > MinCriterion &&
		s.Actionability > MinCriterion &&
		s.CitationQuality > MinCriterion
}

// RetryFeedback is the instruction passed to the agent on regeneration.
func (e *Evaluation) RetryFeedback() string {
	if e.Feedback.RetryInstructions != "" {
		return e.Feedback.RetryInstructions
	}
	if len(e.Feedback.Weaknesses) > 0 {
		out := e.Feedback.Weaknesses[0]
		for _, w := range e.Feedback.Weaknesses[1:] {
			out += ". " + w
		}
		return out
	}
	return "Please improve legal citations and actionability."
}

// rawScores accepts fractional or out-of-range scores from the model.
type rawScores struct {
	LegalAccuracy   *float64 `json:"legal_accuracy"`
	Completeness    *float64 `json:"completeness"`
	Actionability   *float64 `json:"actionability"`
	CitationQuality *float64 `json:"citation_quality"`
}

type rawEvaluation struct {
	Scores            *rawScores `json:"scores"`
	Feedback          Feedback   `json:"feedback"`
	ImprovementSignal *Signal    `json:"improvement_signal"`
}

func (r *rawEvaluation) evaluation() Evaluation {
	e := Evaluation{
		Scores: Scores{
			LegalAccuracy:   score(r.Scores.LegalAccuracy),
			Completeness:    score(r.Scores.Completeness),
			Actionability:   score(r.Scores.Actionability),
			CitationQuality: score(r.Scores.CitationQuality),
		},
		Feedback: r.Feedback,
	}
	if e.Feedback.Strengths == nil {
		e.Feedback.Strengths = []string{}
	}
	if e.Feedback.Weaknesses == nil {
		e.Feedback.Weaknesses = []string{}
	}
	if e.Feedback.MissingTopics == nil {
		e.Feedback.MissingTopics = []string{}
	}
	if r.ImprovementSignal != nil && r.ImprovementSignal.Learned != "" {
		sig := *r.ImprovementSignal
		e.ImprovementSignal = &sig
	}
	e.Decide()
	return e
}

// score rounds v and clamps it to the 0..10 rubric range. A missing score counts as 0.
func score(v *float64) int {
	if v == nil {
		return 0
	}
	n := int(math.Round(*v))
	return max(0, min(10, n))
}
