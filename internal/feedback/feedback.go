// Package feedback records user ratings and turns poor ratings into strategy lessons.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Reflex-Gravity/BarqAdl/internal/judge"
	"github.com/Reflex-Gravity/BarqAdl/internal/strategies"
	"github.com/Reflex-Gravity/BarqAdl/pkg/formatting"
	"github.com/Reflex-Gravity/BarqAdl/pkg/observe"
	"github.com/Reflex-Gravity/BarqAdl/pkg/persistence"
)

const (
	// LogName is the log every submission is appended to.
	LogName = "feedback-log"

	// LowScore is the highest rating that feeds a lesson into the domain strategy.
	LowScore = 2

	// scale maps a 1-5 rating onto the judge's 40-point total.
	scale = 8

	genericLesson = "User indicated low satisfaction — improve response quality"
)

// StrategyUpdater folds a score and lesson into a domain strategy.
type StrategyUpdater interface {
	Update(ctx context.Context, domain string, total int, signal *judge.Signal) (strategies.Outcome, error)
}

// Submission is a user's rating of an answer.
type Submission struct {
	TraceID string   `json:"traceId"`
	Score   *float64 `json:"score"`
	Comment string   `json:"comment"`
	Domain  string   `json:"domain"`
	UserID  string   `json:"userId"`
}

// Receipt acknowledges a submission.
type Receipt struct {
	Received bool    `json:"received"`
	Score    int     `json:"score"`
	TraceID  *string `json:"traceId"`
}

// Entry is one feedback-log record.
type Entry struct {
	TraceID   *string   `json:"traceId"`
	Score     int       `json:"score"`
	Comment   string    `json:"comment"`
	Domain    *string   `json:"domain"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// Service records feedback.
type Service struct {
	strategies StrategyUpdater
	store      persistence.Store
	sink       observe.Sink
	logger     *slog.Logger
}

func New(su StrategyUpdater, store persistence.Store, sink observe.Sink, logger *slog.Logger) *Service {
	return &Service{
		strategies: su,
		store:      store,
		sink:       sink,
		logger:     logger.With("system", "feedback"),
	}
}

func (s *Service) Handler(maxBody int64) *Handler {
	return NewHandler(s, s.logger, maxBody)
}

// Normalize rounds score and clamps it to 1..5.
func Normalize(score float64) int {
	return int(max(1, min(5, math.Round(score))))
}

// Lesson is the strategy enhancement derived from a low rating.
func Lesson(comment string) string {
	if comment == "" {
		return genericLesson
	}
	return `User feedback: "` + formatting.Truncate(comment, 100) + `"`
}

// Submit records sub. A rating of LowScore or less with a domain becomes a
// strategy update before the submission is logged.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Receipt, error) {
	if sub.Score == nil {
		return nil, ErrScoreRequired
	}
	if math.IsNaN(*sub.Score) || math.IsInf(*sub.Score, 0) {
		return nil, ErrInvalidScore
	}
	score := Normalize(*sub.Score)

	if sub.TraceID != "" {
		s.sink.Score(observe.WithTrace(ctx, sub.TraceID), "user_feedback", float64(score))
	}

	if sub.Domain != "" && score <= LowScore {
		signal := &judge.Signal{Learned: Lesson(sub.Comment), UpdatePrompt: true}
		if _, err := s.strategies.Update(ctx, sub.Domain, score*scale, signal); err != nil {
			s.logger.WarnContext(ctx, "strategy update not saved", "domain", sub.Domain, "trace_id", sub.TraceID, "error", err)
		}
	}

	userID := sub.UserID
	if userID == "" {
		userID = "anonymous"
	}
	entry := Entry{
		TraceID:   optional(sub.TraceID),
		Score:     score,
		Comment:   sub.Comment,
		Domain:    optional(sub.Domain),
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
	if err := persistence.Append(ctx, s.store, LogName, entry); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRecord, err)
	}

	s.logger.InfoContext(ctx, "feedback received", "score", score, "domain", sub.Domain, "trace_id", sub.TraceID)
	return &Receipt{Received: true, Score: score, TraceID: entry.TraceID}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
