// internal/service/sentiment_service.go
package service

import (
	"strings"

	"github.com/jonreiter/govader"

	appErrors "github.com/unclebandit/leadflow-backend/internal/errors"
	"github.com/unclebandit/leadflow-backend/internal/model"
)

const (
	SentimentPositive = "Positive"
	SentimentNegative = "Negative"
	SentimentNeutral  = "Neutral"
)

type SentimentService struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewSentimentService() *SentimentService {
	return &SentimentService{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (s *SentimentService) Analyze(text string) (*model.SentimentResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, appErrors.NewValidation("text", "must not be empty")
	}

	scores := s.analyzer.PolarityScores(text)
	return &model.SentimentResult{
		Negative: scores.Negative,
		Neutral:  scores.Neutral,
		Positive: scores.Positive,
		Compound: scores.Compound,
		Label:    SentimentLabel(scores.Compound),
	}, nil
}

// SentimentLabel buckets a compound score with the usual ±0.05 cut-offs.
func SentimentLabel(compound float64) string {
	switch {
	case compound >= 0.05:
		return SentimentPositive
	case compound <= -0.05:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}
