package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gobihapalanivel/VendorPulse/internal/broker"
	"github.com/gobihapalanivel/VendorPulse/internal/models"
	"github.com/gobihapalanivel/VendorPulse/internal/redisclient"
	"github.com/gobihapalanivel/VendorPulse/internal/upstream"
	"github.com/gobihapalanivel/VendorPulse/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// A vendor scoring below this is counted as at risk.
const atRiskThreshold = 60

// ErrRecalcInProgress is returned while a previous recalculation still
// holds the lock.
var ErrRecalcInProgress = errors.New("a score recalculation is already running")

// Metrics is the scorecard summary over a vendor list.
type Metrics struct {
	AvgScore      float64 `json:"avg_score"`
	AvgOnTime     float64 `json:"avg_on_time"`
	AvgCompletion float64 `json:"avg_completion"`
	AtRisk        int     `json:"at_risk"`
}

// Aggregate reduces a vendor list to summary statistics. An empty list
// yields all zeros; absent scores count as zero in both the numerator
// and the denominator.
func Aggregate(vendors []models.Vendor) Metrics {
	if len(vendors) == 0 {
		return Metrics{}
	}

	var m Metrics
	for _, v := range vendors {
		m.AvgScore += v.Score
		m.AvgOnTime += v.OnTimeRate
		m.AvgCompletion += v.CompletionRate
		if v.Score < atRiskThreshold {
			m.AtRisk++
		}
	}

	n := float64(len(vendors))
	m.AvgScore /= n
	m.AvgOnTime /= n
	m.AvgCompletion /= n
	return m
}

// RiskTier is a discrete risk classification with its display color.
type RiskTier struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

var (
	RiskLow    = RiskTier{Label: "Low Risk", Color: "#15803d"}
	RiskMedium = RiskTier{Label: "Medium Risk", Color: "#b45309"}
	RiskHigh   = RiskTier{Label: "High Risk", Color: "#b91c1c"}
)

// Classify maps a score to a risk tier. Boundaries are inclusive on the
// lower bound of each tier: 80 is Low, 60 is Medium.
func Classify(score float64) RiskTier {
	switch {
	case score >= 80:
		return RiskLow
	case score >= atRiskThreshold:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// RiskBuckets counts vendors per risk tier.
type RiskBuckets struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// BucketRisks tallies the vendor list into risk tiers.
func BucketRisks(vendors []models.Vendor) RiskBuckets {
	var b RiskBuckets
	for _, v := range vendors {
		switch Classify(v.Score) {
		case RiskLow:
			b.Low++
		case RiskMedium:
			b.Medium++
		default:
			b.High++
		}
	}
	return b
}

// TrendPoint is one month of the synthetic reliability trend.
type TrendPoint struct {
	Month string  `json:"month"`
	Score float64 `json:"score"`
}

// Fixed drift applied to the current average, one offset per month in
// chronological order. This is a synthetic illustrative trend, not a
// historical query; keep the offsets exactly until a real
// historical-metrics source replaces it.
var trendDrift = [...]float64{-8, -4, -2, 1, 2, 0}

// Trend synthesizes a six-month series ending at now's month from the
// current average score. Each point is clamped to [0, 100] and rounded
// to one decimal.
func Trend(base float64, now time.Time) []TrendPoint {
	points := make([]TrendPoint, len(trendDrift))
	for idx := range trendDrift {
		month := time.Date(now.Year(), now.Month()-time.Month(len(trendDrift)-1-idx), 1, 0, 0, 0, 0, time.UTC)
		score := base + trendDrift[idx]
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
		points[idx] = TrendPoint{
			Month: month.Format("Jan"),
			Score: math.Round(score*10) / 10,
		}
	}
	return points
}

// ScorecardRow is one vendor with its classified risk.
type ScorecardRow struct {
	models.Vendor
	Risk RiskTier `json:"risk"`
}

// ScorecardView is the full payload backing the scorecard screen.
type ScorecardView struct {
	Metrics     Metrics        `json:"metrics"`
	RiskBuckets RiskBuckets    `json:"risk_buckets"`
	Trend       []TrendPoint   `json:"trend"`
	Vendors     []ScorecardRow `json:"vendors"`
}

// ScorecardService derives the scorecard view and handles recalculation.
type ScorecardService struct {
	snapshot *VendorSnapshot
	upstream *upstream.Client
	redis    *redisclient.Client
	events   *broker.EventPublisher
	logger   *zap.Logger
}

// NewScorecardService creates a new scorecard service
func NewScorecardService(
	snapshot *VendorSnapshot,
	upstreamClient *upstream.Client,
	redis *redisclient.Client,
	events *broker.EventPublisher,
) *ScorecardService {
	return &ScorecardService{
		snapshot: snapshot,
		upstream: upstreamClient,
		redis:    redis,
		events:   events,
		logger:   util.GetLogger(),
	}
}

// Scorecard builds the scorecard view from the current vendor snapshot.
func (s *ScorecardService) Scorecard(ctx context.Context, session *upstream.Session) (*ScorecardView, error) {
	ctx, span := util.StartSpan(ctx, "ScorecardService.Scorecard")
	defer span.End()

	vendors, err := s.snapshot.Vendors(ctx, session)
	if err != nil {
		return nil, err
	}

	metrics := Aggregate(vendors)

	rows := make([]ScorecardRow, len(vendors))
	for i, v := range vendors {
		rows[i] = ScorecardRow{Vendor: v, Risk: Classify(v.Score)}
	}

	util.ScorecardRequestsTotal.Inc()

	return &ScorecardView{
		Metrics:     metrics,
		RiskBuckets: BucketRisks(vendors),
		Trend:       Trend(metrics.AvgScore, time.Now()),
		Vendors:     rows,
	}, nil
}

// Recalculate triggers the backend's score recalculation job, drops the
// cached snapshot, and announces the refresh. Concurrent triggers are
// collapsed by a short Redis lock.
func (s *ScorecardService) Recalculate(ctx context.Context, session *upstream.Session, triggeredBy string) error {
	ctx, span := util.StartSpan(ctx, "ScorecardService.Recalculate")
	defer span.End()

	acquired, err := s.redis.AcquireRecalcLock(ctx, 30*time.Second)
	if err != nil {
		return fmt.Errorf("failed to acquire recalculation lock: %w", err)
	}
	if !acquired {
		return ErrRecalcInProgress
	}
	defer func() {
		if err := s.redis.ReleaseRecalcLock(ctx); err != nil {
			s.logger.Warn("Failed to release recalculation lock", zap.Error(err))
		}
	}()

	if err := s.upstream.RecalculateScores(ctx, session); err != nil {
		return fmt.Errorf("recalculation failed: %w", err)
	}

	if err := s.snapshot.Invalidate(ctx); err != nil {
		s.logger.Warn("Failed to invalidate vendor snapshot after recalculation", zap.Error(err))
	}

	util.ScoreRecalculationsTotal.Inc()
	s.logger.Info("Vendor scores recalculated", zap.String("triggered_by", triggeredBy))

	event := &models.ScoresRecalculatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeScoresRecalculate,
			Timestamp: time.Now(),
		},
		TriggeredBy: triggeredBy,
	}
	if err := s.events.PublishScoresRecalculated(ctx, event); err != nil {
		s.logger.Error("Failed to publish ScoresRecalculated event", zap.Error(err))
	}

	return nil
}
