package services

import (
	"time"

	"github.com/google/uuid"

	"adreport-forensics/models"
	"adreport-forensics/utils"
)

// AnalyzerOptions configures the cleaning and baseline stages.
type AnalyzerOptions struct {
	NoiseFloor    int
	ImpPercentile float64
	Policy        MissingFieldPolicy
	// Fallback is reported as the baseline when no rows survive cleaning.
	Fallback models.BaselineStats
}

// Analyzer runs the full anomaly pipeline over one report table at a time.
// It holds no per-run state and may be shared between goroutines.
type Analyzer struct {
	logger     *utils.Logger
	cleaner    *Cleaner
	estimator  *BaselineEstimator
	classifier *Classifier
	fallback   models.BaselineStats
}

// NewAnalyzer wires the pipeline stages.
func NewAnalyzer(logger *utils.Logger, opts AnalyzerOptions) *Analyzer {
	fallback := opts.Fallback
	fallback.Suggested = false
	if fallback.ImpPercentileThreshold == 0 {
		fallback.ImpPercentileThreshold = opts.ImpPercentile
	}
	return &Analyzer{
		logger:     logger,
		cleaner:    NewCleaner(logger, opts.NoiseFloor, opts.Policy),
		estimator:  NewBaselineEstimator(opts.ImpPercentile),
		classifier: NewClassifier(logger),
		fallback:   fallback,
	}
}

// Session is a cleaned dataset together with its baseline. Changing the
// thresholds only needs Classify again; cleaning and estimation are not
// repeated. A Session is immutable and safe for concurrent use.
type Session struct {
	dataset      *models.Dataset
	baseline     models.BaselineStats
	warnings     []string
	coercionGaps map[string]int
	classifier   *Classifier
}

// Prepare cleans table and estimates its baseline. Only a malformed table
// (or a missing quality column under the fail policy) is an error.
func (a *Analyzer) Prepare(table *models.Table) (*Session, error) {
	cleaned, err := a.cleaner.Clean(table)
	if err != nil {
		return nil, err
	}

	s := &Session{
		dataset:      cleaned.Dataset,
		baseline:     a.fallback,
		coercionGaps: cleaned.CoercionGaps,
		classifier:   a.classifier,
	}
	if cleaned.Warning != nil {
		s.warnings = append(s.warnings, cleaned.Warning.Error())
	}

	if cleaned.Dataset.Empty() {
		a.logger.Warn("[analyzer] %s: no rows left after noise filtering", table.Source)
		return s, nil
	}
	if b, ok := a.estimator.Estimate(cleaned.Dataset); ok {
		s.baseline = b
	} else {
		s.warnings = append(s.warnings, "no readable ctr values: using fallback thresholds")
	}
	return s, nil
}

// Analyze is Prepare followed by Classify.
func (a *Analyzer) Analyze(table *models.Table, overrides models.ThresholdOverrides) (*models.AnalysisReport, error) {
	s, err := a.Prepare(table)
	if err != nil {
		return nil, err
	}
	return s.Classify(overrides)
}

// Dataset returns the cleaned dataset.
func (s *Session) Dataset() *models.Dataset { return s.dataset }

// Baseline returns the suggested thresholds, or the fallback for an empty dataset.
func (s *Session) Baseline() models.BaselineStats { return s.baseline }

// Empty reports whether no rows survived cleaning.
func (s *Session) Empty() bool { return s.dataset.Empty() }

// Classify resolves overrides against the baseline and runs both rules.
func (s *Session) Classify(overrides models.ThresholdOverrides) (*models.AnalysisReport, error) {
	thresholds := overrides.Resolve(s.baseline)
	result, err := s.classifier.Classify(s.dataset, thresholds)
	if err != nil {
		return nil, err
	}

	gaps := make(map[string]int, len(s.coercionGaps))
	for k, v := range s.coercionGaps {
		gaps[k] = v
	}

	return &models.AnalysisReport{
		RunID:        uuid.NewString(),
		Source:       s.dataset.Source,
		GeneratedAt:  time.Now().UTC(),
		RawRows:      s.dataset.RawRows,
		CleanRows:    s.dataset.Len(),
		Baseline:     s.baseline,
		Thresholds:   thresholds,
		Result:       result,
		Warnings:     append([]string(nil), s.warnings...),
		CoercionGaps: gaps,
	}, nil
}
