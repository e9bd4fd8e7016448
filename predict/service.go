package predict

import (
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"propval/artifacts"
	"propval/dataset"
	"propval/ml"
	"propval/roi"
)

const (
	// UncertaintyFactor widens the point estimate into a price band.
	UncertaintyFactor = 0.15

	// AppreciationRate compounds the current estimate into future-year
	// projections. A fixed assumption, not a model re-inference.
	AppreciationRate = 0.08

	baseConfidence  = 85.0
	confidenceScale = 5.0
	minConfidence   = 70
	maxConfidence   = 95

	// rentFallbackShare is the monthly rent assumed when no rent model
	// is available: 0.8% of property value.
	rentFallbackShare = 0.008
)

// cityBasePricePerMarla backs the value fallback when no sale model is
// loaded and no purchase price was provided.
var cityBasePricePerMarla = map[string]float64{
	"Islamabad":  800_000,
	"Karachi":    600_000,
	"Lahore":     700_000,
	"Rawalpindi": 500_000,
	"Faisalabad": 400_000,
}

const defaultBasePricePerMarla = 600_000

// Service answers prediction and ROI requests against immutable artifact
// bundles loaded at start. Bundles are only ever replaced wholesale (by
// the artifact watcher), never mutated in place.
type Service struct {
	mu     sync.RWMutex
	value  *artifacts.Bundle
	rent   *artifacts.Bundle
	logger *zap.Logger
}

// NewService wires the sale-price bundle and an optional rental-income
// bundle. rent may be nil; ROI analysis then falls back to a
// value-derived rent estimate.
func NewService(value, rent *artifacts.Bundle, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{value: value, rent: rent, logger: logger}
}

// SwapValueBundle atomically replaces the sale-price bundle. Used by the
// artifact watcher after a retrain.
func (s *Service) SwapValueBundle(b *artifacts.Bundle) {
	s.mu.Lock()
	s.value = b
	s.mu.Unlock()
	s.logger.Info("value bundle swapped",
		zap.String("model_type", b.ModelType),
		zap.Time("trained_at", b.TrainedAt))
}

func (s *Service) SwapRentBundle(b *artifacts.Bundle) {
	s.mu.Lock()
	s.rent = b
	s.mu.Unlock()
	s.logger.Info("rent bundle swapped",
		zap.String("model_type", b.ModelType),
		zap.Time("trained_at", b.TrainedAt))
}

func (s *Service) valueBundle() *artifacts.Bundle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

func (s *Service) rentBundle() *artifacts.Bundle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rent
}

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type YearlyPrices struct {
	CurrentYear float64 `json:"currentYear"`
	OneYear     float64 `json:"oneYear"`
	TwoYear     float64 `json:"twoYear"`
	ThreeYear   float64 `json:"threeYear"`
	FourYear    float64 `json:"fourYear"`
	FiveYear    float64 `json:"fiveYear"`
}

type YearlyROI struct {
	OneYear   float64 `json:"oneYear"`
	TwoYear   float64 `json:"twoYear"`
	ThreeYear float64 `json:"threeYear"`
	FourYear  float64 `json:"fourYear"`
	FiveYear  float64 `json:"fiveYear"`
}

type Prediction struct {
	PredictedPrice float64      `json:"predictedPrice"`
	PriceRange     PriceRange   `json:"priceRange"`
	Confidence     int          `json:"confidence"`
	MarketTrend    string       `json:"marketTrend"`
	Predictions    YearlyPrices `json:"predictions"`
	ROI            YearlyROI    `json:"roi"`
	Insights       []string     `json:"insights"`
}

// Predict runs the request through the exact training-time feature
// pipeline and the loaded model. Any stage failure returns a structured
// error and no partial result.
func (s *Service) Predict(payload Payload) (*Prediction, error) {
	cleaned, err := ValidatePayload(payload)
	if err != nil {
		return nil, err
	}
	if err := checkRoomAreaRatio(cleaned); err != nil {
		return nil, err
	}

	bundle := s.valueBundle()
	if bundle == nil {
		return nil, fmt.Errorf("no value model loaded")
	}

	logPrice, err := s.estimate(bundle, cleaned)
	if err != nil {
		return nil, err
	}
	price := ml.DisplayPrice(logPrice)

	confidence := confidenceScore(logPrice, bundle.ReferenceLogPrice)
	result := &Prediction{
		PredictedPrice: math.Round(price),
		PriceRange: PriceRange{
			Min: math.Round(price * (1 - UncertaintyFactor)),
			Max: math.Round(price * (1 + UncertaintyFactor)),
		},
		Confidence:  confidence,
		MarketTrend: "Rising",
	}

	projected := func(years int) float64 {
		return math.Round(price * math.Pow(1+AppreciationRate, float64(years)))
	}
	appreciation := func(years int) float64 {
		return round2((math.Pow(1+AppreciationRate, float64(years)) - 1) * 100)
	}
	result.Predictions = YearlyPrices{
		CurrentYear: projected(0),
		OneYear:     projected(1),
		TwoYear:     projected(2),
		ThreeYear:   projected(3),
		FourYear:    projected(4),
		FiveYear:    projected(5),
	}
	result.ROI = YearlyROI{
		OneYear:   appreciation(1),
		TwoYear:   appreciation(2),
		ThreeYear: appreciation(3),
		FourYear:  appreciation(4),
		FiveYear:  appreciation(5),
	}
	result.Insights = predictionInsights(cleaned, result)

	s.logger.Info("prediction served",
		zap.String("city", cleaned.City),
		zap.String("property_type", cleaned.PropertyType),
		zap.Float64("area_marla", cleaned.AreaMarla),
		zap.Float64("predicted_price", result.PredictedPrice),
		zap.Int("confidence", confidence))
	return result, nil
}

// estimate composes features with the bundle's frozen encoders and aux
// stats and runs the model, returning the raw log-space prediction.
// The payload carries no price, so nothing price-derived can leak into
// the vector.
func (s *Service) estimate(bundle *artifacts.Bundle, p Payload) (float64, error) {
	record := dataset.PropertyRecord{
		City:         p.City,
		Location:     p.Location,
		PropertyType: p.PropertyType,
		Purpose:      p.Purpose,
		Bedrooms:     p.Bedrooms,
		Bathrooms:    p.Bathrooms,
		AreaMarla:    p.AreaMarla,
	}
	features, err := ml.Compose(record, bundle.Encoders, bundle.Aux)
	if err != nil {
		return 0, fmt.Errorf("compose features: %w", err)
	}
	logPrice, err := bundle.Model().Predict(features.Vector())
	if err != nil {
		return 0, fmt.Errorf("model inference: %w", err)
	}
	return logPrice, nil
}

func confidenceScore(logPrice, referenceLogPrice float64) int {
	score := baseConfidence - math.Abs(logPrice-referenceLogPrice)*confidenceScale
	if score < minConfidence {
		return minConfidence
	}
	if score > maxConfidence {
		return maxConfidence
	}
	return int(score)
}

func predictionInsights(p Payload, result *Prediction) []string {
	insights := []string{
		fmt.Sprintf("%s in %s with %d bedroom(s) and %g Marla", p.PropertyType, p.City, p.Bedrooms, p.AreaMarla),
	}
	switch {
	case result.Confidence >= 85:
		insights = append(insights, "High confidence prediction based on strong market data")
	case result.Confidence >= 75:
		insights = append(insights, "Moderate confidence - price may vary based on property condition")
	default:
		insights = append(insights, "Lower confidence - limited comparable data available")
	}
	insights = append(insights, fmt.Sprintf("Estimated price per Marla: PKR %.0f", result.PredictedPrice/p.AreaMarla))
	return insights
}

type ROIRequest struct {
	City               string  `json:"city"`
	Location           string  `json:"location,omitempty"`
	PropertyType       string  `json:"property_type"`
	Bedrooms           int     `json:"bedrooms"`
	Bathrooms          int     `json:"bathrooms"`
	AreaMarla          float64 `json:"area_marla"`
	YearBuilt          int     `json:"year_built,omitempty"`
	PurchasePrice      float64 `json:"purchase_price,omitempty"`
	MonthlyMaintenance float64 `json:"monthly_maintenance,omitempty"`
	AnalysisYears      int     `json:"analysis_years,omitempty"`
}

// Estimate is one model-or-fallback figure with its band.
type Estimate struct {
	Amount     float64    `json:"amount"`
	Range      PriceRange `json:"range"`
	Confidence int        `json:"confidence"`
	Source     string     `json:"source"` // "model", "provided", or "fallback"
}

type ROIReport struct {
	RentalEstimate Estimate     `json:"rental_estimate"`
	ValueEstimate  Estimate     `json:"value_estimate"`
	Analysis       roi.Analysis `json:"roi_analysis"`
	Grade          roi.Grade    `json:"investment_grade"`
	Insights       []string     `json:"insights"`
	GeneratedAt    time.Time    `json:"generated_at"`
}

// ROIAnalysis combines a rent estimate and a value estimate into the
// full investment report. Missing models degrade to documented fallback
// heuristics rather than failing the request.
func (s *Service) ROIAnalysis(req ROIRequest) (*ROIReport, error) {
	payload, err := ValidatePayload(Payload{
		PropertyType: req.PropertyType,
		City:         req.City,
		Location:     req.Location,
		AreaMarla:    req.AreaMarla,
		Bedrooms:     req.Bedrooms,
		Bathrooms:    req.Bathrooms,
		Purpose:      dataset.PurposeForSale,
	})
	if err != nil {
		return nil, err
	}
	if err := checkRoomAreaRatio(payload); err != nil {
		return nil, err
	}

	value := s.estimateValue(payload, req.PurchasePrice)
	rental := s.estimateRent(payload, value.Amount)

	years := req.AnalysisYears
	if years <= 0 {
		years = 5
	}
	analysis := roi.ComprehensiveAnalysis(rental.Amount, value.Amount, req.MonthlyMaintenance, years)
	grade := roi.InvestmentGrade(analysis)

	report := &ROIReport{
		RentalEstimate: rental,
		ValueEstimate:  value,
		Analysis:       analysis,
		Grade:          grade,
		Insights:       roi.Insights(analysis),
		GeneratedAt:    time.Now().UTC(),
	}

	s.logger.Info("roi analysis served",
		zap.String("city", payload.City),
		zap.Float64("property_value", value.Amount),
		zap.Float64("monthly_rent", rental.Amount),
		zap.String("grade", grade.Grade))
	return report, nil
}

func (s *Service) estimateValue(payload Payload, purchasePrice float64) Estimate {
	if purchasePrice > 0 {
		return Estimate{
			Amount:     purchasePrice,
			Range:      PriceRange{Min: purchasePrice, Max: purchasePrice},
			Confidence: 100,
			Source:     "provided",
		}
	}

	if bundle := s.valueBundle(); bundle != nil {
		logPrice, err := s.estimate(bundle, payload)
		if err == nil {
			price := ml.DisplayPrice(logPrice)
			return Estimate{
				Amount:     math.Round(price),
				Range:      PriceRange{Min: math.Round(price * 0.85), Max: math.Round(price * 1.15)},
				Confidence: confidenceScore(logPrice, bundle.ReferenceLogPrice),
				Source:     "model",
			}
		}
		s.logger.Warn("value model failed, using fallback", zap.Error(err))
	}

	base, ok := cityBasePricePerMarla[payload.City]
	if !ok {
		base = defaultBasePricePerMarla
	}
	value := payload.AreaMarla * base
	return Estimate{
		Amount:     value,
		Range:      PriceRange{Min: value * 0.85, Max: value * 1.15},
		Confidence: minConfidence,
		Source:     "fallback",
	}
}

func (s *Service) estimateRent(payload Payload, propertyValue float64) Estimate {
	if bundle := s.rentBundle(); bundle != nil {
		rentPayload := payload
		rentPayload.Purpose = dataset.PurposeForRent
		logRent, err := s.estimate(bundle, rentPayload)
		if err == nil {
			// rents sit far below the sale-price floor, so invert
			// without the DisplayPrice clamp
			rent := math.Expm1(logRent)
			return Estimate{
				Amount:     math.Round(rent),
				Range:      PriceRange{Min: math.Round(rent * 0.8), Max: math.Round(rent * 1.2)},
				Confidence: confidenceScore(logRent, bundle.ReferenceLogPrice),
				Source:     "model",
			}
		}
		s.logger.Warn("rent model failed, using fallback", zap.Error(err))
	}

	rent := propertyValue * rentFallbackShare
	return Estimate{
		Amount:     math.Round(rent),
		Range:      PriceRange{Min: math.Round(rent * 0.8), Max: math.Round(rent * 1.2)},
		Confidence: minConfidence,
		Source:     "fallback",
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
