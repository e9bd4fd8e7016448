// Package roi computes real-estate investment metrics from a rent
// estimate and a value estimate. Everything here is a pure function over
// its inputs plus the fixed market-rate constants.
package roi

import (
	"fmt"
	"math"
)

// Market rate assumptions for the Pakistani market, annual unless noted.
const (
	InflationRate   = 0.08  // property and rent growth
	InterestRate    = 0.12  // bank rate, used as the NPV discount rate
	PropertyTaxRate = 0.005 // of property value
	MaintenanceRate = 0.02  // of property value
	InsuranceRate   = 0.001 // of property value
	VacancyRate     = 0.05
	ManagementRate  = 0.08 // of rent
)

// IRR iteration parameters.
const (
	irrInitialGuess  = 0.10
	irrMaxIterations = 100
	irrTolerance     = 1e-6
)

type Expenses struct {
	PropertyTax float64 `json:"property_tax"`
	Maintenance float64 `json:"maintenance"`
	Insurance   float64 `json:"insurance"`
	Total       float64 `json:"total_expenses"`
}

// TotalExpenses derives the monthly expense breakdown. Maintenance is
// the caller's known figure plus the value-proportional market rate.
func TotalExpenses(propertyValue, monthlyMaintenance float64) Expenses {
	e := Expenses{
		PropertyTax: propertyValue * PropertyTaxRate / 12,
		Maintenance: monthlyMaintenance + propertyValue*MaintenanceRate/12,
		Insurance:   propertyValue * InsuranceRate / 12,
	}
	e.Total = e.PropertyTax + e.Maintenance + e.Insurance
	return e
}

type CashFlow struct {
	Monthly float64 `json:"monthly_cash_flow"`
	Annual  float64 `json:"annual_cash_flow"`
}

func NewCashFlow(monthlyRent, monthlyExpenses float64) CashFlow {
	monthly := monthlyRent - monthlyExpenses
	return CashFlow{Monthly: monthly, Annual: monthly * 12}
}

func MonthlyROI(monthlyRent, propertyValue float64) float64 {
	if propertyValue <= 0 {
		return 0
	}
	return monthlyRent / propertyValue * 100
}

func AnnualROI(monthlyRent, propertyValue float64) float64 {
	if propertyValue <= 0 {
		return 0
	}
	return monthlyRent * 12 / propertyValue * 100
}

// RentalYield is numerically the same as AnnualROI; kept as a distinct
// named metric for reporting clarity.
func RentalYield(monthlyRent, propertyValue float64) float64 {
	return AnnualROI(monthlyRent, propertyValue)
}

func CapRate(monthlyRent, propertyValue, monthlyExpenses float64) float64 {
	if propertyValue <= 0 {
		return 0
	}
	annualNetIncome := (monthlyRent - monthlyExpenses) * 12
	return annualNetIncome / propertyValue * 100
}

// PaybackPeriod returns years to recover the property value from cash
// flow, +Inf when cash flow is non-positive.
func PaybackPeriod(propertyValue, monthlyCashFlow float64) float64 {
	if monthlyCashFlow <= 0 {
		return math.Inf(1)
	}
	return propertyValue / (monthlyCashFlow * 12)
}

func FutureValue(currentValue float64, years int, growthRate float64) float64 {
	if growthRate == 0 {
		growthRate = InflationRate
	}
	return currentValue * math.Pow(1+growthRate, float64(years))
}

func FutureRent(currentRent float64, years int, growthRate float64) float64 {
	if growthRate == 0 {
		growthRate = InflationRate
	}
	return currentRent * math.Pow(1+growthRate, float64(years))
}

// NPV discounts the cash-flow series against the initial investment.
// cashFlows[i] is received at the end of period i+1.
func NPV(initialInvestment float64, cashFlows []float64, discountRate float64) float64 {
	if discountRate == 0 {
		discountRate = InterestRate
	}
	npv := -initialInvestment
	for i, cf := range cashFlows {
		npv += cf / math.Pow(1+discountRate, float64(i+1))
	}
	return npv
}

// IRR root-finds the discount rate at which NPV is zero via Newton's
// method. On derivative underflow or iteration exhaustion it returns the
// last estimate rather than raising or looping; non-convergence must not
// hang. Result is a percentage.
func IRR(initialInvestment float64, cashFlows []float64) float64 {
	rate := irrInitialGuess
	for i := 0; i < irrMaxIterations; i++ {
		npv := NPV(initialInvestment, cashFlows, rate)
		if math.Abs(npv) < irrTolerance {
			break
		}
		derivative := 0.0
		for j, cf := range cashFlows {
			derivative -= cf * float64(j+1) / math.Pow(1+rate, float64(j+2))
		}
		if math.Abs(derivative) < 1e-10 {
			break
		}
		rate -= npv / derivative
	}
	return rate * 100
}

type CurrentMetrics struct {
	MonthlyROI    float64 `json:"monthly_roi"`
	AnnualROI     float64 `json:"annual_roi"`
	RentalYield   float64 `json:"rental_yield"`
	CapRate       float64 `json:"cap_rate"`
	PaybackPeriod float64 `json:"payback_period"`
}

type FutureProjections struct {
	Years                int     `json:"years"`
	FutureValue          float64 `json:"future_property_value"`
	FutureMonthlyRent    float64 `json:"future_monthly_rent"`
	PropertyAppreciation float64 `json:"property_appreciation"`
	RentGrowth           float64 `json:"rent_growth"`
}

type InvestmentMetrics struct {
	NPV                   float64 `json:"npv"`
	IRR                   float64 `json:"irr"`
	TotalReturn           float64 `json:"total_return"`
	TotalReturnPercentage float64 `json:"total_return_percentage"`
}

type Analysis struct {
	Current     CurrentMetrics    `json:"current_metrics"`
	CashFlow    CashFlow          `json:"cash_flow"`
	Expenses    Expenses          `json:"expenses"`
	Projections FutureProjections `json:"future_projections"`
	Investment  InvestmentMetrics `json:"investment_metrics"`
}

// ComprehensiveAnalysis runs the full metric set over one property. The
// cash-flow series for NPV/IRR is the annual cash flow repeated for each
// year plus the terminal property value.
func ComprehensiveAnalysis(monthlyRent, propertyValue, monthlyMaintenance float64, years int) Analysis {
	if years <= 0 {
		years = 5
	}

	expenses := TotalExpenses(propertyValue, monthlyMaintenance)
	cashFlow := NewCashFlow(monthlyRent, expenses.Total)

	futureValue := FutureValue(propertyValue, years, 0)
	futureRent := FutureRent(monthlyRent, years, 0)

	cashFlows := make([]float64, years, years+1)
	for i := range cashFlows {
		cashFlows[i] = cashFlow.Annual
	}
	cashFlows = append(cashFlows, futureValue)

	totalReturn := (futureValue - propertyValue) + cashFlow.Annual*float64(years)

	analysis := Analysis{
		Current: CurrentMetrics{
			MonthlyROI:    MonthlyROI(monthlyRent, propertyValue),
			AnnualROI:     AnnualROI(monthlyRent, propertyValue),
			RentalYield:   RentalYield(monthlyRent, propertyValue),
			CapRate:       CapRate(monthlyRent, propertyValue, expenses.Total),
			PaybackPeriod: PaybackPeriod(propertyValue, cashFlow.Monthly),
		},
		CashFlow: cashFlow,
		Expenses: expenses,
		Projections: FutureProjections{
			Years:             years,
			FutureValue:       futureValue,
			FutureMonthlyRent: futureRent,
		},
		Investment: InvestmentMetrics{
			NPV:         NPV(propertyValue, cashFlows, 0),
			IRR:         IRR(propertyValue, cashFlows),
			TotalReturn: totalReturn,
		},
	}
	if propertyValue > 0 {
		analysis.Projections.PropertyAppreciation = (futureValue - propertyValue) / propertyValue * 100
		analysis.Investment.TotalReturnPercentage = totalReturn / propertyValue * 100
	}
	if monthlyRent > 0 {
		analysis.Projections.RentGrowth = (futureRent - monthlyRent) / monthlyRent * 100
	}
	return analysis
}

type Grade struct {
	Grade          string `json:"grade"`
	Recommendation string `json:"recommendation"`
}

type gradeTier struct {
	grade          string
	minAnnualROI   float64
	minCapRate     float64
	minIRR         float64
	recommendation string
}

// Ordered top-down; the first tier whose three thresholds are all met
// wins. The catch-all D tier has no thresholds.
var gradeTiers = []gradeTier{
	{"A+", 12, 8, 15, "Excellent investment opportunity"},
	{"A", 10, 6, 12, "Very good investment opportunity"},
	{"B+", 8, 5, 10, "Good investment opportunity"},
	{"B", 6, 4, 8, "Moderate investment opportunity"},
	{"C", 4, 3, 6, "Fair investment opportunity"},
}

func GradeFor(annualROI, capRate, irr float64) Grade {
	for _, tier := range gradeTiers {
		if annualROI >= tier.minAnnualROI && capRate >= tier.minCapRate && irr >= tier.minIRR {
			return Grade{Grade: tier.grade, Recommendation: tier.recommendation}
		}
	}
	return Grade{Grade: "D", Recommendation: "Poor investment opportunity"}
}

func InvestmentGrade(analysis Analysis) Grade {
	return GradeFor(analysis.Current.AnnualROI, analysis.Current.CapRate, analysis.Investment.IRR)
}

// Insights renders the analysis as investor-facing commentary.
func Insights(analysis Analysis) []string {
	var insights []string

	annualROI := analysis.Current.AnnualROI
	switch {
	case annualROI >= 10:
		insights = append(insights, fmt.Sprintf("Excellent rental yield of %.1f%% exceeds market average", annualROI))
	case annualROI >= 8:
		insights = append(insights, fmt.Sprintf("Good rental yield of %.1f%% is above market average", annualROI))
	case annualROI >= 6:
		insights = append(insights, fmt.Sprintf("Moderate rental yield of %.1f%% meets market expectations", annualROI))
	default:
		insights = append(insights, fmt.Sprintf("Low rental yield of %.1f%% may not justify investment", annualROI))
	}

	capRate := analysis.Current.CapRate
	switch {
	case capRate >= 8:
		insights = append(insights, fmt.Sprintf("Strong capitalization rate of %.1f%% indicates good income potential", capRate))
	case capRate >= 6:
		insights = append(insights, fmt.Sprintf("Reasonable capitalization rate of %.1f%% shows decent income potential", capRate))
	default:
		insights = append(insights, fmt.Sprintf("Low capitalization rate of %.1f%% suggests limited income potential", capRate))
	}

	payback := analysis.Current.PaybackPeriod
	switch {
	case math.IsInf(payback, 1):
		insights = append(insights, "Negative cash flow: the property does not pay itself back from rent")
	case payback <= 10:
		insights = append(insights, fmt.Sprintf("Quick payback period of %.1f years indicates strong cash flow", payback))
	case payback <= 15:
		insights = append(insights, fmt.Sprintf("Reasonable payback period of %.1f years shows good cash flow", payback))
	default:
		insights = append(insights, fmt.Sprintf("Long payback period of %.1f years suggests slow cash flow recovery", payback))
	}

	irr := analysis.Investment.IRR
	switch {
	case irr >= 15:
		insights = append(insights, fmt.Sprintf("Excellent IRR of %.1f%% indicates very attractive investment returns", irr))
	case irr >= 12:
		insights = append(insights, fmt.Sprintf("Good IRR of %.1f%% shows attractive investment returns", irr))
	case irr >= 8:
		insights = append(insights, fmt.Sprintf("Moderate IRR of %.1f%% indicates reasonable investment returns", irr))
	default:
		insights = append(insights, fmt.Sprintf("Low IRR of %.1f%% suggests limited investment returns", irr))
	}

	marketROI := InterestRate * 100
	if annualROI > marketROI {
		insights = append(insights, fmt.Sprintf("Rental yield exceeds bank interest rate by %.1f%%", annualROI-marketROI))
	} else {
		insights = append(insights, fmt.Sprintf("Rental yield is below bank interest rate by %.1f%%", marketROI-annualROI))
	}

	return insights
}
