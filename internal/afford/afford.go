// Package afford evaluates HDB loan affordability: LTV loan sizing, tenure
// derivation, amortized monthly repayment, and the 1-10 affordability
// sub-scores. Missing inputs propagate as nil derived fields; the evaluator
// never returns an error.
//
// Rules:
//   - annual interest 3.1% (CPF OA 3.0% + 0.1%)
//   - LTV up to 75% of the lower of price and valuation
//   - tenure min(25, 65 - age, remainingLease - 20), floored to whole years
//   - MSR: monthly repayment capped at 30% of monthly income
package afford

import "math"

const (
	DefaultAnnualInterestPct = 3.1
	DefaultLTV               = 0.75
	MSRThreshold             = 0.30
	MaxTenureYears           = 25
)

// Input parameterizes one evaluation. Optional fields are pointers; leaving
// one nil removes the corresponding rule rather than zeroing it.
type Input struct {
	Price               float64  `json:"price"`
	Valuation           *float64 `json:"valuation,omitempty"`
	Age                 *float64 `json:"age,omitempty"`
	RemainingLeaseYears *float64 `json:"remaining_lease_years,omitempty"`
	IncomePerAnnum      *float64 `json:"income_per_annum,omitempty"`
	DownPaymentBudget   *float64 `json:"down_payment_budget,omitempty"`
	AnnualInterestPct   *float64 `json:"annual_interest_pct,omitempty"`
	LTV                 *float64 `json:"ltv,omitempty"`
}

// Result holds the derived quantities. Nil means the prerequisite inputs were
// missing, never "zero".
type Result struct {
	Price            float64 `json:"price"`
	Base             float64 `json:"base"`
	LoanAmount       float64 `json:"loan_amount"`
	DownPayment      float64 `json:"down_payment"`
	TenureYears      int     `json:"tenure_years"`
	MonthlyRepayment float64 `json:"monthly_repayment"`

	MonthlyIncome *float64 `json:"monthly_income,omitempty"`
	MSRLimit      *float64 `json:"msr_limit,omitempty"`
	IncomeRatio   *float64 `json:"income_ratio,omitempty"`

	CanAffordDownPayment *bool `json:"can_afford_down_payment,omitempty"`
	AffordableMonthly    *bool `json:"affordable_monthly,omitempty"`
	OverallAffordable    *bool `json:"overall_affordable,omitempty"`

	DownPaymentScore *int `json:"down_payment_score,omitempty"`
	MonthlyScore     *int `json:"monthly_score,omitempty"`
	Score            *int `json:"score,omitempty"`

	Reasons []string `json:"reasons,omitempty"`
}

// DeriveTenure applies the three tenure caps, skipping the age and lease caps
// when their inputs are missing. The result is floored to whole years; below
// one year the buyer is ineligible (tenure 0).
func DeriveTenure(age, remainingLeaseYears *float64) (int, []string) {
	var reasons []string
	tenure := float64(MaxTenureYears)

	if age != nil {
		tenure = math.Min(tenure, math.Max(0, 65-*age))
	} else {
		reasons = append(reasons, "age not provided: ignoring 65 - age cap")
	}
	if remainingLeaseYears != nil {
		tenure = math.Min(tenure, math.Max(0, *remainingLeaseYears-20))
	} else {
		reasons = append(reasons, "remaining lease not provided: ignoring (lease - 20) cap")
	}

	years := int(math.Max(0, math.Floor(tenure)))
	if years == 0 {
		reasons = append(reasons, "tenure constraint results in < 1 year (not eligible)")
	}
	return years, reasons
}

// LTVLoan computes the financed amount and required down payment. Base is the
// lower of price and valuation (price when no valuation is supplied).
func LTVLoan(price float64, valuation *float64, ltv float64) (base, loan, down float64) {
	base = price
	if valuation != nil && *valuation < price {
		base = *valuation
	}
	loan = math.Max(0, base*ltv)
	down = math.Max(0, price-loan)
	return base, loan, down
}

// MonthlyPayment returns the amortizing monthly repayment for a loan over
// tenureYears at the given annual rate. A zero rate degrades to simple
// division; a non-positive tenure yields 0.
func MonthlyPayment(loan, annualInterestPct float64, tenureYears int) float64 {
	n := tenureYears * 12
	if n <= 0 {
		return 0
	}
	r := annualInterestPct / 100 / 12
	if r == 0 {
		return loan / float64(n)
	}
	pow := math.Pow(1+r, float64(n))
	return loan * r * pow / (pow - 1)
}

// ScoreFromIncomeRatio maps repayment/income to a 1-10 score: 10 at or under
// the 30% MSR threshold, minus 2 per started 5% bucket above it.
func ScoreFromIncomeRatio(ratio float64) int {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 1
	}
	if ratio <= MSRThreshold {
		return 10
	}
	buckets := math.Ceil((ratio - MSRThreshold) / 0.05)
	score := 10 - int(buckets)*2
	if score < 1 {
		return 1
	}
	return score
}

// ScoreDownPayment maps budget/required to a 1-10 score. The tiers are
// asymmetric: harsher below 100% (cannot afford), more generous above.
func ScoreDownPayment(budget, required float64) int {
	if required <= 0 || math.IsNaN(budget) || math.IsInf(budget, 0) {
		return 1
	}
	ratio := budget / required
	switch {
	case ratio >= 2.0:
		return 10
	case ratio >= 1.7:
		return 9
	case ratio >= 1.4:
		return 8
	case ratio >= 1.2:
		return 7
	case ratio >= 1.05:
		return 6
	case ratio >= 1.0:
		return 5
	case ratio >= 0.95:
		return 4
	case ratio >= 0.85:
		return 3
	case ratio >= 0.70:
		return 2
	default:
		return 1
	}
}

// Evaluate derives the full affordability result for one candidate purchase.
func Evaluate(in Input) Result {
	interest := DefaultAnnualInterestPct
	if in.AnnualInterestPct != nil {
		interest = *in.AnnualInterestPct
	}
	ltv := DefaultLTV
	if in.LTV != nil {
		ltv = *in.LTV
	}

	base, loan, down := LTVLoan(in.Price, in.Valuation, ltv)
	tenure, reasons := DeriveTenure(in.Age, in.RemainingLeaseYears)
	repayment := MonthlyPayment(loan, interest, tenure)

	out := Result{
		Price:            in.Price,
		Base:             base,
		LoanAmount:       loan,
		DownPayment:      down,
		TenureYears:      tenure,
		MonthlyRepayment: repayment,
		Reasons:          reasons,
	}

	if in.IncomePerAnnum != nil {
		income := *in.IncomePerAnnum / 12
		limit := income * MSRThreshold
		out.MonthlyIncome = &income
		out.MSRLimit = &limit

		affordable := repayment <= limit
		out.AffordableMonthly = &affordable

		if income > 0 {
			ratio := repayment / income
			out.IncomeRatio = &ratio
			ms := ScoreFromIncomeRatio(ratio)
			out.MonthlyScore = &ms
		}
	}

	if in.DownPaymentBudget != nil {
		can := *in.DownPaymentBudget >= down
		out.CanAffordDownPayment = &can
		ds := ScoreDownPayment(*in.DownPaymentBudget, down)
		out.DownPaymentScore = &ds
	}

	if out.AffordableMonthly != nil && out.CanAffordDownPayment != nil {
		overall := *out.AffordableMonthly && *out.CanAffordDownPayment
		out.OverallAffordable = &overall
	}

	// Combined score: the buyer is only as affordable as the worst constraint.
	switch {
	case out.MonthlyScore != nil && out.DownPaymentScore != nil:
		s := min(*out.MonthlyScore, *out.DownPaymentScore)
		out.Score = &s
	case out.MonthlyScore != nil:
		out.Score = out.MonthlyScore
	case out.DownPaymentScore != nil:
		out.Score = out.DownPaymentScore
	}

	return out
}
