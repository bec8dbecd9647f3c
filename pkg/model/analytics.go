package model

// DashboardAnalytics is returned by GET /analytics/dashboard.
type DashboardAnalytics struct {
	TotalSpend        float64            `json:"total_spend"`
	Currency          string             `json:"currency"`
	CategorySpend     map[string]float64 `json:"category_spend"`
	MonthlyTrend      []MonthlyTotal     `json:"monthly_trend"`
	RiskDistribution  map[string]int     `json:"risk_distribution"`
	TopVendors        []VendorTotal      `json:"top_vendors"`
	ApprovalStats     ApprovalStats      `json:"approval_stats"`
	AIInsights        []Insight          `json:"ai_insights"`
	PolicySuggestions []PolicySuggestion `json:"policy_suggestions"`
}

type MonthlyTotal struct {
	Month float64 `json:"month"`
	Total float64 `json:"total"`
}

type VendorTotal struct {
	Vendor string  `json:"vendor"`
	Total  float64 `json:"total"`
}

type ApprovalStats struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// Insight is a generated observation about company spending.
type Insight struct {
	Type    string  `json:"type"`
	Title   string  `json:"title"`
	Message string  `json:"message"`
	Value   float64 `json:"value"`
}

type PolicySuggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// UserStats is returned by GET /analytics/user-stats.
type UserStats struct {
	TotalSubmitted int     `json:"total_submitted"`
	TotalAmount    float64 `json:"total_amount"`
	Approved       int     `json:"approved"`
	Rejected       int     `json:"rejected"`
	Pending        int     `json:"pending"`
	ApprovalRate   float64 `json:"approval_rate"`
}
