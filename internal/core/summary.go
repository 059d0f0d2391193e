package core

// CategorySpend is the monthly-normalized spend aggregated by category.
type CategorySpend struct {
	Name    string
	Monthly Money
	Share   float64 // percentage of the monthly total, 0-100
}

// CycleCount is the number of subscriptions on a billing cycle.
type CycleCount struct {
	Cycle BillingCycle
	Count int
	Share float64 // percentage of all subscriptions, 0-100
}

// CostedSubscription pairs a subscription with its monthly-normalized
// cost in the base currency.
type CostedSubscription struct {
	Subscription
	DaysLeft     int
	MonthlyCost  Money // base currency
	MonthlyLocal Money // original currency
}

// UpcomingPayment is one entry on the future payment timeline.
type UpcomingPayment struct {
	Name     string
	Due      Date
	DaysLeft int
	Amount   Money
	Currency string
}

// DashboardSummary is the KPI block for the index page.
type DashboardSummary struct {
	Total          int
	Active         int
	MonthlyTotal   Money // base currency
	YearlyEstimate Money // MonthlyTotal x 12
	Warnings       int   // auto-renew charges due within 7 days

	ByCategory []CategorySpend
	ByCycle    []CycleCount
	Top        []CostedSubscription // top three by monthly cost
}
