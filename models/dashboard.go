package models

// DashboardStats holds the counts shown on the practice dashboard
type DashboardStats struct {
	TotalCases       int64         `json:"totalCases"`
	ActiveCases      int64         `json:"activeCases"`
	ClosedCases      int64         `json:"closedCases"`
	ArchivedCases    int64         `json:"archivedCases"`
	UpcomingHearings int64         `json:"upcomingHearings"`
	Documents        int64         `json:"documents"`
	Parties          int64         `json:"parties"`
	Payments         []StatusTotal `json:"payments"`
}
