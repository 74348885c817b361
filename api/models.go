package api

import "encoding/json"

// Advertiser is an advertiser account.
type Advertiser struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	CompanyName       string          `json:"company_name"`
	CreditCode        string          `json:"credit_code,omitempty"`
	ContactPerson     string          `json:"contact_person"`
	ContactPhone      string          `json:"contact_phone"`
	ContactEmail      string          `json:"contact_email"`
	Address           string          `json:"address,omitempty"`
	Industry          string          `json:"industry,omitempty"`
	BusinessType      string          `json:"business_type,omitempty"`
	Status            string          `json:"status,omitempty"`
	Balance           float64         `json:"balance"`
	RejectionReason   string          `json:"rejection_reason,omitempty"`
	QualificationDocs json.RawMessage `json:"qualification_docs,omitempty"`
	AccountManagerID  *int64          `json:"account_manager_id,omitempty"`
	CreatedAt         string          `json:"created_at,omitempty"`
	UpdatedAt         string          `json:"updated_at,omitempty"`
}

// QualificationFile is an uploaded advertiser document.
type QualificationFile struct {
	ID           int64  `json:"id"`
	AdvertiserID int64  `json:"advertiser_id"`
	FilePath     string `json:"file_path"`
	FileType     string `json:"file_type"`
	FileSize     int64  `json:"file_size"`
	OriginalName string `json:"original_name"`
	Status       string `json:"status"`
}

// Transaction moves funds in or out of an advertiser balance.
type Transaction struct {
	Amount        float64 `json:"amount"`
	TransactionID string  `json:"transaction_id"`
}

// BalanceResult is returned by deposits and withdrawals.
type BalanceResult struct {
	Message string  `json:"message"`
	Balance float64 `json:"balance"`
}

// StatusChange moves a resource to a new status.
type StatusChange struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Campaign is an advertising campaign.
type Campaign struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	AdvertiserID     int64           `json:"advertiser_id"`
	DailyBudget      float64         `json:"daily_budget"`
	TotalBudget      float64         `json:"total_budget"`
	StartDate        string          `json:"start_date"`
	EndDate          string          `json:"end_date,omitempty"`
	Status           string          `json:"status,omitempty"`
	BidStrategy      string          `json:"bid_strategy,omitempty"`
	BidAmount        float64         `json:"bid_amount"`
	FrequencyCap     *int            `json:"frequency_cap,omitempty"`
	FrequencyPeriod  string          `json:"frequency_period,omitempty"`
	OptimizationGoal string          `json:"optimization_goal,omitempty"`
	Targeting        json.RawMessage `json:"targeting,omitempty"`
	RejectionReason  string          `json:"rejection_reason,omitempty"`
	CreatedAt        string          `json:"created_at,omitempty"`
	UpdatedAt        string          `json:"updated_at,omitempty"`
}

// Creative is an ad creative.
type Creative struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	AdvertiserID int64   `json:"advertiser_id"`
	CampaignID   int64   `json:"campaign_id"`
	Status       string  `json:"status,omitempty"`
	Type         string  `json:"type"`
	Format       string  `json:"format"`
	FileType     string  `json:"file_type,omitempty"`
	FileSize     int64   `json:"file_size,omitempty"`
	FilePath     string  `json:"file_path,omitempty"`
	Title        string  `json:"title,omitempty"`
	Description  string  `json:"description,omitempty"`
	CallToAction string  `json:"call_to_action,omitempty"`
	LandingURL   string  `json:"landing_url"`
	Duration     *int    `json:"duration,omitempty"`
	Impressions  int64   `json:"impressions"`
	Clicks       int64   `json:"clicks"`
	Conversions  int64   `json:"conversions"`
	Spend        float64 `json:"spend"`
	CreatedAt    string  `json:"created_at,omitempty"`
	UpdatedAt    string  `json:"updated_at,omitempty"`
}

// Metrics is one row of delivery statistics.
type Metrics struct {
	Date         string  `json:"date,omitempty"`
	AdvertiserID *int64  `json:"advertiser_id,omitempty"`
	CampaignID   *int64  `json:"campaign_id,omitempty"`
	CreativeID   *int64  `json:"creative_id,omitempty"`
	Impressions  int64   `json:"impressions"`
	Clicks       int64   `json:"clicks"`
	Conversions  int64   `json:"conversions"`
	Spend        float64 `json:"spend"`
	CTR          float64 `json:"ctr"`
	CPC          float64 `json:"cpc"`
	CPM          float64 `json:"cpm"`
	CVR          float64 `json:"cvr"`
	CPA          float64 `json:"cpa"`
}

// Statistics is a metrics series with its totals.
type Statistics struct {
	Items   []Metrics `json:"items"`
	Summary *Metrics  `json:"summary,omitempty"`
}

// ReportJob is an asynchronous report generation job.
type ReportJob struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Status       string          `json:"status"`
	ReportType   string          `json:"report_type"`
	Parameters   json.RawMessage `json:"parameters,omitempty"`
	StartDate    string          `json:"start_date"`
	EndDate      string          `json:"end_date"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    string          `json:"created_at,omitempty"`
}

// ReportJobRequest starts a report job.
type ReportJobRequest struct {
	Name       string         `json:"name"`
	ReportType string         `json:"report_type"`
	StartDate  string         `json:"start_date"`
	EndDate    string         `json:"end_date"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// User is a console user as managed under settings.
type User struct {
	ID           int64    `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	FullName     string   `json:"full_name,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	IsActive     bool     `json:"is_active"`
	IsSuperuser  bool     `json:"is_superuser"`
	AdvertiserID *int64   `json:"advertiser_id,omitempty"`
	Roles        []string `json:"roles,omitempty"`
	LastLogin    string   `json:"last_login,omitempty"`
}

// UserInput creates or updates a user. Password is only sent on create.
type UserInput struct {
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	Password     string   `json:"password,omitempty"`
	FullName     string   `json:"full_name,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	IsActive     *bool    `json:"is_active,omitempty"`
	AdvertiserID *int64   `json:"advertiser_id,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// PasswordChange replaces a user's password.
type PasswordChange struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// Role groups permissions.
type Role struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Permissions json.RawMessage `json:"permissions,omitempty"`
}

// Message is the acknowledgement body of actions without a resource.
type Message struct {
	Message string `json:"message"`
}
