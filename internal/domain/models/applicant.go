package models

// Loan purposes accepted on an application.
const (
	PurposeDebt     = "debt"
	PurposeHome     = "home"
	PurposePersonal = "personal"
	PurposeVehicle  = "vehicle"
	PurposeOther    = "other"
)

// Employment types accepted on an application.
const (
	EmploymentFull    = "full"
	EmploymentPart    = "part"
	EmploymentSelf    = "self"
	EmploymentRetired = "retired"
)

// ApplicantRecord holds the attributes an applicant declares for a decision.
// A record is immutable once submitted for scoring; a resubmission is a new
// record, never an in-place mutation.
type ApplicantRecord struct {
	Amount                float64 `json:"amount" validate:"gte=0"`
	Term                  int     `json:"term" validate:"gte=0"`
	ActiveAccounts        int     `json:"active_accounts" validate:"gte=0"`
	DefaultedAccounts     int     `json:"defaulted_accounts" validate:"gte=0"`
	AccountsOpenedLast12m int     `json:"accounts_opened_12m" validate:"gte=0"`
	OldestAccountAgeMonths int    `json:"oldest_account_age_months" validate:"gte=0"`
	Balance               float64 `json:"balance" validate:"gte=0"`
	TotalDefaults         int     `json:"total_defaults" validate:"gte=0"`
	Purpose               string  `json:"purpose" validate:"required,oneof=debt home personal vehicle other"`
	EmploymentType        string  `json:"employment_type" validate:"required,oneof=full part self retired"`
	ApplicantName         string  `json:"applicant_name" validate:"required"`
	ApplicantEmail        string  `json:"applicant_email" validate:"required,email"`
}
