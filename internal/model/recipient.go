package model

import "time"

// Recipient is the customer/profile projection the pipeline matches against.
// Never mutated by the pipeline except for the one-shot completion flags,
// which act as idempotency markers.
type Recipient struct {
	ID                    int64
	FullName              string
	Email                 string
	Phone                 string
	Role                  string
	WelcomeEmailSent      bool
	ConfirmationEmailSent bool
	CreatedAt             time.Time
}

// Agreement is the active lease a recipient may be linked to.
type Agreement struct {
	ID              int64
	AgreementNumber string
	CustomerID      int64
	VehicleID       int64
	Status          string
	RentAmount      float64
	StartDate       time.Time
	EndDate         time.Time
	DocumentURL     string
}

// Vehicle is the fleet unit joined into entity bundles.
type Vehicle struct {
	ID           int64
	Make         string
	Model        string
	Year         int
	LicensePlate string
	Color        string
}

// PaymentScheduleEntry is one installment of a lease payment plan.
type PaymentScheduleEntry struct {
	ID          int64
	AgreementID int64
	Amount      float64
	DueDate     time.Time
	Status      string // pending, paid
}

// LegalCase is an open case attached to a customer.
type LegalCase struct {
	ID          int64
	CustomerID  int64
	CaseType    string
	Status      string // e.g. pending_reminder
	Description string
	AmountOwed  float64
}
