package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khamis1992/rental-notify/internal/model"
	"github.com/khamis1992/rental-notify/internal/render"
)

// ProfileRepository is the read side of the customer entity graph plus the
// two one-shot completion flags, the only writes this subsystem makes to
// customer state.
type ProfileRepository struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const recipientColumns = `
    p.id, p.full_name, p.email, p.phone_number, p.role,
    p.welcome_email_sent, p.confirmation_email_sent, p.created_at
`

func scanRecipients(rows pgx.Rows) ([]model.Recipient, error) {
	defer rows.Close()
	var out []model.Recipient
	for rows.Next() {
		var r model.Recipient
		if err := rows.Scan(
			&r.ID, &r.FullName, &r.Email, &r.Phone, &r.Role,
			&r.WelcomeEmailSent, &r.ConfirmationEmailSent, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (r *ProfileRepository) WelcomeCandidates(ctx context.Context, since time.Time) ([]model.Recipient, error) {
	query := `
        SELECT ` + recipientColumns + `
        FROM profiles p
        WHERE p.role = 'customer'
          AND p.created_at >= $1
          AND p.welcome_email_sent = FALSE
    `
	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query welcome candidates: %w", err)
	}
	return scanRecipients(rows)
}

func (r *ProfileRepository) ContractConfirmationCandidates(ctx context.Context) ([]model.Recipient, error) {
	query := `
        SELECT DISTINCT ` + recipientColumns + `
        FROM profiles p
        JOIN leases l ON l.customer_id = p.id
        WHERE l.status = 'active'
          AND p.confirmation_email_sent = FALSE
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query confirmation candidates: %w", err)
	}
	return scanRecipients(rows)
}

func (r *ProfileRepository) PaymentReminderCandidates(ctx context.Context, from, to time.Time) ([]model.Recipient, error) {
	query := `
        SELECT DISTINCT ` + recipientColumns + `
        FROM profiles p
        JOIN leases l ON l.customer_id = p.id
        JOIN payment_schedules ps ON ps.lease_id = l.id
        WHERE ps.status = 'pending'
          AND ps.due_date >= $1
          AND ps.due_date <= $2
    `
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment reminder candidates: %w", err)
	}
	return scanRecipients(rows)
}

func (r *ProfileRepository) LatePaymentCandidates(ctx context.Context, now time.Time) ([]model.Recipient, error) {
	query := `
        SELECT DISTINCT ` + recipientColumns + `
        FROM profiles p
        JOIN leases l ON l.customer_id = p.id
        JOIN payment_schedules ps ON ps.lease_id = l.id
        WHERE ps.status = 'pending'
          AND ps.due_date < $1
    `
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query late payment candidates: %w", err)
	}
	return scanRecipients(rows)
}

func (r *ProfileRepository) InsuranceRenewalCandidates(ctx context.Context, from, to time.Time) ([]model.Recipient, error) {
	query := `
        SELECT DISTINCT ` + recipientColumns + `
        FROM profiles p
        JOIN leases l ON l.customer_id = p.id
        JOIN vehicle_insurance vi ON vi.vehicle_id = l.vehicle_id
        WHERE l.status = 'active'
          AND vi.end_date >= $1
          AND vi.end_date <= $2
    `
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query insurance renewal candidates: %w", err)
	}
	return scanRecipients(rows)
}

func (r *ProfileRepository) LegalNoticeCandidates(ctx context.Context) ([]model.Recipient, error) {
	query := `
        SELECT DISTINCT ` + recipientColumns + `
        FROM profiles p
        JOIN legal_cases lc ON lc.customer_id = p.id
        WHERE lc.status = 'pending_reminder'
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query legal notice candidates: %w", err)
	}
	return scanRecipients(rows)
}

// EntityBundle joins the recipient to its most recent lease and that lease's
// vehicle, producing the flat field maps templates render against.
func (r *ProfileRepository) EntityBundle(ctx context.Context, recipientID int64) (render.Bundle, error) {
	bundle := render.Bundle{}

	var fullName, email, phone, address, license string
	err := r.db.QueryRow(ctx, `
        SELECT full_name, email, COALESCE(phone_number, ''), COALESCE(address, ''), COALESCE(driver_license, '')
        FROM profiles WHERE id = $1
    `, recipientID).Scan(&fullName, &email, &phone, &address, &license)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %d: %w", recipientID, err)
	}
	bundle["customer"] = map[string]string{
		"full_name":      fullName,
		"email":          email,
		"phone_number":   phone,
		"address":        address,
		"driver_license": license,
	}

	var (
		agreementNumber    string
		rentAmount         float64
		startDate, endDate time.Time
		vehicleID          int64
	)
	err = r.db.QueryRow(ctx, `
        SELECT agreement_number, rent_amount, start_date, end_date, vehicle_id
        FROM leases
        WHERE customer_id = $1
        ORDER BY created_at DESC
        LIMIT 1
    `, recipientID).Scan(&agreementNumber, &rentAmount, &startDate, &endDate, &vehicleID)
	if errors.Is(err, pgx.ErrNoRows) {
		// No lease yet: customer-only bundle is still renderable.
		return bundle, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest lease for %d: %w", recipientID, err)
	}
	days := int(endDate.Sub(startDate).Hours() / 24)
	bundle["agreement"] = map[string]string{
		"agreement_number":   agreementNumber,
		"rent_amount":        strconv.FormatFloat(rentAmount, 'f', 2, 64),
		"start_date":         startDate.Format("2006-01-02"),
		"end_date":           endDate.Format("2006-01-02"),
		"agreement_duration": strconv.Itoa(days),
	}

	var v model.Vehicle
	err = r.db.QueryRow(ctx, `
        SELECT id, make, model, year, license_plate, COALESCE(color, '')
        FROM vehicles WHERE id = $1
    `, vehicleID).Scan(&v.ID, &v.Make, &v.Model, &v.Year, &v.LicensePlate, &v.Color)
	if errors.Is(err, pgx.ErrNoRows) {
		return bundle, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load vehicle %d: %w", vehicleID, err)
	}
	bundle["vehicle"] = map[string]string{
		"make":          v.Make,
		"model":         v.Model,
		"year":          strconv.Itoa(v.Year),
		"license_plate": v.LicensePlate,
		"color":         v.Color,
	}

	return bundle, nil
}

func (r *ProfileRepository) MarkWelcomeEmailSent(ctx context.Context, recipientID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE profiles SET welcome_email_sent = TRUE WHERE id = $1`, recipientID)
	return err
}

func (r *ProfileRepository) MarkConfirmationEmailSent(ctx context.Context, recipientID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE profiles SET confirmation_email_sent = TRUE WHERE id = $1`, recipientID)
	return err
}

// LatestAgreement backs contract attachments.
func (r *ProfileRepository) LatestAgreement(ctx context.Context, customerID int64) (*model.Agreement, error) {
	var a model.Agreement
	err := r.db.QueryRow(ctx, `
        SELECT id, agreement_number, customer_id, vehicle_id, status,
               rent_amount, start_date, end_date, COALESCE(document_url, '')
        FROM leases
        WHERE customer_id = $1
        ORDER BY created_at DESC
        LIMIT 1
    `, customerID).Scan(
		&a.ID, &a.AgreementNumber, &a.CustomerID, &a.VehicleID, &a.Status,
		&a.RentAmount, &a.StartDate, &a.EndDate, &a.DocumentURL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest agreement for %d: %w", customerID, err)
	}
	return &a, nil
}

// PendingSchedule backs payment-mail attachments.
func (r *ProfileRepository) PendingSchedule(ctx context.Context, customerID int64) ([]model.PaymentScheduleEntry, error) {
	rows, err := r.db.Query(ctx, `
        SELECT ps.id, ps.lease_id, ps.amount, ps.due_date, ps.status
        FROM payment_schedules ps
        JOIN leases l ON l.id = ps.lease_id
        WHERE l.customer_id = $1
          AND ps.status = 'pending'
        ORDER BY ps.due_date
    `, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment schedule for %d: %w", customerID, err)
	}
	defer rows.Close()

	var entries []model.PaymentScheduleEntry
	for rows.Next() {
		var e model.PaymentScheduleEntry
		if err := rows.Scan(&e.ID, &e.AgreementID, &e.Amount, &e.DueDate, &e.Status); err != nil {
			return nil, fmt.Errorf("failed to scan schedule entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// OpenLegalCase backs legal-notice attachments.
func (r *ProfileRepository) OpenLegalCase(ctx context.Context, customerID int64) (*model.LegalCase, error) {
	var c model.LegalCase
	err := r.db.QueryRow(ctx, `
        SELECT id, customer_id, case_type, status, COALESCE(description, ''), COALESCE(amount_owed, 0)
        FROM legal_cases
        WHERE customer_id = $1
          AND status = 'pending_reminder'
        ORDER BY created_at DESC
        LIMIT 1
    `, customerID).Scan(
		&c.ID, &c.CustomerID, &c.CaseType, &c.Status, &c.Description, &c.AmountOwed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load legal case for %d: %w", customerID, err)
	}
	return &c, nil
}
