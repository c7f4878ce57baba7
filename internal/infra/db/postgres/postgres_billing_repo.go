package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"billing-user/internal/domain"
	"billing-user/internal/domain/model"
	"billing-user/internal/domain/ports/repository"
)

var _ repository.BillingRepository = (*PostgresBillingRepo)(nil)

type PostgresBillingRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresBillingRepo(pool *pgxpool.Pool) *PostgresBillingRepo {
	return &PostgresBillingRepo{pool: pool}
}

func (r *PostgresBillingRepo) GetBillingInformation(ctx context.Context, tx repository.Tx, email string) (*model.BillingInformation, error) {
	const q = `
SELECT COALESCE(u.billing_first_name, ''), COALESCE(u.billing_last_name, ''), COALESCE(u.billing_address, ''),
       COALESCE(u.billing_city, ''), COALESCE(s.state_code, ''), COALESCE(s.country_code, ''),
       COALESCE(u.billing_zip, ''), COALESCE(u.billing_phone, '')
  FROM users u
  LEFT JOIN states s ON s.id_state = u.id_billing_state
 WHERE u.email = $1;`
	var b model.BillingInformation
	err := pickRow(ctx, r.pool, tx, q, email).Scan(
		&b.Firstname, &b.Lastname, &b.Address, &b.City, &b.Province, &b.Country, &b.ZipCode, &b.Phone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get billing information: %w", err)
	}
	return &b, nil
}

// UpdateBillingInformation resolves the province by state code.
func (r *PostgresBillingRepo) UpdateBillingInformation(ctx context.Context, tx repository.Tx, email string, b *model.BillingInformation) error {
	const q = `
UPDATE users
   SET billing_first_name = $2,
       billing_last_name = $3,
       billing_address = $4,
       billing_city = $5,
       id_billing_state = (SELECT id_state FROM states WHERE state_code = $6),
       billing_phone = $7,
       billing_zip = $8
 WHERE email = $1;`
	ct, err := execSQL(ctx, r.pool, tx, q, email, b.Firstname, b.Lastname, b.Address, b.City, b.Province, b.Phone, b.ZipCode)
	if err != nil {
		return fmt.Errorf("update billing information: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresBillingRepo) GetInvoiceRecipients(ctx context.Context, tx repository.Tx, email string) (*model.InvoiceRecipients, error) {
	const q = `SELECT COALESCE(invoice_recipients, ''), invoice_recipients_plan_id FROM users WHERE email = $1;`
	var (
		raw string
		ir  model.InvoiceRecipients
	)
	if err := pickRow(ctx, r.pool, tx, q, email).Scan(&raw, &ir.PlanID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get invoice recipients: %w", err)
	}
	ir.Recipients = splitRecipients(raw)
	return &ir, nil
}

func (r *PostgresBillingRepo) UpdateInvoiceRecipients(ctx context.Context, tx repository.Tx, email string, recipients []string, planID *int) error {
	const q = `
UPDATE users
   SET invoice_recipients = $2,
       invoice_recipients_plan_id = $3
 WHERE email = $1;`
	ct, err := execSQL(ctx, r.pool, tx, q, email, strings.Join(recipients, ","), planID)
	if err != nil {
		return fmt.Errorf("update invoice recipients: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetCurrentPaymentMethod reads the latest billing credit of the account.
// Card fields are returned as stored (encrypted).
func (r *PostgresBillingRepo) GetCurrentPaymentMethod(ctx context.Context, tx repository.Tx, email string) (*model.PaymentMethod, error) {
	const q = `
SELECT COALESCE(bc.cc_holder_full_name, ''), COALESCE(bc.cc_number, ''), bc.cc_exp_month, bc.cc_exp_year,
       COALESCE(bc.cc_verification, ''), COALESCE(bc.cc_type, ''), bc.payment_method, bc.renewal_month,
       COALESCE(bc.razon_social, ''), bc.id_consumer_type, COALESCE(u.cc_identification_type, ''),
       COALESCE(bc.cuit, u.cc_identification_number, '')
  FROM billing_credits bc
  JOIN users u ON u.id_user = bc.id_user
 WHERE u.email = $1
 ORDER BY bc.date DESC, bc.id_billing_credit DESC
 LIMIT 1;`
	var (
		pm                 model.PaymentMethod
		month, year, renew sql.NullInt32
	)
	err := pickRow(ctx, r.pool, tx, q, email).Scan(
		&pm.CCHolderFullName, &pm.CCNumber, &month, &year,
		&pm.CCVerification, &pm.CCType, &pm.PaymentMethodName, &renew,
		&pm.RazonSocial, &pm.IDConsumerType, &pm.IdentificationType, &pm.IdentificationNumber,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get current payment method: %w", err)
	}
	pm.CCExpMonth = nullIntString(month)
	pm.CCExpYear = nullIntString(year)
	pm.RenewalMonth = nullIntString(renew)
	return &pm, nil
}

func (r *PostgresBillingRepo) GetCurrentPlan(ctx context.Context, tx repository.Tx, email string) (*model.CurrentPlan, error) {
	const q = `
SELECT p.id_user_type_plan, p.id_user_type, p.fee, p.email_qty, p.subscribers_qty,
       COALESCE((SELECT m.partial_balance FROM movements_credits m
                  WHERE m.id_user = u.id_user
                  ORDER BY m.id_movement_credit DESC LIMIT 1), 0)
  FROM users u
  JOIN billing_credits bc ON bc.id_billing_credit = u.id_current_billing_credit
  JOIN user_types_plans p ON p.id_user_type_plan = bc.id_user_type_plan
 WHERE u.email = $1;`
	var (
		cp       model.CurrentPlan
		userType int
	)
	err := pickRow(ctx, r.pool, tx, q, email).Scan(
		&cp.PlanID, &userType, &cp.Fee, &cp.EmailQty, &cp.SubscribersQty, &cp.RemainingCredits,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get current plan: %w", err)
	}
	cp.PlanType = model.UserType(userType).String()
	return &cp, nil
}

func (r *PostgresBillingRepo) CreateAccountingEntries(ctx context.Context, tx repository.Tx, invoice, payment *model.AccountingEntry) (int64, error) {
	const q = `
INSERT INTO accounting_entries (
  id_client, date, amount, account_entry_type, status, source, id_invoice,
  authorization_number, cc_number, cc_type, payment_method, currency
) VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''),NULLIF($9,''),NULLIF($10,''),NULLIF($11,''),$12)
RETURNING id_accounting_entry;`
	insert := func(e *model.AccountingEntry) (int64, error) {
		var id int64
		err := pickRow(ctx, r.pool, tx, q,
			e.AccountID, e.Date, e.Amount, string(e.Type), e.Status, e.Source, e.InvoiceID,
			e.AuthorizationNumber, e.CCNumber, e.CCType, string(e.PaymentMethod), e.Currency,
		).Scan(&id)
		return id, err
	}

	invoiceID, err := insert(invoice)
	if err != nil {
		return 0, fmt.Errorf("insert invoice entry: %w", err)
	}
	invoice.ID = invoiceID
	payment.InvoiceID = &invoiceID
	if payment.ID, err = insert(payment); err != nil {
		return 0, fmt.Errorf("insert payment entry: %w", err)
	}
	return invoiceID, nil
}

func (r *PostgresBillingRepo) CreateBillingCredit(ctx context.Context, tx repository.Tx, bc *model.BillingCredit) (int64, error) {
	const q = `
INSERT INTO billing_credits (
  id_user, date, payment_method, id_consumer_type, razon_social, cuit,
  cc_number, cc_holder_full_name, cc_exp_month, cc_exp_year, cc_verification, cc_type,
  id_user_type_plan, id_previous_plan, plan_fee, credits_qty, extra_credits, total_credits_qty,
  id_promotion, discount_percentage, activation_date, payment_date, approved,
  authorization_number, id_accounting_invoice, id_responsible_billing
) VALUES (
  $1,$2,$3,$4,NULLIF($5,''),NULLIF($6,''),
  NULLIF($7,''),NULLIF($8,''),$9,$10,NULLIF($11,''),NULLIF($12,''),
  $13,$14,$15,$16,$17,$18,
  $19,$20,$21,$22,$23,
  NULLIF($24,''),$25,$26
) RETURNING id_billing_credit;`
	var expMonth, expYear *int
	if bc.CCExpMonth > 0 {
		expMonth = &bc.CCExpMonth
	}
	if bc.CCExpYear > 0 {
		expYear = &bc.CCExpYear
	}
	var id int64
	err := pickRow(ctx, r.pool, tx, q,
		bc.AccountID, bc.Date, string(bc.PaymentMethod), string(bc.ConsumerType), bc.RazonSocial, bc.CUIT,
		bc.CCNumber, bc.CCHolderFullName, expMonth, expYear, bc.CCVerification, bc.CCType,
		bc.PlanID, bc.PreviousPlanID, bc.PlanFee, bc.CreditsQty, bc.ExtraCredits, bc.TotalCreditsQty,
		bc.PromotionID, bc.DiscountPercentage, bc.ActivationDate, bc.PaymentDate, bc.Approved,
		bc.AuthorizationNumber, bc.AccountingInvoiceID, int(bc.ResponsibleBilling),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert billing credit: %w", err)
	}
	bc.ID = id
	return id, nil
}

func (r *PostgresBillingRepo) FindBillingCredit(ctx context.Context, tx repository.Tx, id int64) (*model.BillingCredit, error) {
	const q = `
SELECT id_billing_credit, id_user, date, payment_method, id_consumer_type, COALESCE(razon_social, ''), COALESCE(cuit, ''),
       COALESCE(cc_number, ''), COALESCE(cc_holder_full_name, ''), cc_exp_month, cc_exp_year,
       COALESCE(cc_verification, ''), COALESCE(cc_type, ''),
       id_user_type_plan, id_previous_plan, plan_fee, credits_qty, extra_credits, total_credits_qty,
       id_promotion, discount_percentage, activation_date, payment_date, approved,
       COALESCE(authorization_number, ''), id_accounting_invoice, id_responsible_billing
  FROM billing_credits
 WHERE id_billing_credit = $1;`
	var (
		bc          model.BillingCredit
		pm, ct      string
		month, year sql.NullInt32
		rb          int
	)
	err := pickRow(ctx, r.pool, tx, q, id).Scan(
		&bc.ID, &bc.AccountID, &bc.Date, &pm, &ct, &bc.RazonSocial, &bc.CUIT,
		&bc.CCNumber, &bc.CCHolderFullName, &month, &year,
		&bc.CCVerification, &bc.CCType,
		&bc.PlanID, &bc.PreviousPlanID, &bc.PlanFee, &bc.CreditsQty, &bc.ExtraCredits, &bc.TotalCreditsQty,
		&bc.PromotionID, &bc.DiscountPercentage, &bc.ActivationDate, &bc.PaymentDate, &bc.Approved,
		&bc.AuthorizationNumber, &bc.AccountingInvoiceID, &rb,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find billing credit: %w", err)
	}
	bc.PaymentMethod = model.PaymentMethodKind(pm)
	bc.ConsumerType = model.NormalizeConsumerType(ct)
	bc.CCExpMonth = int(month.Int32)
	bc.CCExpYear = int(year.Int32)
	bc.ResponsibleBilling = model.ResponsibleBilling(rb)
	return &bc, nil
}

func (r *PostgresBillingRepo) CreateCreditMovement(ctx context.Context, tx repository.Tx, m *model.CreditMovement) (int64, error) {
	const q = `
INSERT INTO movements_credits (
  id_user, id_billing_credit, date, credits_qty, partial_balance, concept_english, concept_spanish, visible
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id_movement_credit;`
	var id int64
	err := pickRow(ctx, r.pool, tx, q,
		m.AccountID, m.BillingCreditID, m.Date, m.CreditsQty, m.PartialBalance, m.ConceptEnglish, m.ConceptSpanish, m.Visible,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert credit movement: %w", err)
	}
	m.ID = id
	return id, nil
}

// splitRecipients splits a comma separated list, dropping blanks.
func splitRecipients(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func nullIntString(v sql.NullInt32) string {
	if !v.Valid {
		return ""
	}
	return strconv.Itoa(int(v.Int32))
}
