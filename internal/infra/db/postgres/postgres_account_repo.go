package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"billing-user/internal/domain"
	"billing-user/internal/domain/model"
	"billing-user/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*PostgresAccountRepo)(nil)

type PostgresAccountRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAccountRepo(pool *pgxpool.Pool) *PostgresAccountRepo {
	return &PostgresAccountRepo{pool: pool}
}

func (r *PostgresAccountRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Account, error) {
	const q = `
SELECT id_user, email, payment_method, id_consumer_type, COALESCE(cuit, ''), COALESCE(razon_social, ''),
       id_responsible_billing, language, id_current_billing_credit, COALESCE(origin_inbound, ''), upgrade_pending
  FROM users
 WHERE email = $1;`
	var (
		a      model.Account
		pm, ct string
		rb     int
	)
	err := pickRow(ctx, r.pool, tx, q, email).Scan(
		&a.ID, &a.Email, &pm, &ct, &a.CUIT, &a.RazonSocial,
		&rb, &a.Language, &a.CurrentBillingCreditID, &a.OriginInbound, &a.UpgradePending,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	a.PaymentMethod = model.PaymentMethodKind(pm)
	a.ConsumerType = model.NormalizeConsumerType(ct)
	a.ResponsibleBilling = model.ResponsibleBilling(rb)
	return &a, nil
}

// FindCurrentPlan returns the plan behind the current billing credit, free
// plans included. Accounts that never got a billing credit yield ErrNotFound.
func (r *PostgresAccountRepo) FindCurrentPlan(ctx context.Context, tx repository.Tx, accountID int64) (*model.Plan, error) {
	const q = `
SELECT p.id_user_type_plan, p.id_user_type, p.description, p.fee, p.email_qty, p.subscribers_qty
  FROM users u
  JOIN billing_credits bc ON bc.id_billing_credit = u.id_current_billing_credit
  JOIN user_types_plans p ON p.id_user_type_plan = bc.id_user_type_plan
 WHERE u.id_user = $1;`
	p, err := scanPlan(pickRow(ctx, r.pool, tx, q, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find current plan: %w", err)
	}
	return p, nil
}

func (r *PostgresAccountRepo) FindEncryptedCreditCard(ctx context.Context, tx repository.Tx, email string) (*model.CreditCard, error) {
	const q = `
SELECT cc_number, cc_holder_full_name, cc_exp_month, cc_exp_year, cc_verification, COALESCE(cc_type, '')
  FROM users
 WHERE email = $1;`
	var (
		number, holder, code sql.NullString
		month, year          sql.NullInt32
		c                    model.CreditCard
	)
	err := pickRow(ctx, r.pool, tx, q, email).Scan(&number, &holder, &month, &year, &code, &c.CardType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find credit card: %w", err)
	}
	if !number.Valid || number.String == "" {
		return nil, domain.ErrNotFound
	}
	c.Number = number.String
	c.HolderName = holder.String
	c.Code = code.String
	c.ExpirationMonth = int(month.Int32)
	c.ExpirationYear = int(year.Int32)
	return &c, nil
}

func (r *PostgresAccountRepo) UpdateBillingCredit(ctx context.Context, tx repository.Tx, a *model.Account) error {
	const q = `
UPDATE users
   SET id_current_billing_credit = $2,
       origin_inbound = NULLIF($3, ''),
       upgrade_pending = FALSE
 WHERE id_user = $1;`
	ct, err := execSQL(ctx, r.pool, tx, q, a.ID, a.CurrentBillingCreditID, a.OriginInbound)
	if err != nil {
		return fmt.Errorf("update account billing credit: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	a.UpgradePending = false
	return nil
}

// AvailableCredit is the partial balance of the account's latest movement.
func (r *PostgresAccountRepo) AvailableCredit(ctx context.Context, tx repository.Tx, accountID int64) (int, error) {
	const q = `
SELECT COALESCE((
    SELECT partial_balance
      FROM movements_credits
     WHERE id_user = $1
     ORDER BY id_movement_credit DESC
     LIMIT 1), 0);`
	var balance int
	if err := pickRow(ctx, r.pool, tx, q, accountID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("available credit: %w", err)
	}
	return balance, nil
}

func (r *PostgresAccountRepo) FindProfile(ctx context.Context, tx repository.Tx, email string) (*model.AccountProfile, error) {
	const q = `
SELECT u.id_user, u.email, u.first_name, u.last_name, u.language,
       COALESCE(u.phone_number, ''), COALESCE(u.company, ''), COALESCE(u.address, ''),
       COALESCE(u.city_name, ''), COALESCE(u.zip_code, ''), COALESCE(s.country_code, ''),
       COALESCE(u.billing_emails, ''), COALESCE(u.cuit, ''), u.id_consumer_type,
       u.payment_term_days, COALESCE(u.bank_name, ''), COALESCE(u.bank_account, ''),
       u.id_responsible_billing
  FROM users u
  LEFT JOIN states s ON s.id_state = u.id_state
 WHERE u.email = $1;`
	var (
		p             model.AccountProfile
		billingEmails string
		ct            string
		rb            int
	)
	err := pickRow(ctx, r.pool, tx, q, email).Scan(
		&p.AccountID, &p.Email, &p.FirstName, &p.LastName, &p.Language,
		&p.Phone, &p.Company, &p.Address, &p.City, &p.ZipCode, &p.Country,
		&billingEmails, &p.CUIT, &ct, &p.PaymentTermDays, &p.BankName, &p.BankAccount, &rb,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find account profile: %w", err)
	}
	p.BillingEmails = splitRecipients(billingEmails)
	p.ConsumerType = model.NormalizeConsumerType(ct)
	p.ResponsibleBilling = model.ResponsibleBilling(rb)
	return &p, nil
}

// UpdatePaymentMethod stores an already encrypted card together with the
// identity fields of the payment method. The account moves to QBL billing.
func (r *PostgresAccountRepo) UpdatePaymentMethod(ctx context.Context, tx repository.Tx, accountID int64, card *model.CreditCard, pm *model.PaymentMethod) error {
	const q = `
UPDATE users
   SET cc_holder_full_name = $2,
       cc_number = $3,
       cc_exp_month = $4,
       cc_exp_year = $5,
       cc_verification = $6,
       cc_type = $7,
       payment_method = $8,
       razon_social = NULLIF($9, ''),
       id_consumer_type = $10,
       cc_identification_type = NULLIF($11, ''),
       cc_identification_number = NULLIF($12, ''),
       id_responsible_billing = $13
 WHERE id_user = $1;`
	ct, err := execSQL(ctx, r.pool, tx, q,
		accountID, card.HolderName, card.Number, card.ExpirationMonth, card.ExpirationYear, card.Code, card.CardType,
		pm.PaymentMethodName, pm.RazonSocial, string(model.NormalizeConsumerType(pm.IDConsumerType)),
		pm.IdentificationType, pm.IdentificationNumber, int(model.ResponsibleBillingQBL),
	)
	if err != nil {
		return fmt.Errorf("update payment method: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresAccountRepo) FindBusinessPartnerSource(ctx context.Context, tx repository.Tx, accountID int64, selectedPlanID int) (*model.BusinessPartnerSource, error) {
	const q = `
SELECT u.id_user, COALESCE(u.billing_emails, ''), u.razon_social, u.billing_first_name, u.billing_last_name,
       u.billing_address, u.city_name, u.id_state, s.country_code, u.address, u.zip_code, u.billing_zip,
       u.email, u.phone_number, u.id_consumer_type, COALESCE(u.cuit, ''), u.is_cancelled,
       u.sap_properties, u.blocked_account_not_payed, COALESCE(v.is_inbound, FALSE),
       bs.country_code, u.payment_method,
       (SELECT id_user_type FROM user_types_plans WHERE id_user_type_plan = $2),
       u.id_responsible_billing, u.id_billing_state, bs.name, u.billing_city
  FROM users u
  LEFT JOIN states s ON s.id_state = u.id_state
  LEFT JOIN vendors v ON v.id_vendor = u.id_vendor
  LEFT JOIN states bs ON bs.id_state = u.id_billing_state
 WHERE u.id_user = $1;`
	var (
		src    model.BusinessPartnerSource
		ct, pm string
		rb     int
	)
	err := pickRow(ctx, r.pool, tx, q, accountID, selectedPlanID).Scan(
		&src.AccountID, &src.BillingEmails, &src.RazonSocial, &src.BillingFirstName, &src.BillingLastName,
		&src.BillingAddress, &src.CityName, &src.StateID, &src.StateCountryCode, &src.Address, &src.ZipCode, &src.BillingZip,
		&src.Email, &src.PhoneNumber, &ct, &src.CUIT, &src.Cancelled,
		&src.SapProperties, &src.BlockedAccountNotPayed, &src.IsInbound,
		&src.BillingStateCountryCode, &pm,
		&src.PlanType,
		&rb, &src.BillingStateID, &src.BillingStateName, &src.BillingCity,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find business partner source: %w", err)
	}
	src.ConsumerType = model.NormalizeConsumerType(ct)
	src.PaymentMethod = model.PaymentMethodKind(pm)
	src.ResponsibleBilling = model.ResponsibleBilling(rb)
	return &src, nil
}
