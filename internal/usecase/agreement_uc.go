package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"billing-user/internal/domain"
	"billing-user/internal/domain/model"
	"billing-user/internal/domain/ports/adapter"
	"billing-user/internal/domain/ports/repository"
	ucport "billing-user/internal/domain/ports/usecase"
	"billing-user/internal/infra/logging"
	"billing-user/internal/infra/metrics"
)

// Compile-time check
var _ ucport.AgreementCreator = (*AgreementService)(nil)

const (
	accountingStatusPaid   = "Paid"
	accountingSource       = "PaymentGateway"
	movementConceptEnglish = "Credits purchased"
	movementConceptSpanish = "Compra de créditos"
)

// AgreementDeps groups the collaborators of AgreementService. Locker and
// Idempotency are optional.
type AgreementDeps struct {
	Accounts    repository.AccountRepository
	Plans       repository.PlanRepository
	Promotions  repository.PromotionRepository
	Billing     repository.BillingRepository
	TxManager   repository.TransactionManager
	Idempotency repository.IdempotencyStore

	Gateway   adapter.PaymentGateway
	Pricing   adapter.PricingValidator
	Encrypter adapter.Encrypter
	Sap       adapter.SapDispatcher
	Email     adapter.EmailNotifier
	Alerter   adapter.Alerter
	Locker    adapter.Locker
}

// AgreementOptions carries the tunables of the workflow.
type AgreementOptions struct {
	Currency string
	LockTTL  time.Duration
	// SapTimeZoneOffset is the hour offset applied to ERP timestamps.
	SapTimeZoneOffset int
	// CustomPlanIDs are legacy plan ids reported to the ERP as custom plans.
	CustomPlanIDs []int
	Now           func() time.Time
}

// AgreementService creates agreements: it validates the plan change,
// charges the card, writes the ledger, syncs the ERP and notifies.
type AgreementService struct {
	deps AgreementDeps
	opts AgreementOptions
	log  *zerolog.Logger
}

func NewAgreementService(deps AgreementDeps, opts AgreementOptions, logger *zerolog.Logger) *AgreementService {
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 2 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &AgreementService{deps: deps, opts: opts, log: logger}
}

// agreementRun holds the state of one Create call as it moves through the
// steps.
type agreementRun struct {
	account string
	req     *model.AgreementRequest
	now     time.Time
	log     *zerolog.Logger

	acct      *model.Account
	previous  *model.Plan
	plan      *model.Plan
	promo     *model.Promotion
	promoOut  model.PromotionOutcome
	total     decimal.Decimal
	card      *model.CreditCard
	authRef   string
	invoiceID *int64

	billingCreditID int64
	movementID      int64
	snapshot        int

	charged       bool
	chargeUnknown bool
	recorded      bool
}

func (r *agreementRun) phase() domain.Phase {
	switch {
	case r.recorded:
		return domain.PhaseRecorded
	case r.charged:
		return domain.PhaseChargedNotRecorded
	case r.chargeUnknown:
		return domain.PhaseChargeUnknown
	default:
		return domain.PhaseNothingCharged
	}
}

func (r *agreementRun) stepErr(step domain.AgreementStep, err error) *domain.StepError {
	return &domain.StepError{Step: step, Phase: r.phase(), Err: err}
}

func agreementLockKey(account string) string {
	return "lock:agreement:" + account
}

// Create runs the agreement workflow for account.
func (s *AgreementService) Create(ctx context.Context, account string, req *model.AgreementRequest, idempotencyKey string) (res *model.AgreementResult, err error) {
	defer logging.TraceDuration(s.log, "AgreementService.Create")()
	start := time.Now()

	opID := ulid.Make().String()
	ctx = logging.WithOperationID(logging.WithAccount(ctx, account), opID)
	run := &agreementRun{account: account, req: req, now: s.opts.Now(), log: logging.With(ctx, s.log), promoOut: model.PromotionNone}

	defer func() {
		outcome := agreementOutcome(err)
		metrics.IncAgreement(outcome)
		metrics.ObserveAgreementDuration(outcome, time.Since(start).Seconds())
	}()

	if req == nil {
		return nil, domain.NewValidationError([]string{"Request body must not be empty."})
	}
	if errs := req.Validate(); len(errs) > 0 {
		run.log.Warn().Strs("errors", errs).Msg("agreement request rejected by validation")
		return nil, domain.NewValidationError(errs)
	}
	run.total = req.TotalAmount()

	if s.deps.Locker != nil {
		token, lerr := s.deps.Locker.TryLock(ctx, agreementLockKey(account), s.opts.LockTTL)
		if lerr != nil {
			if errors.Is(lerr, domain.ErrLockNotAcquired) {
				return nil, s.reject(ctx, run, domain.ErrAgreementInProgress)
			}
			return nil, s.internal(ctx, run, "failed to acquire agreement lock", lerr)
		}
		defer func() {
			if uerr := s.deps.Locker.Unlock(context.WithoutCancel(ctx), agreementLockKey(account), token); uerr != nil {
				run.log.Warn().Err(uerr).Msg("failed to release agreement lock")
			}
		}()
	}

	if idempotencyKey != "" && s.deps.Idempotency != nil {
		reserved, ierr := s.deps.Idempotency.Reserve(ctx, account, idempotencyKey)
		if ierr != nil {
			return nil, s.internal(ctx, run, "failed to reserve idempotency key", ierr)
		}
		if !reserved {
			return nil, s.reject(ctx, run, domain.ErrDuplicateAgreement)
		}
		defer func() {
			// a replay may retry only when no money moved for certain
			if err != nil && run.phase() == domain.PhaseNothingCharged {
				if rerr := s.deps.Idempotency.Release(context.WithoutCancel(ctx), account, idempotencyKey); rerr != nil {
					run.log.Warn().Err(rerr).Msg("failed to release idempotency key")
				}
			}
		}()
	}

	if err := s.checkPreconditions(ctx, run); err != nil {
		return nil, err
	}
	if err := s.resolvePromotion(ctx, run); err != nil {
		return nil, err
	}

	if run.total.IsPositive() {
		if se := s.chargeAndRecordPayment(ctx, run); se != nil {
			return nil, s.fail(ctx, run, se)
		}
	}
	if se := s.recordLedger(ctx, run); se != nil {
		return nil, s.fail(ctx, run, se)
	}

	if run.total.IsPositive() {
		s.dispatchBilling(ctx, run)
	}
	if se := s.notify(ctx, run); se != nil {
		return nil, s.fail(ctx, run, se)
	}

	s.alert(ctx, run, successAlertText(run))
	run.log.Info().
		Int("plan_id", run.plan.ID).
		Int64("billing_credit_id", run.billingCreditID).
		Str("promotion", string(run.promoOut)).
		Msg("agreement created")

	return &model.AgreementResult{
		OperationID:      opID,
		BillingCreditID:  run.billingCreditID,
		MovementID:       run.movementID,
		AuthorizationRef: run.authRef,
		InvoiceID:        run.invoiceID,
		Promotion:        run.promoOut,
	}, nil
}

func (s *AgreementService) checkPreconditions(ctx context.Context, run *agreementRun) error {
	acct, err := s.deps.Accounts.FindByEmail(ctx, repository.NoTX, run.account)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && acct.IsZero()) {
		return s.reject(ctx, run, domain.ErrAccountNotFound)
	}
	if err != nil {
		return s.internal(ctx, run, "failed to load account", err)
	}
	run.acct = acct

	if acct.PaymentMethod != model.PaymentMethodCC {
		return s.reject(ctx, run, domain.ErrInvalidPaymentMethod)
	}

	current, err := s.deps.Accounts.FindCurrentPlan(ctx, repository.NoTX, acct.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return s.internal(ctx, run, "failed to load current plan", err)
	case current.IsZero():
	case current.Type != model.UserTypeFree:
		return s.reject(ctx, run, domain.ErrInvalidUserType)
	default:
		run.previous = current
	}

	plan, err := s.deps.Plans.FindByID(ctx, repository.NoTX, run.req.PlanID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && plan.IsZero()) {
		return s.reject(ctx, run, domain.ErrInvalidPlan)
	}
	if err != nil {
		return s.internal(ctx, run, "failed to load plan", err)
	}
	if plan.Type != model.UserTypeIndividual {
		return s.reject(ctx, run, domain.ErrInvalidPlanType)
	}
	run.plan = plan

	valid, err := s.deps.Pricing.IsValidTotal(ctx, run.account, run.req)
	if err != nil {
		return s.internal(ctx, run, "failed to validate agreement total", err)
	}
	if !valid {
		return s.reject(ctx, run, domain.ErrTotalMismatch)
	}
	return nil
}

// resolvePromotion treats an unknown code as no promotion but records it as
// unresolved so the success alert can mention it.
func (s *AgreementService) resolvePromotion(ctx context.Context, run *agreementRun) error {
	if !run.req.HasPromocode() {
		return nil
	}
	promo, err := s.deps.Promotions.FindByCode(ctx, repository.NoTX, run.req.Promocode, run.plan.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound) || (err == nil && promo == nil):
		run.promoOut = model.PromotionUnresolved
		run.log.Warn().Str("promocode", run.req.Promocode).Int("plan_id", run.plan.ID).Msg("promocode not resolved, continuing without promotion")
		return nil
	case err != nil:
		return s.internal(ctx, run, "failed to load promotion", err)
	}
	run.promo = promo
	run.promoOut = model.PromotionApplied
	return nil
}

func (s *AgreementService) chargeAndRecordPayment(ctx context.Context, run *agreementRun) *domain.StepError {
	card, err := s.deps.Accounts.FindEncryptedCreditCard(ctx, repository.NoTX, run.account)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && card == nil) {
		return run.stepErr(domain.StepLoadCreditCard, domain.ErrCreditCardMissing)
	}
	if err != nil {
		return run.stepErr(domain.StepLoadCreditCard, err)
	}
	run.card = card

	authRef, err := s.deps.Gateway.CreateCreditCardPayment(ctx, run.total, card, run.acct.ID)
	if err != nil {
		run.chargeUnknown = !domain.ChargeNotTaken(err)
		return run.stepErr(domain.StepCharge, err)
	}
	run.charged = true
	run.authRef = authRef

	invoice := s.accountingEntry(run, model.AccountingEntryInvoice)
	payment := s.accountingEntry(run, model.AccountingEntryPayment)
	invoiceID, err := s.deps.Billing.CreateAccountingEntries(ctx, repository.NoTX, invoice, payment)
	if err != nil {
		return run.stepErr(domain.StepAccountingEntries, err)
	}
	run.invoiceID = &invoiceID
	return nil
}

func (s *AgreementService) accountingEntry(run *agreementRun, typ model.AccountingEntryType) *model.AccountingEntry {
	return &model.AccountingEntry{
		AccountID:           run.acct.ID,
		Date:                run.now,
		Amount:              run.total,
		Type:                typ,
		Status:              accountingStatusPaid,
		Source:              accountingSource,
		AuthorizationNumber: run.authRef,
		CCNumber:            run.card.Number,
		CCType:              run.card.CardType,
		PaymentMethod:       model.PaymentMethodCC,
		Currency:            s.opts.Currency,
	}
}

// recordLedger writes the billing credit, points the account at it, takes
// the balance snapshot and writes the movement in one transaction.
func (s *AgreementService) recordLedger(ctx context.Context, run *agreementRun) *domain.StepError {
	bc := s.billingCredit(run)
	credits := bc.TotalCreditsQty

	var stepErr *domain.StepError
	err := s.deps.TxManager.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		bcID, err := s.deps.Billing.CreateBillingCredit(ctx, tx, bc)
		if err != nil {
			stepErr = run.stepErr(domain.StepCreateBillingCredit, err)
			return stepErr
		}

		acct := *run.acct
		acct.CurrentBillingCreditID = &bcID
		acct.OriginInbound = run.req.OriginInbound
		acct.UpgradePending = false
		if err := s.deps.Accounts.UpdateBillingCredit(ctx, tx, &acct); err != nil {
			stepErr = run.stepErr(domain.StepUpdateAccount, err)
			return stepErr
		}

		snapshot, err := s.deps.Accounts.AvailableCredit(ctx, tx, acct.ID)
		if err != nil {
			stepErr = run.stepErr(domain.StepReadBalance, err)
			return stepErr
		}

		mvID, err := s.deps.Billing.CreateCreditMovement(ctx, tx, &model.CreditMovement{
			AccountID:       acct.ID,
			BillingCreditID: bcID,
			Date:            run.now,
			CreditsQty:      credits,
			PartialBalance:  snapshot + credits,
			ConceptEnglish:  movementConceptEnglish,
			ConceptSpanish:  movementConceptSpanish,
			Visible:         true,
		})
		if err != nil {
			stepErr = run.stepErr(domain.StepCreateMovement, err)
			return stepErr
		}

		if run.promo != nil {
			if err := s.deps.Promotions.IncrementUsage(ctx, tx, run.promo.ID); err != nil {
				stepErr = run.stepErr(domain.StepIncrementPromotion, err)
				return stepErr
			}
		}

		run.billingCreditID, run.movementID, run.snapshot = bcID, mvID, snapshot
		run.acct = &acct
		return nil
	})
	if err != nil {
		if stepErr != nil {
			return stepErr
		}
		return run.stepErr(domain.StepCommit, err)
	}
	run.recorded = true
	return nil
}

func (s *AgreementService) billingCredit(run *agreementRun) *model.BillingCredit {
	plan, acct := run.plan, run.acct
	bonus := run.promo.BonusCredits()
	bc := &model.BillingCredit{
		AccountID:           acct.ID,
		Date:                run.now,
		PaymentMethod:       acct.PaymentMethod,
		ConsumerType:        acct.ConsumerType,
		RazonSocial:         acct.RazonSocial,
		CUIT:                acct.CUIT,
		PlanID:              plan.ID,
		PlanFee:             plan.Fee,
		CreditsQty:          plan.Credits(),
		ExtraCredits:        bonus,
		TotalCreditsQty:     plan.Credits() + bonus,
		ActivationDate:      run.now,
		Approved:            true,
		AuthorizationNumber: run.authRef,
		AccountingInvoiceID: run.invoiceID,
		ResponsibleBilling:  acct.ResponsibleBilling,
		DiscountPercentage:  decimal.Zero,
	}
	if run.card != nil {
		bc.CCNumber = run.card.Number
		bc.CCHolderFullName = run.card.HolderName
		bc.CCExpMonth = run.card.ExpirationMonth
		bc.CCExpYear = run.card.ExpirationYear
		bc.CCVerification = run.card.Code
		bc.CCType = run.card.CardType
	}
	if run.charged {
		paid := run.now
		bc.PaymentDate = &paid
	}
	if run.previous != nil {
		prev := run.previous.ID
		bc.PreviousPlanID = &prev
	}
	if run.promo != nil {
		id := run.promo.ID
		bc.PromotionID = &id
		bc.DiscountPercentage = run.promo.DiscountPercentage
	}
	return bc
}

// dispatchBilling hands the ERP billing record to the dispatcher. Failures
// are alerted and never change the result.
func (s *AgreementService) dispatchBilling(ctx context.Context, run *agreementRun) {
	rec, err := s.sapBillingRecord(ctx, run)
	if err == nil {
		err = s.deps.Sap.DispatchBilling(ctx, rec, run.account)
	}
	if err != nil {
		run.log.Error().Err(err).Int64("billing_credit_id", run.billingCreditID).Msg("failed to dispatch SAP billing record")
		s.alert(ctx, run, fmt.Sprintf("Failed at sending billing record to SAP for user: %s. Billing credit: %d. Error: %v", run.account, run.billingCreditID, err))
	}
}

func (s *AgreementService) notify(ctx context.Context, run *agreementRun) *domain.StepError {
	profile, err := s.deps.Accounts.FindProfile(ctx, repository.NoTX, run.account)
	if err != nil {
		return run.stepErr(domain.StepLoadProfile, err)
	}

	plan, bonus := run.plan, run.promo.BonusCredits()
	language := profile.Language
	if language == "" {
		language = run.acct.Language
	}
	subscribers := 0
	if plan.SubscribersQty != nil {
		subscribers = *plan.SubscribersQty
	}

	notice := &model.UpgradeNotice{
		Email:            run.acct.Email,
		FirstName:        profile.FirstName,
		Language:         language,
		PlanCategory:     plan.Category(),
		PaymentMethod:    run.acct.PaymentMethod,
		ConsumerType:     run.acct.ConsumerType,
		CreditsQty:       plan.Credits(),
		SubscribersQty:   subscribers,
		Fee:              plan.Fee,
		AvailableCredits: run.snapshot + plan.Credits() + bonus,
		Year:             run.now.Year(),
	}
	if err := s.deps.Email.SendUpgradeConfirmation(ctx, notice); err != nil {
		return run.stepErr(domain.StepCustomerEmail, err)
	}

	admin := &model.AdminUpgradeNotice{
		Profile:       *profile,
		PlanID:        plan.ID,
		PlanCategory:  plan.Category(),
		PaymentMethod: run.acct.PaymentMethod,
		Fee:           plan.Fee,
		Total:         run.total,
		CreditsQty:    plan.Credits() + bonus,
		OriginInbound: run.req.OriginInbound,
		Year:          run.now.Year(),
	}
	if run.promo != nil {
		admin.Promocode = run.promo.Code
		admin.Discount = run.promo.DiscountPercentage
	}
	if err := s.deps.Email.SendAdminUpgrade(ctx, admin); err != nil {
		return run.stepErr(domain.StepAdminEmail, err)
	}
	return nil
}

// reject logs and alerts a business-rule rejection and returns it.
func (s *AgreementService) reject(ctx context.Context, run *agreementRun, derr *domain.Error) error {
	run.log.Error().Str("code", derr.Code).Msg(derr.Message)
	s.alert(ctx, run, fmt.Sprintf("Failed at creating new agreement for user %s. %s", run.account, derr.Message))
	return derr
}

func (s *AgreementService) internal(ctx context.Context, run *agreementRun, msg string, err error) error {
	run.log.Error().Err(err).Msg(msg)
	s.alert(ctx, run, fmt.Sprintf("Failed at creating new agreement for user %s. %s: %v", run.account, msg, err))
	return &domain.Error{Kind: domain.KindInternal, Code: domain.CodeAgreementFailed, Message: domain.ErrAgreementFailed.Message, Err: err}
}

// fail is the outer envelope for side-effect steps: one client-facing error,
// with logs, metrics and alerts naming the step and how far the money got.
func (s *AgreementService) fail(ctx context.Context, run *agreementRun, se *domain.StepError) error {
	metrics.IncAgreementStepFailure(string(se.Step), string(se.Phase))
	run.log.Error().Err(se.Err).Str("step", string(se.Step)).Str("phase", string(se.Phase)).Msg("agreement step failed")
	s.alert(ctx, run, failureAlertText(run, se))

	if errors.Is(se.Err, domain.ErrCreditCardMissing) {
		return &domain.Error{Kind: domain.KindDataInconsistency, Code: domain.CodeCreditCardMissing, Message: domain.ErrCreditCardMissing.Message, Err: se}
	}
	return &domain.Error{Kind: domain.KindInternal, Code: domain.CodeAgreementFailed, Message: domain.ErrAgreementFailed.Message, Err: se}
}

func (s *AgreementService) alert(ctx context.Context, run *agreementRun, text string) {
	if s.deps.Alerter == nil {
		return
	}
	if err := s.deps.Alerter.Send(context.WithoutCancel(ctx), text); err != nil {
		run.log.Warn().Err(err).Msg("failed to send operational alert")
	}
}

func failureAlertText(run *agreementRun, se *domain.StepError) string {
	switch se.Phase {
	case domain.PhaseChargedNotRecorded:
		return fmt.Sprintf("Failed at creating new agreement for user %s: the card WAS CHARGED (authorization %s) but the agreement was not recorded. Step: %s. Error: %v",
			run.account, run.authRef, se.Step, se.Err)
	case domain.PhaseChargeUnknown:
		return fmt.Sprintf("Failed at creating new agreement for user %s: the charge outcome is UNKNOWN, check the processor before retrying. Step: %s. Error: %v",
			run.account, se.Step, se.Err)
	case domain.PhaseRecorded:
		return fmt.Sprintf("Agreement for user %s was recorded (billing credit %d) but post-processing failed. Step: %s. Error: %v",
			run.account, run.billingCreditID, se.Step, se.Err)
	default:
		return fmt.Sprintf("Failed at creating new agreement for user %s, nothing was charged. Step: %s. Error: %v",
			run.account, se.Step, se.Err)
	}
}

func successAlertText(run *agreementRun) string {
	text := fmt.Sprintf("Successful at creating a new agreement for: User: %s - Plan: %d", run.account, run.plan.ID)
	switch run.promoOut {
	case model.PromotionApplied:
		text += " - Promocode: " + run.promo.Code
	case model.PromotionUnresolved:
		text += fmt.Sprintf(" - Promocode %q was not resolved and was ignored", run.req.Promocode)
	}
	return text
}

func agreementOutcome(err error) string {
	if err == nil {
		return "success"
	}
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindInvalidState, domain.KindNotFound:
		return "rejected"
	case domain.KindConflict:
		return "conflict"
	}
	return "failed"
}
