package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"billing-user/internal/domain"
	"billing-user/internal/domain/model"
	"billing-user/internal/domain/ports/adapter"
	"billing-user/internal/domain/ports/repository"
	ucport "billing-user/internal/domain/ports/usecase"
	"billing-user/internal/infra/logging"
)

// Compile-time check
var _ ucport.PaymentMethodManager = (*paymentMethodUC)(nil)

type paymentMethodUC struct {
	accounts repository.AccountRepository
	billing  repository.BillingRepository
	gateway  adapter.PaymentGateway
	enc      adapter.Encrypter
	sap      adapter.SapDispatcher
	alerter  adapter.Alerter
	log      *zerolog.Logger
}

func NewPaymentMethodUseCase(
	accounts repository.AccountRepository,
	billing repository.BillingRepository,
	gateway adapter.PaymentGateway,
	enc adapter.Encrypter,
	sap adapter.SapDispatcher,
	alerter adapter.Alerter,
	logger *zerolog.Logger,
) *paymentMethodUC {
	return &paymentMethodUC{
		accounts: accounts,
		billing:  billing,
		gateway:  gateway,
		enc:      enc,
		sap:      sap,
		alerter:  alerter,
		log:      logger,
	}
}

// GetCurrent returns the stored payment method with card data masked.
func (u *paymentMethodUC) GetCurrent(ctx context.Context, account string) (*model.PaymentMethod, error) {
	defer logging.TraceDuration(u.log, "PaymentMethodUC.GetCurrent")()
	pm, err := u.billing.GetCurrentPaymentMethod(ctx, repository.NoTX, account)
	if err != nil {
		return nil, err
	}

	kind, _ := model.ParsePaymentMethodKind(pm.PaymentMethodName)
	if kind == model.PaymentMethodCC || kind == model.PaymentMethodMP {
		if pm.CCHolderFullName, err = u.enc.Decrypt(pm.CCHolderFullName); err != nil {
			return nil, err
		}
		number, err := u.enc.Decrypt(pm.CCNumber)
		if err != nil {
			return nil, err
		}
		pm.CCNumber = model.ObfuscateNumber(number)
		code, err := u.enc.Decrypt(pm.CCVerification)
		if err != nil {
			return nil, err
		}
		pm.CCVerification = model.ObfuscateVerificationCode(code)
	}
	pm.IDConsumerType = string(model.NormalizeConsumerType(pm.IDConsumerType))
	return pm, nil
}

// UpdateCurrent switches the payment method. Credit cards are validated
// with the gateway before anything is stored; MP and transfer are accepted
// as they come.
func (u *paymentMethodUC) UpdateCurrent(ctx context.Context, account string, pm *model.PaymentMethod) error {
	defer logging.TraceDuration(u.log, "PaymentMethodUC.UpdateCurrent")()
	if pm == nil {
		return domain.NewValidationError([]string{"Request body must not be empty."})
	}
	kind, err := model.ParsePaymentMethodKind(pm.PaymentMethodName)
	if err != nil {
		return domain.NewValidationError([]string{"'Payment Method Name' is not valid."})
	}
	if kind != model.PaymentMethodCC {
		return nil
	}
	pm.PaymentMethodName = string(kind)

	log := logging.With(logging.WithAccount(ctx, account), u.log)

	card, err := u.encryptCard(pm)
	if err != nil {
		return err
	}

	acct, err := u.accounts.FindByEmail(ctx, repository.NoTX, account)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrAccountNotFound
	}
	if err != nil {
		return err
	}

	valid, err := u.gateway.IsValidCreditCard(ctx, card, acct.ID)
	if err != nil {
		log.Error().Err(err).Msg("credit card validation failed")
		u.alert(ctx, log, fmt.Sprintf("Failed at validating credit card for user: %s. Error: %v", account, err))
		return err
	}
	if !valid {
		log.Error().Msg("invalid credit card")
		u.alert(ctx, log, fmt.Sprintf("Failed at updating payment method for user: %s. Invalid credit card", account))
		return domain.ErrInvalidCreditCard
	}

	if err := u.accounts.UpdatePaymentMethod(ctx, repository.NoTX, acct.ID, card, pm); err != nil {
		return err
	}

	u.pushBusinessPartner(ctx, log, account, acct.ID, pm)
	return nil
}

// pushBusinessPartner is best-effort: the payment method is already saved.
func (u *paymentMethodUC) pushBusinessPartner(ctx context.Context, log *zerolog.Logger, account string, accountID int64, pm *model.PaymentMethod) {
	src, err := u.accounts.FindBusinessPartnerSource(ctx, repository.NoTX, accountID, pm.IDSelectedPlan)
	var bp *model.SapBusinessPartner
	if err == nil {
		bp, err = businessPartner(src, pm)
	}
	if err == nil {
		err = u.sap.DispatchBusinessPartner(ctx, bp)
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to dispatch SAP business partner")
		u.alert(ctx, log, fmt.Sprintf("Failed at sending business partner to SAP for user: %s. Error: %v", account, err))
	}
}

func (u *paymentMethodUC) encryptCard(pm *model.PaymentMethod) (*model.CreditCard, error) {
	var errs []string
	month, err := strconv.Atoi(strings.TrimSpace(pm.CCExpMonth))
	if err != nil || month < 1 || month > 12 {
		errs = append(errs, "'Cc Exp Month' is not valid.")
	}
	year, err := strconv.Atoi(strings.TrimSpace(pm.CCExpYear))
	if err != nil || year <= 0 {
		errs = append(errs, "'Cc Exp Year' is not valid.")
	}
	if strings.TrimSpace(pm.CCNumber) == "" {
		errs = append(errs, "'Cc Number' must not be empty.")
	}
	if len(errs) > 0 {
		return nil, domain.NewValidationError(errs)
	}

	card := &model.CreditCard{ExpirationMonth: month, ExpirationYear: year, CardType: pm.CCType}
	fields := []struct {
		dst   *string
		plain string
	}{
		{&card.Number, strings.ReplaceAll(pm.CCNumber, " ", "")},
		{&card.HolderName, pm.CCHolderFullName},
		{&card.Code, pm.CCVerification},
	}
	for _, f := range fields {
		v, err := u.enc.Encrypt(f.plain)
		if err != nil {
			return nil, fmt.Errorf("encrypt card field: %w", err)
		}
		*f.dst = v
	}
	return card, nil
}

func (u *paymentMethodUC) alert(ctx context.Context, log *zerolog.Logger, text string) {
	if u.alerter == nil {
		return
	}
	if err := u.alerter.Send(context.WithoutCancel(ctx), text); err != nil {
		log.Warn().Err(err).Msg("failed to send operational alert")
	}
}
