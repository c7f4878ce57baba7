//go:build !integration

package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billing-user/internal/domain"
	"billing-user/internal/domain/model"
	"billing-user/internal/domain/ports/repository"
)

type paymentMethodFixture struct {
	accounts *MockAccountRepo
	billing  *MockBillingRepo
	gateway  *MockGateway
	sap      *MockSapDispatcher
	alerter  *MockAlerter

	savedCard *model.CreditCard
	savedPM   *model.PaymentMethod
}

func newPaymentMethodFixture() *paymentMethodFixture {
	f := &paymentMethodFixture{
		gateway: &MockGateway{},
		sap:     &MockSapDispatcher{},
		alerter: &MockAlerter{},
		billing: &MockBillingRepo{},
	}
	razon := "Acme SA"
	billingCountry := "AR"
	f.accounts = &MockAccountRepo{
		FindByEmailFunc: func(ctx context.Context, tx repository.Tx, email string) (*model.Account, error) {
			if email != testAccount {
				return nil, domain.ErrNotFound
			}
			return &model.Account{ID: 7, Email: email}, nil
		},
		UpdatePaymentMethodFunc: func(ctx context.Context, tx repository.Tx, accountID int64, card *model.CreditCard, pm *model.PaymentMethod) error {
			f.savedCard, f.savedPM = card, pm
			return nil
		},
		FindBusinessPartnerSourceFunc: func(ctx context.Context, tx repository.Tx, accountID int64, selectedPlanID int) (*model.BusinessPartnerSource, error) {
			return &model.BusinessPartnerSource{
				AccountID:               accountID,
				Email:                   testAccount,
				BillingEmails:           "a@example.com, b@example.com",
				RazonSocial:             &razon,
				ConsumerType:            model.ConsumerTypeFinal,
				CUIT:                    "20-1",
				BillingStateCountryCode: &billingCountry,
				ResponsibleBilling:      model.ResponsibleBillingGB,
				SapProperties:           []byte(`{"segment":"smb"}`),
			}, nil
		},
	}
	return f
}

func (f *paymentMethodFixture) uc() *paymentMethodUC {
	return NewPaymentMethodUseCase(f.accounts, f.billing, f.gateway, prefixEncrypter{}, f.sap, f.alerter, newTestLogger())
}

func creditCardRequest() *model.PaymentMethod {
	return &model.PaymentMethod{
		PaymentMethodName:    "cc",
		CCHolderFullName:     "Jane Doe",
		CCNumber:             "4111 1111 1111 1234",
		CCExpMonth:           "12",
		CCExpYear:            "2030",
		CCVerification:       "123",
		CCType:               "Visa",
		IDConsumerType:       "CF",
		IdentificationType:   "DNI",
		IdentificationNumber: "30111222",
		IDSelectedPlan:       11,
	}
}

func TestPaymentMethodUC_UpdateCurrent_ValidCard(t *testing.T) {
	f := newPaymentMethodFixture()

	err := f.uc().UpdateCurrent(context.Background(), testAccount, creditCardRequest())

	require.NoError(t, err)
	require.NotNil(t, f.savedCard)
	assert.Equal(t, "enc:4111111111111234", f.savedCard.Number)
	assert.Equal(t, "enc:Jane Doe", f.savedCard.HolderName)
	assert.Equal(t, "enc:123", f.savedCard.Code)
	assert.Equal(t, 12, f.savedCard.ExpirationMonth)
	assert.Equal(t, "CC", f.savedPM.PaymentMethodName)

	require.Len(t, f.sap.Partners, 1)
	bp := f.sap.Partners[0]
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, bp.BillingEmails)
	assert.Equal(t, "Acme SA", bp.FirstName)
	assert.Equal(t, "30111222", bp.FederalTaxID)
	assert.Equal(t, "DNI", bp.FederalTaxType)
	assert.Equal(t, "smb", bp.SapProperties["segment"])
	assert.Equal(t, "99", bp.BillingStateID)
	assert.Empty(t, f.alerter.Texts)
}

func TestPaymentMethodUC_UpdateCurrent_LeavesValidationMetricsToGateway(t *testing.T) {
	f := newPaymentMethodFixture()
	valid := counterValue("billing_user_card_validations_total", "result", "valid")

	err := f.uc().UpdateCurrent(context.Background(), testAccount, creditCardRequest())

	require.NoError(t, err)
	assert.Equal(t, valid, counterValue("billing_user_card_validations_total", "result", "valid"))
}

func TestPaymentMethodUC_UpdateCurrent_InvalidCard(t *testing.T) {
	f := newPaymentMethodFixture()
	f.gateway.IsValidCreditCardFunc = func(ctx context.Context, card *model.CreditCard, accountID int64) (bool, error) {
		return false, nil
	}

	err := f.uc().UpdateCurrent(context.Background(), testAccount, creditCardRequest())

	assert.ErrorIs(t, err, domain.ErrInvalidCreditCard)
	assert.EqualError(t, err, "invalid_credit_card: Invalid Credit Card")
	assert.Nil(t, f.savedCard)
	assert.Empty(t, f.sap.Partners)
	assert.Contains(t, f.alerter.Last(), "Invalid credit card")
}

func TestPaymentMethodUC_UpdateCurrent_GatewayError(t *testing.T) {
	f := newPaymentMethodFixture()
	f.gateway.IsValidCreditCardFunc = func(ctx context.Context, card *model.CreditCard, accountID int64) (bool, error) {
		return false, domain.ErrUpstreamUnavailable
	}

	err := f.uc().UpdateCurrent(context.Background(), testAccount, creditCardRequest())

	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Nil(t, f.savedCard)
	assert.Len(t, f.alerter.Texts, 1)
}

func TestPaymentMethodUC_UpdateCurrent_NonCardIsNoop(t *testing.T) {
	for _, name := range []string{"MP", "TRANSF"} {
		t.Run(name, func(t *testing.T) {
			f := newPaymentMethodFixture()

			err := f.uc().UpdateCurrent(context.Background(), testAccount, &model.PaymentMethod{PaymentMethodName: name})

			require.NoError(t, err)
			assert.Nil(t, f.savedPM)
			assert.Empty(t, f.sap.Partners)
		})
	}
}

func TestPaymentMethodUC_UpdateCurrent_Validation(t *testing.T) {
	f := newPaymentMethodFixture()

	err := f.uc().UpdateCurrent(context.Background(), testAccount, &model.PaymentMethod{PaymentMethodName: "CHEQUE"})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	req := creditCardRequest()
	req.CCExpMonth = "13"
	req.CCNumber = " "
	err = f.uc().UpdateCurrent(context.Background(), testAccount, req)
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, []string{"'Cc Exp Month' is not valid.", "'Cc Number' must not be empty."}, de.Details)
	assert.Nil(t, f.savedCard)
}

func TestPaymentMethodUC_UpdateCurrent_UnknownAccount(t *testing.T) {
	f := newPaymentMethodFixture()

	err := f.uc().UpdateCurrent(context.Background(), "ghost@example.com", creditCardRequest())

	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestPaymentMethodUC_UpdateCurrent_SapFailureIsAlertedOnly(t *testing.T) {
	f := newPaymentMethodFixture()
	f.sap.Err = errors.New("erp down")

	err := f.uc().UpdateCurrent(context.Background(), testAccount, creditCardRequest())

	require.NoError(t, err)
	assert.NotNil(t, f.savedCard)
	assert.Contains(t, f.alerter.Last(), "Failed at sending business partner to SAP")
}

func TestPaymentMethodUC_GetCurrent_MasksCard(t *testing.T) {
	f := newPaymentMethodFixture()
	f.billing.GetCurrentPaymentMethodFunc = func(ctx context.Context, tx repository.Tx, email string) (*model.PaymentMethod, error) {
		return &model.PaymentMethod{
			PaymentMethodName: "CC",
			CCHolderFullName:  "enc:Jane Doe",
			CCNumber:          "enc:4111111111111234",
			CCVerification:    "enc:123",
			IDConsumerType:    "ri",
		}, nil
	}

	pm, err := f.uc().GetCurrent(context.Background(), testAccount)

	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", pm.CCHolderFullName)
	assert.Equal(t, "************1234", pm.CCNumber)
	assert.Equal(t, "***", pm.CCVerification)
	assert.Equal(t, "RI", pm.IDConsumerType)
}

func TestPaymentMethodUC_GetCurrent_DecryptFailure(t *testing.T) {
	f := newPaymentMethodFixture()
	f.billing.GetCurrentPaymentMethodFunc = func(ctx context.Context, tx repository.Tx, email string) (*model.PaymentMethod, error) {
		return &model.PaymentMethod{PaymentMethodName: "CC", CCHolderFullName: "plain"}, nil
	}

	_, err := f.uc().GetCurrent(context.Background(), testAccount)

	assert.ErrorIs(t, err, domain.ErrDecryptFailed)
}

func TestBusinessPartner_PersonNameWithoutRazonSocial(t *testing.T) {
	first, last, us := "Jane", "Doe", "US"
	state := 8
	src := &model.BusinessPartnerSource{
		AccountID:               7,
		BillingEmails:           "billing@example.com",
		BillingFirstName:        &first,
		BillingLastName:         &last,
		ConsumerType:            model.ConsumerTypeRegistered,
		CUIT:                    "20-1",
		BillingStateCountryCode: &us,
		BillingStateID:          &state,
		ResponsibleBilling:      model.ResponsibleBillingGB,
	}

	bp, err := businessPartner(src, &model.PaymentMethod{IdentificationNumber: "ignored", IdentificationType: "DNI"})

	require.NoError(t, err)
	assert.Equal(t, "Jane", bp.FirstName)
	assert.Equal(t, "Doe", bp.LastName)
	assert.Equal(t, "20-1", bp.FederalTaxID)
	assert.Empty(t, bp.FederalTaxType)
	assert.Equal(t, "NY", bp.BillingStateID)
	assert.Nil(t, bp.SapProperties)
}
