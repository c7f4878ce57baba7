package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"billing-user/internal/domain/model"
	"billing-user/internal/domain/ports/repository"
)

// sapBillingRecord re-reads the billing credit just written and maps it to
// the ERP shape. Only the last four digits of the card leave the service.
func (s *AgreementService) sapBillingRecord(ctx context.Context, run *agreementRun) (*model.SapBillingRecord, error) {
	bc, err := s.deps.Billing.FindBillingCredit(ctx, repository.NoTX, run.billingCreditID)
	if err != nil {
		return nil, fmt.Errorf("reload billing credit %d: %w", run.billingCreditID, err)
	}
	holder, err := s.deps.Encrypter.Decrypt(bc.CCHolderFullName)
	if err != nil {
		return nil, fmt.Errorf("decrypt card holder: %w", err)
	}
	number, err := s.deps.Encrypter.Decrypt(bc.CCNumber)
	if err != nil {
		return nil, fmt.Errorf("decrypt card number: %w", err)
	}

	zone := time.FixedZone("", s.opts.SapTimeZoneOffset*3600)
	paymentDate := bc.Date
	if bc.PaymentDate != nil {
		paymentDate = *bc.PaymentDate
	}

	// a free plan behind the current billing credit is not a purchase
	paidBefore := run.previous != nil && run.previous.Type != model.UserTypeFree

	quantity := bc.CreditsQty
	if run.plan.Type == model.UserTypeSubscribers && run.plan.SubscribersQty != nil {
		quantity = *run.plan.SubscribersQty
	}

	return &model.SapBillingRecord{
		ID:                   run.acct.ID,
		BillingCreditID:      bc.ID,
		PlanType:             int(run.plan.Type),
		PlanFee:              bc.PlanFee,
		Discount:             bc.DiscountPercentage,
		CreditsOrSubscribers: quantity,
		ExtraCredits:         bc.ExtraCredits,
		IsCustomPlan:         slices.Contains(s.opts.CustomPlanIDs, bc.PlanID),
		IsFirstPurchase:      !paidBefore,
		IsPlanUpgrade:        paidBefore,
		Currency:             s.opts.Currency,
		Total:                run.total,
		CardHolder:           holder,
		CardType:             bc.CCType,
		CardNumber:           model.LastFour(number),
		TransactionApproved:  bc.Approved,
		AuthorizationNumber:  bc.AuthorizationNumber,
		InvoiceID:            bc.AccountingInvoiceID,
		PaymentDate:          paymentDate.In(zone),
		InvoiceDate:          bc.Date.In(zone),
		BillingSystemID:      int(bc.ResponsibleBilling),
		FiscalID:             bc.CUIT,
	}, nil
}

// businessPartner builds the ERP account record from the stored account row
// and the payment method that was just saved.
func businessPartner(src *model.BusinessPartnerSource, pm *model.PaymentMethod) (*model.SapBusinessPartner, error) {
	bp := &model.SapBusinessPartner{
		ID:                 src.AccountID,
		IsClientManager:    false,
		BillingEmails:      strings.Split(strings.ReplaceAll(src.BillingEmails, " ", ""), ","),
		BillingAddress:     deref(src.BillingAddress),
		CityName:           deref(src.CityName),
		StateID:            src.StateID,
		CountryCode:        deref(src.StateCountryCode),
		Address:            deref(src.Address),
		ZipCode:            deref(src.ZipCode),
		BillingZip:         deref(src.BillingZip),
		Email:              src.Email,
		PhoneNumber:        deref(src.PhoneNumber),
		FederalTaxID:       src.CUIT,
		ConsumerType:       src.ConsumerType,
		Cancelled:          src.Cancelled,
		Blocked:            src.BlockedAccountNotPayed,
		IsInbound:          src.IsInbound,
		BillingCountryCode: deref(src.BillingStateCountryCode),
		PaymentMethod:      src.PaymentMethod,
		PlanType:           src.PlanType,
		BillingSystemID:    int(src.ResponsibleBilling),
		County:             deref(src.BillingStateName),
		BillingCity:        deref(src.BillingCity),
	}

	if src.RazonSocial != nil {
		bp.FirstName = *src.RazonSocial
	} else {
		bp.FirstName = deref(src.BillingFirstName)
		bp.LastName = deref(src.BillingLastName)
	}

	if src.ConsumerType == model.ConsumerTypeFinal {
		if pm.IdentificationNumber != "" {
			bp.FederalTaxID = pm.IdentificationNumber
		}
		bp.FederalTaxType = pm.IdentificationType
	}

	if len(src.SapProperties) > 0 {
		if err := json.Unmarshal(src.SapProperties, &bp.SapProperties); err != nil {
			return nil, fmt.Errorf("decode sap properties: %w", err)
		}
	}

	bp.BillingStateID = model.BillingStateID(src.ResponsibleBilling, bp.BillingCountryCode, src.BillingStateID)
	return bp, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
