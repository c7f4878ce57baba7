package email

import "billing-user/internal/domain/model"

func customerTemplateKind(c model.PlanCategory) (string, bool) {
	switch c {
	case model.PlanCategoryIndividual:
		return KindUpgradeIndividual, true
	case model.PlanCategoryMonthly:
		return KindUpgradeMonthly, true
	case model.PlanCategorySubscribers:
		return KindUpgradeSubscribers, true
	}
	return "", false
}

// categoryFlags expands the notice variants into the booleans the relay
// templates branch on.
func categoryFlags(m map[string]any, c model.PlanCategory, pm model.PaymentMethodKind, ct model.ConsumerType) {
	m["isIndividualPlan"] = c == model.PlanCategoryIndividual
	m["isMonthlyPlan"] = c == model.PlanCategoryMonthly
	m["isSubscribersPlan"] = c == model.PlanCategorySubscribers
	m["isPaymentMethodCC"] = pm == model.PaymentMethodCC
	m["isPaymentMethodMP"] = pm == model.PaymentMethodMP
	m["isPaymentMethodTransf"] = pm == model.PaymentMethodTransfer
	m["isFinalConsumer"] = ct == model.ConsumerTypeFinal
	m["isRegisteredConsumer"] = ct == model.ConsumerTypeRegistered
}

func customerModel(n *model.UpgradeNotice, urlImagesBase string) map[string]any {
	m := map[string]any{
		"urlImagesBase":       urlImagesBase,
		"firstName":           n.FirstName,
		"creditsQty":          n.CreditsQty,
		"subscribersQty":      n.SubscribersQty,
		"amount":              n.Fee.StringFixed(2),
		"availableCreditsQty": n.AvailableCredits,
		"year":                n.Year,
	}
	categoryFlags(m, n.PlanCategory, n.PaymentMethod, n.ConsumerType)
	return m
}

func adminModel(n *model.AdminUpgradeNotice, urlImagesBase string) map[string]any {
	p := n.Profile
	m := map[string]any{
		"urlImagesBase":      urlImagesBase,
		"user":               p.Email,
		"firstName":          p.FirstName,
		"lastName":           p.LastName,
		"company":            p.Company,
		"phone":              p.Phone,
		"address":            p.Address,
		"city":               p.City,
		"zipCode":            p.ZipCode,
		"country":            p.Country,
		"billingEmails":      p.BillingEmails,
		"cuit":               p.CUIT,
		"paymentTermDays":    p.PaymentTermDays,
		"bankName":           p.BankName,
		"bankAccount":        p.BankAccount,
		"responsibleBilling": int(p.ResponsibleBilling),
		"planId":             n.PlanID,
		"creditsQty":         n.CreditsQty,
		"amount":             n.Fee.StringFixed(2),
		"total":              n.Total.StringFixed(2),
		"promotionCode":      n.Promocode,
		"discount":           n.Discount.String(),
		"originInbound":      n.OriginInbound,
		"year":               n.Year,
	}
	categoryFlags(m, n.PlanCategory, n.PaymentMethod, p.ConsumerType)
	return m
}
