package model

import "strings"

// BillingInformation is the billing profile of an account.
type BillingInformation struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Country   string `json:"country"`
	ZipCode   string `json:"zipCode"`
	Phone     string `json:"phone"`
}

// Validate returns one message per missing field, in field order.
func (b *BillingInformation) Validate() []string {
	var errs []string
	required := []struct {
		name, value string
	}{
		{"Firstname", b.Firstname},
		{"Lastname", b.Lastname},
		{"Address", b.Address},
		{"City", b.City},
		{"Province", b.Province},
		{"Country", b.Country},
		{"ZipCode", b.ZipCode},
		{"Phone", b.Phone},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, "'"+f.name+"' must not be empty.")
		}
	}
	return errs
}

// InvoiceRecipients lists the addresses that receive invoices for a plan.
type InvoiceRecipients struct {
	Recipients []string `json:"recipients"`
	PlanID     *int     `json:"planId,omitempty"`
}
