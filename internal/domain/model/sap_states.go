package model

// SapStateCodes maps platform state ids to the ERP state code.
var SapStateCodes = map[int]string{
	1:  "01", // Buenos Aires
	2:  "FL",
	3:  "02", // Ciudad Autónoma de Buenos Aires
	4:  "03", // Córdoba
	5:  "04", // Santa Fe
	6:  "05", // Mendoza
	7:  "CA",
	8:  "NY",
	9:  "TX",
	10: "WA",
}

// BillingStateID resolves the ERP billing state for an account. Accounts
// invoiced by QBL or QuickBooks USA only report a state inside the US, US
// states without a mapping are sent empty and every other unmapped state
// falls back to "99".
func BillingStateID(system ResponsibleBilling, billingCountryCode string, stateID *int) string {
	isUS := billingCountryCode == "US"
	if (system == ResponsibleBillingQBL || system == ResponsibleBillingQuickBookUSA) && !isUS {
		return ""
	}
	var code string
	var ok bool
	if stateID != nil {
		code, ok = SapStateCodes[*stateID]
	}
	switch {
	case ok:
		return code
	case isUS:
		return ""
	default:
		return "99"
	}
}
