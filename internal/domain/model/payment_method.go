package model

// PaymentMethod is the API shape of the account's current payment method.
// Card fields are plain on input and masked on output.
type PaymentMethod struct {
	CCHolderFullName     string `json:"ccHolderFullName"`
	CCNumber             string `json:"ccNumber"`
	CCExpMonth           string `json:"ccExpMonth"`
	CCExpYear            string `json:"ccExpYear"`
	CCVerification       string `json:"ccVerification"`
	CCType               string `json:"ccType"`
	PaymentMethodName    string `json:"paymentMethodName"`
	RenewalMonth         string `json:"renewalMonth"`
	RazonSocial          string `json:"razonSocial"`
	IDConsumerType       string `json:"idConsumerType"`
	IdentificationType   string `json:"identificationType"`
	IdentificationNumber string `json:"identificationNumber"`
	IDSelectedPlan       int    `json:"idSelectedPlan"`
}
