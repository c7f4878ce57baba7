package domain

import (
	"errors"
	"fmt"
)

// AgreementStep names one side-effecting step of agreement creation.
type AgreementStep string

const (
	StepLoadCreditCard      AgreementStep = "load_credit_card"
	StepCharge              AgreementStep = "charge"
	StepAccountingEntries   AgreementStep = "accounting_entries"
	StepCreateBillingCredit AgreementStep = "create_billing_credit"
	StepUpdateAccount       AgreementStep = "update_account"
	StepReadBalance         AgreementStep = "read_balance"
	StepCreateMovement      AgreementStep = "create_movement"
	StepIncrementPromotion  AgreementStep = "increment_promotion"
	StepCommit              AgreementStep = "commit"
	StepLoadProfile         AgreementStep = "load_profile"
	StepCustomerEmail       AgreementStep = "customer_email"
	StepAdminEmail          AgreementStep = "admin_email"
)

// Phase describes how far the financial part of an agreement got before a
// step failed.
type Phase string

const (
	PhaseNothingCharged Phase = "nothing_charged"
	// PhaseChargeUnknown means the processor may have taken the money: the
	// request left but no definite answer came back.
	PhaseChargeUnknown      Phase = "charge_unknown"
	PhaseChargedNotRecorded Phase = "charged_not_recorded"
	PhaseRecorded           Phase = "recorded"
)

// ChargeNotTaken reports whether a payment gateway error proves that no money
// moved: the processor declined, or the request never left.
func ChargeNotTaken(err error) bool {
	return errors.Is(err, ErrPaymentDeclined) ||
		errors.Is(err, ErrUpstreamUnavailable) ||
		errors.Is(err, ErrDecryptFailed) ||
		errors.Is(err, ErrInvalidArgument)
}

// StepError reports the failing step together with its phase.
type StepError struct {
	Step  AgreementStep
	Phase Phase
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("agreement step %s failed (%s): %v", e.Step, e.Phase, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
