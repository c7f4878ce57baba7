package model

import "strings"

// CreditCard holds card data as stored: Number, HolderName and Code are
// encrypted at rest and must only be decrypted for the operation at hand.
type CreditCard struct {
	Number          string
	HolderName      string
	ExpirationMonth int
	ExpirationYear  int
	Code            string
	CardType        string
}

// ObfuscateNumber masks all but the last four digits.
func ObfuscateNumber(number string) string {
	n := strings.ReplaceAll(number, " ", "")
	if len(n) <= 4 {
		return n
	}
	return strings.Repeat("*", len(n)-4) + n[len(n)-4:]
}

// ObfuscateVerificationCode masks the whole code.
func ObfuscateVerificationCode(code string) string {
	return strings.Repeat("*", len(code))
}

// LastFour returns the last four digits of a plain card number.
func LastFour(number string) string {
	n := strings.ReplaceAll(number, " ", "")
	if len(n) <= 4 {
		return n
	}
	return n[len(n)-4:]
}
