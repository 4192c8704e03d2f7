package domain

import "errors"

var (
	// Rule store errors
	ErrRuleParse    = errors.New("invalid rule definition")
	ErrRuleNotFound = errors.New("rule not found")

	// Extraction errors
	ErrExtractionFailed = errors.New("extraction failed")
	ErrInvalidFields    = errors.New("extracted fields are invalid")

	// Retrieval errors
	ErrRetrievalFailed = errors.New("retrieval failed")

	// Generation errors
	ErrNoApplicableRule = errors.New("no applicable rule for business category")
	ErrUnbalancedEntry  = errors.New("journal entry does not balance")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrTooFewLines      = errors.New("journal entry must have at least 2 lines")
	ErrMissingSide      = errors.New("journal entry must have both debit and credit lines")
)
