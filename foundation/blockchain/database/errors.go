package database

import "errors"

// Set of error variables for the ledger. Callers use errors.Is against these
// values to decide what kind of failure occurred.
var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrChainIntegrity     = errors.New("chain integrity violation")
	ErrPersistence        = errors.New("persistence failure")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrStaleBlock         = errors.New("block does not extend the current head")
	ErrNotFound           = errors.New("not found")
)
