package wallet

import "errors"

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidReason      = errors.New("invalid ledger reason")
	ErrInsufficientFunds  = errors.New("insufficient wallet balance")
	ErrWalletNotFound     = errors.New("wallet not found")
	ErrDuplicateReference = errors.New("duplicate reference")
	ErrReferenceConflict  = errors.New("reference conflicts with different amount")
	ErrBelowMinWithdrawal = errors.New("amount is below the minimum withdrawal")
)
