package wallet

import (
	"errors"
	"fmt"
)

type fundsError struct {
	availableSats uint64
	requiredSats  uint64
}

// NewFundsError reports an insufficient UTXO balance for a requested
// send, with both sides of the comparison for the notification channel.
func NewFundsError(availableSats uint64, requiredSats uint64) error {
	return &fundsError{
		availableSats: availableSats,
		requiredSats:  requiredSats,
	}
}

func (err *fundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %d sats, required %d sats", err.availableSats, err.requiredSats)
}

func IsFundsError(err error) bool {
	var fundsErr *fundsError
	return errors.As(err, &fundsErr)
}
