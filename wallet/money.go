package wallet

import (
	"github.com/shopspring/decimal"

	"github.com/nusenusewhen-bot/lights-mm/constants"
)

// FiatToSats converts a fiat amount at the given USD rate to a satoshi
// amount, flooring: amount_ltc = fiat / price, kept to full satoshi
// precision with no float drift.
func FiatToSats(fiatAmount decimal.Decimal, priceUSD decimal.Decimal) uint64 {
	if priceUSD.IsZero() {
		return 0
	}
	sats := fiatAmount.
		Div(priceUSD).
		Mul(decimal.NewFromInt(constants.SatsPerCoin)).
		Floor()
	if sats.IsNegative() {
		return 0
	}
	return uint64(sats.IntPart())
}

// LtcString renders a satoshi amount as an 8-decimal LTC string.
func LtcString(sats uint64) string {
	return decimal.NewFromInt(int64(sats)).
		Div(decimal.NewFromInt(constants.SatsPerCoin)).
		StringFixed(8)
}
