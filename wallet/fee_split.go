package wallet

import "fmt"

// SettlementSplit is the three-way division of a confirmed deposit. Only
// the fee share is transferred automatically at confirmation time; the
// receiver share is sent once the receiver supplies an address and the
// retained share stays in the hot wallet.
type SettlementSplit struct {
	FeeSats      uint64
	ReceiverSats uint64
	RetainedSats uint64
}

func (s SettlementSplit) Total() uint64 {
	return s.FeeSats + s.ReceiverSats + s.RetainedSats
}

// SplitPolicy computes settlement splits from configured percentages.
type SplitPolicy struct {
	feePercent      uint64
	receiverPercent uint64
	retainedPercent uint64
}

func NewSplitPolicy(feePercent, receiverPercent, retainedPercent uint64) (*SplitPolicy, error) {
	if feePercent+receiverPercent+retainedPercent != 100 {
		return nil, fmt.Errorf("split percentages must sum to 100, got %d/%d/%d", feePercent, receiverPercent, retainedPercent)
	}
	return &SplitPolicy{
		feePercent:      feePercent,
		receiverPercent: receiverPercent,
		retainedPercent: retainedPercent,
	}, nil
}

// Split divides totalSats without losing a satoshi: integer shares are
// computed by percentage and the rounding remainder lands on the fee
// share, so the three shares always reproduce the settled amount.
func (p *SplitPolicy) Split(totalSats uint64) SettlementSplit {
	receiverSats := totalSats * p.receiverPercent / 100
	retainedSats := totalSats * p.retainedPercent / 100
	feeSats := totalSats - receiverSats - retainedSats

	return SettlementSplit{
		FeeSats:      feeSats,
		ReceiverSats: receiverSats,
		RetainedSats: retainedSats,
	}
}
