package mocks

import (
	"context"

	"github.com/shopspring/decimal"
	mock "github.com/stretchr/testify/mock"

	"github.com/nusenusewhen-bot/lights-mm/chain"
)

type MockChainClient struct {
	mock.Mock
}

func (_m *MockChainClient) AddressInfo(ctx context.Context, address string) (*chain.AddressInfo, error) {
	ret := _m.Called(ctx, address)

	var r0 *chain.AddressInfo
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*chain.AddressInfo)
	}
	return r0, ret.Error(1)
}

func (_m *MockChainClient) AddressTransactions(ctx context.Context, address string) ([]chain.AddressTransaction, error) {
	ret := _m.Called(ctx, address)

	var r0 []chain.AddressTransaction
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]chain.AddressTransaction)
	}
	return r0, ret.Error(1)
}

func (_m *MockChainClient) TransactionConfirmed(ctx context.Context, txHash string) (bool, error) {
	ret := _m.Called(ctx, txHash)
	return ret.Bool(0), ret.Error(1)
}

func (_m *MockChainClient) Broadcast(ctx context.Context, rawTxHex string) (string, error) {
	ret := _m.Called(ctx, rawTxHex)
	return ret.String(0), ret.Error(1)
}

func (_m *MockChainClient) PriceUSD(ctx context.Context) decimal.Decimal {
	ret := _m.Called(ctx)
	return ret.Get(0).(decimal.Decimal)
}
