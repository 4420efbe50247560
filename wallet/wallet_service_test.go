package wallet_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ltcsuite/ltcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nusenusewhen-bot/lights-mm/chain"
	"github.com/nusenusewhen-bot/lights-mm/tests"
	"github.com/nusenusewhen-bot/lights-mm/wallet"
)

const (
	mockTxHashA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	mockTxHashB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"

	broadcastTxHash = "cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"
)

func TestDeriveAddress_Deterministic(t *testing.T) {
	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	address0, err := svc.WalletService.DeriveAddress(0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(address0, "ltc1"), address0)
	assert.True(t, wallet.IsValidAddress(address0))

	again, err := svc.WalletService.DeriveAddress(0)
	require.NoError(t, err)
	assert.Equal(t, address0, again)

	address1, err := svc.WalletService.DeriveAddress(1)
	require.NoError(t, err)
	assert.NotEqual(t, address0, address1)
	assert.True(t, strings.HasPrefix(address1, "ltc1"), address1)
}

func TestBuildAndBroadcastSend_SpendsAllUtxosWithChange(t *testing.T) {
	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	fromAddress, err := svc.WalletService.DeriveAddress(0)
	require.NoError(t, err)
	toAddress, err := svc.WalletService.DeriveAddress(1)
	require.NoError(t, err)

	svc.ChainClient.On("AddressInfo", mock.Anything, fromAddress).Return(&chain.AddressInfo{
		BalanceSats: 70_000_000,
		Utxos: []chain.Utxo{
			{TxHash: mockTxHashA, Index: 0, ValueSats: 40_000_000},
			{TxHash: mockTxHashB, Index: 1, ValueSats: 30_000_000},
		},
	}, nil)

	var rawTxHex string
	svc.ChainClient.On("Broadcast", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		rawTxHex = args.String(1)
	}).Return(broadcastTxHash, nil)

	txHash, err := svc.WalletService.BuildAndBroadcastSend(context.TODO(), toAddress, 58_823_529, 0)
	require.NoError(t, err)
	assert.Equal(t, broadcastTxHash, txHash)

	rawTx, err := hex.DecodeString(rawTxHex)
	require.NoError(t, err)
	var msgTx wire.MsgTx
	require.NoError(t, msgTx.Deserialize(bytes.NewReader(rawTx)))

	// all available UTXOs become inputs, every input carries a witness
	require.Len(t, msgTx.TxIn, 2)
	for _, txIn := range msgTx.TxIn {
		assert.NotEmpty(t, txIn.Witness)
	}

	// payment output plus change of 70,000,000 - 58,823,529 - 10,000
	require.Len(t, msgTx.TxOut, 2)
	assert.Equal(t, int64(58_823_529), msgTx.TxOut[0].Value)
	assert.Equal(t, int64(11_166_471), msgTx.TxOut[1].Value)
}

func TestBuildAndBroadcastSend_DustChangeIsFolded(t *testing.T) {
	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	fromAddress, err := svc.WalletService.DeriveAddress(0)
	require.NoError(t, err)
	toAddress, err := svc.WalletService.DeriveAddress(1)
	require.NoError(t, err)

	// change would be exactly the dust limit: absorbed into the fee
	svc.ChainClient.On("AddressInfo", mock.Anything, fromAddress).Return(&chain.AddressInfo{
		Utxos: []chain.Utxo{
			{TxHash: mockTxHashA, Index: 0, ValueSats: 1_000_000 + 10_000 + 546},
		},
	}, nil)

	var rawTxHex string
	svc.ChainClient.On("Broadcast", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		rawTxHex = args.String(1)
	}).Return(broadcastTxHash, nil)

	_, err = svc.WalletService.BuildAndBroadcastSend(context.TODO(), toAddress, 1_000_000, 0)
	require.NoError(t, err)

	rawTx, err := hex.DecodeString(rawTxHex)
	require.NoError(t, err)
	var msgTx wire.MsgTx
	require.NoError(t, msgTx.Deserialize(bytes.NewReader(rawTx)))

	require.Len(t, msgTx.TxOut, 1)
	assert.Equal(t, int64(1_000_000), msgTx.TxOut[0].Value)
}

func TestBuildAndBroadcastSend_InsufficientFunds(t *testing.T) {
	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	fromAddress, err := svc.WalletService.DeriveAddress(0)
	require.NoError(t, err)
	toAddress, err := svc.WalletService.DeriveAddress(1)
	require.NoError(t, err)

	svc.ChainClient.On("AddressInfo", mock.Anything, fromAddress).Return(&chain.AddressInfo{
		Utxos: []chain.Utxo{
			{TxHash: mockTxHashA, Index: 0, ValueSats: 58_823_529},
		},
	}, nil)

	// 58,823,529 available < 58,823,529 + 10,000 required
	_, err = svc.WalletService.BuildAndBroadcastSend(context.TODO(), toAddress, 58_823_529, 0)
	require.Error(t, err)
	assert.True(t, wallet.IsFundsError(err))
	assert.Contains(t, err.Error(), "58823529")
	assert.Contains(t, err.Error(), "58833529")

	svc.ChainClient.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
}

func TestBuildAndBroadcastSend_NoUtxos(t *testing.T) {
	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	fromAddress, err := svc.WalletService.DeriveAddress(0)
	require.NoError(t, err)
	toAddress, err := svc.WalletService.DeriveAddress(1)
	require.NoError(t, err)

	svc.ChainClient.On("AddressInfo", mock.Anything, fromAddress).Return(&chain.AddressInfo{}, nil)

	// the funds error fires before any network broadcast is attempted
	_, err = svc.WalletService.BuildAndBroadcastSend(context.TODO(), toAddress, 1_000_000, 0)
	require.Error(t, err)
	assert.True(t, wallet.IsFundsError(err))

	svc.ChainClient.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
}

func TestSendAll(t *testing.T) {
	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	fromAddress, err := svc.WalletService.DeriveAddress(0)
	require.NoError(t, err)
	toAddress, err := svc.WalletService.DeriveAddress(1)
	require.NoError(t, err)

	svc.ChainClient.On("AddressInfo", mock.Anything, fromAddress).Return(&chain.AddressInfo{
		Utxos: []chain.Utxo{
			{TxHash: mockTxHashA, Index: 0, ValueSats: 5_000_000},
		},
	}, nil)

	var rawTxHex string
	svc.ChainClient.On("Broadcast", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		rawTxHex = args.String(1)
	}).Return(broadcastTxHash, nil)

	_, err = svc.WalletService.SendAll(context.TODO(), toAddress, 0)
	require.NoError(t, err)

	rawTx, err := hex.DecodeString(rawTxHex)
	require.NoError(t, err)
	var msgTx wire.MsgTx
	require.NoError(t, msgTx.Deserialize(bytes.NewReader(rawTx)))

	// sweep: single output of sum minus the fixed fee, no change
	require.Len(t, msgTx.TxOut, 1)
	assert.Equal(t, int64(4_990_000), msgTx.TxOut[0].Value)
}

func TestSendAll_EmptyWallet(t *testing.T) {
	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	fromAddress, err := svc.WalletService.DeriveAddress(0)
	require.NoError(t, err)
	toAddress, err := svc.WalletService.DeriveAddress(1)
	require.NoError(t, err)

	svc.ChainClient.On("AddressInfo", mock.Anything, fromAddress).Return(&chain.AddressInfo{}, nil)

	_, err = svc.WalletService.SendAll(context.TODO(), toAddress, 0)
	require.Error(t, err)
	assert.True(t, wallet.IsFundsError(err))
}
