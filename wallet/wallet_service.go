package wallet

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"

	"github.com/ltcsuite/ltcd/chaincfg"
	"github.com/ltcsuite/ltcd/chaincfg/chainhash"
	"github.com/ltcsuite/ltcd/ltcutil"
	"github.com/ltcsuite/ltcd/txscript"
	"github.com/ltcsuite/ltcd/wire"

	"github.com/nusenusewhen-bot/lights-mm/chain"
	"github.com/nusenusewhen-bot/lights-mm/constants"
	"github.com/nusenusewhen-bot/lights-mm/logger"
)

type walletService struct {
	keys        Keys
	chainClient chain.Client
	netParams   *chaincfg.Params
	splitPolicy *SplitPolicy
}

type WalletService interface {
	DeriveAddress(index uint32) (string, error)
	ListUnspent(ctx context.Context, address string) ([]chain.Utxo, error)
	Balance(ctx context.Context) (uint64, error)
	BuildAndBroadcastSend(ctx context.Context, toAddress string, amountSats uint64, fromIndex uint32) (string, error)
	SendAll(ctx context.Context, toAddress string, fromIndex uint32) (string, error)
	SplitPolicy() *SplitPolicy
}

func NewWalletService(keys Keys, chainClient chain.Client, netParams *chaincfg.Params, splitPolicy *SplitPolicy) *walletService {
	return &walletService{
		keys:        keys,
		chainClient: chainClient,
		netParams:   netParams,
		splitPolicy: splitPolicy,
	}
}

func NetParamsFor(network string) (*chaincfg.Params, error) {
	switch network {
	case "litecoin", "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet":
		return &chaincfg.TestNet4Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "simnet":
		return &chaincfg.SimNetParams, nil
	default:
		return nil, fmt.Errorf("unsupported network: %s", network)
	}
}

func (svc *walletService) SplitPolicy() *SplitPolicy {
	return svc.splitPolicy
}

func (svc *walletService) DeriveAddress(index uint32) (string, error) {
	address, err := svc.keys.DeriveAddress(index)
	if err != nil {
		return "", err
	}
	return address.EncodeAddress(), nil
}

func (svc *walletService) ListUnspent(ctx context.Context, address string) ([]chain.Utxo, error) {
	addressInfo, err := svc.chainClient.AddressInfo(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch address info: %w", err)
	}
	if addressInfo == nil || len(addressInfo.Utxos) == 0 {
		return []chain.Utxo{}, nil
	}

	decoded, err := ltcutil.DecodeAddress(address, svc.netParams)
	if err != nil {
		return nil, fmt.Errorf("failed to decode address: %w", err)
	}
	pkScript, err := txscript.PayToAddrScript(decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to build pk script: %w", err)
	}

	utxos := addressInfo.Utxos
	for i := range utxos {
		utxos[i].ScriptHex = hex.EncodeToString(pkScript)
	}
	return utxos, nil
}

// Balance reports the confirmed balance of the index-0 deposit address.
func (svc *walletService) Balance(ctx context.Context) (uint64, error) {
	address, err := svc.DeriveAddress(0)
	if err != nil {
		return 0, err
	}
	addressInfo, err := svc.chainClient.AddressInfo(ctx, address)
	if err != nil {
		return 0, err
	}
	return addressInfo.BalanceSats, nil
}

// BuildAndBroadcastSend spends from the address at fromIndex. Selection is
// deliberately unoptimized: every available UTXO becomes an input, the
// remainder returns as change unless it is dust.
func (svc *walletService) BuildAndBroadcastSend(ctx context.Context, toAddress string, amountSats uint64, fromIndex uint32) (string, error) {
	fromAddress, err := svc.keys.DeriveAddress(fromIndex)
	if err != nil {
		return "", err
	}

	utxos, err := svc.ListUnspent(ctx, fromAddress.EncodeAddress())
	if err != nil {
		return "", err
	}
	if len(utxos) == 0 {
		return "", NewFundsError(0, amountSats+constants.FixedTxFeeSats)
	}

	var totalInputSats uint64
	for _, utxo := range utxos {
		totalInputSats += utxo.ValueSats
	}

	requiredSats := amountSats + constants.FixedTxFeeSats
	if totalInputSats < requiredSats {
		return "", NewFundsError(totalInputSats, requiredSats)
	}

	rawTxHex, err := svc.buildAndSign(toAddress, amountSats, fromAddress, fromIndex, utxos, totalInputSats)
	if err != nil {
		return "", err
	}

	txHash, err := svc.chainClient.Broadcast(ctx, rawTxHex)
	if err != nil {
		return "", fmt.Errorf("broadcast failed: %w", err)
	}

	logger.Logger.Info().
		Str("tx_hash", txHash).
		Str("to_address", toAddress).
		Uint64("amount_sats", amountSats).
		Msg("Broadcast settlement transaction")

	return txHash, nil
}

// SendAll sweeps the address at fromIndex minus the fixed fee.
func (svc *walletService) SendAll(ctx context.Context, toAddress string, fromIndex uint32) (string, error) {
	fromAddress, err := svc.DeriveAddress(fromIndex)
	if err != nil {
		return "", err
	}
	utxos, err := svc.ListUnspent(ctx, fromAddress)
	if err != nil {
		return "", err
	}

	var totalInputSats uint64
	for _, utxo := range utxos {
		totalInputSats += utxo.ValueSats
	}
	if totalInputSats <= constants.FixedTxFeeSats {
		return "", NewFundsError(totalInputSats, constants.FixedTxFeeSats+1)
	}

	return svc.BuildAndBroadcastSend(ctx, toAddress, totalInputSats-constants.FixedTxFeeSats, fromIndex)
}

func (svc *walletService) buildAndSign(toAddress string, amountSats uint64, fromAddress ltcutil.Address, fromIndex uint32, utxos []chain.Utxo, totalInputSats uint64) (string, error) {
	destination, err := ltcutil.DecodeAddress(toAddress, svc.netParams)
	if err != nil {
		return "", fmt.Errorf("failed to decode destination address: %w", err)
	}
	payScript, err := txscript.PayToAddrScript(destination)
	if err != nil {
		return "", fmt.Errorf("failed to build payment script: %w", err)
	}
	sourceScript, err := txscript.PayToAddrScript(fromAddress)
	if err != nil {
		return "", fmt.Errorf("failed to build source script: %w", err)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	prevOuts := make(map[wire.OutPoint]*wire.TxOut, len(utxos))
	for _, utxo := range utxos {
		txHash, err := chainhash.NewHashFromStr(utxo.TxHash)
		if err != nil {
			return "", fmt.Errorf("invalid utxo hash %s: %w", utxo.TxHash, err)
		}
		outPoint := wire.NewOutPoint(txHash, utxo.Index)
		tx.AddTxIn(wire.NewTxIn(outPoint, nil, nil))
		prevOuts[*outPoint] = wire.NewTxOut(int64(utxo.ValueSats), sourceScript)
	}

	tx.AddTxOut(wire.NewTxOut(int64(amountSats), payScript))

	// change at or below the dust limit is absorbed into the fee instead
	// of creating an uneconomical output
	changeSats := totalInputSats - amountSats - constants.FixedTxFeeSats
	if changeSats > constants.DustLimitSats {
		tx.AddTxOut(wire.NewTxOut(int64(changeSats), sourceScript))
	}

	privKey, err := svc.keys.DerivePrivateKey(fromIndex)
	if err != nil {
		return "", err
	}

	prevOutFetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher)
	for i, utxo := range utxos {
		// any signing failure aborts the whole send, nothing is broadcast
		witness, err := txscript.WitnessSignature(tx, sigHashes, i, int64(utxo.ValueSats), sourceScript, txscript.SigHashAll, privKey, true)
		if err != nil {
			return "", fmt.Errorf("failed to sign input %d: %w", i, err)
		}
		tx.TxIn[i].Witness = witness
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return hex.EncodeToString(buf.Bytes()), nil
}
