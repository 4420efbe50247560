package wallet

import (
	"fmt"

	"github.com/ltcsuite/ltcd/btcec/v2"
	"github.com/ltcsuite/ltcd/chaincfg"
	"github.com/ltcsuite/ltcd/ltcutil"
	"github.com/ltcsuite/ltcd/ltcutil/hdkeychain"
	"github.com/tyler-smith/go-bip39"
)

// derivation path template: m/84'/2'/0'/0/index (BIP84, Litecoin)
const (
	bip84Purpose = 84
	ltcCoinType  = 2
)

type Keys interface {
	DeriveAddress(index uint32) (ltcutil.Address, error)
	DerivePrivateKey(index uint32) (*btcec.PrivateKey, error)
}

type keys struct {
	master    *hdkeychain.ExtendedKey
	netParams *chaincfg.Params
}

func NewKeys(mnemonic string, netParams *chaincfg.Params) (*keys, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, "")

	master, err := hdkeychain.NewMaster(seed, netParams)
	if err != nil {
		return nil, fmt.Errorf("failed to derive master key: %w", err)
	}

	return &keys{
		master:    master,
		netParams: netParams,
	}, nil
}

// deriveChild walks m/84'/2'/0'/0/index. The operational setup only ever
// uses index 0 but arbitrary indices are supported.
func (k *keys) deriveChild(index uint32) (*hdkeychain.ExtendedKey, error) {
	purpose, err := k.master.Derive(hdkeychain.HardenedKeyStart + bip84Purpose)
	if err != nil {
		return nil, fmt.Errorf("failed to derive purpose key: %w", err)
	}
	coinType, err := purpose.Derive(hdkeychain.HardenedKeyStart + ltcCoinType)
	if err != nil {
		return nil, fmt.Errorf("failed to derive coin type key: %w", err)
	}
	account, err := coinType.Derive(hdkeychain.HardenedKeyStart)
	if err != nil {
		return nil, fmt.Errorf("failed to derive account key: %w", err)
	}
	externalChain, err := account.Derive(0)
	if err != nil {
		return nil, fmt.Errorf("failed to derive external chain: %w", err)
	}
	child, err := externalChain.Derive(index)
	if err != nil {
		return nil, fmt.Errorf("failed to derive address key at index %d: %w", index, err)
	}
	return child, nil
}

func (k *keys) DeriveAddress(index uint32) (ltcutil.Address, error) {
	child, err := k.deriveChild(index)
	if err != nil {
		return nil, err
	}

	pubKey, err := child.ECPubKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get public key: %w", err)
	}

	pubKeyHash := ltcutil.Hash160(pubKey.SerializeCompressed())
	address, err := ltcutil.NewAddressWitnessPubKeyHash(pubKeyHash, k.netParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create address: %w", err)
	}

	return address, nil
}

func (k *keys) DerivePrivateKey(index uint32) (*btcec.PrivateKey, error) {
	child, err := k.deriveChild(index)
	if err != nil {
		return nil, err
	}

	privKey, err := child.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get private key: %w", err)
	}
	return privKey, nil
}
