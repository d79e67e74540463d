package wallet

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ConfirmFunc is asked before every signature. Returning false rejects the
// transaction.
type ConfirmFunc func(ctx context.Context, tx *types.Transaction) bool

// LocalWallet signs with a single secp256k1 key held in memory.
type LocalWallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	confirm ConfirmFunc
}

func NewLocalWallet(key *ecdsa.PrivateKey, confirm ConfirmFunc) *LocalWallet {
	return &LocalWallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		confirm: confirm,
	}
}

// FromRecord decodes a stored key record.
func FromRecord(rec *Record, confirm ConfirmFunc) (*LocalWallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimPrefix(rec.PrivKeyHex, "0x"), "0X"))
	if err != nil {
		return nil, errors.Wrap(err, "decode wallet key")
	}
	w := NewLocalWallet(key, confirm)
	if rec.AddressHex != "" && common.HexToAddress(rec.AddressHex) != w.address {
		return nil, errors.New("wallet record address does not match key")
	}
	return w, nil
}

func (w *LocalWallet) Address() common.Address { return w.address }

func (w *LocalWallet) RequestAccounts(context.Context) ([]common.Address, error) {
	return []common.Address{w.address}, nil
}

func (w *LocalWallet) SignTx(ctx context.Context, from common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if from != w.address {
		return nil, errors.Newf("wallet does not hold account %s", from.Hex())
	}
	if w.confirm != nil && !w.confirm(ctx, tx) {
		return nil, ErrRequestRejected
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), w.key)
	if err != nil {
		return nil, errors.Wrap(err, "sign tx")
	}
	return signed, nil
}
