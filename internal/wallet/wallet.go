// Package wallet is the signing capability the client consumes: it hands out
// accounts and signs transactions. Nothing else in the client touches keys.
package wallet

import (
	"context"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrWalletUnavailable means no wallet is attached; the user has to set
	// one up before connecting.
	ErrWalletUnavailable = errors.New("no wallet available")
	// ErrRequestRejected means the wallet holder declined to sign.
	ErrRequestRejected = errors.New("request rejected by wallet")
)

// Provider is the wallet boundary.
type Provider interface {
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	SignTx(ctx context.Context, from common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Unavailable is the Provider used when the client runs without a wallet.
type Unavailable struct{}

func (Unavailable) RequestAccounts(context.Context) ([]common.Address, error) {
	return nil, ErrWalletUnavailable
}

func (Unavailable) SignTx(context.Context, common.Address, *types.Transaction, *big.Int) (*types.Transaction, error) {
	return nil, ErrWalletUnavailable
}
