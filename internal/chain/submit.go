package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/quantumauth-io/quantum-go-utils/log"
)

// ErrTransactionFailed covers every way a write can go wrong: the wallet
// refused, the node rejected it, or it was mined and reverted. The provider
// error stays in the chain.
var ErrTransactionFailed = errors.New("transaction failed")

// Call is one state-changing contract invocation.
type Call struct {
	Label  string
	To     common.Address
	ABI    *abi.ABI
	Method string
	Args   []any
	// Value is the native amount sent along; nil means none.
	Value *big.Int
}

func (c Call) Pack() ([]byte, error) {
	return c.ABI.Pack(c.Method, c.Args...)
}

// Submit signs call through the wallet, sends it and blocks until it is
// included. Nothing is retried.
func (c *Client) Submit(ctx context.Context, from common.Address, call Call) (*types.Receipt, error) {
	data, err := call.Pack()
	if err != nil {
		return nil, failed(err, "%s: pack %s", call.Label, call.Method)
	}
	value := call.Value
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, failed(err, "%s: nonce", call.Label)
	}

	maxFee, maxPrio, ok := c.suggest1559Fees(ctx)
	if !ok {
		return nil, failed(errors.New("no fee suggestion available"), "%s: fees", call.Label)
	}

	to := call.To
	gas, err := c.estimateGasLimit(ctx, from, &to, value, data)
	if err != nil {
		return nil, failed(err, "%s: estimate gas", call.Label)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: maxPrio,
		GasFeeCap: maxFee,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      data,
	})

	signed, err := c.wallet.SignTx(ctx, from, tx, c.chainID)
	if err != nil {
		return nil, failed(err, "%s: sign", call.Label)
	}

	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, failed(err, "%s: send", call.Label)
	}
	log.Info("transaction sent", "step", call.Label, "method", call.Method, "hash", signed.Hash().Hex())

	receipt, err := c.waitMined(ctx, signed.Hash())
	if err != nil {
		return nil, failed(err, "%s: wait %s", call.Label, signed.Hash().Hex())
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, failed(errors.Newf("reverted in block %s", receipt.BlockNumber), "%s", call.Label)
	}

	log.Info("transaction included", "step", call.Label, "hash", signed.Hash().Hex(), "block", receipt.BlockNumber, "gas_used", receipt.GasUsed)
	return receipt, nil
}

func failed(err error, format string, args ...any) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrTransactionFailed)
}

func (c *Client) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			log.Warn("receipt lookup failed", "hash", hash.Hex(), "error", err)
		}
		timer.Reset(c.pollInterval)
	}
}

// estimateGasLimit pads the node's estimate by 10%. A failed estimate means
// the call would revert, so nothing is sent.
func (c *Client) estimateGasLimit(ctx context.Context, from common.Address, to *common.Address, value *big.Int, data []byte) (uint64, error) {
	est, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: to, Value: value, Data: data})
	if err != nil {
		return 0, err
	}

	est += est / 10
	if est < 21_000 {
		est = 21_000
	}
	return est, nil
}

// suggest1559Fees prefers recent fee history, then the latest base fee, then
// the legacy gas price.
func (c *Client) suggest1559Fees(ctx context.Context) (maxFee, maxPrio *big.Int, ok bool) {
	history, err := c.backend.FeeHistory(ctx, 5, nil, []float64{10})
	if err == nil && history != nil && len(history.BaseFee) > 0 {
		baseNext := history.BaseFee[len(history.BaseFee)-1]

		var priority *big.Int
		if len(history.Reward) > 0 {
			last := history.Reward[len(history.Reward)-1]
			if len(last) > 0 && last[0] != nil && last[0].Sign() > 0 {
				priority = new(big.Int).Set(last[0])
			}
		}
		if priority == nil {
			if tip, tipErr := c.backend.SuggestGasTipCap(ctx); tipErr == nil && tip != nil && tip.Sign() >= 0 {
				priority = tip
			}
		}

		if priority != nil && baseNext != nil {
			feeCap := new(big.Int).Mul(baseNext, big.NewInt(2))
			feeCap.Add(feeCap, priority)
			return feeCap, priority, true
		}
	}

	if header, err := c.backend.HeaderByNumber(ctx, nil); err == nil && header != nil && header.BaseFee != nil {
		if tip, tipErr := c.backend.SuggestGasTipCap(ctx); tipErr == nil && tip != nil {
			feeCap := new(big.Int).Mul(header.BaseFee, big.NewInt(2))
			feeCap.Add(feeCap, tip)
			return feeCap, tip, true
		}
	}

	if gasPrice, err := c.backend.SuggestGasPrice(ctx); err == nil && gasPrice != nil && gasPrice.Sign() > 0 {
		return new(big.Int).Set(gasPrice), new(big.Int).Set(gasPrice), true
	}

	return nil, nil, false
}
