package chain

import (
	"context"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/quantumauth-io/dex-client/internal/constants"
	"github.com/quantumauth-io/dex-client/internal/contracts"
	"github.com/quantumauth-io/dex-client/internal/tokens"
)

// RawBalance returns owner's balance of t in raw units. The native sentinel
// reads the account balance, anything else calls the token's balanceOf.
func (c *Client) RawBalance(ctx context.Context, owner common.Address, t tokens.Token) (*big.Int, error) {
	if owner == (common.Address{}) {
		return big.NewInt(0), nil
	}

	if t.IsNative() {
		wei, err := c.backend.BalanceAt(ctx, owner, nil)
		if err != nil {
			return nil, errors.Wrap(err, "native balance")
		}
		return wei, nil
	}

	out, err := c.CallView(ctx, t.Address, contracts.ERC20, contracts.MethodBalanceOf, owner)
	if err != nil {
		return nil, errors.Wrapf(err, "%s balanceOf", t.Symbol)
	}
	return FirstBig(out)
}

// ReadBalance is RawBalance scaled by the token's decimals for display.
func (c *Client) ReadBalance(ctx context.Context, owner common.Address, t tokens.Token) (string, error) {
	raw, err := c.RawBalance(ctx, owner, t)
	if err != nil {
		return "", err
	}
	return tokens.FormatUnits(raw, t.Decimals, constants.BalancePrecision), nil
}

// CallView simulates method on contract at the latest block and returns the
// decoded outputs.
func (c *Client) CallView(ctx context.Context, contract common.Address, parsed *abi.ABI, method string, args ...any) ([]any, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "pack %s", method)
	}

	res, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "call %s", method)
	}
	if len(res) == 0 {
		return nil, errors.Newf("call %s: empty result", method)
	}

	out, err := parsed.Unpack(method, res)
	if err != nil {
		return nil, errors.Wrapf(err, "unpack %s", method)
	}
	return out, nil
}

// FirstBig decodes the first output as a uint.
func FirstBig(out []any) (*big.Int, error) {
	if len(out) == 0 {
		return nil, errors.New("no outputs")
	}
	v, ok := out[0].(*big.Int)
	if !ok || v == nil {
		return nil, errors.Newf("unexpected output type %T", out[0])
	}
	return v, nil
}
