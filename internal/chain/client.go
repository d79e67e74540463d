package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/quantumauth-io/dex-client/internal/constants"
	"github.com/quantumauth-io/dex-client/internal/wallet"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/quantumauth-io/quantum-go-utils/retry"
)

// Backend is the slice of the JSON-RPC API the client needs. *ethclient.Client
// satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	FeeHistory(ctx context.Context, blockCount uint64, lastBlock *big.Int, rewardPercentiles []float64) (*ethereum.FeeHistory, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Client reads through a fixed RPC endpoint and writes through the wallet.
type Client struct {
	backend      Backend
	wallet       wallet.Provider
	chainID      *big.Int
	pollInterval time.Duration
	closer       func()
}

func New(backend Backend, w wallet.Provider, chainID *big.Int) *Client {
	if w == nil {
		w = wallet.Unavailable{}
	}
	return &Client{
		backend:      backend,
		wallet:       w,
		chainID:      new(big.Int).Set(chainID),
		pollInterval: constants.ReceiptPollInterval,
	}
}

// Dial connects to rpcURL and learns the chain id. Only this read-only probe
// is retried; transactions never are.
func Dial(ctx context.Context, rpcURL string, w wallet.Provider, probeTimeout time.Duration) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to connect to blockchain at %s", rpcURL)
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cfg := retry.DefaultConfig()
	cfg.InitialDelayBeforeRetrying = 200 * time.Millisecond
	cfg.MaxDelayBeforeRetrying = 2 * time.Second

	var chainID *big.Int
	_, err = retry.Retry(probeCtx, cfg,
		func(ctx context.Context) ([]interface{}, error) {
			id, err := ec.ChainID(ctx)
			if err != nil {
				return nil, err
			}
			chainID = id
			return nil, nil
		},
		nil,
		"get chain id")
	if err == nil && chainID == nil {
		err = probeCtx.Err()
	}
	if err != nil {
		ec.Close()
		return nil, errors.Wrapf(err, "Failed to read chain id from %s", rpcURL)
	}

	log.Info("connected to chain", "rpc", rpcURL, "chain_id", chainID.String())

	c := New(ec, w, chainID)
	c.closer = ec.Close
	return c, nil
}

func (c *Client) ChainID() *big.Int { return new(big.Int).Set(c.chainID) }

func (c *Client) Wallet() wallet.Provider { return c.wallet }

// SetPollInterval changes how often Submit polls for a receipt.
func (c *Client) SetPollInterval(d time.Duration) {
	if d > 0 {
		c.pollInterval = d
	}
}

func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}
