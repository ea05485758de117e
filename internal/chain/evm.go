// Package chain reads balances and fees from the home EVM chain and lists the
// destinations available for cross-chain sends.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"hushpay/internal/money"
	"hushpay/internal/provider"
)

// TransferGas is the gas used by a plain value transfer.
const TransferGas = 21_000

// weiPerUnit converts 18-decimal wei into money's 9-decimal minor units.
var weiPerUnit = big.NewInt(1_000_000_000)

// backend is the subset of ethclient the reader needs.
type backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// Client implements provider.BalanceReader over JSON-RPC.
type Client struct {
	rpc *gethrpc.Client
	eth backend
}

// Dial connects to rpcURL.
func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	rpcURL = strings.TrimSpace(rpcURL)
	if rpcURL == "" {
		return nil, errors.New("chain rpc url is empty")
	}
	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}
	return &Client{rpc: rpcClient, eth: ethclient.NewClient(rpcClient)}, nil
}

// NewWithBackend wraps an existing backend such as a simulated chain.
func NewWithBackend(b backend) *Client {
	return &Client{eth: b}
}

// Close releases the RPC connection.
func (c *Client) Close() {
	if c.rpc != nil {
		c.rpc.Close()
	}
}

// Balance returns the native balance, truncated to money precision.
func (c *Client) Balance(ctx context.Context, address string) (money.Amount, error) {
	if !common.IsHexAddress(address) {
		return 0, fmt.Errorf("invalid address %q", address)
	}
	wei, err := c.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return 0, provider.Failed("chain", err)
	}
	return fromWei(wei, false)
}

// EstimateFee prices a plain transfer at the suggested gas price, rounded up.
func (c *Client) EstimateFee(ctx context.Context) (money.Amount, error) {
	price, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return 0, provider.Failed("chain", err)
	}
	return fromWei(new(big.Int).Mul(price, big.NewInt(TransferGas)), true)
}

func fromWei(wei *big.Int, roundUp bool) (money.Amount, error) {
	q, r := new(big.Int).QuoRem(wei, weiPerUnit, new(big.Int))
	if roundUp && r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	if !q.IsInt64() {
		return 0, fmt.Errorf("amount %s wei out of range", wei)
	}
	return money.Amount(q.Int64()), nil
}

var _ provider.BalanceReader = (*Client)(nil)
