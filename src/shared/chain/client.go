package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Reader is the minimal chain surface eligibility needs. ERC-20 and ERC-721
// expose the same balanceOf(address) selector, so one call covers both.
type Reader interface {
	BalanceOf(ctx context.Context, contract, holder common.Address, block *big.Int) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

const balanceOfJSON = `[{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}]`

var balanceOfABI = mustABI(balanceOfJSON)

func mustABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Client reads token balances over JSON-RPC with a bounded timeout per call.
type Client struct {
	ec      *ethclient.Client
	timeout time.Duration
}

func Dial(url string) (*Client, error) {
	ec, err := ethclient.Dial(url)
	if err != nil {
		return nil, err
	}
	return &Client{ec: ec, timeout: 10 * time.Second}, nil
}

// BalanceOf calls balanceOf(holder) on contract, optionally pinned to a
// historical block.
func (c *Client) BalanceOf(ctx context.Context, contract, holder common.Address, block *big.Int) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	input, err := balanceOfABI.Pack("balanceOf", holder)
	if err != nil {
		return nil, err
	}
	out, err := c.ec.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: input}, block)
	if err != nil {
		return nil, err
	}
	vals, err := balanceOfABI.Unpack("balanceOf", out)
	if err != nil {
		return nil, err
	}
	bal, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf return type %T", vals[0])
	}
	return bal, nil
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.ec.BlockNumber(ctx)
}
