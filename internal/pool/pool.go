// Package pool is a thin on-chain pool price listener: it dials an
// Ethereum JSON-RPC WebSocket endpoint and emits a price update per new
// block (or per Swap event) for a single Uniswap V2 or V3 style pool.
// Kept close to the spec's "specified here only for completeness"
// scope — the V2/V3 pricing formulas and per-block dedup are the only
// elaborated pieces; everything else is the minimum ethclient plumbing
// needed to exercise them.
//
// Grounded in original_source/src/dex/pool_listener/mod.rs.
package pool

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ihsan215/aeon-market-scanner/internal/supervisor"
)

// PoolKind distinguishes a Uniswap V2 (reserves) pool from a V3
// (concentrated-liquidity slot0) pool.
type PoolKind int

const (
	V2 PoolKind = iota
	V3
)

// PriceDirection selects which unit the emitted price is expressed in.
type PriceDirection int

const (
	Token1PerToken0 PriceDirection = iota
	Token0PerToken1
)

// ListenMode selects when a price update is emitted.
type ListenMode int

const (
	// EveryBlock re-queries reserves/slot0 on every new block header.
	EveryBlock ListenMode = iota
	// OnSwapEvent re-queries only when a Swap log is seen for the pool.
	OnSwapEvent
)

// PoolListenerConfig configures one pool subscription.
type PoolListenerConfig struct {
	RPCWsURL          string
	ChainID           uint64
	PoolAddress       string
	PoolKind          PoolKind
	ListenMode        ListenMode
	PriceDirection    PriceDirection
	Symbol            string
	ReconnectAttempts int
	ReconnectDelay    time.Duration
}

// PoolPriceUpdate is a single price observation from the pool.
type PoolPriceUpdate struct {
	ChainID      uint64
	PoolAddress  string
	PoolKind     PoolKind
	Price        decimal.Decimal
	Direction    PriceDirection
	Reserve0     *decimal.Decimal
	Reserve1     *decimal.Decimal
	SqrtPriceX96 *big.Int
	BlockNumber  uint64
	TimestampMs  int64
	Symbol       string
}

// Selectors are the first 4 bytes of keccak256(signature), called
// directly rather than through a generated ABI binding.
var (
	selectorGetReserves = []byte{0x09, 0x02, 0xf1, 0xac}
	selectorSlot0       = []byte{0x38, 0x50, 0xc7, 0xbd}
	selectorToken0      = []byte{0x0d, 0xfe, 0x16, 0x81}
	selectorToken1      = []byte{0xd2, 0x12, 0x20, 0xa7}
	selectorDecimals    = []byte{0x31, 0x3c, 0xe5, 0x67}
)

var (
	topicV2Swap = common.HexToHash("0xd78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d82")
	topicV3Swap = common.HexToHash("0xc42079f94a6350d7e6235f29174924f928cc2ac818eb64fed8004e115fbcca6")
)

func swapTopic(kind PoolKind) common.Hash {
	if kind == V3 {
		return topicV3Swap
	}
	return topicV2Swap
}

// Listen subscribes to pool price updates over a WebSocket RPC
// connection. The returned channel closes when ctx is cancelled or the
// reconnect attempt budget is exhausted.
func Listen(ctx context.Context, log zerolog.Logger, cfg PoolListenerConfig) (<-chan PoolPriceUpdate, error) {
	out := make(chan PoolPriceUpdate, 64)
	policy := supervisor.Policy{Reconnect: cfg.ReconnectAttempts > 0, MaxAttempts: cfg.ReconnectAttempts}
	alive := func() bool {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}

	go func() {
		defer close(out)
		supervisor.Run(ctx, log, policy, alive, func(ctx context.Context) error {
			return run(ctx, cfg, out, alive)
		})
	}()

	return out, nil
}

func run(ctx context.Context, cfg PoolListenerConfig, out chan<- PoolPriceUpdate, alive func() bool) error {
	client, err := ethclient.DialContext(ctx, cfg.RPCWsURL)
	if err != nil {
		return fmt.Errorf("pool: dial %s: %w", cfg.RPCWsURL, err)
	}
	defer client.Close()

	poolAddr := common.HexToAddress(cfg.PoolAddress)

	dec0, dec1, err := fetchDecimals(ctx, client, poolAddr)
	if err != nil {
		return err
	}

	switch cfg.ListenMode {
	case OnSwapEvent:
		return watchSwapEvents(ctx, client, poolAddr, dec0, dec1, cfg, out, alive)
	default:
		return watchBlocks(ctx, client, poolAddr, dec0, dec1, cfg, out, alive)
	}
}

func watchBlocks(ctx context.Context, client *ethclient.Client, pool common.Address, dec0, dec1 uint8, cfg PoolListenerConfig, out chan<- PoolPriceUpdate, alive func() bool) error {
	heads := make(chan *types.Header)
	sub, err := client.SubscribeNewHead(ctx, heads)
	if err != nil {
		return fmt.Errorf("pool: subscribe new head: %w", err)
	}
	defer sub.Unsubscribe()

	var lastEmitted uint64
	haveEmitted := false

	for {
		if !alive() {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			return fmt.Errorf("pool: head subscription: %w", err)
		case head := <-heads:
			blockNumber := head.Number.Uint64()
			if haveEmitted && blockNumber <= lastEmitted {
				continue
			}
			haveEmitted = true
			lastEmitted = blockNumber

			update, err := fetchUpdate(ctx, client, pool, cfg, dec0, dec1, blockNumber)
			if err != nil {
				continue
			}
			select {
			case out <- update:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func watchSwapEvents(ctx context.Context, client *ethclient.Client, pool common.Address, dec0, dec1 uint8, cfg PoolListenerConfig, out chan<- PoolPriceUpdate, alive func() bool) error {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{pool},
		Topics:    [][]common.Hash{{swapTopic(cfg.PoolKind)}},
	}
	logs := make(chan types.Log)
	sub, err := client.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return fmt.Errorf("pool: subscribe filter logs: %w", err)
	}
	defer sub.Unsubscribe()

	for {
		if !alive() {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			return fmt.Errorf("pool: log subscription: %w", err)
		case lg := <-logs:
			update, err := fetchUpdate(ctx, client, pool, cfg, dec0, dec1, lg.BlockNumber)
			if err != nil {
				continue
			}
			select {
			case out <- update:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func fetchUpdate(ctx context.Context, client *ethclient.Client, pool common.Address, cfg PoolListenerConfig, dec0, dec1 uint8, blockNumber uint64) (PoolPriceUpdate, error) {
	switch cfg.PoolKind {
	case V3:
		price, sqrtX96, err := fetchV3Price(ctx, client, pool, dec0, dec1)
		if err != nil {
			return PoolPriceUpdate{}, err
		}
		return PoolPriceUpdate{
			ChainID:      cfg.ChainID,
			PoolAddress:  cfg.PoolAddress,
			PoolKind:     cfg.PoolKind,
			Price:        applyDirection(price, cfg.PriceDirection),
			Direction:    cfg.PriceDirection,
			SqrtPriceX96: sqrtX96,
			BlockNumber:  blockNumber,
			TimestampMs:  time.Now().UnixMilli(),
			Symbol:       cfg.Symbol,
		}, nil
	default:
		price, r0, r1, err := fetchV2Price(ctx, client, pool, dec0, dec1)
		if err != nil {
			return PoolPriceUpdate{}, err
		}
		return PoolPriceUpdate{
			ChainID:     cfg.ChainID,
			PoolAddress: cfg.PoolAddress,
			PoolKind:    cfg.PoolKind,
			Price:       applyDirection(price, cfg.PriceDirection),
			Direction:   cfg.PriceDirection,
			Reserve0:    &r0,
			Reserve1:    &r1,
			BlockNumber: blockNumber,
			TimestampMs: time.Now().UnixMilli(),
			Symbol:      cfg.Symbol,
		}, nil
	}
}

// applyDirection: the raw price from fetchV2Price/fetchV3Price is
// always token1/token0.
func applyDirection(rawToken1PerToken0 decimal.Decimal, direction PriceDirection) decimal.Decimal {
	if direction == Token1PerToken0 || rawToken1PerToken0.IsZero() {
		return rawToken1PerToken0
	}
	return decimal.NewFromInt(1).Div(rawToken1PerToken0)
}

func ethCall(ctx context.Context, client *ethclient.Client, to common.Address, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{To: &to, Data: data}
	return client.CallContract(ctx, msg, nil)
}

func fetchDecimals(ctx context.Context, client *ethclient.Client, pool common.Address) (uint8, uint8, error) {
	token0, err := ethCall(ctx, client, pool, selectorToken0)
	if err != nil {
		return 0, 0, fmt.Errorf("pool: token0: %w", err)
	}
	token1, err := ethCall(ctx, client, pool, selectorToken1)
	if err != nil {
		return 0, 0, fmt.Errorf("pool: token1: %w", err)
	}
	addr0, err := bytesToAddress(token0)
	if err != nil {
		return 0, 0, err
	}
	addr1, err := bytesToAddress(token1)
	if err != nil {
		return 0, 0, err
	}

	dec0, err := ethCall(ctx, client, addr0, selectorDecimals)
	if err != nil {
		return 0, 0, fmt.Errorf("pool: decimals0: %w", err)
	}
	dec1, err := ethCall(ctx, client, addr1, selectorDecimals)
	if err != nil {
		return 0, 0, fmt.Errorf("pool: decimals1: %w", err)
	}
	d0, err := bytesToUint8(dec0)
	if err != nil {
		return 0, 0, err
	}
	d1, err := bytesToUint8(dec1)
	if err != nil {
		return 0, 0, err
	}
	return d0, d1, nil
}

func fetchV2Price(ctx context.Context, client *ethclient.Client, pool common.Address, dec0, dec1 uint8) (decimal.Decimal, decimal.Decimal, decimal.Decimal, error) {
	res, err := ethCall(ctx, client, pool, selectorGetReserves)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, fmt.Errorf("pool: getReserves: %w", err)
	}
	if len(res) < 64 {
		return decimal.Zero, decimal.Zero, decimal.Zero, fmt.Errorf("pool: getReserves response too short")
	}
	raw0 := new(big.Int).SetBytes(res[0:32])
	raw1 := new(big.Int).SetBytes(res[32:64])
	r0 := decimal.NewFromBigInt(raw0, 0).Shift(-int32(dec0))
	r1 := decimal.NewFromBigInt(raw1, 0).Shift(-int32(dec1))
	if r0.IsZero() {
		return decimal.Zero, decimal.Zero, decimal.Zero, fmt.Errorf("pool: zero reserve0")
	}
	return r1.Div(r0), r0, r1, nil
}

func fetchV3Price(ctx context.Context, client *ethclient.Client, pool common.Address, dec0, dec1 uint8) (decimal.Decimal, *big.Int, error) {
	res, err := ethCall(ctx, client, pool, selectorSlot0)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("pool: slot0: %w", err)
	}
	if len(res) < 32 {
		return decimal.Zero, nil, fmt.Errorf("pool: slot0 response too short")
	}
	sqrtPriceX96 := new(big.Int).SetBytes(res[0:32])

	// price = (sqrtPriceX96 / 2^96)^2, adjusted for token decimal difference.
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)
	sqrtPrice := decimal.NewFromBigInt(sqrtPriceX96, 0).Div(decimal.NewFromBigInt(q96, 0))
	price := sqrtPrice.Mul(sqrtPrice).Shift(int32(dec0) - int32(dec1))
	return price, sqrtPriceX96, nil
}

func bytesToAddress(b []byte) (common.Address, error) {
	if len(b) < 32 {
		return common.Address{}, fmt.Errorf("pool: token address response too short")
	}
	return common.BytesToAddress(b[len(b)-20:]), nil
}

func bytesToUint8(b []byte) (uint8, error) {
	if len(b) < 32 {
		return 0, fmt.Errorf("pool: decimals response too short")
	}
	return b[len(b)-1], nil
}
