// Package registry maps unordered asset pairs to their unique pool, with a
// deterministic content-addressed identifier so callers can derive a pool's
// address without a lookup.
package registry

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"poolEngine/internal/asset"
	"poolEngine/internal/model"
	"poolEngine/internal/pool"
)

var (
	ErrIdenticalAssets = errors.New("registry: identical assets")
	ErrZeroAsset       = errors.New("registry: zero asset address")
	ErrPoolExists      = errors.New("registry: pool exists")
	ErrPoolNotFound    = errors.New("registry: pool not found")
)

// factoryAddr anchors the derivation so identifiers cannot collide with
// plain account addresses.
var factoryAddr = common.HexToAddress("0x00000000000000000000000000000000000Ec0de")

// codeHash stands in for the pool code template in the derivation.
var codeHash = crypto.Keccak256([]byte("poolEngine/pool/v1"))

// SortAssets returns the pair in canonical order (lower address first).
func SortAssets(a, b common.Address) (common.Address, common.Address) {
	if bytes.Compare(a.Bytes(), b.Bytes()) < 0 {
		return a, b
	}
	return b, a
}

// PairAddress derives the pool address for an unordered asset pair. Pure:
// identical inputs always yield the same address, so routers can compute it
// off-path.
func PairAddress(a, b common.Address) common.Address {
	lower, higher := SortAssets(a, b)
	salt := crypto.Keccak256(lower.Bytes(), higher.Bytes())
	digest := crypto.Keccak256([]byte{0xff}, factoryAddr.Bytes(), salt, codeHash)
	return common.BytesToAddress(digest[12:])
}

// Registry owns one pool per unordered asset pair.
type Registry struct {
	logger   *zap.Logger
	clock    pool.Clock
	recorder pool.Recorder
	book     *asset.Book

	pools map[common.Address]*pool.Pool
	order []common.Address
}

func New(book *asset.Book, logger *zap.Logger, clock pool.Clock, recorder pool.Recorder) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger:   logger,
		clock:    clock,
		recorder: recorder,
		book:     book,
		pools:    make(map[common.Address]*pool.Pool),
	}
}

// Create builds and initializes the pool for the pair. Both assets must be
// registered in the token book.
func (r *Registry) Create(a, b common.Address) (*pool.Pool, error) {
	if a == b {
		return nil, ErrIdenticalAssets
	}
	zero := common.Address{}
	if a == zero || b == zero {
		return nil, ErrZeroAsset
	}

	lower, higher := SortAssets(a, b)
	addr := PairAddress(lower, higher)
	if _, ok := r.pools[addr]; ok {
		return nil, ErrPoolExists
	}

	tokenA, err := r.book.Get(lower)
	if err != nil {
		return nil, err
	}
	tokenB, err := r.book.Get(higher)
	if err != nil {
		return nil, err
	}

	pl := pool.New(addr, r.logger, r.clock, r.recorder)
	if err := pl.Initialize(tokenA, tokenB); err != nil {
		return nil, fmt.Errorf("initialize pool: %w", err)
	}
	r.pools[addr] = pl
	r.order = append(r.order, addr)

	if r.recorder != nil {
		var ts uint64
		if r.clock != nil {
			ts = r.clock()
		}
		r.recorder.Record(model.Notification{
			Pool:      addr.Hex(),
			Kind:      model.KindPoolCreated,
			Timestamp: ts,
			Payload: model.PoolCreatedEventData{
				AssetA: lower.Hex(),
				AssetB: higher.Hex(),
				Pool:   addr.Hex(),
				Count:  uint64(len(r.pools)),
			},
		})
	}
	r.logger.Info("pool created",
		zap.String("pool", addr.Hex()),
		zap.String("asset_a", lower.Hex()),
		zap.String("asset_b", higher.Hex()),
	)
	return pl, nil
}

// Lookup returns the pool for the unordered pair, if one exists.
func (r *Registry) Lookup(a, b common.Address) (*pool.Pool, bool) {
	pl, ok := r.pools[PairAddress(a, b)]
	return pl, ok
}

// Get returns the pool stored under the derived address.
func (r *Registry) Get(addr common.Address) (*pool.Pool, bool) {
	pl, ok := r.pools[addr]
	return pl, ok
}

// All returns every pool in creation order.
func (r *Registry) All() []*pool.Pool {
	out := make([]*pool.Pool, 0, len(r.order))
	for _, addr := range r.order {
		out = append(out, r.pools[addr])
	}
	return out
}

// Len returns the number of pools.
func (r *Registry) Len() int { return len(r.pools) }

// PairReserves satisfies curve.ReserveSource: reserves are returned in the
// order the caller named the assets, not canonical order.
func (r *Registry) PairReserves(assetA, assetB common.Address) (*uint256.Int, *uint256.Int, error) {
	pl, ok := r.Lookup(assetA, assetB)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s/%s", ErrPoolNotFound, assetA, assetB)
	}
	reserveA, reserveB, _ := pl.GetReserves()
	lower, _ := SortAssets(assetA, assetB)
	if assetA != lower {
		reserveA, reserveB = reserveB, reserveA
	}
	return reserveA, reserveB, nil
}
