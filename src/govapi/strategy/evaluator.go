package strategy

import (
	"context"
	"errors"
	"log"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/onchainkit/govtoolkit/src/govapi/types"
	"github.com/onchainkit/govtoolkit/src/shared/chain"
	"gorm.io/gorm"
)

var errNoChainReader = errors.New("no chain reader configured")

// Evaluator computes voting weights. It is a pure function of
// (type, config, address, block) modulo the external state it reads, so the
// pre-check and the commit-time re-derivation agree.
type Evaluator struct {
	db    *gorm.DB
	chain chain.Reader
}

func NewEvaluator(db *gorm.DB, reader chain.Reader) *Evaluator {
	return &Evaluator{db: db, chain: reader}
}

// Evaluate returns the weight for voter, never an error: unknown strategy
// tags, chain read failures, and store failures all degrade to zero weight.
// block overrides the config snapshot when non-zero (the pinned height from
// nonce issuance); 0 means config snapshot or latest.
func (e *Evaluator) Evaluate(ctx context.Context, typ string, config []byte, voter common.Address, block uint64) decimal.Decimal {
	spec, err := Parse(typ, config)
	if err != nil {
		log.Printf("strategy: %v", err)
		return decimal.Zero
	}
	w, err := spec.weigh(ctx, e, voter, block)
	if err != nil {
		log.Printf("strategy: evaluation for %s failed: %v", voter.Hex(), err)
		return decimal.Zero
	}
	if w.IsNegative() {
		return decimal.Zero
	}
	return w
}

func snapshotArg(configBlock, pinned uint64) *big.Int {
	at := configBlock
	if pinned != 0 {
		at = pinned
	}
	if at == 0 {
		return nil // latest
	}
	return new(big.Int).SetUint64(at)
}

func (s ERC20Balance) weigh(ctx context.Context, e *Evaluator, voter common.Address, block uint64) (decimal.Decimal, error) {
	if e.chain == nil {
		return decimal.Zero, errNoChainReader
	}
	bal, err := e.chain.BalanceOf(ctx, s.TokenAddress, voter, snapshotArg(s.SnapshotBlock, block))
	if err != nil {
		return decimal.Zero, err
	}
	if bal.Cmp(s.MinBalance) < 0 {
		return decimal.Zero, nil
	}
	return decimal.NewFromBigInt(bal, -s.Decimals), nil
}

func (s ERC721Ownership) weigh(ctx context.Context, e *Evaluator, voter common.Address, block uint64) (decimal.Decimal, error) {
	if e.chain == nil {
		return decimal.Zero, errNoChainReader
	}
	count, err := e.chain.BalanceOf(ctx, s.CollectionAddress, voter, snapshotArg(s.SnapshotBlock, block))
	if err != nil {
		return decimal.Zero, err
	}
	if count.Cmp(big.NewInt(s.MinCount)) < 0 {
		return decimal.Zero, nil
	}
	return decimal.NewFromBigInt(count, 0), nil
}

func (OnePersonOneVote) weigh(context.Context, *Evaluator, common.Address, uint64) (decimal.Decimal, error) {
	return decimal.NewFromInt(1), nil
}

func (s RoleGated) weigh(ctx context.Context, e *Evaluator, voter common.Address, _ uint64) (decimal.Decimal, error) {
	if len(s.AllowedRoles) == 0 {
		return decimal.Zero, nil
	}
	var wallet types.Wallet
	err := e.db.WithContext(ctx).First(&wallet, "address = ?", strings.ToLower(voter.Hex())).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// unlinked wallets are simply ineligible
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}

	q := e.db.WithContext(ctx).Model(&types.OrgMember{}).
		Where("identity_id = ? AND role IN ?", wallet.IdentityID, s.AllowedRoles)
	if s.OrgID != "" {
		q = q.Where("org_id = ?", s.OrgID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return decimal.Zero, err
	}
	if n == 0 {
		return decimal.Zero, nil
	}
	return decimal.NewFromInt(1), nil
}
