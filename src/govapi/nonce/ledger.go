package nonce

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/onchainkit/govtoolkit/src/govapi/types"
	"gorm.io/gorm"
)

var (
	// ErrInvalidNonce covers wrong value, wrong wallet, or already consumed.
	ErrInvalidNonce = errors.New("invalid nonce")
	// ErrNonceExpired means the nonce existed but its window passed. The
	// nonce is consumed on the way out, so it can never be replayed.
	ErrNonceExpired = errors.New("nonce expired")
)

// TTL is the validity window of an issued nonce.
const TTL = 15 * time.Minute

// Ledger issues single-use, time-boxed nonces scoped to a wallet.
type Ledger struct {
	db  *gorm.DB
	now func() time.Time
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// Issue creates a fresh nonce for walletID. snapshotBlock pins the chain
// height commit-time eligibility must be evaluated at (0 for strategies
// without chain state).
func (l *Ledger) Issue(ctx context.Context, walletID string, snapshotBlock uint64) (*types.Nonce, error) {
	n := types.Nonce{
		ID:            uuid.NewString(),
		WalletID:      walletID,
		Value:         uuid.NewString(),
		SnapshotBlock: snapshotBlock,
		ExpiresAt:     l.now().Add(TTL),
	}
	if err := l.db.WithContext(ctx).Create(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// Consume flips the nonce to consumed exactly once. Under concurrent
// attempts the conditional update lets exactly one caller win; everyone
// else gets ErrInvalidNonce.
func (l *Ledger) Consume(ctx context.Context, walletID, value string) (*types.Nonce, error) {
	var n types.Nonce
	err := l.db.WithContext(ctx).
		Where("wallet_id = ? AND value = ? AND consumed = ?", walletID, value, false).
		First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidNonce
	}
	if err != nil {
		return nil, err
	}

	res := l.db.WithContext(ctx).Model(&types.Nonce{}).
		Where("id = ? AND consumed = ?", n.ID, false).
		Update("consumed", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// lost the race to a concurrent consumer
		return nil, ErrInvalidNonce
	}
	n.Consumed = true

	if l.now().After(n.ExpiresAt) {
		return nil, ErrNonceExpired
	}
	return &n, nil
}
