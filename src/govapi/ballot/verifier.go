package ballot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/onchainkit/govtoolkit/src/govapi/nonce"
	"github.com/onchainkit/govtoolkit/src/govapi/strategy"
	"github.com/onchainkit/govtoolkit/src/govapi/types"
	"github.com/onchainkit/govtoolkit/src/shared/eip712"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Rejection reasons. Every rejection is final for the attempt; the caller
// must obtain a fresh nonce and resubmit.
var (
	ErrPayloadMismatch  = errors.New("payload mismatch")
	ErrProposalNotFound = errors.New("proposal not found")
	ErrVotingNotStarted = errors.New("voting not started")
	ErrVotingClosed     = errors.New("voting closed")
	ErrBallotExpired    = errors.New("ballot expired")
	ErrWalletNotLinked  = errors.New("wallet not linked")
	ErrSnapshotMismatch = errors.New("snapshot block mismatch")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrNotEligible      = errors.New("not eligible")
)

// Submission is one signed ballot as received from a client. The message
// weight field is echoed for audit only and never trusted for authorization.
type Submission struct {
	ProposalID string
	OptionID   string
	Address    string
	Message    eip712.VoteMessage
	Signature  string
}

// Verifier runs the vote-authorization pipeline: structural checks, window
// and deadline checks, nonce consumption, signature verification, weight
// re-derivation, and the upsert commit.
type Verifier struct {
	db     *gorm.DB
	eval   *strategy.Evaluator
	nonces *nonce.Ledger
	domain eip712.Domain
	now    func() time.Time
}

func NewVerifier(db *gorm.DB, eval *strategy.Evaluator, ledger *nonce.Ledger, domain eip712.Domain) *Verifier {
	return &Verifier{db: db, eval: eval, nonces: ledger, domain: domain, now: time.Now}
}

func (v *Verifier) Submit(ctx context.Context, sub Submission) (*types.Vote, error) {
	if sub.Message.ProposalID != sub.ProposalID || sub.Message.OptionID != sub.OptionID {
		return nil, ErrPayloadMismatch
	}

	var prop types.Proposal
	err := v.db.WithContext(ctx).Preload("Strategy").First(&prop, "id = ?", sub.ProposalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProposalNotFound
	}
	if err != nil {
		return nil, err
	}

	if prop.Status != types.StatusActive {
		return nil, ErrVotingClosed
	}

	now := v.now()
	if now.Before(prop.StartsAt) {
		return nil, ErrVotingNotStarted
	}
	if !now.Before(prop.EndsAt) {
		return nil, ErrVotingClosed
	}

	// the deadline is voter-chosen and signed, binding the signature to an
	// expiry independent of the proposal window
	deadline, err := strconv.ParseInt(sub.Message.Deadline, 10, 64)
	if err != nil || time.Unix(deadline, 0).Before(now) {
		return nil, ErrBallotExpired
	}

	var opt types.ProposalOption
	if err := v.db.WithContext(ctx).First(&opt, "id = ? AND proposal_id = ?", sub.OptionID, sub.ProposalID).Error; err != nil {
		return nil, ErrPayloadMismatch
	}

	addr := strings.ToLower(sub.Address)
	var wallet types.Wallet
	if err := v.db.WithContext(ctx).First(&wallet, "address = ?", addr).Error; err != nil {
		return nil, ErrWalletNotLinked
	}

	n, err := v.nonces.Consume(ctx, wallet.ID, sub.Message.Nonce)
	if err != nil {
		return nil, err
	}

	// the signed snapshot must match the height pinned at nonce issuance so
	// both eligibility reads see the same chain state
	snap, err := strconv.ParseUint(sub.Message.SnapshotBlock, 10, 64)
	if err != nil || snap != n.SnapshotBlock {
		return nil, ErrSnapshotMismatch
	}

	voter := common.HexToAddress(sub.Address)
	if !eip712.VerifyVote(voter, v.domain, sub.Message, sub.Signature) {
		return nil, ErrInvalidSignature
	}

	weight := v.eval.Evaluate(ctx, prop.Strategy.Type, []byte(prop.Strategy.Config), voter, n.SnapshotBlock)
	if !weight.IsPositive() {
		return nil, ErrNotEligible
	}

	vote := types.Vote{
		ID:           uuid.NewString(),
		ProposalID:   sub.ProposalID,
		WalletID:     wallet.ID,
		OptionID:     sub.OptionID,
		Weight:       weight,
		Signature:    sub.Signature,
		StrategyData: prop.Strategy.Config,
		SignedAt:     now,
	}
	err = v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "proposal_id"}, {Name: "wallet_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"option_id", "weight", "signature", "strategy_data", "signed_at", "updated_at"}),
		}).Create(&vote).Error; err != nil {
			return err
		}
		return tx.Create(&types.BallotLog{
			ProposalID: sub.ProposalID,
			WalletID:   wallet.ID,
			OptionID:   sub.OptionID,
			Weight:     weight,
			Signature:  sub.Signature,
			SignedAt:   now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	// return the stored row; on a re-vote the original row id survives
	if err := v.db.WithContext(ctx).First(&vote, "proposal_id = ? AND wallet_id = ?", sub.ProposalID, wallet.ID).Error; err != nil {
		return nil, err
	}
	return &vote, nil
}
