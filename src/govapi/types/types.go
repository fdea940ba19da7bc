package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Proposal lifecycle statuses. This service only gates ballots on ACTIVE;
// the rest of the lifecycle is driven by external tooling.
const (
	StatusDraft     = "DRAFT"
	StatusActive    = "ACTIVE"
	StatusSucceeded = "SUCCEEDED"
	StatusDefeated  = "DEFEATED"
	StatusQueued    = "QUEUED"
	StatusExecuted  = "EXECUTED"
	StatusCanceled  = "CANCELED"
)

// Identities
type Identity struct {
	ID          string  `gorm:"primaryKey;size:64"`
	DiscordID   *string `gorm:"size:64;uniqueIndex"`
	TelegramID  *string `gorm:"size:64;uniqueIndex"`
	DisplayName string  `gorm:"size:128"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Wallets are exclusively owned; re-linking reassigns IdentityID.
type Wallet struct {
	ID         string   `gorm:"primaryKey;size:36"`
	Address    string   `gorm:"size:64;uniqueIndex;not null"` // lowercase 0x hex
	ChainID    uint64   `gorm:"not null"`
	IdentityID string   `gorm:"size:64;index;not null"`
	Identity   Identity `gorm:"foreignKey:IdentityID;references:ID"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Orgs
type Org struct {
	ID        string `gorm:"primaryKey;size:36"`
	Name      string `gorm:"size:128;not null"`
	CreatedAt time.Time
}

// Org memberships, one row per (org, identity, role)
type OrgMember struct {
	OrgID      string `gorm:"primaryKey;size:36"`
	IdentityID string `gorm:"primaryKey;size:64"`
	Role       string `gorm:"primaryKey;size:32"`
}

// Strategies are immutable once referenced by a proposal; votes snapshot the
// config they were weighed against.
type Strategy struct {
	ID        string `gorm:"primaryKey;size:36"`
	OrgID     string `gorm:"size:36;index;not null"`
	Type      string `gorm:"size:32;not null"`
	Config    string `gorm:"type:json"`
	CreatedAt time.Time
}

// Proposals
type Proposal struct {
	ID          string    `gorm:"primaryKey;size:36"`
	OrgID       string    `gorm:"size:36;index;not null"`
	Title       string    `gorm:"size:255;not null"`
	Description string    `gorm:"type:text"`
	StartsAt    time.Time `gorm:"not null"`
	EndsAt      time.Time `gorm:"not null"`
	Quorum      string    `gorm:"size:64"`
	Threshold   string    `gorm:"size:64"`
	Status      string    `gorm:"size:16;not null"`
	StrategyID  string    `gorm:"size:36;not null"`
	Strategy    Strategy  `gorm:"foreignKey:StrategyID;references:ID"`
	CreatedByID string    `gorm:"size:64"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Proposal options keep a stable index within their proposal.
type ProposalOption struct {
	ID         string `gorm:"primaryKey;size:36"`
	ProposalID string `gorm:"size:36;uniqueIndex:uniq_option_index;not null"`
	Index      uint16 `gorm:"column:option_index;uniqueIndex:uniq_option_index;not null"`
	Title      string `gorm:"size:255;not null"`
}

// Nonces are single-use and scoped to a wallet. Consumed is one-way.
// SnapshotBlock pins the chain height eligibility is evaluated at for
// chain-backed strategies (0 otherwise).
type Nonce struct {
	ID            string    `gorm:"primaryKey;size:36"`
	WalletID      string    `gorm:"size:36;index:idx_wallet_value;not null"`
	Value         string    `gorm:"size:64;index:idx_wallet_value;not null"`
	SnapshotBlock uint64    `gorm:"default:0"`
	ExpiresAt     time.Time `gorm:"not null"`
	Consumed      bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time
}

// Votes hold one current ballot per (proposal, wallet); re-voting replaces.
type Vote struct {
	ID           string          `gorm:"primaryKey;size:36"`
	ProposalID   string          `gorm:"size:36;uniqueIndex:uniq_proposal_wallet;not null"`
	WalletID     string          `gorm:"size:36;uniqueIndex:uniq_proposal_wallet;not null"`
	OptionID     string          `gorm:"size:36;index;not null"`
	Weight       decimal.Decimal `gorm:"type:decimal(65,18);not null"`
	Signature    string          `gorm:"size:256;not null"`
	StrategyData string          `gorm:"type:json"` // strategy config frozen at commit time
	SignedAt     time.Time       `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BallotLog keeps every accepted ballot, including ones later superseded by
// a re-vote, so vote changes stay auditable.
type BallotLog struct {
	ID         uint64          `gorm:"primaryKey"`
	ProposalID string          `gorm:"size:36;index;not null"`
	WalletID   string          `gorm:"size:36;not null"`
	OptionID   string          `gorm:"size:36;not null"`
	Weight     decimal.Decimal `gorm:"type:decimal(65,18);not null"`
	Signature  string          `gorm:"size:256;not null"`
	SignedAt   time.Time       `gorm:"not null"`
	CreatedAt  time.Time
}

// Settings
type Setting struct {
	ID    uint8  `gorm:"primaryKey"`
	Name  string `gorm:"size:32;not null"`
	Value string `gorm:"size:256;not null"`
}
