package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	TypeERC20Balance     = "ERC20_BALANCE"
	TypeERC721Ownership  = "ERC721_OWNERSHIP"
	TypeOnePersonOneVote = "ONE_PERSON_ONE_VOTE"
	TypeRoleGated        = "ROLE_GATED"
)

var ErrUnknownType = errors.New("unknown strategy type")

// Spec is a parsed weighting strategy. Dispatch happens over these concrete
// types, so every variant is handled; rows with an unrecognized tag fail at
// Parse and can never grant weight.
type Spec interface {
	weigh(ctx context.Context, e *Evaluator, voter common.Address, block uint64) (decimal.Decimal, error)
}

// ERC20Balance weighs voters by fungible token balance.
type ERC20Balance struct {
	TokenAddress  common.Address
	Decimals      int32
	MinBalance    *big.Int // raw token units
	SnapshotBlock uint64
}

// ERC721Ownership weighs voters by owned count in a collection.
type ERC721Ownership struct {
	CollectionAddress common.Address
	MinCount          int64
	SnapshotBlock     uint64
}

// OnePersonOneVote grants a constant weight of 1 to any linked wallet.
type OnePersonOneVote struct{}

// RoleGated grants weight 1 when the wallet's identity holds one of the
// allowed roles, optionally scoped to a single org.
type RoleGated struct {
	AllowedRoles []string
	OrgID        string
}

// rawConfig is the stored JSON shape. Numeric fields arrive as strings or
// numbers depending on which client wrote them, so they are kept raw.
type rawConfig struct {
	TokenAddress      string          `json:"tokenAddress"`
	CollectionAddress string          `json:"collectionAddress"`
	Decimals          json.RawMessage `json:"decimals"`
	MinBalance        json.RawMessage `json:"minBalance"`
	MinCount          json.RawMessage `json:"minCount"`
	SnapshotBlock     json.RawMessage `json:"snapshotBlock"`
	AllowedRoles      []string        `json:"allowedRoles"`
	OrgID             string          `json:"orgId"`
}

func rawString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, `"`)
	if s == "null" {
		return ""
	}
	return s
}

func rawUint(raw json.RawMessage) uint64 {
	v, err := strconv.ParseUint(rawString(raw), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func rawInt(raw json.RawMessage, def int64) int64 {
	s := rawString(raw)
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return v
}

func rawBig(raw json.RawMessage) *big.Int {
	s := rawString(raw)
	if s == "" {
		return new(big.Int)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}

// Parse turns a stored (type, config) pair into a concrete Spec.
func Parse(typ string, config []byte) (Spec, error) {
	var raw rawConfig
	if len(config) > 0 {
		if err := json.Unmarshal(config, &raw); err != nil {
			return nil, fmt.Errorf("strategy config: %w", err)
		}
	}

	switch typ {
	case TypeERC20Balance:
		return ERC20Balance{
			TokenAddress:  common.HexToAddress(raw.TokenAddress),
			Decimals:      int32(rawInt(raw.Decimals, 18)),
			MinBalance:    rawBig(raw.MinBalance),
			SnapshotBlock: rawUint(raw.SnapshotBlock),
		}, nil
	case TypeERC721Ownership:
		return ERC721Ownership{
			CollectionAddress: common.HexToAddress(raw.CollectionAddress),
			MinCount:          rawInt(raw.MinCount, 1),
			SnapshotBlock:     rawUint(raw.SnapshotBlock),
		}, nil
	case TypeOnePersonOneVote:
		return OnePersonOneVote{}, nil
	case TypeRoleGated:
		return RoleGated{AllowedRoles: raw.AllowedRoles, OrgID: raw.OrgID}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
}
