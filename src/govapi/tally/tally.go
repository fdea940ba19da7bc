package tally

import (
	"github.com/shopspring/decimal"
	"github.com/onchainkit/govtoolkit/src/govapi/types"
	"gorm.io/gorm"
)

type OptionTally struct {
	OptionID string          `json:"optionId"`
	Index    uint16          `json:"index"`
	Title    string          `json:"title"`
	Weight   decimal.Decimal `json:"weight"`
	Percent  decimal.Decimal `json:"percent"`
}

type Result struct {
	Total         decimal.Decimal `json:"total"`
	Options       []OptionTally   `json:"options"`
	QuorumReached bool            `json:"quorumReached"`
}

var hundred = decimal.NewFromInt(100)

// Compute recomputes per-option sums from the current vote rows. No caching:
// each call reads the store, so recomputation is idempotent by construction.
func Compute(db *gorm.DB, prop *types.Proposal, options []types.ProposalOption) (*Result, error) {
	type row struct {
		OptionID string
		Weight   decimal.Decimal
	}
	var rows []row
	err := db.Model(&types.Vote{}).
		Select("option_id, sum(weight) as weight").
		Where("proposal_id = ?", prop.ID).
		Group("option_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byOption := make(map[string]decimal.Decimal, len(rows))
	total := decimal.Zero
	for _, r := range rows {
		byOption[r.OptionID] = r.Weight
		total = total.Add(r.Weight)
	}

	res := &Result{Total: total, Options: make([]OptionTally, 0, len(options))}
	for _, o := range options {
		w := byOption[o.ID]
		pct := decimal.Zero
		if total.IsPositive() {
			pct = w.Mul(hundred).Div(total).Round(2)
		}
		res.Options = append(res.Options, OptionTally{
			OptionID: o.ID,
			Index:    o.Index,
			Title:    o.Title,
			Weight:   w,
			Percent:  pct,
		})
	}

	if prop.Quorum != "" {
		if q, err := decimal.NewFromString(prop.Quorum); err == nil {
			res.QuorumReached = total.GreaterThanOrEqual(q)
		}
	}
	return res, nil
}
