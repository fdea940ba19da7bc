package webserver

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/onchainkit/govtoolkit/src/govapi/nonce"
	"github.com/onchainkit/govtoolkit/src/govapi/strategy"
	"github.com/onchainkit/govtoolkit/src/govapi/types"
	"github.com/onchainkit/govtoolkit/src/shared/chain"
	"gorm.io/gorm"
)

type Nonces struct {
	db     *gorm.DB
	ledger *nonce.Ledger
	chain  chain.Reader
}

func NewNonces(db *gorm.DB, ledger *nonce.Ledger, reader chain.Reader) Nonces {
	return Nonces{db: db, ledger: ledger, chain: reader}
}

// Issue hands the caller a fresh single-use nonce for one of their linked
// wallets, pinning the snapshot block chain-backed strategies will be
// evaluated at when the ballot comes back.
func (n Nonces) Issue(c *gin.Context) {
	ident, ok := CurrentIdentity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var prop types.Proposal
	if err := n.db.Preload("Strategy").First(&prop, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "proposal not found"})
		return
	}

	var wallet types.Wallet
	q := n.db.Where("identity_id = ?", ident.ID)
	if ident.Address != "" {
		q = q.Where("address = ?", ident.Address)
	}
	if err := q.First(&wallet).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "no linked wallet"})
		return
	}

	block := n.pinSnapshot(c, &prop)
	rec, err := n.ledger.Issue(c.Request.Context(), wallet.ID, block)
	if err != nil {
		log.Printf("issue nonce for wallet %s: %v", wallet.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "unable to issue nonce"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nonce":         rec.Value,
		"snapshotBlock": strconv.FormatUint(rec.SnapshotBlock, 10),
	})
}

// pinSnapshot resolves the block height for chain-backed strategies: the
// config's snapshot if set, the current head otherwise. Non-chain
// strategies pin 0.
func (n Nonces) pinSnapshot(c *gin.Context, prop *types.Proposal) uint64 {
	spec, err := strategy.Parse(prop.Strategy.Type, []byte(prop.Strategy.Config))
	if err != nil {
		return 0
	}
	var configured uint64
	switch s := spec.(type) {
	case strategy.ERC20Balance:
		configured = s.SnapshotBlock
	case strategy.ERC721Ownership:
		configured = s.SnapshotBlock
	default:
		return 0
	}
	if configured != 0 {
		return configured
	}
	if n.chain == nil {
		return 0
	}
	head, err := n.chain.BlockNumber(c.Request.Context())
	if err != nil {
		log.Printf("pin snapshot block: %v", err)
		return 0
	}
	return head
}
