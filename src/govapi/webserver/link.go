package webserver

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/onchainkit/govtoolkit/src/govapi/types"
	"github.com/onchainkit/govtoolkit/src/shared/eip712"
	"github.com/onchainkit/govtoolkit/src/shared/token"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Link struct {
	db        *gorm.DB
	codec     *token.Codec
	jwtSecret []byte
	chainID   uint64
	now       func() time.Time
}

func NewLink(db *gorm.DB, codec *token.Codec, jwtSecret []byte, chainID uint64) Link {
	return Link{db: db, codec: codec, jwtSecret: jwtSecret, chainID: chainID, now: time.Now}
}

// Complete finishes the wallet-link handshake: verifies the bot-issued
// token, its freshness, and the ownership signature over the challenge
// message, then persists the wallet-to-identity binding.
func (l Link) Complete(c *gin.Context) {
	var req struct {
		Token     string `json:"token" binding:"required"`
		Address   string `json:"address" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if !common.IsHexAddress(req.Address) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid address format"})
		return
	}

	var payload token.LinkPayload
	if !l.codec.Decode(req.Token, &payload) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid token"})
		return
	}
	if payload.Expired(l.now()) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "token expired"})
		return
	}

	challenge := eip712.LinkChallenge(req.Token, req.Address)
	if !eip712.VerifyPersonal(common.HexToAddress(req.Address), challenge, req.Signature) {
		log.Printf("link signature verification failed for %s", req.Address)
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid signature"})
		return
	}

	addr := strings.ToLower(common.HexToAddress(req.Address).Hex())
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var ident types.Identity
		err := tx.First(&ident, "id = ?", payload.UserID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ident = types.Identity{ID: payload.UserID, DisplayName: payload.DisplayName}
			switch payload.Platform {
			case token.PlatformDiscord:
				ident.DiscordID = &payload.PlatformID
			case token.PlatformTelegram:
				ident.TelegramID = &payload.PlatformID
			}
			if err := tx.Create(&ident).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		// re-linking reassigns wallet ownership
		wallet := types.Wallet{
			ID:         uuid.NewString(),
			Address:    addr,
			ChainID:    l.chainID,
			IdentityID: ident.ID,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			DoUpdates: clause.AssignmentColumns([]string{"identity_id", "updated_at"}),
		}).Create(&wallet).Error
	})
	if err != nil {
		log.Printf("link wallet %s: %v", addr, err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "failed to link wallet"})
		return
	}

	var wallet types.Wallet
	if err := l.db.First(&wallet, "address = ?", addr).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "failed to link wallet"})
		return
	}

	session, err := issueJWT(Identity{ID: payload.UserID, Address: addr}, l.jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	log.Printf("linked wallet %s to %s user %s", addr, payload.Platform, payload.UserID)
	c.JSON(http.StatusOK, gin.H{"wallet": wallet, "token": session})
}
