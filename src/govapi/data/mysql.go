package data

import (
	"log"

	"github.com/onchainkit/govtoolkit/src/govapi/types"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func MustMySQL(dsn string) *gorm.DB {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	return db
}

// Migrate brings the schema up to date.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Identity{},
		&types.Wallet{},
		&types.Org{},
		&types.OrgMember{},
		&types.Strategy{},
		&types.Proposal{},
		&types.ProposalOption{},
		&types.Nonce{},
		&types.Vote{},
		&types.BallotLog{},
		&types.Setting{},
	)
}
