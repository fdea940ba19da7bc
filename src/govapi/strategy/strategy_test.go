package strategy

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/onchainkit/govtoolkit/src/govapi/data"
	"github.com/onchainkit/govtoolkit/src/govapi/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	tokenAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	voterAddr = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

type fakeReader struct {
	balances  map[common.Address]*big.Int
	err       error
	lastBlock *big.Int
}

func (f *fakeReader) BalanceOf(_ context.Context, _, holder common.Address, block *big.Int) (*big.Int, error) {
	f.lastBlock = block
	if f.err != nil {
		return nil, f.err
	}
	if b, ok := f.balances[holder]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (f *fakeReader) BlockNumber(context.Context) (uint64, error) {
	return 1000, nil
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, data.Migrate(db))
	return db
}

func TestParse(t *testing.T) {
	spec, err := Parse(TypeERC20Balance, []byte(`{"tokenAddress":"0x00000000000000000000000000000000000000aa","decimals":6,"minBalance":"1000000","snapshotBlock":"123"}`))
	require.NoError(t, err)
	erc20, ok := spec.(ERC20Balance)
	require.True(t, ok)
	assert.Equal(t, tokenAddr, erc20.TokenAddress)
	assert.Equal(t, int32(6), erc20.Decimals)
	assert.Equal(t, big.NewInt(1000000), erc20.MinBalance)
	assert.Equal(t, uint64(123), erc20.SnapshotBlock)

	// clients disagree on whether numerics travel as strings
	spec, err = Parse(TypeERC20Balance, []byte(`{"tokenAddress":"0x00000000000000000000000000000000000000aa","decimals":"6","minBalance":1000000}`))
	require.NoError(t, err)
	erc20 = spec.(ERC20Balance)
	assert.Equal(t, int32(6), erc20.Decimals)
	assert.Equal(t, big.NewInt(1000000), erc20.MinBalance)

	spec, err = Parse(TypeERC20Balance, []byte(`{"tokenAddress":"0x00000000000000000000000000000000000000aa"}`))
	require.NoError(t, err)
	erc20 = spec.(ERC20Balance)
	assert.Equal(t, int32(18), erc20.Decimals)
	assert.Zero(t, erc20.MinBalance.Sign())

	spec, err = Parse(TypeERC721Ownership, []byte(`{"collectionAddress":"0x00000000000000000000000000000000000000aa","minCount":2}`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), spec.(ERC721Ownership).MinCount)

	_, err = Parse(TypeOnePersonOneVote, nil)
	require.NoError(t, err)

	_, err = Parse("QUADRATIC", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = Parse(TypeERC20Balance, []byte(`not json`))
	assert.Error(t, err)
}

func TestEvaluateERC20Balance(t *testing.T) {
	bal, _ := new(big.Int).SetString("2500000000000000000", 10) // 2.5 tokens at 18 decimals
	reader := &fakeReader{balances: map[common.Address]*big.Int{voterAddr: bal}}
	e := NewEvaluator(testDB(t), reader)
	config := []byte(`{"tokenAddress":"0x00000000000000000000000000000000000000aa","decimals":18}`)

	w := e.Evaluate(context.Background(), TypeERC20Balance, config, voterAddr, 0)
	assert.True(t, w.Equal(decimal.RequireFromString("2.5")), "got %s", w)

	// below the floor the weight is zero, not the raw balance
	gated := []byte(`{"tokenAddress":"0x00000000000000000000000000000000000000aa","decimals":18,"minBalance":"3000000000000000000"}`)
	w = e.Evaluate(context.Background(), TypeERC20Balance, gated, voterAddr, 0)
	assert.True(t, w.IsZero())

	w = e.Evaluate(context.Background(), TypeERC20Balance, config, common.HexToAddress("0xcc"), 0)
	assert.True(t, w.IsZero())
}

func TestEvaluateSnapshotPinning(t *testing.T) {
	reader := &fakeReader{balances: map[common.Address]*big.Int{voterAddr: big.NewInt(1)}}
	e := NewEvaluator(testDB(t), reader)
	config := []byte(`{"tokenAddress":"0x00000000000000000000000000000000000000aa","decimals":0,"snapshotBlock":100}`)

	e.Evaluate(context.Background(), TypeERC20Balance, config, voterAddr, 0)
	assert.Equal(t, big.NewInt(100), reader.lastBlock, "config snapshot applies when nothing is pinned")

	e.Evaluate(context.Background(), TypeERC20Balance, config, voterAddr, 200)
	assert.Equal(t, big.NewInt(200), reader.lastBlock, "pinned height overrides the config snapshot")

	noSnap := []byte(`{"tokenAddress":"0x00000000000000000000000000000000000000aa","decimals":0}`)
	e.Evaluate(context.Background(), TypeERC20Balance, noSnap, voterAddr, 0)
	assert.Nil(t, reader.lastBlock, "no snapshot means latest")
}

func TestEvaluateFailsClosed(t *testing.T) {
	e := NewEvaluator(testDB(t), &fakeReader{err: errors.New("rpc down")})
	config := []byte(`{"tokenAddress":"0x00000000000000000000000000000000000000aa"}`)

	w := e.Evaluate(context.Background(), TypeERC20Balance, config, voterAddr, 0)
	assert.True(t, w.IsZero(), "chain failures must not grant weight")

	w = e.Evaluate(context.Background(), "QUADRATIC", []byte(`{}`), voterAddr, 0)
	assert.True(t, w.IsZero(), "unknown strategy tags must not grant weight")

	noReader := NewEvaluator(testDB(t), nil)
	w = noReader.Evaluate(context.Background(), TypeERC20Balance, config, voterAddr, 0)
	assert.True(t, w.IsZero())
}

func TestEvaluateERC721Ownership(t *testing.T) {
	reader := &fakeReader{balances: map[common.Address]*big.Int{voterAddr: big.NewInt(3)}}
	e := NewEvaluator(testDB(t), reader)

	config := []byte(`{"collectionAddress":"0x00000000000000000000000000000000000000aa","minCount":2}`)
	w := e.Evaluate(context.Background(), TypeERC721Ownership, config, voterAddr, 0)
	assert.True(t, w.Equal(decimal.NewFromInt(3)))

	strict := []byte(`{"collectionAddress":"0x00000000000000000000000000000000000000aa","minCount":5}`)
	w = e.Evaluate(context.Background(), TypeERC721Ownership, strict, voterAddr, 0)
	assert.True(t, w.IsZero())
}

func TestEvaluateOnePersonOneVote(t *testing.T) {
	e := NewEvaluator(testDB(t), nil)

	one := decimal.NewFromInt(1)
	w := e.Evaluate(context.Background(), TypeOnePersonOneVote, nil, voterAddr, 0)
	assert.True(t, w.Equal(one))

	// weight is constant regardless of holdings or snapshot
	w = e.Evaluate(context.Background(), TypeOnePersonOneVote, nil, common.HexToAddress("0xdd"), 999)
	assert.True(t, w.Equal(one))
}

func TestEvaluateRoleGated(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.Create(&types.Identity{ID: "discord:1"}).Error)
	require.NoError(t, db.Create(&types.Wallet{
		ID:         "w1",
		Address:    strings.ToLower(voterAddr.Hex()),
		ChainID:    84532,
		IdentityID: "discord:1",
	}).Error)
	require.NoError(t, db.Create(&types.OrgMember{OrgID: "org-1", IdentityID: "discord:1", Role: "MODERATOR"}).Error)

	e := NewEvaluator(db, nil)
	ctx := context.Background()

	w := e.Evaluate(ctx, TypeRoleGated, []byte(`{"allowedRoles":["ADMIN","MODERATOR"]}`), voterAddr, 0)
	assert.True(t, w.Equal(decimal.NewFromInt(1)))

	w = e.Evaluate(ctx, TypeRoleGated, []byte(`{"allowedRoles":["ADMIN"]}`), voterAddr, 0)
	assert.True(t, w.IsZero())

	w = e.Evaluate(ctx, TypeRoleGated, []byte(`{"allowedRoles":["MODERATOR"],"orgId":"org-2"}`), voterAddr, 0)
	assert.True(t, w.IsZero(), "role in another org does not carry over")

	w = e.Evaluate(ctx, TypeRoleGated, []byte(`{"allowedRoles":[]}`), voterAddr, 0)
	assert.True(t, w.IsZero())

	w = e.Evaluate(ctx, TypeRoleGated, []byte(`{"allowedRoles":["MODERATOR"]}`), common.HexToAddress("0xee"), 0)
	assert.True(t, w.IsZero(), "unlinked wallets are ineligible")
}
