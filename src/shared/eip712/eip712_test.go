package eip712

import (
	"crypto/ecdsa"
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDomain() Domain {
	return NewDomain(84532, common.HexToAddress("0x0000000000000000000000000000000000000001"))
}

func testVote() VoteMessage {
	return VoteMessage{
		ProposalID:    "prop-1",
		OptionID:      "opt-1",
		Weight:        "12.5",
		Nonce:         "a2e54c9e-0b1f-4a7a-9d1e-000000000001",
		SnapshotBlock: "123456",
		Deadline:      "1893456000",
	}
}

func signVote(t *testing.T, key *ecdsa.PrivateKey, d Domain, m VoteMessage) string {
	t.Helper()
	sig, err := crypto.Sign(HashVote(d, m), key)
	require.NoError(t, err)
	return "0x" + hex.EncodeToString(sig)
}

func TestVerifyVote(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	d := testDomain()
	m := testVote()
	sig := signVote(t, key, d, m)

	assert.True(t, VerifyVote(addr, d, m, sig))

	recovered, err := RecoverVote(d, m, sig)
	require.NoError(t, err)
	assert.Equal(t, addr, recovered)
}

func TestVerifyVoteAcceptsWalletVForm(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	d := testDomain()
	m := testVote()
	sig, err := crypto.Sign(HashVote(d, m), key)
	require.NoError(t, err)

	// wallets emit v as 27/28 rather than 0/1
	wallet := make([]byte, len(sig))
	copy(wallet, sig)
	wallet[crypto.RecoveryIDOffset] += 27

	assert.True(t, VerifyVote(addr, d, m, "0x"+hex.EncodeToString(wallet)))
}

func TestVerifyVoteRejectsAlteredMessage(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	d := testDomain()
	m := testVote()
	sig := signVote(t, key, d, m)

	altered := m
	altered.OptionID = "opt-2"
	assert.False(t, VerifyVote(addr, d, altered, sig))

	altered = m
	altered.SnapshotBlock = "123457"
	assert.False(t, VerifyVote(addr, d, altered, sig))
}

func TestVerifyVoteRejectsWrongSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	other, err := crypto.GenerateKey()
	require.NoError(t, err)

	d := testDomain()
	m := testVote()
	sig := signVote(t, key, d, m)

	assert.False(t, VerifyVote(crypto.PubkeyToAddress(other.PublicKey), d, m, sig))
}

func TestVerifyVoteBindsDomain(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	m := testVote()
	sig := signVote(t, key, testDomain(), m)

	otherChain := NewDomain(1, common.HexToAddress("0x0000000000000000000000000000000000000001"))
	assert.False(t, VerifyVote(addr, otherChain, m, sig))

	otherContract := NewDomain(84532, common.HexToAddress("0x0000000000000000000000000000000000000002"))
	assert.False(t, VerifyVote(addr, otherContract, m, sig))
}

func TestHashVoteDeterministic(t *testing.T) {
	d := testDomain()
	m := testVote()

	assert.Equal(t, HashVote(d, m), HashVote(d, m))

	other := m
	other.Weight = "12.6"
	assert.NotEqual(t, HashVote(d, m), HashVote(d, other))
}

func TestParseSignature(t *testing.T) {
	_, err := ParseSignature("0x1234")
	assert.Error(t, err)

	_, err = ParseSignature("not hex")
	assert.Error(t, err)
}

func TestVerifyPersonal(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	challenge := LinkChallenge("some-token", addr.Hex())
	sig, err := crypto.Sign(accounts.TextHash([]byte(challenge)), key)
	require.NoError(t, err)
	sigHex := "0x" + hex.EncodeToString(sig)

	assert.True(t, VerifyPersonal(addr, challenge, sigHex))
	assert.False(t, VerifyPersonal(addr, challenge+"x", sigHex))

	other, err := crypto.GenerateKey()
	require.NoError(t, err)
	assert.False(t, VerifyPersonal(crypto.PubkeyToAddress(other.PublicKey), challenge, sigHex))
}
