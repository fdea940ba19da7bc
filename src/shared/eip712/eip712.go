package eip712

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	DomainName    = "OnchainGovernanceToolkit"
	DomainVersion = "1"
)

var (
	domainTypeHash = crypto.Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	voteTypeHash   = crypto.Keccak256([]byte("Vote(string proposalId,string optionId,string weight,string nonce,string snapshotBlock,string deadline)"))
)

// Domain is the fixed EIP-712 domain every ballot is signed under.
type Domain struct {
	ChainID           *big.Int
	VerifyingContract common.Address
}

func NewDomain(chainID int64, verifyingContract common.Address) Domain {
	return Domain{ChainID: big.NewInt(chainID), VerifyingContract: verifyingContract}
}

// VoteMessage is the wire contract for a ballot. All fields travel as
// decimal strings to avoid precision loss across clients.
type VoteMessage struct {
	ProposalID    string `json:"proposalId"`
	OptionID      string `json:"optionId"`
	Weight        string `json:"weight"`
	Nonce         string `json:"nonce"`
	SnapshotBlock string `json:"snapshotBlock"`
	Deadline      string `json:"deadline"`
}

// Separator returns the EIP-712 domain separator.
func (d Domain) Separator() []byte {
	return crypto.Keccak256(
		domainTypeHash,
		crypto.Keccak256([]byte(DomainName)),
		crypto.Keccak256([]byte(DomainVersion)),
		common.BigToHash(d.ChainID).Bytes(),
		common.BytesToHash(d.VerifyingContract.Bytes()).Bytes(),
	)
}

func (m VoteMessage) structHash() []byte {
	return crypto.Keccak256(
		voteTypeHash,
		crypto.Keccak256([]byte(m.ProposalID)),
		crypto.Keccak256([]byte(m.OptionID)),
		crypto.Keccak256([]byte(m.Weight)),
		crypto.Keccak256([]byte(m.Nonce)),
		crypto.Keccak256([]byte(m.SnapshotBlock)),
		crypto.Keccak256([]byte(m.Deadline)),
	)
}

// HashVote returns the EIP-712 digest a voter signs.
func HashVote(d Domain, m VoteMessage) []byte {
	return crypto.Keccak256([]byte{0x19, 0x01}, d.Separator(), m.structHash())
}

// ParseSignature decodes a hex r||s||v signature, normalizing v from the
// 27/28 convention wallets emit to the 0/1 form recovery expects.
func ParseSignature(sigHex string) ([]byte, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return nil, err
	}
	if len(sig) != crypto.SignatureLength {
		return nil, fmt.Errorf("invalid signature length: %d", len(sig))
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	return sig, nil
}

// RecoverVote returns the address that signed the ballot.
func RecoverVote(d Domain, m VoteMessage, sigHex string) (common.Address, error) {
	sig, err := ParseSignature(sigHex)
	if err != nil {
		return common.Address{}, err
	}
	pub, err := crypto.SigToPub(HashVote(d, m), sig)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyVote reports whether addr signed the ballot under the given domain.
func VerifyVote(addr common.Address, d Domain, m VoteMessage, sigHex string) bool {
	recovered, err := RecoverVote(d, m, sigHex)
	if err != nil {
		return false
	}
	return recovered == addr
}

// VerifyPersonal reports whether addr produced an EIP-191 personal_sign
// signature over message.
func VerifyPersonal(addr common.Address, message, sigHex string) bool {
	sig, err := ParseSignature(sigHex)
	if err != nil {
		return false
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return false
	}
	return crypto.PubkeyToAddress(*pub) == addr
}

// LinkChallenge is the exact message a user signs to prove wallet ownership
// during the link handshake.
func LinkChallenge(token, address string) string {
	return fmt.Sprintf("Link wallet to governance toolkit\nToken: %s\nAddress: %s", token, address)
}
