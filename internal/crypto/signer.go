package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Pre-computed keccak256 of the canonical EIP-712 type strings.
var (
	// EIP712Domain(string name,string version,uint256 chainId)
	eip712DomainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId)"),
	)

	// TransferOrder(address token,address account,uint256 amount,uint256 nonce,uint256 deadline,uint8 direction)
	transferOrderTypeHash = ethcrypto.Keccak256(
		[]byte("TransferOrder(address token,address account,uint256 amount,uint256 nonce,uint256 deadline,uint8 direction)"),
	)
)

// Transfer directions as encoded in a TransferOrder.
const (
	DirectionIn  = 0
	DirectionOut = 1
)

// TransferOrder is the struct the custody vault contract expects to be
// signed for every asset movement into or out of escrow.
type TransferOrder struct {
	Token     common.Address
	Account   common.Address
	Amount    *big.Int
	Nonce     *big.Int
	Deadline  *big.Int
	Direction int
}

// Signer provides EIP-712 signing of custody vault transfer orders and raw
// transaction signing for the vault's operator key.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    int
	domainSep  []byte // cached EIP-712 domain separator hash
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key and
// the target chain ID.
func NewSigner(privateKeyHex string, chainID int) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}

	s := &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
		chainID:    chainID,
	}
	s.domainSep = buildDomainSeparator("ArenaVault", "1", chainID)

	return s, nil
}

// Address returns the Ethereum address derived from the signer's private key.
func (s *Signer) Address() common.Address {
	return s.address
}

// PrivateKey exposes the underlying key for transaction signing.
func (s *Signer) PrivateKey() *ecdsa.PrivateKey {
	return s.privateKey
}

// ChainID returns the chain the signer targets.
func (s *Signer) ChainID() int {
	return s.chainID
}

// SignTransferOrder signs a TransferOrder EIP-712 struct. The returned string
// is a hex-encoded signature with recovery byte (65 bytes total).
func (s *Signer) SignTransferOrder(order TransferOrder) (string, error) {
	structHash := ethcrypto.Keccak256(
		concatBytes(
			transferOrderTypeHash,
			common.LeftPadBytes(order.Token.Bytes(), 32),
			common.LeftPadBytes(order.Account.Bytes(), 32),
			bigIntTo32Bytes(order.Amount),
			bigIntTo32Bytes(order.Nonce),
			bigIntTo32Bytes(order.Deadline),
			bigIntTo32Bytes(big.NewInt(int64(order.Direction))),
		),
	)

	digest := eip712Hash(s.domainSep, structHash)
	return s.signDigest(digest)
}

// buildDomainSeparator returns keccak256(abi.encode(typeHash, nameHash, versionHash, chainId)).
func buildDomainSeparator(name, version string, chainID int) []byte {
	return ethcrypto.Keccak256(
		concatBytes(
			eip712DomainTypeHash,
			ethcrypto.Keccak256([]byte(name)),
			ethcrypto.Keccak256([]byte(version)),
			bigIntTo32Bytes(big.NewInt(int64(chainID))),
		),
	)
}

// eip712Hash computes the final EIP-712 digest:
//
//	keccak256("\x19\x01" || domainSeparator || structHash)
func eip712Hash(domainSep, structHash []byte) []byte {
	return ethcrypto.Keccak256(
		concatBytes(
			[]byte{0x19, 0x01},
			domainSep,
			structHash,
		),
	)
}

// signDigest signs a 32-byte digest using secp256k1 and returns the
// hex-encoded signature (r || s || v, 65 bytes).
func (s *Signer) signDigest(digest []byte) (string, error) {
	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: signing: %w", err)
	}

	// go-ethereum returns v in {0,1}; EIP-712 expects v in {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}

	return "0x" + hex.EncodeToString(sig), nil
}

// bigIntTo32Bytes returns a 32-byte big-endian representation of n.
func bigIntTo32Bytes(n *big.Int) []byte {
	b := n.Bytes()
	if len(b) >= 32 {
		return b[:32]
	}
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return padded
}

// concatBytes concatenates multiple byte slices into one.
func concatBytes(slices ...[]byte) []byte {
	total := 0
	for _, s := range slices {
		total += len(s)
	}
	buf := make([]byte, 0, total)
	for _, s := range slices {
		buf = append(buf, s...)
	}
	return buf
}
