package crypto

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known test vector key (hardhat account #0). Never fund this address.
const testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

const testKeyAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func TestNewSignerDerivesAddress(t *testing.T) {
	t.Parallel()

	s, err := NewSigner(testKeyHex, 137)
	require.NoError(t, err)
	assert.Equal(t, testKeyAddress, s.Address().Hex())
	assert.Equal(t, 137, s.ChainID())

	// 0x prefix is accepted too.
	s2, err := NewSigner("0x"+testKeyHex, 137)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), s2.Address())
}

func TestNewSignerRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := NewSigner("not-a-key", 1)
	assert.Error(t, err)
}

func TestSignTransferOrderIsDeterministic(t *testing.T) {
	t.Parallel()

	s, err := NewSigner(testKeyHex, 137)
	require.NoError(t, err)

	order := TransferOrder{
		Token:     common.HexToAddress("0x0000000000000000000000000000000000000001"),
		Account:   common.HexToAddress("0x0000000000000000000000000000000000000002"),
		Amount:    big.NewInt(1_000_000),
		Nonce:     big.NewInt(7),
		Deadline:  big.NewInt(1_900_000_000),
		Direction: DirectionOut,
	}

	sig1, err := s.SignTransferOrder(order)
	require.NoError(t, err)
	sig2, err := s.SignTransferOrder(order)
	require.NoError(t, err)

	assert.Equal(t, sig1, sig2)
	assert.True(t, strings.HasPrefix(sig1, "0x"))
	// 65 signature bytes hex-encoded plus the prefix.
	assert.Len(t, sig1, 2+65*2)

	// Any field change must change the signature.
	order.Direction = DirectionIn
	sig3, err := s.SignTransferOrder(order)
	require.NoError(t, err)
	assert.NotEqual(t, sig1, sig3)
}

func TestSignTransferOrderDependsOnChain(t *testing.T) {
	t.Parallel()

	order := TransferOrder{
		Token:     common.HexToAddress("0x0000000000000000000000000000000000000001"),
		Account:   common.HexToAddress("0x0000000000000000000000000000000000000002"),
		Amount:    big.NewInt(1),
		Nonce:     big.NewInt(1),
		Deadline:  big.NewInt(1),
		Direction: DirectionIn,
	}

	s137, err := NewSigner(testKeyHex, 137)
	require.NoError(t, err)
	s1, err := NewSigner(testKeyHex, 1)
	require.NoError(t, err)

	sigPolygon, err := s137.SignTransferOrder(order)
	require.NoError(t, err)
	sigMainnet, err := s1.SignTransferOrder(order)
	require.NoError(t, err)

	assert.NotEqual(t, sigPolygon, sigMainnet)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	blob, err := EncryptKey(testKeyHex, "hunter2hunter2")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)

	_, err = DecryptKey(blob, "wrong-password")
	assert.Error(t, err)
}

func TestLoadKeySources(t *testing.T) {
	t.Parallel()

	// Raw key wins, 0x prefix stripped.
	got, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + testKeyHex})
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)

	// Encrypted file path.
	blob, err := EncryptKey(testKeyHex, "pw")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	got, err = LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "pw"})
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)

	// Nothing configured.
	_, err = LoadKey(KeyConfig{})
	assert.Error(t, err)
}

func TestHMACAuthRoundTrip(t *testing.T) {
	t.Parallel()

	auth := HMACAuth{Key: "op-key", Secret: "op-secret"}

	now := time.Now().Unix()
	headers := auth.HeadersAt(
		"POST", "/api/fees/withdraw", `{"operator":"operator"}`, now,
	)
	assert.Equal(t, "op-key", headers["X-Arena-Key"])

	ok := auth.Verify(
		"POST", "/api/fees/withdraw", `{"operator":"operator"}`,
		headers["X-Arena-Timestamp"], headers["X-Arena-Signature"],
		time.Minute,
	)
	assert.True(t, ok)

	// Tampered body fails.
	ok = auth.Verify(
		"POST", "/api/fees/withdraw", `{"operator":"mallory"}`,
		headers["X-Arena-Timestamp"], headers["X-Arena-Signature"],
		time.Minute,
	)
	assert.False(t, ok)

	// Stale timestamp fails.
	stale := auth.HeadersAt("GET", "/api/fees/balance", "", now-3600)
	ok = auth.Verify(
		"GET", "/api/fees/balance", "",
		stale["X-Arena-Timestamp"], stale["X-Arena-Signature"],
		time.Minute,
	)
	assert.False(t, ok)
}

func TestHMACAuthStringRedacts(t *testing.T) {
	t.Parallel()

	auth := HMACAuth{Key: "operator-key", Secret: "operator-secret"}
	s := auth.String()
	assert.NotContains(t, s, "operator-secret")
	assert.Contains(t, s, "oper****")
}
