// Package evmvault implements domain.AssetVault against ERC-20 tokens on an
// EVM chain. Deposits move tokens from the participant into the custody
// address via transferFrom (participants grant an allowance up front);
// payouts move tokens from custody to the participant via transfer, signed
// with the operator key.
package evmvault

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/coinarena/arenad/internal/crypto"
	"github.com/coinarena/arenad/internal/domain"
)

// ERC-20 method selectors.
var (
	transferSelector     = ethcrypto.Keccak256([]byte("transfer(address,uint256)"))[:4]
	transferFromSelector = ethcrypto.Keccak256([]byte("transferFrom(address,address,uint256)"))[:4]
)

const receiptPollInterval = 2 * time.Second

// Config holds the chain endpoint and the on-chain identity mappings.
type Config struct {
	// RPCURL is the EVM JSON-RPC endpoint.
	RPCURL string

	// Custody is the address escrowed funds are held at.
	Custody string

	// Tokens maps engine asset identifiers to ERC-20 contract addresses.
	Tokens map[string]string

	// Accounts maps participant identities to their on-chain addresses.
	Accounts map[string]string

	// ReceiptTimeout bounds how long a transfer waits for its receipt.
	// Zero means send-and-forget.
	ReceiptTimeout time.Duration
}

// Vault implements domain.AssetVault over an ethclient connection.
type Vault struct {
	client   *ethclient.Client
	signer   *crypto.Signer
	custody  common.Address
	tokens   map[string]common.Address
	accounts map[string]common.Address
	timeout  time.Duration
}

// New connects to the RPC endpoint and builds the address maps.
func New(ctx context.Context, cfg Config, signer *crypto.Signer) (*Vault, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("evmvault: dial %s: %w", cfg.RPCURL, err)
	}

	tokens := make(map[string]common.Address, len(cfg.Tokens))
	for asset, addr := range cfg.Tokens {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("evmvault: token %s: invalid address %q", asset, addr)
		}
		tokens[asset] = common.HexToAddress(addr)
	}
	accounts := make(map[string]common.Address, len(cfg.Accounts))
	for participant, addr := range cfg.Accounts {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("evmvault: account %s: invalid address %q", participant, addr)
		}
		accounts[participant] = common.HexToAddress(addr)
	}
	if !common.IsHexAddress(cfg.Custody) {
		return nil, fmt.Errorf("evmvault: invalid custody address %q", cfg.Custody)
	}

	return &Vault{
		client:   client,
		signer:   signer,
		custody:  common.HexToAddress(cfg.Custody),
		tokens:   tokens,
		accounts: accounts,
		timeout:  cfg.ReceiptTimeout,
	}, nil
}

// Close releases the RPC connection.
func (v *Vault) Close() {
	v.client.Close()
}

// TransferIn moves quantity units of asset from the participant's address
// into custody.
func (v *Vault) TransferIn(ctx context.Context, asset, from string, quantity int64) error {
	token, fromAddr, err := v.resolve(asset, from)
	if err != nil {
		return err
	}

	data := append(append([]byte{}, transferFromSelector...),
		packAddress(fromAddr)...)
	data = append(data, packAddress(v.custody)...)
	data = append(data, packAmount(quantity)...)

	if err := v.send(ctx, token, data); err != nil {
		return fmt.Errorf("evmvault: transfer in %d %s from %s: %w: %v", quantity, asset, from, domain.ErrTransferFailed, err)
	}
	return nil
}

// TransferOut moves quantity units of asset from custody to the
// participant's address.
func (v *Vault) TransferOut(ctx context.Context, asset, to string, quantity int64) error {
	token, toAddr, err := v.resolve(asset, to)
	if err != nil {
		return err
	}

	data := append(append([]byte{}, transferSelector...),
		packAddress(toAddr)...)
	data = append(data, packAmount(quantity)...)

	if err := v.send(ctx, token, data); err != nil {
		return fmt.Errorf("evmvault: transfer out %d %s to %s: %w: %v", quantity, asset, to, domain.ErrTransferFailed, err)
	}
	return nil
}

func (v *Vault) resolve(asset, participant string) (common.Address, common.Address, error) {
	token, ok := v.tokens[asset]
	if !ok {
		return common.Address{}, common.Address{}, fmt.Errorf("evmvault: asset %s: no token mapping: %w", asset, domain.ErrTransferFailed)
	}
	addr, ok := v.accounts[participant]
	if !ok {
		return common.Address{}, common.Address{}, fmt.Errorf("evmvault: participant %s: no account mapping: %w", participant, domain.ErrTransferFailed)
	}
	return token, addr, nil
}

// send signs and submits a contract call from the operator key, then waits
// for its receipt when a timeout is configured. A reverted receipt is an
// error.
func (v *Vault) send(ctx context.Context, to common.Address, data []byte) error {
	nonce, err := v.client.PendingNonceAt(ctx, v.signer.Address())
	if err != nil {
		return fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := v.client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("gas price: %w", err)
	}

	const gasLimit = 100_000
	tx := types.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)

	chainID := big.NewInt(int64(v.signer.ChainID()))
	signed, err := types.SignTx(tx, types.NewEIP155Signer(chainID), v.signer.PrivateKey())
	if err != nil {
		return fmt.Errorf("sign tx: %w", err)
	}

	if err := v.client.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("send tx: %w", err)
	}

	if v.timeout == 0 {
		return nil
	}
	return v.waitMined(ctx, signed.Hash())
}

func (v *Vault) waitMined(ctx context.Context, hash common.Hash) error {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := v.client.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return fmt.Errorf("tx %s reverted", hash.Hex())
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("tx %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func packAddress(addr common.Address) []byte {
	return common.LeftPadBytes(addr.Bytes(), 32)
}

func packAmount(quantity int64) []byte {
	return common.LeftPadBytes(big.NewInt(quantity).Bytes(), 32)
}

// Compile-time interface check.
var _ domain.AssetVault = (*Vault)(nil)
