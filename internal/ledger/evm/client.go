// Package evm talks to the CertNFT contract on an EVM chain.
package evm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"certledger/internal/certificate/models"
	"certledger/internal/ledger"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is what the client needs from a chain connection.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// Client implements ledger.Client against a deployed CertNFT contract.
type Client struct {
	backend        Backend
	address        common.Address
	contract       *bind.BoundContract
	auth           *bind.TransactOpts
	confirmTimeout time.Duration
	logger         *slog.Logger

	// one signer means one nonce sequence; writes are serialized
	writeMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithConfirmTimeout bounds how long a write waits to be mined.
func WithConfirmTimeout(d time.Duration) Option {
	return func(c *Client) { c.confirmTimeout = d }
}

// Dial connects to rpcURL and binds the contract at contractAddr, signing
// with the hex-encoded private key.
func Dial(ctx context.Context, rpcURL, contractAddr, privateKeyHex string, opts ...Option) (*Client, error) {
	backend, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial ledger rpc: %w", err)
	}
	c, err := New(ctx, backend, contractAddr, privateKeyHex, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return c, nil
}

// New binds the contract over an existing backend.
func New(ctx context.Context, backend Backend, contractAddr, privateKeyHex string, opts ...Option) (*Client, error) {
	if backend == nil {
		return nil, fmt.Errorf("ledger backend is required")
	}
	if !common.IsHexAddress(contractAddr) {
		return nil, fmt.Errorf("invalid contract address %q", contractAddr)
	}
	parsed, err := abi.JSON(strings.NewReader(certNFTABI))
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse signer key: %w", err)
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("create transactor: %w", err)
	}
	address := common.HexToAddress(contractAddr)
	c := &Client{
		backend:        backend,
		address:        address,
		contract:       bind.NewBoundContract(address, parsed, backend, backend, backend),
		auth:           auth,
		confirmTimeout: 2 * time.Minute,
		logger:         slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Mint(ctx context.Context, req models.MintRequest) (models.CertificateID, error) {
	receipt, err := c.transact(ctx, "mint", string(req.Pointer), req.HolderName, req.IssuerName, req.IssueDate)
	if err != nil {
		return 0, err
	}
	ids, err := mintedIDs(receipt, c.address)
	if err != nil {
		return 0, ledger.Indeterminate("mint", err)
	}
	if len(ids) != 1 {
		return 0, ledger.Indeterminate("mint", fmt.Errorf("expected 1 minted token, receipt has %d", len(ids)))
	}
	return ids[0], nil
}

func (c *Client) BatchMint(ctx context.Context, reqs []models.MintRequest) (models.IDRange, error) {
	if err := ledger.ValidateBatch(reqs); err != nil {
		return models.IDRange{}, ledger.WriteFailed("batch mint", err)
	}
	ptrs := make([]string, len(reqs))
	holders := make([]string, len(reqs))
	issuers := make([]string, len(reqs))
	dates := make([]string, len(reqs))
	for i, r := range reqs {
		ptrs[i], holders[i], issuers[i], dates[i] = string(r.Pointer), r.HolderName, r.IssuerName, r.IssueDate
	}
	receipt, err := c.transact(ctx, "batchMint", ptrs, holders, issuers, dates)
	if err != nil {
		return models.IDRange{}, err
	}
	ids, err := mintedIDs(receipt, c.address)
	if err != nil {
		return models.IDRange{}, ledger.Indeterminate("batch mint", err)
	}
	r, err := contiguous(ids, len(reqs))
	if err != nil {
		return models.IDRange{}, ledger.Indeterminate("batch mint", err)
	}
	return r, nil
}

func (c *Client) Revoke(ctx context.Context, id models.CertificateID) error {
	revoked, err := c.IsRevoked(ctx, id)
	if err != nil {
		return err
	}
	if revoked {
		return nil
	}
	_, err = c.transact(ctx, "revokeCertificate", new(big.Int).SetUint64(uint64(id)))
	return err
}

func (c *Client) Get(ctx context.Context, id models.CertificateID) (models.Certificate, error) {
	if err := c.exists(ctx, id); err != nil {
		return models.Certificate{}, err
	}
	var out []any
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getCert", new(big.Int).SetUint64(uint64(id))); err != nil {
		return models.Certificate{}, fmt.Errorf("getCert %s: %w", id, err)
	}
	if len(out) != 4 {
		return models.Certificate{}, fmt.Errorf("getCert %s: unexpected output arity %d", id, len(out))
	}
	fields := make([]string, 4)
	for i, v := range out {
		s, ok := v.(string)
		if !ok {
			return models.Certificate{}, fmt.Errorf("getCert %s: field %d is %T", id, i, v)
		}
		fields[i] = s
	}
	revoked, err := c.isRevoked(ctx, id)
	if err != nil {
		return models.Certificate{}, err
	}
	return models.Certificate{
		ID:         id,
		Pointer:    models.ContentPointer(fields[0]),
		HolderName: fields[1],
		IssuerName: fields[2],
		IssueDate:  fields[3],
		Revoked:    revoked,
	}, nil
}

func (c *Client) IsRevoked(ctx context.Context, id models.CertificateID) (bool, error) {
	if err := c.exists(ctx, id); err != nil {
		return false, err
	}
	return c.isRevoked(ctx, id)
}

func (c *Client) NextID(ctx context.Context) (models.CertificateID, error) {
	var out []any
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "nextId"); err != nil {
		return 0, fmt.Errorf("nextId: %w", err)
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("nextId: unexpected output arity %d", len(out))
	}
	n, ok := out[0].(*big.Int)
	if !ok || !n.IsUint64() {
		return 0, fmt.Errorf("nextId: unexpected value %v", out[0])
	}
	return models.CertificateID(n.Uint64()), nil
}

// exists maps ids past the end of the ledger to not-found, instead of relying
// on revert reasons.
func (c *Client) exists(ctx context.Context, id models.CertificateID) error {
	next, err := c.NextID(ctx)
	if err != nil {
		return err
	}
	if id >= next {
		return ledger.CertificateNotFound(id)
	}
	return nil
}

func (c *Client) isRevoked(ctx context.Context, id models.CertificateID) (bool, error) {
	var out []any
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "isCertificateRevoked", new(big.Int).SetUint64(uint64(id))); err != nil {
		return false, fmt.Errorf("isCertificateRevoked %s: %w", id, err)
	}
	if len(out) != 1 {
		return false, fmt.Errorf("isCertificateRevoked %s: unexpected output arity %d", id, len(out))
	}
	revoked, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("isCertificateRevoked %s: unexpected value %T", id, out[0])
	}
	return revoked, nil
}

// transact sends a transaction and blocks until it is mined or the
// confirmation timeout expires.
func (c *Client) transact(ctx context.Context, method string, params ...any) (*types.Receipt, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	opts := *c.auth
	opts.Context = ctx
	tx, err := c.contract.Transact(&opts, method, params...)
	if err != nil {
		return nil, ledger.WriteFailed(method, err)
	}
	c.logger.Info("ledger transaction sent", "method", method, "tx", tx.Hash().Hex())

	waitCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, c.backend, tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			c.logger.Warn("ledger confirmation timed out", "method", method, "tx", tx.Hash().Hex())
			return nil, ledger.Indeterminate(method, fmt.Errorf("tx %s: %w", tx.Hash().Hex(), err))
		}
		return nil, ledger.Indeterminate(method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, ledger.WriteFailed(method, fmt.Errorf("tx %s reverted", tx.Hash().Hex()))
	}
	return receipt, nil
}

var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// mintedIDs extracts the token ids of ERC-721 mints (transfers from the zero
// address) emitted by contract, in log order.
func mintedIDs(receipt *types.Receipt, contract common.Address) ([]models.CertificateID, error) {
	if receipt == nil {
		return nil, errors.New("missing receipt")
	}
	var ids []models.CertificateID
	for _, lg := range receipt.Logs {
		if lg.Address != contract || len(lg.Topics) != 4 || lg.Topics[0] != transferTopic {
			continue
		}
		if lg.Topics[1] != (common.Hash{}) {
			continue
		}
		n := new(big.Int).SetBytes(lg.Topics[3].Bytes())
		if !n.IsUint64() {
			return nil, fmt.Errorf("token id %s overflows", n)
		}
		ids = append(ids, models.CertificateID(n.Uint64()))
	}
	return ids, nil
}

func contiguous(ids []models.CertificateID, want int) (models.IDRange, error) {
	if len(ids) != want {
		return models.IDRange{}, fmt.Errorf("expected %d minted tokens, receipt has %d", want, len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] != ids[0]+models.CertificateID(i) {
			return models.IDRange{}, fmt.Errorf("minted ids are not contiguous: %v", ids)
		}
	}
	return models.IDRange{First: ids[0], Count: want}, nil
}
