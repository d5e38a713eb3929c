package chain

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	_ "embed"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

//go:embed abi/PropertyRegistry.json
var registryABIJSON []byte

// RegistryABI parses the embedded contract ABI.
func RegistryABI() (abi.ABI, error) {
	return abi.JSON(bytes.NewReader(registryABIJSON))
}

const defaultReceiptTimeout = 2 * time.Minute

// EthereumConfig configures the live backend.
type EthereumConfig struct {
	Network         Network
	ContractAddress string
	SignerKeyHex    string
	ReceiptTimeout  time.Duration
}

// Ethereum signs and submits registry calls through an RPC endpoint.
type Ethereum struct {
	client         *ethclient.Client
	address        common.Address
	contract       *bind.BoundContract
	signer         *bind.TransactOpts
	network        Network
	receiptTimeout time.Duration

	// submit serializes nonce selection for the single signer.
	submit sync.Mutex
}

// DialEthereum connects to the RPC endpoint and binds the registry contract.
func DialEthereum(ctx context.Context, cfg EthereumConfig) (*Ethereum, error) {
	if !cfg.Network.Configured() {
		return nil, ErrNotConfigured
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.ContractAddress)
	}

	key, err := crypto.HexToECDSA(cfg.SignerKeyHex)
	if err != nil {
		return nil, fmt.Errorf("parse signer key: %w", err)
	}

	parsed, err := RegistryABI()
	if err != nil {
		return nil, fmt.Errorf("parse registry abi: %w", err)
	}

	client, err := ethclient.DialContext(ctx, cfg.Network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	if cfg.Network.ChainID != 0 && chainID.Int64() != cfg.Network.ChainID {
		client.Close()
		return nil, fmt.Errorf("rpc reports chain id %s, expected %d", chainID, cfg.Network.ChainID)
	}

	signer, err := newSigner(key, chainID)
	if err != nil {
		client.Close()
		return nil, err
	}

	timeout := cfg.ReceiptTimeout
	if timeout <= 0 {
		timeout = defaultReceiptTimeout
	}

	address := common.HexToAddress(cfg.ContractAddress)
	return &Ethereum{
		client:         client,
		address:        address,
		contract:       bind.NewBoundContract(address, parsed, client, client, client),
		signer:         signer,
		network:        cfg.Network,
		receiptTimeout: timeout,
	}, nil
}

func newSigner(key *ecdsa.PrivateKey, chainID *big.Int) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}
	return opts, nil
}

// Signer is the account that pays for and sends every transaction.
func (e *Ethereum) Signer() string {
	return e.signer.From.Hex()
}

// Transact submits tx and blocks until it is mined or the receipt timeout elapses.
func (e *Ethereum) Transact(ctx context.Context, tx Tx) (*Receipt, error) {
	sent, err := e.send(ctx, tx)
	if err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, e.receiptTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, e.client, sent)
	if err != nil {
		return nil, fmt.Errorf("wait for %s receipt %s: %w", tx.Method, sent.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%s %s: %w", tx.Method, sent.Hash().Hex(), ErrReverted)
	}

	var logs []*types.Log
	for _, l := range receipt.Logs {
		if l.Address == e.address {
			logs = append(logs, l)
		}
	}
	return &Receipt{
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		Status:      receipt.Status,
		Logs:        logs,
	}, nil
}

func (e *Ethereum) send(ctx context.Context, tx Tx) (*types.Transaction, error) {
	e.submit.Lock()
	defer e.submit.Unlock()

	opts := *e.signer
	opts.Context = ctx
	opts.Value = tx.Value

	sent, err := e.contract.Transact(&opts, tx.Method, tx.Args...)
	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", tx.Method, err)
	}
	return sent, nil
}

func (e *Ethereum) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	var out []any
	if err := e.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	return out, nil
}

func (e *Ethereum) Network() Network {
	return e.network
}

func (e *Ethereum) Kind() string {
	return "ethereum"
}

func (e *Ethereum) Close() {
	e.client.Close()
}
