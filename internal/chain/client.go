// Package chain wraps JSON-RPC and contract access to the chain: fee
// estimation, locally signed value transfers, token operations, and
// historical transfer lookup via a block-explorer API.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/avaloyal/backend/config"
)

// Client provides chain access over a single RPC connection. One client is
// constructed at startup and reused for every request.
type Client struct {
	eth       *ethclient.Client
	chainID   *big.Int
	maxFeeCap *big.Int
	explorer  *Explorer
	logger    *zap.Logger
}

// Dial connects to the RPC node and prepares the explorer client.
func Dial(ctx context.Context, cfg config.ChainConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return &Client{
		eth:       eth,
		chainID:   big.NewInt(cfg.ChainID),
		maxFeeCap: GweiToWei(cfg.MaxFeeCapGwei),
		explorer:  NewExplorer(cfg.ExplorerAPIURL, cfg.ExplorerAPIKey),
		logger:    logger,
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// NativeBalance returns the native-token balance of an address in wei.
func (c *Client) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	bal, err := c.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("balance of %s: %w", address, err)
	}
	return bal, nil
}

// SendValue builds, signs and submits an EIP-1559 value transfer from the
// given key. The transaction hash is computed locally from the signed payload
// before broadcast, so a hash is known even if the node drops the submission.
// When wait is true the call blocks until the transaction is mined.
func (c *Client) SendValue(ctx context.Context, senderKeyHex, to string, amountWei *big.Int, wait bool) (string, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(senderKeyHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("parse sender key: %w", err)
	}
	from := crypto.PubkeyToAddress(key.PublicKey)
	toAddr := common.HexToAddress(to)

	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("fetch nonce: %w", err)
	}
	fees, err := c.SuggestFees(ctx, nil)
	if err != nil {
		return "", err
	}
	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &toAddr, Value: amountWei})
	if err != nil {
		return "", fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: fees.PriorityFee,
		GasFeeCap: fees.MaxFee,
		Gas:       gas,
		To:        &toAddr,
		Value:     amountWei,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), key)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	hash := signed.Hash().Hex()

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("broadcast %s: %w", hash, err)
	}
	c.logger.Info("value transfer submitted",
		zap.String("tx_hash", hash),
		zap.String("from", from.Hex()),
		zap.String("to", toAddr.Hex()),
		zap.String("amount_wei", amountWei.String()),
	)

	if wait {
		if _, err := bind.WaitMined(ctx, c.eth, signed); err != nil {
			return hash, fmt.Errorf("wait for %s: %w", hash, err)
		}
	}
	return hash, nil
}
