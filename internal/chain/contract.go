package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// tokenABI covers the org token contract surface this service invokes.
const tokenABI = `[
	{"type":"function","name":"multisend","inputs":[{"name":"recipients","type":"address[]"},{"name":"amounts","type":"uint256[]"}],"outputs":[]},
	{"type":"function","name":"addMember","inputs":[{"name":"member","type":"address"}],"outputs":[]},
	{"type":"function","name":"burn","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"mint","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

var parsedTokenABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		panic(fmt.Sprintf("parse token abi: %v", err))
	}
	parsedTokenABI = parsed
}

// Multisend distributes tokens to many recipients in a single contract call
// with parallel address/amount arrays. Returns the shared transaction hash.
func (c *Client) Multisend(ctx context.Context, senderKeyHex, contract string, recipients []string, amounts []*big.Int) (string, error) {
	if len(recipients) != len(amounts) {
		return "", fmt.Errorf("multisend: %d recipients for %d amounts", len(recipients), len(amounts))
	}
	addrs := make([]common.Address, len(recipients))
	for i, r := range recipients {
		addrs[i] = common.HexToAddress(r)
	}
	data, err := parsedTokenABI.Pack("multisend", addrs, amounts)
	if err != nil {
		return "", fmt.Errorf("pack multisend: %w", err)
	}
	return c.sendContractTx(ctx, senderKeyHex, contract, data, false)
}

// AddMember registers a wallet address with the org contract.
func (c *Client) AddMember(ctx context.Context, senderKeyHex, contract, member string) (string, error) {
	data, err := parsedTokenABI.Pack("addMember", common.HexToAddress(member))
	if err != nil {
		return "", fmt.Errorf("pack addMember: %w", err)
	}
	return c.sendContractTx(ctx, senderKeyHex, contract, data, false)
}

// Burn destroys tokens held by the sender.
func (c *Client) Burn(ctx context.Context, senderKeyHex, contract string, amount *big.Int) (string, error) {
	data, err := parsedTokenABI.Pack("burn", amount)
	if err != nil {
		return "", fmt.Errorf("pack burn: %w", err)
	}
	return c.sendContractTx(ctx, senderKeyHex, contract, data, false)
}

// Mint issues new tokens to an address.
func (c *Client) Mint(ctx context.Context, senderKeyHex, contract, to string, amount *big.Int) (string, error) {
	data, err := parsedTokenABI.Pack("mint", common.HexToAddress(to), amount)
	if err != nil {
		return "", fmt.Errorf("pack mint: %w", err)
	}
	return c.sendContractTx(ctx, senderKeyHex, contract, data, false)
}

// TokenBalance reads the token balance of an address from the org contract.
func (c *Client) TokenBalance(ctx context.Context, contract, address string) (*big.Int, error) {
	data, err := parsedTokenABI.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	contractAddr := common.HexToAddress(contract)
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &contractAddr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf: %w", err)
	}
	results, err := parsedTokenABI.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	bal, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf returned %T", results[0])
	}
	return bal, nil
}

// sendContractTx signs and submits an EIP-1559 contract invocation, computing
// the hash locally before broadcast.
func (c *Client) sendContractTx(ctx context.Context, senderKeyHex, contract string, data []byte, wait bool) (string, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(senderKeyHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("parse sender key: %w", err)
	}
	from := crypto.PubkeyToAddress(key.PublicKey)
	contractAddr := common.HexToAddress(contract)

	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("fetch nonce: %w", err)
	}
	fees, err := c.SuggestFees(ctx, nil)
	if err != nil {
		return "", err
	}
	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &contractAddr, Data: data})
	if err != nil {
		return "", fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: fees.PriorityFee,
		GasFeeCap: fees.MaxFee,
		Gas:       gas,
		To:        &contractAddr,
		Data:      data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), key)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	hash := signed.Hash().Hex()

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("broadcast %s: %w", hash, err)
	}
	c.logger.Info("contract call submitted",
		zap.String("tx_hash", hash),
		zap.String("from", from.Hex()),
		zap.String("contract", contractAddr.Hex()),
	)

	if wait {
		if _, err := bind.WaitMined(ctx, c.eth, signed); err != nil {
			return hash, fmt.Errorf("wait for %s: %w", hash, err)
		}
	}
	return hash, nil
}
