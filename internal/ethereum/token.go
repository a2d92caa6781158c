package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/doodlegames/doodle-rewards/internal/errors"
	customtypes "github.com/doodlegames/doodle-rewards/internal/types"
	"github.com/doodlegames/doodle-rewards/pkg/logger"
)

const (
	// DefaultContractAddress is the deployed DOODLE token contract.
	DefaultContractAddress = "0x98065B24753198F4C9d543473510A8edaF438b56"

	// TokenDecimals is the token's fractional-digit precision.
	TokenDecimals = 18
)

// TokenABI covers the two contract functions this service calls.
const TokenABI = `[{"name":"mintReward","type":"function","inputs":[{"name":"to","type":"address","internalType":"address"},{"name":"amount","type":"uint256","internalType":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},{"name":"balanceOf","type":"function","inputs":[{"name":"account","type":"address","internalType":"address"}],"outputs":[{"name":"","type":"uint256","internalType":"uint256"}],"stateMutability":"view"}]`

// weiPerToken is 10^18.
var weiPerToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(TokenDecimals), nil)

// TokenService is the ledger-side contract interface. Amounts are whole
// tokens; scaling to base units happens here, not in callers.
type TokenService interface {
	MintReward(ctx context.Context, to string, tokens *big.Float) (*customtypes.MintResult, error)
	BalanceOf(ctx context.Context, address string) (string, error)
	Close()
}

// TokenServiceImpl implements TokenService against a remote node using a
// single signing key. Sends are serialized so the key's nonce sequence
// stays in order.
type TokenServiceImpl struct {
	client   EthereumClient
	abi      abi.ABI
	key      *ecdsa.PrivateKey
	from     common.Address
	contract common.Address

	mu      sync.Mutex
	chainID *big.Int
}

// NewTokenService builds a TokenService from the environment. PRIVATE_KEY
// must be set; CONTRACT_ADDRESS falls back to the default deployment.
func NewTokenService(creator ClientCreator) (TokenService, error) {
	if creator == nil {
		creator = defaultClientCreator
	}

	pkHex := strings.TrimSpace(os.Getenv("PRIVATE_KEY"))
	if pkHex == "" {
		return nil, fmt.Errorf("PRIVATE_KEY environment variable is not set")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(pkHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}

	contractAddr := os.Getenv("CONTRACT_ADDRESS")
	if contractAddr == "" {
		contractAddr = DefaultContractAddress
	}

	client, err := creator(os.Getenv("RPC_URL"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the Ethereum client: %w", err)
	}

	tokenABI, err := abi.JSON(strings.NewReader(TokenABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token ABI: %w", err)
	}

	logger.Info("Successfully connected to Ethereum client")

	return &TokenServiceImpl{
		client:   client,
		abi:      tokenABI,
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		contract: common.HexToAddress(contractAddr),
	}, nil
}

// MintReward mints the given whole-token amount to an address and waits for
// the transaction to be mined. A reverted transaction is reported as a
// failure.
func (s *TokenServiceImpl) MintReward(ctx context.Context, to string, tokens *big.Float) (*customtypes.MintResult, error) {
	toAddr := common.HexToAddress(to)
	amount := WeiFromTokens(tokens)

	data, err := s.abi.Pack("mintReward", toAddr, amount)
	if err != nil {
		return nil, &errors.EthereumError{Operation: "pack mintReward call", Err: err}
	}

	signedTx, err := s.sendMintTx(ctx, data)
	if err != nil {
		return nil, err
	}

	receipt, err := bind.WaitMined(ctx, s.client, signedTx)
	if err != nil {
		return nil, &errors.EthereumError{Operation: "wait for mint confirmation", Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, &errors.EthereumError{
			Operation: "mint transaction",
			Err:       fmt.Errorf("transaction %s reverted", signedTx.Hash().Hex()),
		}
	}

	logger.Info("Transaction confirmed: %s", signedTx.Hash().Hex())

	return &customtypes.MintResult{
		TxHash:    signedTx.Hash().Hex(),
		To:        to,
		Amount:    tokens,
		BlockUsed: receipt.BlockNumber.Uint64(),
	}, nil
}

// sendMintTx assembles, signs and sends a mint transaction. The lock covers
// nonce assignment through send, so concurrent mints cannot race on the
// signer's nonce.
func (s *TokenServiceImpl) sendMintTx(ctx context.Context, data []byte) (*types.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chainID == nil {
		chainID, err := s.client.ChainID(ctx)
		if err != nil {
			return nil, &errors.EthereumError{Operation: "fetch chain id", Err: err}
		}
		s.chainID = chainID
	}

	nonce, err := s.client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, &errors.EthereumError{Operation: "fetch pending nonce", Err: err}
	}

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, &errors.EthereumError{Operation: "suggest gas price", Err: err}
	}

	gasLimit, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From: s.from,
		To:   &s.contract,
		Data: data,
	})
	if err != nil {
		return nil, &errors.EthereumError{Operation: "estimate gas", Err: err}
	}

	tx := types.NewTransaction(nonce, s.contract, big.NewInt(0), gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return nil, &errors.EthereumError{Operation: "sign mint transaction", Err: err}
	}

	if err := s.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, &errors.EthereumError{Operation: "send mint transaction", Err: err}
	}

	return signedTx, nil
}

// BalanceOf returns the token balance of an address formatted to the
// token's fractional-digit precision.
func (s *TokenServiceImpl) BalanceOf(ctx context.Context, address string) (string, error) {
	data, err := s.abi.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return "", &errors.EthereumError{Operation: "pack balanceOf call", Err: err}
	}

	result, err := s.client.CallContract(ctx, ethereum.CallMsg{
		To:   &s.contract,
		Data: data,
	}, nil)
	if err != nil {
		return "", &errors.EthereumError{Operation: "call balanceOf", Err: err}
	}

	outputs, err := s.abi.Unpack("balanceOf", result)
	if err != nil {
		return "", &errors.EthereumError{Operation: "unpack balanceOf result", Err: err}
	}

	balance, ok := outputs[0].(*big.Int)
	if !ok {
		return "", &errors.EthereumError{
			Operation: "unpack balanceOf result",
			Err:       fmt.Errorf("unexpected output type %T", outputs[0]),
		}
	}

	return FormatUnits(balance), nil
}

// Close closes the underlying client connection when it supports closing.
func (s *TokenServiceImpl) Close() {
	if closer, ok := s.client.(interface{ Close() }); ok {
		closer.Close()
	}
}

// WeiFromTokens converts a whole-token amount to base units (18 fractional
// digits), rounding to the nearest integer.
func WeiFromTokens(tokens *big.Float) *big.Int {
	scaled := new(big.Float).SetPrec(256).Mul(tokens, new(big.Float).SetInt(weiPerToken))
	scaled.Add(scaled, big.NewFloat(0.5))
	wei, _ := scaled.Int(nil)
	return wei
}

// FormatUnits renders a base-unit amount as a decimal token string, e.g.
// 1500000000000000000 -> "1.5".
func FormatUnits(wei *big.Int) string {
	s := new(big.Rat).SetFrac(wei, weiPerToken).FloatString(TokenDecimals)
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}
