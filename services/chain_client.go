// services/chain_client.go
package services

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"
	"time"

	"zerogpool-backend/models"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ChainMirror is the injected handle to the session-vault contract.
// It is best-effort by design: the primary request flow never fails on a
// mirror error, callers check IsReady and swallow-and-log the rest.
type ChainMirror interface {
	IsReady() bool
	ContractAddress() string
	RecordSession(ctx context.Context, walletAddress string, stats models.GameStats) (*SessionReceipt, error)
	GetUserLoginCount(ctx context.Context, walletAddress string) (uint64, error)
	GetLatestSession(ctx context.Context, walletAddress string) (*SessionRecord, error)
	GetChainTotals(ctx context.Context) (*ChainTotals, error)
}

// SessionReceipt summarizes a mined recordSession transaction.
type SessionReceipt struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     uint64 `json:"blockNumber"`
	GasUsed         uint64 `json:"gasUsed"`
}

// SessionRecord is a session as stored by the contract.
type SessionRecord struct {
	WalletAddress string           `json:"walletAddress"`
	LoginCount    uint64           `json:"loginCount"`
	Timestamp     int64            `json:"timestamp"`
	Stats         models.GameStats `json:"stats"`
}

// ChainTotals are the contract's global counters.
type ChainTotals struct {
	TotalUsers    uint64 `json:"totalUsers"`
	TotalSessions uint64 `json:"totalSessions"`
}

// Session-vault contract surface, matching the deployed 0G contract.
const sessionVaultABI = `[
  {"type":"function","name":"recordSession","stateMutability":"nonpayable","inputs":[
    {"name":"_user","type":"address"},
    {"name":"_stats","type":"tuple","components":[
      {"name":"totalTimePlayed","type":"uint256"},
      {"name":"totalGamesPlayedVsCPU","type":"uint256"},
      {"name":"totalGamesWonVsCPU","type":"uint256"},
      {"name":"totalGamesPlayedVsHuman","type":"uint256"},
      {"name":"totalGamesWonVsHuman","type":"uint256"},
      {"name":"totalBallsPocketed","type":"uint256"},
      {"name":"ttBestScore","type":"uint256"},
      {"name":"matrixBestScore","type":"uint256"}]}],
   "outputs":[]},
  {"type":"function","name":"getUserLoginCount","stateMutability":"view",
   "inputs":[{"name":"_user","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getLatestSession","stateMutability":"view",
   "inputs":[{"name":"_user","type":"address"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"walletAddress","type":"address"},
     {"name":"loginCount","type":"uint256"},
     {"name":"timestamp","type":"uint256"},
     {"name":"stats","type":"tuple","components":[
       {"name":"totalTimePlayed","type":"uint256"},
       {"name":"totalGamesPlayedVsCPU","type":"uint256"},
       {"name":"totalGamesWonVsCPU","type":"uint256"},
       {"name":"totalGamesPlayedVsHuman","type":"uint256"},
       {"name":"totalGamesWonVsHuman","type":"uint256"},
       {"name":"totalBallsPocketed","type":"uint256"},
       {"name":"ttBestScore","type":"uint256"},
       {"name":"matrixBestScore","type":"uint256"}]}]}]},
  {"type":"function","name":"getTotalUsers","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"totalSessions","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

// chainStatsTuple matches the contract's stats tuple for ABI packing.
type chainStatsTuple struct {
	TotalTimePlayed         *big.Int
	TotalGamesPlayedVsCPU   *big.Int
	TotalGamesWonVsCPU      *big.Int
	TotalGamesPlayedVsHuman *big.Int
	TotalGamesWonVsHuman    *big.Int
	TotalBallsPocketed      *big.Int
	TtBestScore             *big.Int
	MatrixBestScore         *big.Int
}

// chainSessionTuple matches the contract's session tuple for ABI unpacking.
type chainSessionTuple struct {
	WalletAddress common.Address
	LoginCount    *big.Int
	Timestamp     *big.Int
	Stats         chainStatsTuple
}

// ChainClient talks to the session-vault contract over JSON-RPC. Construct
// once in main and pass by handle; a client built without the required env
// vars is permanently disabled and every call degrades gracefully.
type ChainClient struct {
	enabled    bool
	client     *ethclient.Client
	contract   *bind.BoundContract
	contractAt common.Address
	privateKey *ecdsa.PrivateKey
	chainID    *big.Int
}

// NewChainClient dials the RPC endpoint and binds the contract. Missing
// configuration disables the mirror instead of failing startup.
func NewChainClient(ctx context.Context) (*ChainClient, error) {
	rpcURL := os.Getenv("BLOCKCHAIN_RPC_URL")
	operatorKey := os.Getenv("OPERATOR_PRIVATE_KEY")
	contractAddr := os.Getenv("CONTRACT_ADDRESS")

	if rpcURL == "" || operatorKey == "" || contractAddr == "" {
		log.Println("⚠️  Blockchain env vars incomplete (BLOCKCHAIN_RPC_URL / OPERATOR_PRIVATE_KEY / CONTRACT_ADDRESS) — chain mirror disabled")
		return &ChainClient{}, nil
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial blockchain RPC: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain ID: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(operatorKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid operator private key: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(sessionVaultABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse session vault ABI: %w", err)
	}

	at := common.HexToAddress(contractAddr)

	log.Printf("🔗 Connected to blockchain (chainId: %s), contract %s", chainID, at.Hex())

	return &ChainClient{
		enabled:    true,
		client:     client,
		contract:   bind.NewBoundContract(at, parsed, client, client, client),
		contractAt: at,
		privateKey: privateKey,
		chainID:    chainID,
	}, nil
}

func (s *ChainClient) IsReady() bool {
	return s.enabled
}

func (s *ChainClient) ContractAddress() string {
	return s.contractAt.Hex()
}

// RecordSession writes a login session on-chain and waits for the receipt.
// Callers run it in a goroutine; the login response never waits on it.
func (s *ChainClient) RecordSession(ctx context.Context, walletAddress string, stats models.GameStats) (*SessionReceipt, error) {
	if !s.enabled {
		return nil, fmt.Errorf("chain mirror not initialized")
	}

	opts, err := bind.NewKeyedTransactorWithChainID(s.privateKey, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to build transactor: %w", err)
	}
	opts.Context = ctx

	tx, err := s.contract.Transact(opts, "recordSession",
		common.HexToAddress(walletAddress), toChainStats(stats))
	if err != nil {
		return nil, fmt.Errorf("recordSession transaction failed: %w", err)
	}

	log.Printf("🔗 recordSession tx sent for %s: %s", walletAddress, tx.Hash().Hex())

	receipt, err := bind.WaitMined(ctx, s.client, tx)
	if err != nil {
		return nil, fmt.Errorf("recordSession not mined: %w", err)
	}

	return &SessionReceipt{
		TransactionHash: receipt.TxHash.Hex(),
		BlockNumber:     receipt.BlockNumber.Uint64(),
		GasUsed:         receipt.GasUsed,
	}, nil
}

func (s *ChainClient) GetUserLoginCount(ctx context.Context, walletAddress string) (uint64, error) {
	if !s.enabled {
		return 0, fmt.Errorf("chain mirror not initialized")
	}

	var out []interface{}
	err := s.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getUserLoginCount",
		common.HexToAddress(walletAddress))
	if err != nil {
		return 0, fmt.Errorf("getUserLoginCount call failed: %w", err)
	}

	return out[0].(*big.Int).Uint64(), nil
}

func (s *ChainClient) GetLatestSession(ctx context.Context, walletAddress string) (*SessionRecord, error) {
	if !s.enabled {
		return nil, fmt.Errorf("chain mirror not initialized")
	}

	var out []interface{}
	err := s.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getLatestSession",
		common.HexToAddress(walletAddress))
	if err != nil {
		return nil, fmt.Errorf("getLatestSession call failed: %w", err)
	}

	raw := *abi.ConvertType(out[0], new(chainSessionTuple)).(*chainSessionTuple)

	return &SessionRecord{
		WalletAddress: strings.ToLower(raw.WalletAddress.Hex()),
		LoginCount:    raw.LoginCount.Uint64(),
		Timestamp:     raw.Timestamp.Int64(),
		Stats:         fromChainStats(raw.Stats),
	}, nil
}

func (s *ChainClient) GetChainTotals(ctx context.Context) (*ChainTotals, error) {
	if !s.enabled {
		return nil, fmt.Errorf("chain mirror not initialized")
	}

	callOpts := &bind.CallOpts{Context: ctx}

	var usersOut []interface{}
	if err := s.contract.Call(callOpts, &usersOut, "getTotalUsers"); err != nil {
		return nil, fmt.Errorf("getTotalUsers call failed: %w", err)
	}

	var sessionsOut []interface{}
	if err := s.contract.Call(callOpts, &sessionsOut, "totalSessions"); err != nil {
		return nil, fmt.Errorf("totalSessions call failed: %w", err)
	}

	return &ChainTotals{
		TotalUsers:    usersOut[0].(*big.Int).Uint64(),
		TotalSessions: sessionsOut[0].(*big.Int).Uint64(),
	}, nil
}

func toChainStats(stats models.GameStats) chainStatsTuple {
	return chainStatsTuple{
		TotalTimePlayed:         big.NewInt(stats.TotalTimePlayed),
		TotalGamesPlayedVsCPU:   big.NewInt(stats.TotalGamesPlayedVsCPU),
		TotalGamesWonVsCPU:      big.NewInt(stats.TotalGamesWonVsCPU),
		TotalGamesPlayedVsHuman: big.NewInt(stats.TotalGamesPlayedVsHuman),
		TotalGamesWonVsHuman:    big.NewInt(stats.TotalGamesWonVsHuman),
		TotalBallsPocketed:      big.NewInt(stats.TotalBallsPocketed),
		TtBestScore:             big.NewInt(stats.TTBestScore),
		MatrixBestScore:         big.NewInt(stats.MatrixBestScore),
	}
}

func fromChainStats(t chainStatsTuple) models.GameStats {
	return models.GameStats{
		TotalTimePlayed:         t.TotalTimePlayed.Int64(),
		TotalGamesPlayedVsCPU:   t.TotalGamesPlayedVsCPU.Int64(),
		TotalGamesWonVsCPU:      t.TotalGamesWonVsCPU.Int64(),
		TotalGamesPlayedVsHuman: t.TotalGamesPlayedVsHuman.Int64(),
		TotalGamesWonVsHuman:    t.TotalGamesWonVsHuman.Int64(),
		TotalBallsPocketed:      t.TotalBallsPocketed.Int64(),
		TTBestScore:             t.TtBestScore.Int64(),
		MatrixBestScore:         t.MatrixBestScore.Int64(),
	}
}

// waitCtx is a helper for best-effort chain reads inside request handlers.
func waitCtx(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
