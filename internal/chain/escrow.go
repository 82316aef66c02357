package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"voxelhunt/internal/logger"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Read-only subset of the escrow contract.
const escrowABI = `[
  {"inputs":[{"internalType":"string","name":"gameId","type":"string"}],
   "name":"getChallenge",
   "outputs":[{"components":[
     {"internalType":"address","name":"creator","type":"address"},
     {"internalType":"address","name":"opponent","type":"address"},
     {"internalType":"uint256","name":"stake","type":"uint256"},
     {"internalType":"uint256","name":"createdAt","type":"uint256"},
     {"internalType":"bool","name":"completed","type":"bool"},
     {"internalType":"address","name":"winner","type":"address"},
     {"internalType":"string","name":"gameId","type":"string"}],
     "internalType":"struct QuestGame.Challenge","name":"","type":"tuple"}],
   "stateMutability":"view","type":"function"},
  {"inputs":[{"internalType":"address","name":"player","type":"address"}],
   "name":"getPlayerBalance",
   "outputs":[{"internalType":"uint256","name":"","type":"uint256"}],
   "stateMutability":"view","type":"function"}
]`

// Challenge mirrors the contract struct. Field order matches the ABI tuple.
type Challenge struct {
	Creator   common.Address
	Opponent  common.Address
	Stake     *big.Int
	CreatedAt *big.Int
	Completed bool
	Winner    common.Address
	GameID    string
}

// ChallengeView is the JSON form served to clients.
type ChallengeView struct {
	GameID    string  `json:"gameId"`
	Creator   string  `json:"creator"`
	Opponent  string  `json:"opponent"`
	Stake     string  `json:"stake"`
	CreatedAt int64   `json:"createdAt"`
	Completed bool    `json:"completed"`
	Winner    *string `json:"winner"`

	// set only when the view is built for a specific player
	CanAccept *bool    `json:"canAccept,omitempty"`
	Reason    Category `json:"reason,omitempty"`
}

func (c *Challenge) View() ChallengeView {
	v := ChallengeView{
		GameID:    c.GameID,
		Creator:   c.Creator.Hex(),
		Opponent:  c.Opponent.Hex(),
		Stake:     "0",
		Completed: c.Completed,
	}
	if c.Stake != nil {
		v.Stake = c.Stake.String()
	}
	if c.CreatedAt != nil {
		v.CreatedAt = c.CreatedAt.Int64()
	}
	if c.Winner != (common.Address{}) {
		w := c.Winner.Hex()
		v.Winner = &w
	}
	return v
}

// CheckAccept runs the contract's accept checks for player without a
// transaction: a valid address, not the creator, and the named opponent.
func (c *Challenge) CheckAccept(player string) error {
	if err := CheckOpponent(c.Creator.Hex(), player); err != nil {
		return err
	}
	if !SameAddress(player, c.Opponent.Hex()) {
		return ErrNotOpponent
	}
	return nil
}

// ViewFor is View plus whether player may accept the challenge.
func (c *Challenge) ViewFor(player string) ChallengeView {
	v := c.View()
	ok := true
	if err := c.CheckAccept(player); err != nil {
		ok = false
		v.Reason = Classify(err)
	}
	v.CanAccept = &ok
	return v
}

// Escrow reads staked challenges.
type Escrow interface {
	GetChallenge(ctx context.Context, gameID string) (*Challenge, error)
	PlayerBalance(ctx context.Context, player string) (*big.Int, error)
}

// RPCEscrow calls the contract through a JSON-RPC node.
type RPCEscrow struct {
	client   ethereum.ContractCaller
	contract common.Address
	abi      abi.ABI
}

// Dial connects to rpcURL and binds the escrow at contract.
func Dial(ctx context.Context, rpcURL, contract string) (*RPCEscrow, error) {
	if rpcURL == "" || contract == "" {
		return nil, ErrNotConfigured
	}
	if !ValidAddress(contract) {
		return nil, fmt.Errorf("escrow contract %q: %w", contract, ErrInvalidAddress)
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	e, err := NewRPCEscrow(client, common.HexToAddress(contract))
	if err != nil {
		client.Close()
		return nil, err
	}
	logger.Info("escrow contract bound", "contract", contract)
	return e, nil
}

// NewRPCEscrow binds an existing caller (ethclient or simulated backend).
func NewRPCEscrow(client ethereum.ContractCaller, contract common.Address) (*RPCEscrow, error) {
	parsed, err := abi.JSON(strings.NewReader(escrowABI))
	if err != nil {
		return nil, fmt.Errorf("parse escrow abi: %w", err)
	}
	return &RPCEscrow{client: client, contract: contract, abi: parsed}, nil
}

func (e *RPCEscrow) call(ctx context.Context, method string, args ...any) ([]any, error) {
	input, err := e.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &e.contract, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := e.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

// GetChallenge returns ErrChallengeNotFound for a zero creator.
func (e *RPCEscrow) GetChallenge(ctx context.Context, gameID string) (*Challenge, error) {
	values, err := e.call(ctx, "getChallenge", gameID)
	if err != nil {
		return nil, err
	}
	ch := abi.ConvertType(values[0], new(Challenge)).(*Challenge)
	if ch.Creator == (common.Address{}) {
		return nil, fmt.Errorf("game %q: %w", gameID, ErrChallengeNotFound)
	}
	return ch, nil
}

func (e *RPCEscrow) PlayerBalance(ctx context.Context, player string) (*big.Int, error) {
	if !ValidAddress(player) {
		return nil, ErrInvalidAddress
	}
	values, err := e.call(ctx, "getPlayerBalance", common.HexToAddress(player))
	if err != nil {
		return nil, err
	}
	bal, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("getPlayerBalance: unexpected %T", values[0])
	}
	return bal, nil
}
