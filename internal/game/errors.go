package game

import (
	"errors"
	"fmt"
)

// ErrIllegalAction is the root of every rejected in-game action. Rejected
// actions never change state.
var ErrIllegalAction = errors.New("illegal action")

var (
	ErrNotYourTurn           = illegal("not your turn")
	ErrWrongPhase            = illegal("action not allowed in this phase")
	ErrAlreadyRolled         = illegal("dice already rolled this turn")
	ErrUnknownPlayer         = illegal("unknown player")
	ErrUnknownCell           = illegal("no such board cell")
	ErrOccupied              = illegal("cell already owned")
	ErrTooClose              = illegal("too close to another building")
	ErrNotConnected          = illegal("not connected to own network")
	ErrNotOwner              = illegal("not owned by player")
	ErrInsufficientResources = illegal("insufficient resources")
	ErrBankEmpty             = illegal("bank cannot pay")
	ErrLimitReached          = illegal("piece limit reached")
	ErrDeckEmpty             = illegal("development deck is empty")
	ErrNoUsableCard          = illegal("no usable card of that kind")
	ErrBadResource           = illegal("invalid resource kind")
	ErrTradePending          = illegal("another trade is pending")
	ErrNoPendingTrade        = illegal("no pending trade for player")
	ErrBadDiscard            = illegal("discard does not match requirement")
	ErrBadRobberTarget       = illegal("robber cannot move there")
	ErrGameNotStarted        = illegal("game not started")
	ErrGameStarted           = illegal("game already started")
	ErrGameOver              = illegal("game is over")
	ErrNoPlayers             = illegal("no players seated")
	ErrRoomFull              = illegal("no free seat")
)

// ErrInvalidBoard is returned when client-supplied board data is malformed.
var ErrInvalidBoard = errors.New("invalid board")

func illegal(msg string) error {
	return fmt.Errorf("%w: %s", ErrIllegalAction, msg)
}
