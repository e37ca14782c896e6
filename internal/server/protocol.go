package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/hexsettlers/internal/game"
)

type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type WSOut struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Room-level inbound messages. Everything else is decoded as a game.Action.
const (
	msgCreateRoom = "createRoom"
	msgJoinGame   = "joinGame"
	msgListRooms  = "listRooms"
	msgStartGame  = "startGame"
	msgResetGame  = "resetGame"
	msgChat       = "chatMessage"
)

// Outbound message types.
const (
	outGameStarted    = "gameStarted"
	outUpdateState    = "updateState"
	outTradeRequested = "tradeRequested"
	outChatUpdate     = "chatUpdate"
	outPlaySound      = "playSound"
	outMessage        = "message"
	outError          = "error"
	outSession        = "session"
	outRooms          = "rooms"
)

var (
	errUnknownMessage = errors.New("unknown message type")
	errBadPayload     = errors.New("malformed payload")
)

// roomRequest is the payload of createRoom and joinGame.
type roomRequest struct {
	Name     string          `json:"name"`
	RoomName string          `json:"roomName"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

func decodeRoomRequest(raw json.RawMessage) (roomRequest, error) {
	var req roomRequest
	if isEmpty(raw) {
		return req, nil
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return req, nil
}

// decodeSettings overlays the client's settings on def.
func decodeSettings(raw json.RawMessage, def game.Settings) (game.Settings, error) {
	s := def
	if !isEmpty(raw) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return def, fmt.Errorf("%w: %v", errBadPayload, err)
		}
	}
	return s.Normalize(def), nil
}

// decodeChat accepts a bare string or {"text": "..."}.
func decodeChat(raw json.RawMessage) (string, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return obj.Text, nil
}

// decodeBoard returns nil when the client sent no board, so the room
// generates one from its settings.
func decodeBoard(raw json.RawMessage) (*game.Board, error) {
	if isEmpty(raw) {
		return nil, nil
	}
	var wrapped struct {
		Board json.RawMessage `json:"board"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && !isEmpty(wrapped.Board) {
		raw = wrapped.Board
	}
	return game.DecodeBoard(raw)
}

// decodeAction maps an inbound message onto the engine's action variants.
// Cell ids may be sent bare or inside the action's object form.
func decodeAction(kind string, raw json.RawMessage) (game.Action, error) {
	switch game.ActionKind(kind) {
	case game.KindRollDice:
		return game.RollDice{}, nil
	case game.KindBuyCard:
		return game.BuyCard{}, nil
	case game.KindEndTurn:
		return game.EndTurn{}, nil
	case game.KindBuildSettlement:
		var a game.BuildSettlement
		if err := decodeID(raw, &a.Vertex, &a); err != nil {
			return nil, err
		}
		return a, nil
	case game.KindBuildRoad:
		var a game.BuildRoad
		if err := decodeID(raw, &a.Edge, &a); err != nil {
			return nil, err
		}
		return a, nil
	case game.KindBuildCity:
		var a game.BuildCity
		if err := decodeID(raw, &a.Vertex, &a); err != nil {
			return nil, err
		}
		return a, nil
	case game.KindMoveRobber:
		var a game.MoveRobber
		if err := decodeID(raw, &a.Hex, &a); err != nil {
			return nil, err
		}
		return a, nil
	case game.KindPlayCard:
		var a game.PlayCard
		if err := json.Unmarshal(raw, &a.Card); err == nil {
			return a, nil
		}
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadPayload, err)
		}
		return a, nil
	case game.KindBankTrade:
		var req struct {
			Target  string        `json:"target"`
			Give    game.Resource `json:"give"`
			Receive game.Resource `json:"receive"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadPayload, err)
		}
		if req.Target == "" || req.Target == "bank" {
			return game.BankTrade{Give: req.Give, Receive: req.Receive}, nil
		}
		return game.OfferTrade{Target: req.Target, Give: req.Give, Receive: req.Receive}, nil
	case game.KindOfferTrade:
		var a game.OfferTrade
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadPayload, err)
		}
		return a, nil
	case game.KindAnswerTrade:
		var a game.AnswerTrade
		if err := json.Unmarshal(raw, &a.Accepted); err == nil {
			return a, nil
		}
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadPayload, err)
		}
		return a, nil
	case game.KindDiscard:
		var a game.Discard
		if err := json.Unmarshal(raw, &a); err == nil && a.Resources != nil {
			return a, nil
		}
		a.Resources = game.Hand{}
		if err := json.Unmarshal(raw, &a.Resources); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadPayload, err)
		}
		return a, nil
	}
	return nil, fmt.Errorf("%w: %q", errUnknownMessage, kind)
}

func decodeID(raw json.RawMessage, id *int, obj interface{}) error {
	if err := json.Unmarshal(raw, id); err == nil {
		return nil
	}
	if err := json.Unmarshal(raw, obj); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return nil
}

func isEmpty(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
