package protocol

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

var (
	// ErrUnknownType is returned by Decode for a type tag outside the protocol.
	ErrUnknownType = errors.New("protocol: unknown message type")
	// ErrMalformed is returned for input that is not a valid message.
	ErrMalformed = errors.New("protocol: malformed message")
)

// Encode marshals m with its type tag as the first field.
func Encode(m Message) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", m.Type(), err)
	}
	tag, err := json.Marshal(m.Type())
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", m.Type(), err)
	}

	// body is "{...}"; splice `"type":<tag>` in after the brace.
	out := make([]byte, 0, len(body)+len(tag)+9)
	out = append(out, `{"type":`...)
	out = append(out, tag...)
	if len(body) > 2 {
		out = append(out, ',')
	}
	out = append(out, body[1:]...)
	return out, nil
}

// Decode parses one message. The type tag is read first, then the payload
// is decoded into the matching concrete type.
func Decode(data []byte) (Message, error) {
	var head struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch head.Type {
	case TypeJoinGame:
		return decodeAs[JoinGame](data)
	case TypeOpponentFound:
		return decodeAs[OpponentFound](data)
	case TypeGameStart:
		return decodeAs[GameStart](data)
	case TypePlayerInput:
		return decodeAs[PlayerInput](data)
	case TypeGameSync:
		return decodeAs[GameSync](data)
	case TypeOpponentDisconnected:
		return decodeAs[OpponentDisconnected](data)
	case TypeGameEnd:
		return decodeAs[GameEnd](data)
	case TypeLeaveGame:
		return decodeAs[LeaveGame](data)
	case TypeError:
		return decodeAs[Error](data)
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, head.Type)
	}
}

func decodeAs[T Message](data []byte) (Message, error) {
	var m T
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, m.Type(), err)
	}
	return m, nil
}
