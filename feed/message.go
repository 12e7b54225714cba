// feed connects to the order service: it decodes pick requests pushed over a websocket and
// sends control commands back.
package feed

import (
	"encoding/json"
	"errors"
	"fmt"

	"pickpath/models"
)

// Message types pushed by the order service.
const (
	TypeRequest  = "request"
	TypeAnswer   = "answer"
	TypeResponse = "response"
)

var (
	// ErrMalformedMessage is returned for payloads that are not JSON or lack required fields.
	ErrMalformedMessage = errors.New("malformed feed message")
	// ErrNotARequest is returned for well-formed messages that carry no order.
	ErrNotARequest = errors.New("feed message is not a request")
)

// envelope is the outer form of every inbound message.
type envelope struct {
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Code    int             `json:"code"`
	Status  string          `json:"status"`
}

type request struct {
	WorkerID         *int                `json:"worker_id"`
	MovingCells      [][]models.Waypoint `json:"moving_cells"`
	SelectedProducts map[string]int      `json:"selected_products"`
}

// Decode parses one inbound message into an order. Messages of another type yield
// ErrNotARequest; anything unparseable, or a request without worker_id or moving_cells,
// yields ErrMalformedMessage.
func Decode(data []byte) (models.Order, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return models.Order{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if env.Type == "" {
		return models.Order{}, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	if env.Type != TypeRequest {
		return models.Order{}, fmt.Errorf("%w: type %q", ErrNotARequest, env.Type)
	}
	if len(env.Data) == 0 {
		return models.Order{}, fmt.Errorf("%w: missing data", ErrMalformedMessage)
	}

	var req request
	if err := json.Unmarshal(env.Data, &req); err != nil {
		return models.Order{}, fmt.Errorf("%w: data: %v", ErrMalformedMessage, err)
	}
	switch {
	case req.WorkerID == nil:
		return models.Order{}, fmt.Errorf("%w: missing worker_id", ErrMalformedMessage)
	case req.MovingCells == nil:
		return models.Order{}, fmt.Errorf("%w: missing moving_cells", ErrMalformedMessage)
	}
	if req.SelectedProducts == nil {
		req.SelectedProducts = map[string]int{}
	}

	return models.Order{
		WorkerID:         *req.WorkerID,
		MovingCells:      req.MovingCells,
		SelectedProducts: req.SelectedProducts,
	}, nil
}

// Answer is the order service's reply to a command.
type Answer struct {
	Type    string `json:"type"`
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (a Answer) String() string {
	return fmt.Sprintf("%s %d %s: %s", a.Type, a.Code, a.Status, a.Message)
}

func decodeAnswer(data []byte) (Answer, bool) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Answer{}, false
	}
	if env.Type != TypeAnswer && env.Type != TypeResponse {
		return Answer{}, false
	}
	return Answer{Type: env.Type, Code: env.Code, Status: env.Status, Message: env.Message}, true
}
