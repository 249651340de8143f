// Package streaming defines the JSON frames exchanged over the WebRCON console.
package streaming

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Reply types sent back to console clients.
const (
	TypeGeneric = "Generic"
	TypeError   = "Error"
)

// Request is a console line sent by a client. Identifier is echoed on every
// reply so clients can match responses to requests.
type Request struct {
	Identifier int    `json:"Identifier"`
	Message    string `json:"Message"`
	Name       string `json:"Name"`
	UserID     string `json:"UserID"`
}

// Response is a line of output for a client.
type Response struct {
	Identifier int    `json:"Identifier"`
	Message    string `json:"Message"`
	Type       string `json:"Type"`
}

// DecodeRequest parses and checks a request frame.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	if strings.TrimSpace(req.Message) == "" {
		return Request{}, fmt.Errorf("decode request: empty message")
	}
	return req, nil
}

// Encode marshals a response frame.
func (r Response) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return data, nil
}
