// Package hub broadcasts JSON envelopes to websocket subscribers.
package hub

import "encoding/json"

// Message is one frame queued for every client.
type Message struct {
	Data []byte
}

// Envelope is the JSON shape of every broadcast: a kind tag plus payload.
type Envelope struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}

// Encode marshals an envelope into a message.
func Encode(kind string, payload any) (Message, error) {
	data, err := json.Marshal(Envelope{Kind: kind, Payload: payload})
	if err != nil {
		return Message{}, err
	}
	return Message{Data: data}, nil
}
