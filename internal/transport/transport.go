// Package transport abstracts the messaging channel. The core only needs
// to receive inbound messages and send text, images and documents; the
// concrete wire (a WhatsApp gateway over websocket) stays behind the
// Transport interface.
package transport

import "time"

// Media is a downloaded attachment on an inbound message or an outbound
// payload.
type Media struct {
	Data     []byte `json:"data"`
	MIME     string `json:"mime"`
	Filename string `json:"filename,omitempty"`
}

// Message is one inbound transport event.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"` // reply address
	Phone     string    `json:"phone"`   // bare sender number
	Text      string    `json:"text"`
	Quoted    string    `json:"quoted,omitempty"` // body of the quoted message, if any
	Media     *Media    `json:"media,omitempty"`
	MediaErr  bool      `json:"media_err,omitempty"` // attachment existed but download failed
	Group     bool      `json:"group,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Transport is the send/receive channel to the messaging network.
type Transport interface {
	// Messages yields inbound messages until the transport closes.
	Messages() <-chan Message
	SendText(to, text string) error
	SendImage(to string, data []byte, caption string) error
	SendDocument(to string, data []byte, filename, caption string) error
	Close() error
}
