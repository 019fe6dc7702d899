package transport

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024 * 1024 // media frames carry base64 payloads

	reconnectMin = 2 * time.Second
	reconnectMax = 60 * time.Second
)

// frame is the JSON envelope on the gateway socket, both directions.
type frame struct {
	Type     string `json:"type"`
	ID       string `json:"id,omitempty"`
	To       string `json:"to,omitempty"`
	ChatID   string `json:"chat_id,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Text     string `json:"text,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Quoted   string `json:"quoted,omitempty"`
	Data     []byte `json:"data,omitempty"` // std base64 over the wire
	MIME     string `json:"mime,omitempty"`
	Filename string `json:"filename,omitempty"`
	MediaErr bool   `json:"media_err,omitempty"`
	Group    bool   `json:"group,omitempty"`
	QR       string `json:"qr,omitempty"`
	TS       int64  `json:"ts,omitempty"`
}

// Gateway is a websocket client to the WhatsApp bridge process. It dials
// out, authenticates with a bearer token and keeps the connection alive,
// reconnecting with backoff when the bridge restarts.
type Gateway struct {
	url     string
	token   string
	dataDir string

	inbound chan Message
	send    chan frame

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	done   chan struct{}
}

func NewGateway(url, token, dataDir string) *Gateway {
	return &Gateway{
		url:     url,
		token:   token,
		dataDir: dataDir,
		inbound: make(chan Message, 64),
		send:    make(chan frame, 64),
		done:    make(chan struct{}),
	}
}

// Start runs the connect loop in the background.
func (g *Gateway) Start() {
	go g.run()
}

func (g *Gateway) Messages() <-chan Message { return g.inbound }

func (g *Gateway) SendText(to, text string) error {
	return g.enqueue(frame{Type: "send_text", ID: uuid.New().String(), To: to, Text: text})
}

func (g *Gateway) SendImage(to string, data []byte, caption string) error {
	return g.enqueue(frame{Type: "send_image", ID: uuid.New().String(), To: to, Data: data, MIME: "image/jpeg", Caption: caption})
}

func (g *Gateway) SendDocument(to string, data []byte, filename, caption string) error {
	return g.enqueue(frame{Type: "send_document", ID: uuid.New().String(), To: to, Data: data, Filename: filename, Caption: caption})
}

func (g *Gateway) enqueue(f frame) error {
	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()
	if closed {
		return errors.New("transport closed")
	}
	select {
	case g.send <- f:
		return nil
	case <-time.After(writeWait):
		return errors.New("transport send queue full")
	}
}

func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	close(g.done)
	if g.conn != nil {
		g.conn.Close()
	}
	return nil
}

func (g *Gateway) run() {
	backoff := reconnectMin
	for {
		select {
		case <-g.done:
			close(g.inbound)
			return
		default:
		}

		conn, err := g.dial()
		if err != nil {
			log.Printf("❌ Gateway connect failed: %v (retry in %s)", err, backoff)
			select {
			case <-time.After(backoff):
			case <-g.done:
				close(g.inbound)
				return
			}
			backoff *= 2
			if backoff > reconnectMax {
				backoff = reconnectMax
			}
			continue
		}

		backoff = reconnectMin
		log.Printf("✅ Gateway connected: %s", g.url)

		g.mu.Lock()
		g.conn = conn
		g.mu.Unlock()

		stop := make(chan struct{})
		go g.writePump(conn, stop)
		g.readPump(conn) // blocks until the connection drops
		close(stop)
		conn.Close()
	}
}

func (g *Gateway) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: writeWait}
	conn, _, err := dialer.Dial(g.url, nil)
	if err != nil {
		return nil, err
	}
	auth := frame{Type: "auth", Text: g.token}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(auth); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func (g *Gateway) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("⚠️ Gateway read error: %v", err)
			}
			return
		}
		g.handleFrame(f)
	}
}

func (g *Gateway) handleFrame(f frame) {
	switch f.Type {
	case "message":
		msg := Message{
			ID:        f.ID,
			ChatID:    f.ChatID,
			Phone:     f.Phone,
			Text:      f.Text,
			Quoted:    f.Quoted,
			MediaErr:  f.MediaErr,
			Group:     f.Group,
			Timestamp: time.Unix(f.TS, 0),
		}
		if len(f.Data) > 0 {
			msg.Media = &Media{Data: f.Data, MIME: f.MIME, Filename: f.Filename}
		}
		select {
		case g.inbound <- msg:
		default:
			log.Printf("⚠️ Inbound queue full, dropping message from %s", f.Phone)
		}
	case "qr":
		g.writePairingQR(f.QR)
	case "ready":
		log.Println("📲 WhatsApp session ready")
	case "ack", "pong":
		// no-op
	default:
		log.Printf("⚠️ Unknown gateway frame type: %q", f.Type)
	}
}

// writePairingQR renders the pairing payload as a PNG so the owner can
// scan it from the data directory (or the admin API) instead of a terminal.
func (g *Gateway) writePairingQR(payload string) {
	if payload == "" {
		return
	}
	path := filepath.Join(g.dataDir, "pairing-qr.png")
	png, err := qrcode.Encode(payload, qrcode.Medium, 512)
	if err != nil {
		log.Printf("❌ QR encode failed: %v", err)
		return
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		log.Printf("❌ QR write failed: %v", err)
		return
	}
	log.Printf("🔑 Pairing QR written: %s", path)
}

// PairingQR returns the last pairing QR PNG, if one was written.
func (g *Gateway) PairingQR() ([]byte, error) {
	return os.ReadFile(filepath.Join(g.dataDir, "pairing-qr.png"))
}

func (g *Gateway) writePump(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case f := <-g.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(f); err != nil {
				log.Printf("⚠️ Gateway write error: %v", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-stop:
			return
		case <-g.done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
