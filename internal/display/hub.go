// Package display turns rendered frames into JPEG images for HTTP and
// websocket viewers.
package display

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/smazurov/framenode/internal/frame"
)

const (
	// AllStreams subscribes a viewer to every stream.
	AllStreams = -1

	clientQueue  = 4
	writeTimeout = 5 * time.Second
)

// Image is an encoded frame.
type Image struct {
	Stream int       `json:"stream"`
	Seq    uint64    `json:"seq"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Time   time.Time `json:"time"`
	JPEG   []byte    `json:"-"`
}

type latest struct {
	frame   *frame.Frame
	encoded *Image
}

type client struct {
	stream int
	send   chan *Image
}

// Hub keeps the last rendered frame of each stream and fans encoded frames
// out to websocket viewers. Render only stores the frame; a hub goroutine
// encodes for viewers, and Latest encodes on demand for snapshots.
type Hub struct {
	quality  int
	logger   *slog.Logger
	upgrader websocket.Upgrader
	encode   func(f *frame.Frame, quality int) ([]byte, error)

	mu      sync.Mutex
	latest  map[int]*latest
	dirty   map[int]struct{}
	clients map[*client]struct{}
	closed  bool

	wake chan struct{}
	quit chan struct{}
	wg   sync.WaitGroup
}

// NewHub creates a hub encoding at the given JPEG quality (1-100) and starts
// its encoder goroutine. Close stops it.
func NewHub(quality int, logger *slog.Logger) *Hub {
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		quality: quality,
		logger:  logger,
		encode:  EncodeJPEG,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		latest:  make(map[int]*latest),
		dirty:   make(map[int]struct{}),
		clients: make(map[*client]struct{}),
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
	}
	h.wg.Add(1)
	go h.encodeLoop()
	return h
}

// Render stores f as the latest frame of stream and wakes the encoder when
// a viewer wants it. It never encodes and never blocks.
func (h *Hub) Render(stream int, f *frame.Frame) {
	if f == nil {
		return
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.latest[stream] = &latest{frame: f}
	wanted := h.hasViewerLocked(stream)
	if wanted {
		h.dirty[stream] = struct{}{}
	}
	h.mu.Unlock()

	if wanted {
		select {
		case h.wake <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) hasViewerLocked(stream int) bool {
	for c := range h.clients {
		if c.stream == AllStreams || c.stream == stream {
			return true
		}
	}
	return false
}

// encodeLoop encodes the newest frame of every dirty stream and pushes it to
// the viewers of that stream. Frames rendered while an encode is running
// replace older ones, so a slow encode skips frames instead of queueing them.
func (h *Hub) encodeLoop() {
	defer h.wg.Done()
	for {
		select {
		case <-h.quit:
			return
		case <-h.wake:
		}

		h.mu.Lock()
		streams := make([]int, 0, len(h.dirty))
		for stream := range h.dirty {
			streams = append(streams, stream)
		}
		clear(h.dirty)
		h.mu.Unlock()

		for _, stream := range streams {
			select {
			case <-h.quit:
				return
			default:
			}
			img, err := h.Latest(stream)
			if err != nil {
				h.logger.Debug("Failed to encode frame", "stream", stream, "error", err)
				continue
			}
			h.broadcast(stream, img)
		}
	}
}

func (h *Hub) broadcast(stream int, img *Image) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.stream != AllStreams && c.stream != stream {
			continue
		}
		select {
		case c.send <- img:
		default:
			// slow viewer, skip this frame
		}
	}
}

// Latest returns the encoded latest frame of stream.
func (h *Hub) Latest(stream int) (*Image, error) {
	h.mu.Lock()
	l, ok := h.latest[stream]
	var cached *Image
	if ok {
		cached = l.encoded
	}
	h.mu.Unlock()
	if !ok {
		return nil, ErrNoFrame
	}
	if cached != nil {
		return cached, nil
	}

	data, err := h.encode(l.frame, h.quality)
	if err != nil {
		return nil, err
	}
	img := &Image{
		Stream: stream,
		Seq:    l.frame.Seq,
		Width:  l.frame.Width,
		Height: l.frame.Height,
		Time:   l.frame.Captured,
		JPEG:   data,
	}
	h.mu.Lock()
	l.encoded = img
	h.mu.Unlock()
	return img, nil
}

// Viewers returns the number of connected websocket viewers.
func (h *Hub) Viewers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams frames of stream (or AllStreams)
// until the viewer disconnects or the hub is closed. Each frame is sent as a
// JSON header text message followed by a binary JPEG message.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, stream int) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	c := &client{stream: stream, send: make(chan *Image, clientQueue)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("Viewer connected", "remote", r.RemoteAddr, "stream", stream)

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		h.logger.Debug("Viewer disconnected", "remote", r.RemoteAddr)
	}()

	// Viewers never send anything meaningful; reading detects the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return nil
		case <-r.Context().Done():
			return nil
		case img, ok := <-c.send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"),
					time.Now().Add(writeTimeout))
				return nil
			}
			if err := writeImage(conn, img); err != nil {
				return err
			}
		}
	}
}

func writeImage(conn *websocket.Conn, img *Image) error {
	header, err := json.Marshal(img)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, header); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, img.JPEG)
}

// Close disconnects all viewers, stops accepting frames and waits for the
// encoder goroutine to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()

	close(h.quit)
	h.wg.Wait()
}

// EncodeJPEG encodes a BGR24 frame.
func EncodeJPEG(f *frame.Frame, quality int) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, j := 0, 0; i < len(f.Data); i, j = i+frame.BytesPerPixel, j+4 {
		img.Pix[j] = f.Data[i+2]
		img.Pix[j+1] = f.Data[i+1]
		img.Pix[j+2] = f.Data[i]
		img.Pix[j+3] = 0xff
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
