package viewer

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"galman/internal/logging"
)

// ipcRequest is one line written to mpv's IPC socket.
type ipcRequest struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

// ipcMessage is one line read from the socket: either an event or a reply.
type ipcMessage struct {
	Event     string          `json:"event,omitempty"`
	Args      []string        `json:"args,omitempty"`
	RequestID int64           `json:"request_id,omitempty"`
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func (m *MPV) command(ctx context.Context, args ...any) error {
	_, err := m.request(ctx, args...)
	return err
}

// request sends one command and returns the data field of its reply.
func (m *MPV) request(ctx context.Context, args ...any) (json.RawMessage, error) {
	if len(args) == 0 {
		return nil, errors.New("empty mpv command")
	}
	name := fmt.Sprint(args[0])

	m.mu.Lock()
	if m.conn == nil {
		m.mu.Unlock()
		return nil, errors.New("viewer not loaded")
	}
	if m.gone {
		m.mu.Unlock()
		return nil, errViewerGone
	}
	m.nextID++
	id := m.nextID
	reply := make(chan ipcMessage, 1)
	m.pending[id] = reply

	payload, err := json.Marshal(ipcRequest{Command: args, RequestID: id})
	if err == nil {
		_, err = m.conn.Write(append(payload, '\n'))
	}
	if err != nil {
		delete(m.pending, id)
		m.mu.Unlock()
		return nil, fmt.Errorf("send mpv command %s: %w", name, err)
	}
	m.mu.Unlock()

	select {
	case msg, ok := <-reply:
		if !ok {
			return nil, errViewerGone
		}
		if msg.Error != "success" {
			return nil, fmt.Errorf("mpv command %s: %s", name, msg.Error)
		}
		return msg.Data, nil
	case <-ctx.Done():
		m.mu.Lock()
		delete(m.pending, id)
		m.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (m *MPV) readLoop(ctx context.Context, conn net.Conn) error {
	defer m.closeEvents()
	defer m.failPending()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var msg ipcMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			m.emit(ctx, Event{Kind: EventUnknown, Raw: string(line), Err: fmt.Errorf("decode mpv message: %w", err)})
			continue
		}
		switch msg.Event {
		case "":
			m.resolve(msg)
		case "client-message":
			if event, ok := clientEvent(msg.Args); ok {
				m.emit(ctx, event)
			}
		case "shutdown":
			m.logger.Debug("mpv shutting down")
			return nil
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("read mpv ipc: %w", err)
	}
	return nil
}

// clientEvent converts a script-message addressed to galman into an Event.
// The key map sends "galman <action> <path>"; the path is empty while mpv is
// idle. Messages for other clients are ignored.
func clientEvent(args []string) (Event, bool) {
	if len(args) == 0 || args[0] != clientName {
		return Event{}, false
	}
	raw := strings.Join(args, " ")
	switch len(args) {
	case 2:
		return Event{Kind: ParseAction(args[1]), Raw: raw}, true
	case 3:
		return Event{Kind: ParseAction(args[1]), Path: args[2], Raw: raw}, true
	default:
		return Event{Kind: EventUnknown, Raw: raw, Err: fmt.Errorf("expected an action and a path, got %d arguments", len(args)-1)}, true
	}
}

func (m *MPV) emit(ctx context.Context, event Event) {
	select {
	case m.events <- event:
	case <-ctx.Done():
	}
}

func (m *MPV) resolve(msg ipcMessage) {
	m.mu.Lock()
	reply, ok := m.pending[msg.RequestID]
	delete(m.pending, msg.RequestID)
	m.mu.Unlock()
	if ok {
		reply <- msg
		return
	}
	if msg.RequestID != 0 {
		m.logger.Debug("unmatched mpv reply", logging.Int64("request_id", msg.RequestID))
	}
}

func (m *MPV) failPending() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gone = true
	for id, reply := range m.pending {
		close(reply)
		delete(m.pending, id)
	}
}
