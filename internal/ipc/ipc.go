// Package ipc is the line-delimited JSON protocol spoken over the daemon's
// Unix domain socket.
//
// Client sends one envelope per line: {"type": "event_name", "data": {...}}
// Server answers each line with: {"status": "ok", "data": ...} or
// {"status": "error", "error": "msg"}
package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"
)

// Status values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// DefaultSocketPath is where the daemon listens unless configured otherwise.
const DefaultSocketPath = "/tmp/vtransformd.sock"

// Envelope wraps one typed payload.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response is the server's answer to one envelope.
type Response struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// OK builds a success response, marshaling data when non-nil.
func OK(data any) Response {
	if data == nil {
		return Response{Status: StatusOK}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return Errorf("marshal response: %v", err)
	}
	return Response{Status: StatusOK, Data: b}
}

// Errorf builds an error response.
func Errorf(format string, args ...any) Response {
	return Response{Status: StatusError, Error: fmt.Sprintf(format, args...)}
}

// NewEnvelope marshals payload into an envelope of the given type.
func NewEnvelope(typ string, payload any) (Envelope, error) {
	env := Envelope{Type: typ}
	if payload == nil {
		return env, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", typ, err)
	}
	env.Data = b
	return env, nil
}

// Handler answers one envelope. It runs on the connection's goroutine.
type Handler func(ctx context.Context, env Envelope) Response

// Serve listens on socketPath until ctx is canceled, then removes the socket.
func Serve(ctx context.Context, socketPath string, handle Handler, logger *slog.Logger) error {
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	if err := os.Chmod(socketPath, 0o660); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("IPC listener closed (shutdown)")
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				logger.Debug("IPC listener closed")
				return nil
			}
			logger.Error("IPC accept error", "error", err)
			continue
		}
		go handleConn(ctx, conn, handle, logger)
	}
}

func handleConn(ctx context.Context, conn net.Conn, handle Handler, logger *slog.Logger) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		logger.Debug("IPC received", "line", line)

		var env Envelope
		var resp Response
		if err := json.Unmarshal([]byte(line), &env); err != nil {
			resp = Errorf("parse envelope: %v", err)
		} else if env.Type == "" {
			resp = Errorf("missing type")
		} else {
			resp = handle(ctx, env)
		}

		if err := encoder.Encode(resp); err != nil {
			logger.Error("IPC failed to send response", "error", err)
			return
		}
	}
}

// Send dials socketPath, sends one envelope and returns the response data.
// A response with status "error" is returned as an error.
func Send(ctx context.Context, socketPath string, env Envelope) (json.RawMessage, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return nil, fmt.Errorf("send %s: %w", env.Type, err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != StatusOK {
		return nil, fmt.Errorf("ipc error: %s", resp.Error)
	}
	return resp.Data, nil
}
