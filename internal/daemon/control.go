package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/site_block/internal/domain"
	"github.com/eliteGoblin/focusd/site_block/internal/usecase"
)

// Control protocol: newline-delimited JSON over a unix socket in the
// data directory. One request per connection. The socket's file mode
// limits callers to the owning user.

// SocketName is the control socket filename inside the data directory.
const SocketName = "control.sock"

// Request is one control call.
type Request struct {
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response carries the result. Data is op-specific.
type Response struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Control ops.
const (
	OpStatus         = "status"
	OpToggle         = "toggle"
	OpCancelTimer    = "cancel_timer"
	OpStats          = "stats"
	OpRecordActivity = "record_activity"
	OpSchedules      = "schedules"
	OpSaveSchedule   = "save_schedule"
	OpDeleteSchedule = "delete_schedule"
	OpSites          = "sites"
	OpAddSite        = "add_site"
	OpRemoveSite     = "remove_site"
	OpExport         = "export"
	OpImport         = "import"
	OpClear          = "clear"
)

// ToggleResult is the toggle op's response data. When the deactivation
// timer was already armed, DeactivationIn carries the remaining time of
// the existing countdown.
type ToggleResult struct {
	Active         bool          `json:"active"`
	DeactivationIn time.Duration `json:"deactivation_in,omitempty"`
	AlreadyArmed   bool          `json:"already_armed,omitempty"`
}

type sitePayload struct {
	Site string `json:"site"`
}

type idPayload struct {
	ID string `json:"id"`
}

type minutesPayload struct {
	Minutes int `json:"minutes"`
}

// ControlServer serves control requests against the controller.
type ControlServer struct {
	controller *usecase.Controller
	socketPath string
	logger     *zap.Logger
	listener   net.Listener
}

// NewControlServer creates a server listening at socketPath once Serve
// is called.
func NewControlServer(controller *usecase.Controller, socketPath string, logger *zap.Logger) *ControlServer {
	return &ControlServer{
		controller: controller,
		socketPath: socketPath,
		logger:     logger,
	}
}

// Serve accepts connections until the context is canceled. A stale
// socket file from a crashed daemon is removed before binding.
func (s *ControlServer) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.socketPath, err)
	}
	s.listener = listener
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to restrict socket permissions: %w", err)
	}

	go func() {
		<-ctx.Done()
		listener.Close()
		os.Remove(s.socketPath)
	}()

	s.logger.Info("control server listening", zap.String("socket", s.socketPath))

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("accept failed", zap.Error(err))
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *ControlServer) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(30 * time.Second))

	var req Request
	if err := json.NewDecoder(bufio.NewReader(conn)).Decode(&req); err != nil {
		s.writeResponse(conn, Response{OK: false, Error: "malformed request"})
		return
	}

	data, err := s.dispatch(ctx, req)
	if err != nil {
		s.writeResponse(conn, Response{OK: false, Error: err.Error()})
		return
	}
	s.writeResponse(conn, Response{OK: true, Data: data})
}

func (s *ControlServer) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to marshal response", zap.Error(err))
		return
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		s.logger.Debug("failed to write response", zap.Error(err))
	}
}

func (s *ControlServer) dispatch(ctx context.Context, req Request) (json.RawMessage, error) {
	switch req.Op {
	case OpStatus:
		return marshalData(s.controller.Status())

	case OpToggle:
		d, err := s.controller.Toggle(ctx)
		already := errors.Is(err, domain.ErrAlreadyScheduled)
		if err != nil && !already {
			return nil, err
		}
		return marshalData(ToggleResult{
			Active:         s.controller.Status().Active,
			DeactivationIn: d,
			AlreadyArmed:   already,
		})

	case OpCancelTimer:
		return nil, s.controller.CancelDeactivation()

	case OpStats:
		return marshalData(s.controller.Stats())

	case OpRecordActivity:
		var p minutesPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return nil, fmt.Errorf("bad payload: %w", err)
		}
		return nil, s.controller.RecordActivity(p.Minutes)

	case OpSchedules:
		return marshalData(s.controller.Schedules())

	case OpSaveSchedule:
		var sched domain.Schedule
		if err := json.Unmarshal(req.Payload, &sched); err != nil {
			return nil, fmt.Errorf("bad payload: %w", err)
		}
		saved, err := s.controller.SaveSchedule(ctx, sched)
		if err != nil {
			return nil, err
		}
		return marshalData(saved)

	case OpDeleteSchedule:
		var p idPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return nil, fmt.Errorf("bad payload: %w", err)
		}
		return nil, s.controller.DeleteSchedule(ctx, p.ID)

	case OpSites:
		return marshalData(s.controller.Sites())

	case OpAddSite:
		var p sitePayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return nil, fmt.Errorf("bad payload: %w", err)
		}
		return nil, s.controller.AddSite(ctx, p.Site)

	case OpRemoveSite:
		var p sitePayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return nil, fmt.Errorf("bad payload: %w", err)
		}
		return nil, s.controller.RemoveSite(ctx, p.Site)

	case OpExport:
		data, err := s.controller.ExportData()
		if err != nil {
			return nil, err
		}
		return json.RawMessage(data), nil

	case OpImport:
		return nil, s.controller.ImportData(ctx, req.Payload)

	case OpClear:
		return nil, s.controller.ClearAppData(ctx)

	default:
		return nil, fmt.Errorf("unknown op %q", req.Op)
	}
}

func marshalData(v interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Client talks to a running daemon's control socket.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the socket at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: 30 * time.Second}
}

// Call sends one request and decodes the response. A non-OK response
// comes back as an error.
func (c *Client) Call(op string, payload interface{}) (json.RawMessage, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		raw = data
	}

	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("daemon not reachable at %s: %w", c.socketPath, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(Request{Op: op, Payload: raw})
	if err != nil {
		return nil, err
	}
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(bufio.NewReader(conn)).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if !resp.OK {
		return nil, errors.New(resp.Error)
	}
	return resp.Data, nil
}
