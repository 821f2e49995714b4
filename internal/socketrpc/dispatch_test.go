package socketrpc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/tinytelemetry/craftpanel/internal/model"
	"github.com/tinytelemetry/craftpanel/internal/supervisor"
)

// stubController returns fixed values for dispatch unit testing.
type stubController struct {
	sent    []string
	sendErr error
}

func (c *stubController) Start(context.Context) (model.StartResult, error) {
	return model.StartResult{}, supervisor.ErrExecutableMissing
}
func (c *stubController) Stop(context.Context) error { return nil }
func (c *stubController) SendCommand(_ context.Context, cmd string) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, cmd)
	return nil
}
func (c *stubController) Status(context.Context) (model.Status, error) {
	return model.Status{Running: true, PID: 321}, nil
}
func (c *stubController) RecentLines(context.Context) ([]string, error) {
	return []string{"[UI] Server starting...", "Done (3.2s)!"}, nil
}

func newTestDispatcher() (*Server, *stubController) {
	ctrl := &stubController{}
	return NewServer("", ctrl), ctrl
}

func TestDispatch_Status(t *testing.T) {
	s, _ := newTestDispatcher()
	resp := s.dispatch(context.Background(), Request{JSONRPC: "2.0", ID: 1, Method: "Status"})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
	if resp.ID != 1 {
		t.Errorf("ID = %d, want 1", resp.ID)
	}
	var st model.Status
	if err := json.Unmarshal(resp.Result, &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !st.Running || st.PID != 321 {
		t.Errorf("status = %+v", st)
	}
}

func TestDispatch_RecentLines(t *testing.T) {
	s, _ := newTestDispatcher()
	resp := s.dispatch(context.Background(), Request{JSONRPC: "2.0", ID: 2, Method: "RecentLines"})
	var lines []string
	if err := json.Unmarshal(resp.Result, &lines); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(lines) != 2 {
		t.Errorf("lines = %v", lines)
	}
}

func TestDispatch_SendCommand(t *testing.T) {
	s, ctrl := newTestDispatcher()
	resp := s.dispatch(context.Background(), Request{
		JSONRPC: "2.0", ID: 3, Method: "SendCommand",
		Params: json.RawMessage(`{"Command":"say hi"}`),
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
	if len(ctrl.sent) != 1 || ctrl.sent[0] != "say hi" {
		t.Errorf("sent = %v", ctrl.sent)
	}
}

func TestDispatch_InvalidParams(t *testing.T) {
	s, _ := newTestDispatcher()
	resp := s.dispatch(context.Background(), Request{
		JSONRPC: "2.0", ID: 4, Method: "SendCommand",
		Params: json.RawMessage(`"not an object"`),
	})
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("error = %+v, want -32602", resp.Error)
	}
}

func TestDispatch_ApplicationErrorCarriesCode(t *testing.T) {
	s, ctrl := newTestDispatcher()

	resp := s.dispatch(context.Background(), Request{JSONRPC: "2.0", ID: 5, Method: "Start"})
	if resp.Error == nil || resp.Error.Code != CodeApplication || resp.Error.Data != "JAR_MISSING" {
		t.Fatalf("error = %+v, want -32000 JAR_MISSING", resp.Error)
	}

	ctrl.sendErr = supervisor.ErrNotRunning
	resp = s.dispatch(context.Background(), Request{
		JSONRPC: "2.0", ID: 6, Method: "SendCommand",
		Params: json.RawMessage(`{"Command":"list"}`),
	})
	if resp.Error == nil || resp.Error.Data != "NOT_RUNNING" {
		t.Fatalf("error = %+v, want NOT_RUNNING", resp.Error)
	}
}

func TestDispatch_MethodNotFound(t *testing.T) {
	s, _ := newTestDispatcher()
	resp := s.dispatch(context.Background(), Request{JSONRPC: "2.0", ID: 7, Method: "Reboot"})
	if resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Fatalf("error = %+v, want -32601", resp.Error)
	}
}

func TestRPCError_UnwrapUnknownCode(t *testing.T) {
	e := &RPCError{Code: CodeApplication, Message: "x", Data: "SOMETHING_ELSE"}
	if e.Unwrap() != nil {
		t.Errorf("Unwrap = %v, want nil", e.Unwrap())
	}
	e = &RPCError{Code: CodeInternalError, Data: "NOT_RUNNING"}
	if e.Unwrap() != nil {
		t.Errorf("non-application error unwrapped to %v", e.Unwrap())
	}
}
