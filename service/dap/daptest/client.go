// Package daptest provides a sample client with utilities
// for DAP mode testing.
package daptest

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"

	"github.com/google/go-dap"
)

// Client is a service client that uses Debug Adaptor Protocol.
// All client methods are synchronous.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
	// seq is used to track the sequence number of each
	// requests that the client sends to the server
	seq int
}

// NewClient creates a new Client over a TCP connection.
// Call Close() to close the connection.
func NewClient(t testing.TB, addr string) *Client {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	return &Client{conn: conn, reader: bufio.NewReader(conn), seq: 1}
}

// Close closes the client connection.
func (c *Client) Close() {
	c.conn.Close()
}

func (c *Client) send(request dap.Message) {
	dap.WriteProtocolMessage(c.conn, request)
}

func (c *Client) read(t testing.TB) dap.Message {
	t.Helper()
	m, err := dap.ReadProtocolMessage(c.reader)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func (c *Client) ExpectInitializeResponse(t testing.TB) *dap.InitializeResponse {
	t.Helper()
	m := c.read(t)
	initResp, ok := m.(*dap.InitializeResponse)
	if !ok {
		t.Fatalf("got %#v, want *dap.InitializeResponse", m)
	}
	if !initResp.Body.SupportsDisassembleRequest {
		t.Errorf("got %#v, want SupportsDisassembleRequest=true", initResp)
	}
	return initResp
}

func (c *Client) ExpectInitializedEvent(t testing.TB) *dap.InitializedEvent {
	t.Helper()
	m := c.read(t)
	e, ok := m.(*dap.InitializedEvent)
	if !ok {
		t.Fatalf("got %#v, want *dap.InitializedEvent", m)
	}
	return e
}

func (c *Client) ExpectLaunchResponse(t testing.TB) *dap.LaunchResponse {
	t.Helper()
	m := c.read(t)
	r, ok := m.(*dap.LaunchResponse)
	if !ok {
		t.Fatalf("got %#v, want *dap.LaunchResponse", m)
	}
	return r
}

func (c *Client) ExpectDisassembleResponse(t testing.TB) *dap.DisassembleResponse {
	t.Helper()
	m := c.read(t)
	r, ok := m.(*dap.DisassembleResponse)
	if !ok {
		t.Fatalf("got %#v, want *dap.DisassembleResponse", m)
	}
	return r
}

func (c *Client) ExpectReadMemoryResponse(t testing.TB) *dap.ReadMemoryResponse {
	t.Helper()
	m := c.read(t)
	r, ok := m.(*dap.ReadMemoryResponse)
	if !ok {
		t.Fatalf("got %#v, want *dap.ReadMemoryResponse", m)
	}
	return r
}

func (c *Client) ExpectThreadsResponse(t testing.TB) *dap.ThreadsResponse {
	t.Helper()
	m := c.read(t)
	r, ok := m.(*dap.ThreadsResponse)
	if !ok {
		t.Fatalf("got %#v, want *dap.ThreadsResponse", m)
	}
	return r
}

func (c *Client) ExpectErrorResponse(t testing.TB) *dap.ErrorResponse {
	t.Helper()
	m := c.read(t)
	r, ok := m.(*dap.ErrorResponse)
	if !ok {
		t.Fatalf("got %#v, want *dap.ErrorResponse", m)
	}
	return r
}

func (c *Client) ExpectDisconnectResponse(t testing.TB) *dap.DisconnectResponse {
	t.Helper()
	m := c.read(t)
	r, ok := m.(*dap.DisconnectResponse)
	if !ok {
		t.Fatalf("got %#v, want *dap.DisconnectResponse", m)
	}
	return r
}

// InitializeRequest sends an 'initialize' request.
func (c *Client) InitializeRequest() {
	request := &dap.InitializeRequest{Request: *c.newRequest("initialize")}
	request.Arguments = dap.InitializeRequestArguments{
		AdapterID:       "ppc64",
		PathFormat:      "path",
		LinesStartAt1:   true,
		ColumnsStartAt1: true,
		Locale:          "en-us",
	}
	c.send(request)
}

// LaunchRequest sends a 'launch' request loading program at base.
func (c *Client) LaunchRequest(program string, base uint64) {
	request := &dap.LaunchRequest{Request: *c.newRequest("launch")}
	request.Arguments, _ = json.Marshal(map[string]interface{}{
		"request": "launch",
		"program": program,
		"base":    base,
	})
	c.send(request)
}

// DisassembleRequest sends a 'disassemble' request.
func (c *Client) DisassembleRequest(memoryReference string, instructionOffset, count int) {
	request := &dap.DisassembleRequest{Request: *c.newRequest("disassemble")}
	request.Arguments = dap.DisassembleArguments{
		MemoryReference:   memoryReference,
		InstructionOffset: instructionOffset,
		InstructionCount:  count,
	}
	c.send(request)
}

// ReadMemoryRequest sends a 'readMemory' request.
func (c *Client) ReadMemoryRequest(memoryReference string, offset, count int) {
	request := &dap.ReadMemoryRequest{Request: *c.newRequest("readMemory")}
	request.Arguments = dap.ReadMemoryArguments{
		MemoryReference: memoryReference,
		Offset:          offset,
		Count:           count,
	}
	c.send(request)
}

// ThreadsRequest sends a 'threads' request.
func (c *Client) ThreadsRequest() {
	c.send(&dap.ThreadsRequest{Request: *c.newRequest("threads")})
}

// ContinueRequest sends a 'continue' request.
func (c *Client) ContinueRequest(thread int) {
	request := &dap.ContinueRequest{Request: *c.newRequest("continue")}
	request.Arguments.ThreadId = thread
	c.send(request)
}

// DisconnectRequest sends a 'disconnect' request.
func (c *Client) DisconnectRequest() {
	c.send(&dap.DisconnectRequest{Request: *c.newRequest("disconnect")})
}

// UnknownRequest triggers dap.DecodeProtocolMessageFieldError.
func (c *Client) UnknownRequest() {
	c.send(c.newRequest("unknown"))
}

func (c *Client) newRequest(command string) *dap.Request {
	request := &dap.Request{}
	request.Type = "request"
	request.Command = command
	request.Seq = c.seq
	c.seq++
	return request
}
