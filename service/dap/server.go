// Package dap implements VSCode's Debug Adaptor Protocol (DAP) on top of
// the ppc64 decoder. Frontends use it to show the disassembly and the raw
// memory of a loaded image. The server is synchronous: it blocks while
// processing each request.
// For DAP details see https://microsoft.github.io/debug-adapter-protocol.
package dap

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/google/go-dap"

	"github.com/go-delve/ppc64dec/pkg/disasm"
	"github.com/go-delve/ppc64dec/pkg/logflags"
	"github.com/go-delve/ppc64dec/pkg/ppc64"
	"github.com/go-delve/ppc64dec/service"
)

// Server implements a DAP server that can accept a single client for
// a single session. It does not support restarting.
// The server operates via two goroutines:
// (1) Main goroutine where the server is created via NewServer(),
// started via Run() and stopped via Stop().
// (2) Run goroutine started from Run() that accepts a client connection,
// reads, decodes and processes each request, sending back events and
// responses.
type Server struct {
	// config is all the information necessary to start the server.
	config *service.Config
	// listener is used to accept the client connection.
	listener net.Listener
	// conn is the accepted client connection.
	conn net.Conn
	// stopChan is closed when the server is Stop()-ed. This can be used to signal
	// to goroutines run by the server that it's time to quit.
	stopChan chan struct{}
	// reader is used to read requests from the connection.
	reader *bufio.Reader
	// log is used for structured logging.
	log logflags.Logger

	// img is the code being served, replaced by launch requests.
	img   *disasm.Image
	cache *disasm.Cache
}

// launchArgs are the arguments of a launch request.
type launchArgs struct {
	// Program is the path of the flat image to load.
	Program string `json:"program"`
	// Base is the load address of the image.
	Base uint64 `json:"base"`
}

// NewServer creates a new DAP Server. It takes an opened Listener
// via config and assumes its ownership. config.DisconnectChan may be set;
// it will be closed by the server when the client disconnects or requests
// shutdown. Once disconnectChan is closed, Server.Stop() must be called.
func NewServer(config *service.Config) *Server {
	logger := logflags.DAPLogger()
	logger.Debug("DAP server pid = ", os.Getpid())
	size := config.CacheSize
	if size <= 0 {
		size = disasm.DefaultCacheSize
	}
	cache, err := disasm.NewCache(size)
	if err != nil {
		logger.Errorf("could not create cache of size %d: %v", size, err)
	}
	return &Server{
		config:   config,
		listener: config.Listener,
		stopChan: make(chan struct{}),
		log:      logger,
		img:      config.Image,
		cache:    cache,
	}
}

// Stop stops the DAP service, closes the listener and the client
// connection. This method mustn't be called more than once.
func (s *Server) Stop() {
	s.listener.Close()
	close(s.stopChan)
	if s.conn != nil {
		// Unless Stop() was called after serveDAPCodec()
		// returned, this will result in closed connection error
		// on next read, breaking out of the read loop and
		// allowing the run goroutine to exit.
		s.conn.Close()
	}
}

// signalDisconnect closes config.DisconnectChan if not nil, which
// signals that the client disconnected or there was a client
// connection failure. It can be called multiple times but is only called
// from the run goroutine.
func (s *Server) signalDisconnect() {
	if s.config.DisconnectChan != nil {
		close(s.config.DisconnectChan)
		s.config.DisconnectChan = nil
	}
}

// Run launches a new goroutine where it accepts a client connection
// and starts processing requests from it. Use Stop() to close connection.
// The server does not support multiple clients, serially or in parallel.
func (s *Server) Run() {
	go func() {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopChan:
			default:
				s.log.Errorf("Error accepting client connection: %s\n", err)
			}
			s.signalDisconnect()
			return
		}
		s.conn = conn
		s.serveDAPCodec()
	}()
}

// serveDAPCodec reads and decodes requests from the client
// until it encounters an error or EOF, when it sends
// the disconnect signal and returns.
func (s *Server) serveDAPCodec() {
	defer s.signalDisconnect()
	s.reader = bufio.NewReader(s.conn)
	for {
		request, err := dap.ReadProtocolMessage(s.reader)
		if err != nil {
			stopRequested := false
			select {
			case <-s.stopChan:
				stopRequested = true
			default:
			}
			var fieldErr *dap.DecodeProtocolMessageFieldError
			if errors.As(err, &fieldErr) && !stopRequested {
				// A well formed message this server has no struct for.
				s.sendInternalErrorResponse(fieldErr.Seq, err.Error())
				continue
			}
			if err != io.EOF && !stopRequested {
				s.log.Error("DAP error: ", err)
			}
			return
		}
		s.handleRequest(request)
		if _, ok := request.(*dap.DisconnectRequest); ok {
			return
		}
	}
}

func (s *Server) handleRequest(request dap.Message) {
	defer func() {
		// In case a handler panics, we catch the panic and send an error response
		// back to the client.
		if ierr := recover(); ierr != nil {
			s.sendInternalErrorResponse(request.GetSeq(), fmt.Sprintf("%v", ierr))
		}
	}()

	if logflags.DAP() {
		jsonmsg, _ := json.Marshal(request)
		s.log.Debug("[<- from client]", string(jsonmsg))
	}

	switch request := request.(type) {
	case *dap.InitializeRequest:
		s.onInitializeRequest(request)
	case *dap.LaunchRequest:
		s.onLaunchRequest(request)
	case *dap.DisconnectRequest:
		s.onDisconnectRequest(request)
	case *dap.ConfigurationDoneRequest:
		s.send(&dap.ConfigurationDoneResponse{Response: *newResponse(request.Request)})
	case *dap.SetExceptionBreakpointsRequest:
		// Sent even though no filters are advertised, handle as no-op.
		s.send(&dap.SetExceptionBreakpointsResponse{Response: *newResponse(request.Request)})
	case *dap.ThreadsRequest:
		s.onThreadsRequest(request)
	case *dap.DisassembleRequest:
		s.onDisassembleRequest(request)
	case *dap.ReadMemoryRequest:
		s.onReadMemoryRequest(request)
	case *dap.AttachRequest:
		s.sendUnsupportedErrorResponse(request.Request)
	case *dap.SetBreakpointsRequest:
		s.sendUnsupportedErrorResponse(request.Request)
	case *dap.ContinueRequest:
		s.sendUnsupportedErrorResponse(request.Request)
	case *dap.NextRequest:
		s.sendUnsupportedErrorResponse(request.Request)
	case *dap.StepInRequest:
		s.sendUnsupportedErrorResponse(request.Request)
	case *dap.StepOutRequest:
		s.sendUnsupportedErrorResponse(request.Request)
	case *dap.PauseRequest:
		s.sendUnsupportedErrorResponse(request.Request)
	case *dap.StackTraceRequest:
		s.sendUnsupportedErrorResponse(request.Request)
	case *dap.ScopesRequest:
		s.sendUnsupportedErrorResponse(request.Request)
	case *dap.VariablesRequest:
		s.sendUnsupportedErrorResponse(request.Request)
	case *dap.EvaluateRequest:
		s.sendUnsupportedErrorResponse(request.Request)
	default:
		// This is a DAP message that go-dap has a struct for, so
		// decoding succeeded, but this function does not know how
		// to handle.
		s.sendInternalErrorResponse(request.GetSeq(), fmt.Sprintf("Unable to process %#v\n", request))
	}
}

func (s *Server) send(message dap.Message) {
	if logflags.DAP() {
		jsonmsg, _ := json.Marshal(message)
		s.log.Debug("[-> to client]", string(jsonmsg))
	}
	if err := dap.WriteProtocolMessage(s.conn, message); err != nil {
		s.log.Errorf("could not write response: %v", err)
	}
}

func (s *Server) onInitializeRequest(request *dap.InitializeRequest) {
	response := &dap.InitializeResponse{Response: *newResponse(request.Request)}
	response.Body.SupportsConfigurationDoneRequest = true
	response.Body.SupportsReadMemoryRequest = true
	response.Body.SupportsDisassembleRequest = true
	s.send(response)
}

// onLaunchRequest loads the image named by the program argument. A server
// started with an image accepts launch requests without a program.
func (s *Server) onLaunchRequest(request *dap.LaunchRequest) {
	var args launchArgs
	if len(request.Arguments) > 0 {
		if err := json.Unmarshal(request.Arguments, &args); err != nil {
			s.sendErrorResponse(request.Request, FailedToLaunch, "Failed to launch",
				fmt.Sprintf("invalid debug configuration - %v", err))
			return
		}
	}

	switch {
	case args.Program != "":
		img, err := disasm.LoadImage(args.Program, args.Base)
		if err != nil {
			s.sendErrorResponse(request.Request, FailedToLaunch, "Failed to launch", err.Error())
			return
		}
		s.img = img
		s.cache.Purge()
	case s.img == nil:
		s.sendErrorResponse(request.Request, FailedToLaunch, "Failed to launch",
			"The program attribute is missing in debug configuration.")
		return
	}

	s.log.Debugf("serving %d bytes at %#x", len(s.img.Data), s.img.Base)
	s.send(&dap.InitializedEvent{Event: *newEvent("initialized")})
	s.send(&dap.LaunchResponse{Response: *newResponse(request.Request)})
}

// onDisconnectRequest handles the DisconnectRequest. Per the DAP spec,
// it signals that the debug adaptor (in our case this TCP server) can be
// terminated.
func (s *Server) onDisconnectRequest(request *dap.DisconnectRequest) {
	s.send(&dap.DisconnectResponse{Response: *newResponse(request.Request)})
	s.signalDisconnect()
}

// onThreadsRequest reports a single thread, frontends ask for threads
// before they show anything.
func (s *Server) onThreadsRequest(request *dap.ThreadsRequest) {
	response := &dap.ThreadsResponse{Response: *newResponse(request.Request)}
	response.Body.Threads = []dap.Thread{{Id: 1, Name: "image"}}
	s.send(response)
}

// parseMemoryReference parses the memory references handed out by this
// server, which are plain addresses.
func parseMemoryReference(ref string) (uint64, error) {
	addr, err := strconv.ParseUint(ref, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory reference %q", ref)
	}
	return addr, nil
}

// maxPlaceholders bounds the number of placeholder instructions a single
// disassemble request can add to the size of the image.
const maxPlaceholders = 4096

// onDisassembleRequest returns InstructionCount instructions, at most the
// number of instructions in the image plus maxPlaceholders. Addresses
// outside of the image produce placeholder instructions.
func (s *Server) onDisassembleRequest(request *dap.DisassembleRequest) {
	if s.img == nil {
		s.sendErrorResponse(request.Request, UnableToDisassemble, "Unable to disassemble", "no image loaded")
		return
	}
	count := request.Arguments.InstructionCount
	if count <= 0 {
		s.sendErrorResponse(request.Request, UnableToDisassemble, "Unable to disassemble", fmt.Sprintf("invalid instruction count %d", count))
		return
	}
	if limit := len(s.img.Data)/ppc64.InstructionLength + maxPlaceholders; count > limit {
		count = limit
	}
	ref, err := parseMemoryReference(request.Arguments.MemoryReference)
	if err != nil {
		s.sendErrorResponse(request.Request, UnableToDisassemble, "Unable to disassemble", err.Error())
		return
	}
	start := int64(ref) + int64(request.Arguments.Offset)
	start -= start % ppc64.InstructionLength
	start += int64(request.Arguments.InstructionOffset) * ppc64.InstructionLength

	response := &dap.DisassembleResponse{Response: *newResponse(request.Request)}
	response.Body.Instructions = make([]dap.DisassembledInstruction, count)
	for i := range response.Body.Instructions {
		addr := start + int64(i)*ppc64.InstructionLength
		response.Body.Instructions[i] = s.disassembleOne(addr)
	}
	s.send(response)
}

func (s *Server) disassembleOne(addr int64) dap.DisassembledInstruction {
	invalid := dap.DisassembledInstruction{Instruction: "?"}
	if addr < 0 {
		invalid.Address = fmt.Sprintf("-%#x", -addr)
		return invalid
	}
	invalid.Address = fmt.Sprintf("%#x", addr)
	text, err := disasm.Disassemble(s.img, s.cache, uint64(addr), uint64(addr)+ppc64.InstructionLength)
	if err != nil || len(text) != 1 {
		return invalid
	}
	inst := &text[0]
	r := dap.DisassembledInstruction{
		Address:          invalid.Address,
		InstructionBytes: fmt.Sprintf("% x", inst.Bytes),
		Instruction:      inst.Text(),
	}
	if dest, ok := inst.DestTarget(); ok {
		r.Instruction += fmt.Sprintf(" <%#x>", dest)
	}
	return r
}

// onReadMemoryRequest returns the bytes of the image between the requested
// address and the end of the image, the rest is unreadable.
func (s *Server) onReadMemoryRequest(request *dap.ReadMemoryRequest) {
	if s.img == nil {
		s.sendErrorResponse(request.Request, UnableToReadMemory, "Unable to read memory", "no image loaded")
		return
	}
	ref, err := parseMemoryReference(request.Arguments.MemoryReference)
	if err != nil {
		s.sendErrorResponse(request.Request, UnableToReadMemory, "Unable to read memory", err.Error())
		return
	}
	addr := ref + uint64(request.Arguments.Offset)
	count := request.Arguments.Count
	if count < 0 {
		s.sendErrorResponse(request.Request, UnableToReadMemory, "Unable to read memory", "negative count")
		return
	}

	n := 0
	if addr >= s.img.Base && addr < s.img.End() {
		n = count
		if rest := s.img.End() - addr; uint64(n) > rest {
			n = int(rest)
		}
	}
	buf := make([]byte, n)
	if n > 0 {
		if _, err := s.img.ReadMemory(buf, addr); err != nil {
			s.sendErrorResponse(request.Request, UnableToReadMemory, "Unable to read memory", err.Error())
			return
		}
	}

	response := &dap.ReadMemoryResponse{Response: *newResponse(request.Request)}
	response.Body.Address = fmt.Sprintf("%#x", addr)
	response.Body.Data = base64.StdEncoding.EncodeToString(buf)
	response.Body.UnreadableBytes = count - n
	s.send(response)
}

func (s *Server) sendErrorResponse(request dap.Request, id int, summary, details string) {
	er := &dap.ErrorResponse{}
	er.Type = "response"
	er.Command = request.Command
	er.RequestSeq = request.Seq
	er.Success = false
	er.Message = summary
	er.Body.Error = &dap.ErrorMessage{
		Id:       id,
		Format:   fmt.Sprintf("%s: %s", summary, strings.TrimSpace(details)),
		ShowUser: true,
	}
	s.log.Error(er.Body.Error.Format)
	s.send(er)
}

// sendInternalErrorResponse sends an "internal error" response back to the client.
// We only take a seq here because we don't want to make assumptions about the
// kind of message received by the server that this error is a reply to.
func (s *Server) sendInternalErrorResponse(seq int, details string) {
	er := &dap.ErrorResponse{}
	er.Type = "response"
	er.RequestSeq = seq
	er.Success = false
	er.Message = "Internal Error"
	er.Body.Error = &dap.ErrorMessage{
		Id:     InternalError,
		Format: fmt.Sprintf("%s: %s", er.Message, details),
	}
	s.log.Error(er.Body.Error.Format)
	s.send(er)
}

func (s *Server) sendUnsupportedErrorResponse(request dap.Request) {
	s.sendErrorResponse(request, UnsupportedCommand, "Unsupported command",
		fmt.Sprintf("cannot process '%s' request", request.Command))
}

func newResponse(request dap.Request) *dap.Response {
	return &dap.Response{
		ProtocolMessage: dap.ProtocolMessage{
			Seq:  0,
			Type: "response",
		},
		Command:    request.Command,
		RequestSeq: request.Seq,
		Success:    true,
	}
}

func newEvent(event string) *dap.Event {
	return &dap.Event{
		ProtocolMessage: dap.ProtocolMessage{
			Seq:  0,
			Type: "event",
		},
		Event: event,
	}
}
