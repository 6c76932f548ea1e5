package service

import (
	"net"

	"github.com/go-delve/ppc64dec/pkg/disasm"
)

// Config provides the configuration to expose a decoder with a service.
//
// Image may be nil, in which case clients must load one through a launch
// request before asking for instructions.
type Config struct {
	// Listener is used to serve requests.
	Listener net.Listener

	// Image is the code served to clients.
	Image *disasm.Image

	// CacheSize is the number of decoded words kept in memory, zero selects
	// disasm.DefaultCacheSize.
	CacheSize int

	// DisconnectChan will be closed by the server when the client disconnects
	DisconnectChan chan<- struct{}
}
