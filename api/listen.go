package api

import (
	"net"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/Stoner19/node/blockchain"
)

// Server listens on a TCP address and dispatches to the routes
// registered by RegisterChainHTTPHandlers.
type Server struct {
	httpServer *http.Server
	router     *httprouter.Router
	listener   net.Listener
}

// NewServer binds bindAddr and registers the chain routes for bc. Only
// the listener is opened; call Serve to start accepting connections.
func NewServer(bindAddr string, bc *blockchain.BlockChain) (*Server, error) {
	l, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}

	router := httprouter.New()
	router.NotFound = http.HandlerFunc(UnrecognizedCallHandler)
	RegisterChainHTTPHandlers(router, bc)

	srv := &Server{
		router:   router,
		listener: l,
		httpServer: &http.Server{
			Handler: router,
		},
	}
	return srv, nil
}

// Addr returns the address the server is bound to.
func (srv *Server) Addr() net.Addr { return srv.listener.Addr() }

// Serve blocks, accepting connections until Close is called.
func (srv *Server) Serve() error {
	err := srv.httpServer.Serve(srv.listener)
	if err != nil && !strings.HasSuffix(err.Error(), "use of closed network connection") {
		return err
	}
	return nil
}

// Close stops the listener, causing a blocked Serve call to return.
func (srv *Server) Close() error {
	return srv.listener.Close()
}
