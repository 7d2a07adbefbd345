// Package server implements a minimal HTTP/1.1 server directly on TCP.
// Each connection carries exactly one request and is closed after the
// response.
package server

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net"
	"sync"

	"github.com/google/uuid"
)

// Server accepts TCP connections and dispatches parsed requests
// through a Router.
type Server struct {
	addr   string
	router *Router

	mu       sync.Mutex
	listener net.Listener
	closing  bool
	wg       sync.WaitGroup
}

func New(addr string, router *Router) *Server {
	return &Server{addr: addr, router: router}
}

// Start binds the listen address and begins accepting connections in
// the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	log.Printf("[HTTP] Listening on %s", ln.Addr())

	s.wg.Add(1)
	go s.acceptLoop(ln)
	return nil
}

// Addr returns the bound listen address, useful when the configured
// port is 0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("[HTTP] Accept failed: %v", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	req, err := ReadRequest(bufio.NewReader(conn))
	if err != nil {
		log.Printf("[HTTP] Bad request from %s: %v", conn.RemoteAddr(), err)
		Error(400, "Bad Request", nil).Write(conn)
		return
	}
	req.ID = uuid.NewString()
	req.RemoteAddr = conn.RemoteAddr().String()

	resp := s.router.Dispatch(req)
	if err := resp.Write(conn); err != nil {
		log.Printf("[HTTP] Write failed for %s: %v", req.ID, err)
		return
	}
	log.Printf("[HTTP] %s %s %s -> %d (request %s)", req.RemoteAddr, req.Method, req.Path, resp.Status, req.ID)
}

// Shutdown stops accepting connections and waits for in-flight
// requests, up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	ln := s.listener
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
