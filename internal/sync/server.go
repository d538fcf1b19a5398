package sync

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"
)

const transportTCP = "tcp"

// tcpSubscriber writes newline-delimited JSON.
type tcpSubscriber struct {
	conn net.Conn
}

func (tcpSubscriber) transport() string { return transportTCP }

func (s tcpSubscriber) deliver(frame []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := s.conn.Write(append(frame[:len(frame):len(frame)], '\n'))
	return err
}

func (s tcpSubscriber) close() error { return s.conn.Close() }

// Server accepts TCP clients and registers them with the hub. Clients receive
// newline-delimited JSON; anything they send is discarded.
type Server struct {
	Addr string
	Hub  *Hub

	mu sync.Mutex
	ln net.Listener
}

func NewServer(addr string, hub *Hub) *Server {
	return &Server{Addr: addr, Hub: hub}
}

func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts on ln until Close is called.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	log := slog.Default().With("component", "tcp-sync")
	log.Info("listening", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			continue
		}

		sub := tcpSubscriber{conn: conn}
		if err := s.Hub.attach(sub); err != nil {
			log.Warn("greeting failed", "remote", conn.RemoteAddr().String(), "error", err)
			continue
		}
		log.Info("client connected", "remote", conn.RemoteAddr().String())

		go func(sub tcpSubscriber) {
			defer func() {
				s.Hub.detach(sub)
				log.Info("client disconnected", "remote", sub.conn.RemoteAddr().String())
			}()

			sc := bufio.NewScanner(sub.conn)
			for sc.Scan() {
			}
		}(sub)
	}
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}
