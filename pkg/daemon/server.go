// Package daemon implements the unix socket transport between the quicknote
// daemon and its overlay host, trigger and status clients.
package daemon

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// ErrNoHost is returned when a command targets the overlay host but none is
// attached.
var ErrNoHost = errors.New("no overlay host connected")

// ErrUnknownClient is returned when sending to a client that is not connected.
var ErrUnknownClient = errors.New("unknown client")

const writeTimeout = time.Second

// SocketPath returns the default socket location for the current user.
func SocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir + "/quicknote.sock"
	}
	return fmt.Sprintf("/tmp/quicknote-%d.sock", os.Getuid())
}

// PidPath returns the pidfile paired with socketPath.
func PidPath(socketPath string) string {
	return strings.TrimSuffix(socketPath, ".sock") + ".pid"
}

type clientConn struct {
	conn    net.Conn
	role    Role
	writeMu sync.Mutex
}

// Server accepts client connections and routes their messages
type Server struct {
	socketPath string
	pidPath    string
	listener   net.Listener
	logger     *slog.Logger

	clients   map[string]*clientConn
	conns     map[net.Conn]struct{}
	host      string
	clientsMu sync.RWMutex

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// OnMessage is called from the connection goroutine for every decoded
	// message, hello included. Ping is answered by the server and not
	// forwarded.
	OnMessage func(clientID string, msg Message)

	// OnDisconnect is called after a client's connection closes.
	OnDisconnect func(clientID string, role Role)
}

// NewServer creates a server listening on socketPath once started
func NewServer(socketPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		socketPath: socketPath,
		pidPath:    PidPath(socketPath),
		logger:     logger.With("component", "daemon"),
		clients:    make(map[string]*clientConn),
		conns:      make(map[net.Conn]struct{}),
		done:       make(chan struct{}),
	}
}

// Start claims the pidfile and begins accepting connections
func (s *Server) Start() error {
	if err := s.checkAndClaimPid(); err != nil {
		return err
	}

	// Safe once we own the pidfile
	_ = os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		_ = os.Remove(s.pidPath)
		return fmt.Errorf("failed to listen on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		_ = listener.Close()
		_ = os.Remove(s.pidPath)
		return fmt.Errorf("failed to restrict socket permissions: %w", err)
	}
	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("listening", "socket", s.socketPath)
	return nil
}

// checkAndClaimPid refuses to start while another live daemon owns the
// pidfile and otherwise writes our pid.
func (s *Server) checkAndClaimPid() error {
	// #nosec G304 - pidfile path derives from the configured socket path
	if data, err := os.ReadFile(s.pidPath); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pid > 0 {
			if process, err := os.FindProcess(pid); err == nil {
				if process.Signal(syscall.Signal(0)) == nil {
					return fmt.Errorf("daemon already running with pid %d", pid)
				}
			}
		}
		_ = os.Remove(s.pidPath)
	}

	if err := os.WriteFile(s.pidPath, []byte(strconv.Itoa(os.Getpid())), 0600); err != nil {
		return fmt.Errorf("failed to write pidfile: %w", err)
	}
	return nil
}

// Stop closes the listener and every client, then removes the socket and
// pidfile. Safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			_ = s.listener.Close()
		}

		s.clientsMu.Lock()
		for conn := range s.conns {
			_ = conn.Close()
		}
		s.clientsMu.Unlock()

		s.wg.Wait()
		_ = os.Remove(s.socketPath)
		_ = os.Remove(s.pidPath)
	})
}

// SocketPath returns the path the server listens on
func (s *Server) SocketPath() string {
	return s.socketPath
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// HasHost reports whether an overlay host is attached.
func (s *Server) HasHost() bool {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return s.host != ""
}

// HostID returns the ID of the attached overlay host, or "".
func (s *Server) HostID() string {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return s.host
}

// Send encodes payload and writes it to one client.
func (s *Server) Send(clientID string, t MessageType, payload any) error {
	s.clientsMu.RLock()
	c, ok := s.clients[clientID]
	s.clientsMu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownClient, clientID)
	}
	return s.write(c, t, payload)
}

// SendHost writes to the attached overlay host.
func (s *Server) SendHost(t MessageType, payload any) error {
	s.clientsMu.RLock()
	c, ok := s.clients[s.host]
	s.clientsMu.RUnlock()
	if !ok {
		return ErrNoHost
	}
	return s.write(c, t, payload)
}

func (s *Server) write(c *clientConn, t MessageType, payload any) error {
	msg, err := NewMessage(t, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return writeMessage(c.conn, msg)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}

		s.clientsMu.Lock()
		select {
		case <-s.done:
			s.clientsMu.Unlock()
			_ = conn.Close()
			return
		default:
		}
		s.conns[conn] = struct{}{}
		s.clientsMu.Unlock()

		s.wg.Add(1)
		go s.handleClient(conn)
	}
}

func (s *Server) handleClient(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		_ = conn.Close()
		s.clientsMu.Lock()
		delete(s.conns, conn)
		s.clientsMu.Unlock()
	}()

	scanner := bufio.NewScanner(conn)
	// Notes can be large
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var (
		clientID string
		client   *clientConn
	)
	defer func() {
		if clientID != "" {
			s.unregister(clientID, client)
		}
	}()

	for scanner.Scan() {
		var msg Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			s.logger.Debug("dropping malformed message", "error", err)
			continue
		}

		if clientID == "" {
			clientID = msg.ClientID
			if clientID == "" {
				clientID = uuid.NewString()
			}
			client = &clientConn{conn: conn, role: RoleTrigger}
			if msg.Type == MsgHello {
				var hello HelloPayload
				if err := msg.Decode(&hello); err == nil && hello.Role != "" {
					client.role = hello.Role
				}
			}
			s.register(clientID, client)
		}
		msg.ClientID = clientID

		if msg.Type == MsgPing {
			if err := s.write(client, MsgPong, nil); err != nil {
				s.logger.Debug("pong failed", "client", clientID, "error", err)
			}
			continue
		}

		if s.OnMessage != nil {
			s.OnMessage(clientID, msg)
		}
	}

	if err := scanner.Err(); err != nil {
		select {
		case <-s.done:
		default:
			s.logger.Debug("client read failed", "client", clientID, "error", err)
		}
	}
}

func (s *Server) register(id string, c *clientConn) {
	s.clientsMu.Lock()
	s.clients[id] = c
	var replaced string
	if c.role == RoleHost {
		if s.host != "" && s.host != id {
			replaced = s.host
		}
		s.host = id
	}
	s.clientsMu.Unlock()

	s.logger.Debug("client connected", "client", id, "role", c.role)
	if replaced != "" {
		s.logger.Warn("overlay host replaced", "previous", replaced, "client", id)
	}
}

func (s *Server) unregister(id string, c *clientConn) {
	s.clientsMu.Lock()
	if s.clients[id] == c {
		delete(s.clients, id)
	}
	if s.host == id {
		s.host = ""
	}
	s.clientsMu.Unlock()

	s.logger.Debug("client disconnected", "client", id, "role", c.role)
	if s.OnDisconnect != nil {
		s.OnDisconnect(id, c.role)
	}
}

// writeMessage writes one newline-terminated JSON message.
func writeMessage(conn net.Conn, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write %s message: %w", msg.Type, err)
	}
	return nil
}
