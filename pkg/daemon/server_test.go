package daemon

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

const testTimeout = 2 * time.Second

type received struct {
	clientID string
	msg      Message
}

// newTestServer starts a server in a short temp dir; unix socket paths are
// length limited.
func newTestServer(t *testing.T, configure func(*Server)) (*Server, chan received) {
	t.Helper()
	dir, err := os.MkdirTemp("", "qn")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	srv := NewServer(filepath.Join(dir, "d.sock"), nil)
	msgs := make(chan received, 16)
	srv.OnMessage = func(id string, msg Message) {
		msgs <- received{clientID: id, msg: msg}
	}
	if configure != nil {
		configure(srv)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv, msgs
}

func waitFor(t *testing.T, msgs chan received, want MessageType) received {
	t.Helper()
	deadline := time.After(testTimeout)
	for {
		select {
		case r := <-msgs:
			if r.msg.Type == want {
				return r
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServerHostRoundTrip(t *testing.T) {
	srv, msgs := newTestServer(t, nil)

	if err := srv.SendHost(MsgHide, nil); !errors.Is(err, ErrNoHost) {
		t.Fatalf("SendHost() without host error = %v, want ErrNoHost", err)
	}

	host, err := Dial(srv.SocketPath(), HelloPayload{Role: RoleHost}, testTimeout)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer func() { _ = host.Close() }()

	hello := waitFor(t, msgs, MsgHello)
	if hello.clientID != host.ID() {
		t.Errorf("hello client ID = %q, want %q", hello.clientID, host.ID())
	}
	waitUntil(t, srv.HasHost)
	if got := srv.HostID(); got != host.ID() {
		t.Errorf("HostID() = %q, want %q", got, host.ID())
	}

	if err := srv.SendHost(MsgSetOpacity, OpacityPayload{Opacity: 0.5}); err != nil {
		t.Fatalf("SendHost() error = %v", err)
	}
	msg, err := host.Receive()
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if msg.Type != MsgSetOpacity {
		t.Fatalf("received %s, want %s", msg.Type, MsgSetOpacity)
	}
	var opacity OpacityPayload
	if err := msg.Decode(&opacity); err != nil {
		t.Fatal(err)
	}
	if opacity.Opacity != 0.5 {
		t.Errorf("opacity = %g, want 0.5", opacity.Opacity)
	}

	if err := host.Send(MsgContent, ContentPayload{HTML: "<p>x</p>"}); err != nil {
		t.Fatal(err)
	}
	content := waitFor(t, msgs, MsgContent)
	var payload ContentPayload
	if err := content.msg.Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if payload.HTML != "<p>x</p>" {
		t.Errorf("content = %q", payload.HTML)
	}
}

func TestServerAnswersPing(t *testing.T) {
	srv, msgs := newTestServer(t, nil)

	c, err := Dial(srv.SocketPath(), HelloPayload{Role: RoleStatus}, testTimeout)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	if _, err := c.Request(MsgPing, nil, MsgPong, testTimeout); err != nil {
		t.Fatalf("Request(ping) error = %v", err)
	}

	waitFor(t, msgs, MsgHello)
	select {
	case r := <-msgs:
		t.Errorf("unexpected forwarded message %s", r.msg.Type)
	default:
	}
}

func TestServerHostDisconnect(t *testing.T) {
	gone := make(chan Role, 1)
	srv, _ := newTestServer(t, func(s *Server) {
		s.OnDisconnect = func(_ string, role Role) { gone <- role }
	})

	host, err := Dial(srv.SocketPath(), HelloPayload{Role: RoleHost}, testTimeout)
	if err != nil {
		t.Fatal(err)
	}
	waitUntil(t, srv.HasHost)

	_ = host.Close()

	select {
	case role := <-gone:
		if role != RoleHost {
			t.Errorf("disconnected role = %s, want host", role)
		}
	case <-time.After(testTimeout):
		t.Fatal("OnDisconnect not called")
	}
	if srv.HasHost() {
		t.Error("host still attached after disconnect")
	}
	if srv.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", srv.ClientCount())
	}
}

func TestServerAssignsClientID(t *testing.T) {
	srv, msgs := newTestServer(t, nil)

	conn, err := net.Dial("unix", srv.SocketPath())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.Write([]byte(`{"type":"trigger","payload":{"action":"toggle"}}` + "\n")); err != nil {
		t.Fatal(err)
	}

	r := waitFor(t, msgs, MsgTrigger)
	if _, err := uuid.Parse(r.clientID); err != nil {
		t.Errorf("assigned client ID %q is not a uuid: %v", r.clientID, err)
	}
	if r.msg.ClientID != r.clientID {
		t.Errorf("message client ID = %q, want %q", r.msg.ClientID, r.clientID)
	}
}

func TestServerSkipsMalformedLines(t *testing.T) {
	srv, msgs := newTestServer(t, nil)

	conn, err := net.Dial("unix", srv.SocketPath())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.Write([]byte("not json\n" + `{"type":"close"}` + "\n")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, msgs, MsgClose)
}

func TestClientRequestError(t *testing.T) {
	srv, _ := newTestServer(t, func(s *Server) {
		s.OnMessage = func(id string, msg Message) {
			if msg.Type == MsgGetPreferences {
				_ = s.Send(id, MsgError, ErrorPayload{Message: "broken"})
			}
		}
	})

	c, err := Dial(srv.SocketPath(), HelloPayload{Role: RoleStatus}, testTimeout)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	_, err = c.Request(MsgGetPreferences, nil, MsgPreferences, testTimeout)
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Errorf("Request() error = %v, want daemon error", err)
	}
}

func TestSendUnknownClient(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	if err := srv.Send("nobody", MsgPong, nil); !errors.Is(err, ErrUnknownClient) {
		t.Errorf("Send() error = %v, want ErrUnknownClient", err)
	}
}

func TestPidfileClaim(t *testing.T) {
	t.Run("live daemon blocks start", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)

		second := NewServer(srv.SocketPath(), nil)
		if err := second.Start(); err == nil {
			second.Stop()
			t.Fatal("second Start() succeeded while first daemon runs")
		}
	})

	t.Run("stale pidfile is replaced", func(t *testing.T) {
		dir, err := os.MkdirTemp("", "qn")
		if err != nil {
			t.Fatal(err)
		}
		defer func() { _ = os.RemoveAll(dir) }()

		sock := filepath.Join(dir, "d.sock")
		// Larger than any pid the kernel will hand out
		if err := os.WriteFile(PidPath(sock), []byte("2147483647"), 0600); err != nil {
			t.Fatal(err)
		}

		srv := NewServer(sock, nil)
		if err := srv.Start(); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		defer srv.Stop()

		data, err := os.ReadFile(PidPath(sock))
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != strconv.Itoa(os.Getpid()) {
			t.Errorf("pidfile = %q, want own pid", data)
		}
	})

	t.Run("stop removes files", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		srv.Stop()
		if _, err := os.Stat(srv.SocketPath()); !os.IsNotExist(err) {
			t.Error("socket still present after Stop")
		}
		if _, err := os.Stat(PidPath(srv.SocketPath())); !os.IsNotExist(err) {
			t.Error("pidfile still present after Stop")
		}
	})
}

func TestPidPath(t *testing.T) {
	if got := PidPath("/run/user/1000/quicknote.sock"); got != "/run/user/1000/quicknote.pid" {
		t.Errorf("PidPath() = %q", got)
	}
}
