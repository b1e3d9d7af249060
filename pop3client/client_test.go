package pop3client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/sguinebert/mailio/authpolicy"
)

// fakeServer runs script against one side of a net.Pipe, feeding lines to
// and reading commands from the client under test. Each entry either
// expects an incoming command (prefix match, case-insensitive) or sends a
// line to the client.
type fakeServer struct {
	t    *testing.T
	conn net.Conn
	br   *bufio.Reader
}

func newFakeServer(t *testing.T, conn net.Conn) *fakeServer {
	return &fakeServer{t: t, conn: conn, br: bufio.NewReader(conn)}
}

func (s *fakeServer) expect(prefix string) string {
	s.t.Helper()
	line, err := s.br.ReadString('\n')
	if err != nil {
		s.t.Fatalf("reading command: %v", err)
	}
	line = strings.TrimSuffix(line, "\r\n")
	if !strings.HasPrefix(strings.ToUpper(line), strings.ToUpper(prefix)) {
		s.t.Fatalf("expected command %q, got %q", prefix, line)
	}
	return line
}

func (s *fakeServer) send(line string) {
	s.t.Helper()
	if _, err := fmt.Fprintf(s.conn, "%s\r\n", line); err != nil {
		s.t.Fatalf("writing line: %v", err)
	}
}

func dialTest(t *testing.T) (client net.Conn, server *fakeServer) {
	t.Helper()
	c, s := net.Pipe()
	return c, newFakeServer(t, s)
}

func TestGreeting(t *testing.T) {
	clientConn, server := dialTest(t)
	defer clientConn.Close()

	result := make(chan *Client, 1)
	errc := make(chan error, 1)
	go func() {
		c, err := New(context.Background(), nil, clientConn, Opts{})
		if err != nil {
			errc <- err
			return
		}
		result <- c
	}()

	server.send("+OK POP3 server ready")

	select {
	case c := <-result:
		if c.Greeting() != "POP3 server ready" {
			t.Fatalf("greeting = %q", c.Greeting())
		}
	case err := <-errc:
		t.Fatalf("New: %v", err)
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestGreetingErr(t *testing.T) {
	clientConn, server := dialTest(t)
	defer clientConn.Close()

	errc := make(chan error, 1)
	go func() {
		_, err := New(context.Background(), nil, clientConn, Opts{})
		errc <- err
	}()

	server.send("-ERR go away")

	select {
	case err := <-errc:
		var perr Error
		if !errors.As(err, &perr) || !errors.Is(perr.Err, ErrStatus) {
			t.Fatalf("expected ErrStatus, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

// session runs fn with a connected, greeted Client against a fakeServer,
// serializing the server-side script with fn on separate goroutines joined
// at the end.
func session(t *testing.T, opts Opts, serverScript func(*fakeServer), clientScript func(*Client) error) error {
	t.Helper()

	clientConn, server := dialTest(t)
	defer clientConn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		server.send("+OK ready")
		serverScript(server)
	}()

	c, err := New(context.Background(), nil, clientConn, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cerr := clientScript(c)
	<-done
	return cerr
}

func TestLoginPlaintextForbidden(t *testing.T) {
	err := session(t, Opts{AuthPolicy: authpolicy.Options{RequireTLSForAuth: true}},
		func(s *fakeServer) {},
		func(c *Client) error {
			return c.Login(context.Background(), "user", "pass")
		})
	var perr Error
	if !errors.As(err, &perr) || !errors.Is(perr.Err, ErrAuthForbidden) {
		t.Fatalf("expected ErrAuthForbidden, got %v", err)
	}
}

func TestLoginOK(t *testing.T) {
	err := session(t, Opts{},
		func(s *fakeServer) {
			s.expect("USER alice")
			s.send("+OK")
			s.expect("PASS secret")
			s.send("+OK logged in")
		},
		func(c *Client) error {
			return c.Login(context.Background(), "alice", "secret")
		})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func TestLoginBadPassword(t *testing.T) {
	err := session(t, Opts{},
		func(s *fakeServer) {
			s.expect("USER alice")
			s.send("+OK")
			s.expect("PASS wrong")
			s.send("-ERR invalid password")
		},
		func(c *Client) error {
			return c.Login(context.Background(), "alice", "wrong")
		})
	var perr Error
	if !errors.As(err, &perr) || !errors.Is(perr.Err, ErrStatus) || perr.Details != "invalid password" {
		t.Fatalf("expected ErrStatus with details, got %v", err)
	}
}

func TestStat(t *testing.T) {
	var count int
	var size int64
	err := session(t, Opts{},
		func(s *fakeServer) {
			s.expect("STAT")
			s.send("+OK 3 1200")
		},
		func(c *Client) (err error) {
			count, size, err = c.Stat(context.Background())
			return err
		})
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if count != 3 || size != 1200 {
		t.Fatalf("Stat = %d, %d", count, size)
	}
}

func TestListAll(t *testing.T) {
	var items []ListItem
	err := session(t, Opts{},
		func(s *fakeServer) {
			s.expect("LIST")
			s.send("+OK 2 messages")
			s.send("1 100")
			s.send("2 200")
			s.send(".")
		},
		func(c *Client) (err error) {
			items, err = c.ListAll(context.Background())
			return err
		})
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	want := []ListItem{{Num: 1, Size: 100}, {Num: 2, Size: 200}}
	if len(items) != len(want) || items[0] != want[0] || items[1] != want[1] {
		t.Fatalf("ListAll = %v, want %v", items, want)
	}
}

func TestListArgumentValidation(t *testing.T) {
	c := &Client{}
	if _, err := c.List(context.Background(), 0); err == nil {
		t.Fatal("expected error for n=0")
	}
	if _, err := c.Uidl(context.Background(), -1); err == nil {
		t.Fatal("expected error for n=-1")
	}
}

func TestRetrDotUnstuffing(t *testing.T) {
	var text string
	err := session(t, Opts{},
		func(s *fakeServer) {
			s.expect("RETR 1")
			s.send("+OK 12 octets")
			s.send("Line one")
			s.send("..dotted")
			s.send(".")
		},
		func(c *Client) (err error) {
			text, err = c.Retr(context.Background(), 1)
			return err
		})
	if err != nil {
		t.Fatalf("Retr: %v", err)
	}
	if text != "Line one\r\n.dotted\r\n" {
		t.Fatalf("Retr = %q", text)
	}
}

func TestDeleRsetNoopQuit(t *testing.T) {
	err := session(t, Opts{},
		func(s *fakeServer) {
			s.expect("DELE 1")
			s.send("+OK")
			s.expect("RSET")
			s.send("+OK")
			s.expect("NOOP")
			s.send("+OK")
			s.expect("QUIT")
			s.send("+OK bye")
		},
		func(c *Client) error {
			ctx := context.Background()
			if err := c.Dele(ctx, 1); err != nil {
				return err
			}
			if err := c.Rset(ctx); err != nil {
				return err
			}
			if err := c.Noop(ctx); err != nil {
				return err
			}
			return c.Quit(ctx)
		})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
}

func TestBotchedAfterProtocolError(t *testing.T) {
	err := session(t, Opts{},
		func(s *fakeServer) {
			s.expect("STAT")
			s.send("bogus response")
		},
		func(c *Client) error {
			if _, _, err := c.Stat(context.Background()); err == nil {
				t.Fatal("expected error for malformed status line")
			}
			if !c.Botched() {
				t.Fatal("expected client to be botched")
			}
			_, _, err := c.Stat(context.Background())
			return err
		})
	if !errors.Is(err, ErrBotched) {
		t.Fatalf("expected ErrBotched, got %v", err)
	}
}
