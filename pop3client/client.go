// Package pop3client is an asynchronous POP3 retrieval client implementing
// the RFC 1939 core plus the CAPA (RFC 2449) and STLS (RFC 2595) extensions.
//
// A session moves through the states DISCONNECTED -> CONNECTED -> AUTHED ->
// TRANSACTION -> UPDATE (on QUIT). New reads the greeting and leaves the
// client in CONNECTED state; Login moves it to TRANSACTION (skipping the
// separate AUTHED state, since this client has no APOP/AUTH support beyond
// USER/PASS). Message retrieval, deletion and status commands are only
// valid in TRANSACTION state; the server only applies queued DELE commands
// once QUIT is sent, moving to UPDATE.
//
// Connecting to and dialing the remote host is the caller's responsibility:
// this package accepts an already-dialed net.Conn and never performs DNS
// resolution itself.
package pop3client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/sguinebert/mailio/authpolicy"
	"github.com/sguinebert/mailio/codec"
	"github.com/sguinebert/mailio/dialog"
	"github.com/sguinebert/mailio/mlog"
	"github.com/sguinebert/mailio/stub"
	"github.com/sguinebert/mailio/transport"
)

var (
	MetricCommands stub.HistogramVec = stub.HistogramVecIgnore{}
	MetricPanicInc                   = func() {}
)

var (
	ErrProtocol      = errors.New("pop3 protocol error")             // Malformed status line or multi-line response.
	ErrStatus        = errors.New("pop3 server returned -err")       // Command-level failure; see Error.Details for the server text.
	ErrBotched       = errors.New("pop3 connection is botched")      // Set after an i/o error or malformed response; no further commands can be sent.
	ErrClosed        = errors.New("client is closed")
	ErrAuthForbidden = errors.New("authentication not allowed on this connection") // See authpolicy.Check.
	ErrArgument      = errors.New("invalid argument")                              // E.g. List(n) or Uidl(n) called with n <= 0.
)

// Error is returned for POP3-level failures: a "-ERR" response, or a
// protocol violation while parsing a response.
type Error struct {
	Details string // Server's response text, or a description for protocol errors.
	Err     error  // One of the Err variables in this package.
}

func (e Error) Error() string {
	if e.Details == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Details)
}

func (e Error) Unwrap() error {
	return e.Err
}

// ListItem is one entry of a LIST or multi-line LIST response: a message
// number and its size in octets.
type ListItem struct {
	Num  int
	Size int64
}

// UidlItem is one entry of a UIDL or multi-line UIDL response: a message
// number and its unique identifier.
type UidlItem struct {
	Num int
	UID string
}

// Opts influence the behaviour of Client.
type Opts struct {
	// AuthPolicy gates whether Login may be called on a connection that is
	// not TLS-protected. See authpolicy.Check.
	AuthPolicy authpolicy.Options

	// Timeout bounds every dialog operation (read or write); zero disables
	// the bound. See dialog.Dialog.
	Timeout time.Duration
}

// Client is a POP3 client for retrieving and deleting messages from a
// mailbox.
//
// Use New to make a new client.
type Client struct {
	dlg        *dialog.Dialog
	log        mlog.Log
	authPolicy authpolicy.Options

	botched bool

	greeting string

	capabilities map[string][]string
	extSTLS      bool
}

// New wraps conn in a Client, reading the server's greeting line. conn may
// already be a *tls.Conn for implicit TLS (e.g. port 995); for STARTTLS-style
// upgrade on a plaintext connection, call StartTLS after New.
//
// New returns an error if the greeting is not "+OK ...". The caller remains
// responsible for closing conn if New fails.
func New(ctx context.Context, elog *slog.Logger, conn net.Conn, opts Opts) (*Client, error) {
	log := mlog.New("pop3client", elog)
	stream := transport.New(conn)
	dlg := dialog.New(stream, log, "S: ", "C: ", opts.Timeout)

	c := &Client{
		dlg:        dlg,
		log:        log,
		authPolicy: opts.AuthPolicy,
	}

	if err := c.readGreeting(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) botchf(format string, args ...any) error {
	c.botched = true
	return Error{Err: ErrBotched, Details: fmt.Sprintf(format, args...)}
}

func (c *Client) xbotchf(format string, args ...any) {
	panic(c.botchf(format, args...))
}

func (c *Client) xerrorf(sentinel error, details string) {
	panic(Error{Err: sentinel, Details: details})
}

func (c *Client) recover(rerr *error) {
	x := recover()
	if x == nil {
		return
	}
	e, ok := x.(Error)
	if !ok {
		MetricPanicInc()
		panic(x)
	}
	*rerr = e
}

// status is the parsed first line of a POP3 response.
type status struct {
	ok   bool
	text string
}

// xreadStatus reads a single status line and parses "+OK ..." or "-ERR ...".
// Any other prefix is a protocol violation.
func (c *Client) xreadStatus(ctx context.Context, cmd string) status {
	start := time.Now()
	line, err := c.dlg.ReadLine(ctx)
	if err != nil {
		c.xbotchf("reading response to %s: %s", cmd, err)
	}
	ok, text, err := parseStatusLine(line)
	if err != nil {
		c.xbotchf("%s: %s", cmd, err)
	}
	result := "ERR"
	if ok {
		result = "OK"
	}
	MetricCommands.ObserveLabels(float64(time.Since(start))/float64(time.Second), cmd, result)
	return status{ok, text}
}

// parseStatusLine splits a POP3 status line into its +OK/-ERR marker and the
// remaining free text.
func parseStatusLine(line string) (ok bool, text string, err error) {
	marker, rest, _ := strings.Cut(line, " ")
	switch marker {
	case "+OK":
		return true, rest, nil
	case "-ERR":
		return false, rest, nil
	default:
		return false, "", fmt.Errorf("%w: unrecognized status %q", ErrProtocol, marker)
	}
}

// xcommand writes cmd, reads the status line, and panics with Error{ErrStatus}
// if the response is "-ERR".
func (c *Client) xcommand(ctx context.Context, cmd string) status {
	if err := c.dlg.WriteLine(ctx, cmd); err != nil {
		c.xbotchf("writing %s: %s", cmd, err)
	}
	name, _, _ := strings.Cut(cmd, " ")
	st := c.xreadStatus(ctx, name)
	if !st.ok {
		c.xerrorf(ErrStatus, st.text)
	}
	return st
}

// xreadMultiline reads lines until a lone "." terminator, dot-unstuffing
// each line, and returns them as a slice, one entry per line without its
// terminator.
func (c *Client) xreadMultiline(ctx context.Context) []string {
	var lines []string
	for {
		line, err := c.dlg.ReadLine(ctx)
		if err != nil {
			c.xbotchf("reading multi-line response: %s", err)
		}
		data, end := codec.UnstuffLine(line)
		if end {
			return lines
		}
		lines = append(lines, data)
	}
}

func (c *Client) readGreeting(ctx context.Context) (rerr error) {
	defer c.recover(&rerr)

	st := c.xreadStatus(ctx, "greeting")
	if !st.ok {
		c.xerrorf(ErrStatus, st.text)
	}
	c.greeting = st.text
	return nil
}

// Capabilities returns the CAPA response as a map from uppercased capability
// name to its parameters, e.g. {"STLS": nil, "USER": nil, "UIDL": nil}. It
// must be called before Login if the caller wants to check STLS support.
func (c *Client) Capabilities(ctx context.Context) (caps map[string][]string, rerr error) {
	defer c.recover(&rerr)

	if c.botched {
		return nil, ErrBotched
	}

	c.xcommand(ctx, "CAPA")
	lines := c.xreadMultiline(ctx)

	caps = map[string][]string{}
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		caps[strings.ToUpper(fields[0])] = fields[1:]
	}
	c.capabilities = caps
	_, c.extSTLS = caps["STLS"]
	return caps, nil
}

// SupportsSTLS reports whether the server advertised the STLS capability in
// its last Capabilities response. It returns false if Capabilities was never
// called, even if the server does in fact support STLS.
func (c *Client) SupportsSTLS() bool {
	return c.extSTLS
}

// ServerCapabilities returns the capability map from the last Capabilities
// call, or nil if it was never called.
func (c *Client) ServerCapabilities() map[string][]string {
	return c.capabilities
}

// Greeting returns the free-text portion of the server's greeting line.
func (c *Client) Greeting() string {
	return c.greeting
}

// StartTLS upgrades the connection with the POP3 STLS command. It must be
// called before Login, on a connection with no buffered unread bytes (true
// immediately after New or Capabilities). tlsConfig may be nil to use
// defaults; serverName sets the SNI/verification name.
func (c *Client) StartTLS(ctx context.Context, tlsConfig *tls.Config, serverName string) (rerr error) {
	defer c.recover(&rerr)

	if c.botched {
		return ErrBotched
	}

	c.xcommand(ctx, "STLS")

	if err := c.dlg.StartTLS(ctx, transport.TLSOptions{Config: tlsConfig, ServerName: serverName}); err != nil {
		c.botched = true
		return fmt.Errorf("stls handshake: %w", err)
	}
	return nil
}

// TLSConnectionState returns TLS details if the connection is currently
// TLS-protected, and (zero, false) otherwise.
func (c *Client) TLSConnectionState() (tls.ConnectionState, bool) {
	return c.dlg.Stream().ConnectionState()
}

// Login authenticates with USER followed by PASS. It is gated by the
// configured authpolicy.Options: on a plaintext connection it fails with
// ErrAuthForbidden unless the policy allows cleartext authentication.
func (c *Client) Login(ctx context.Context, user, pass string) (rerr error) {
	defer c.recover(&rerr)

	if c.botched {
		return ErrBotched
	}

	if err := authpolicy.Check(c.dlg.IsTLS(), c.authPolicy, c.log); err != nil {
		c.xerrorf(ErrAuthForbidden, err.Error())
	}

	unstop := c.traceCleartext()
	defer unstop()

	c.xcommand(ctx, "USER "+user)
	c.xcommand(ctx, "PASS "+pass)
	return nil
}

// traceCleartext lowers the wire trace level while USER/PASS credentials are
// on the line, mirroring smtpclient's handling of cleartext SASL mechanisms.
func (c *Client) traceCleartext() func() {
	c.dlg.SetTrace(mlog.LevelTraceauth)
	return func() {
		c.dlg.SetTrace(mlog.LevelTrace)
	}
}

// Stat executes STAT, returning the message count and total mailbox size in
// octets.
func (c *Client) Stat(ctx context.Context) (count int, size int64, rerr error) {
	defer c.recover(&rerr)

	if c.botched {
		return 0, 0, ErrBotched
	}

	st := c.xcommand(ctx, "STAT")
	fields := strings.Fields(st.text)
	if len(fields) != 2 {
		c.xerrorf(ErrProtocol, "malformed STAT response: "+st.text)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		c.xerrorf(ErrProtocol, "malformed STAT count: "+st.text)
	}
	sz, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		c.xerrorf(ErrProtocol, "malformed STAT size: "+st.text)
	}
	return n, sz, nil
}

// List executes "LIST n", returning the size of message n. n must be >= 1.
func (c *Client) List(ctx context.Context, n int) (item ListItem, rerr error) {
	defer c.recover(&rerr)

	if n <= 0 {
		return ListItem{}, Error{Err: ErrArgument, Details: "message number must be >= 1"}
	}
	if c.botched {
		return ListItem{}, ErrBotched
	}

	st := c.xcommand(ctx, fmt.Sprintf("LIST %d", n))
	return parseListLine(st.text)
}

// ListAll executes LIST with no argument, returning an entry for every
// message in the mailbox.
func (c *Client) ListAll(ctx context.Context) (items []ListItem, rerr error) {
	defer c.recover(&rerr)

	if c.botched {
		return nil, ErrBotched
	}

	c.xcommand(ctx, "LIST")
	for _, line := range c.xreadMultiline(ctx) {
		item, err := parseListLine(line)
		if err != nil {
			panic(err)
		}
		items = append(items, item)
	}
	return items, nil
}

func parseListLine(line string) (ListItem, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return ListItem{}, Error{Err: ErrProtocol, Details: "malformed LIST entry: " + line}
	}
	num, err := strconv.Atoi(fields[0])
	if err != nil {
		return ListItem{}, Error{Err: ErrProtocol, Details: "malformed LIST message number: " + line}
	}
	size, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return ListItem{}, Error{Err: ErrProtocol, Details: "malformed LIST size: " + line}
	}
	return ListItem{Num: num, Size: size}, nil
}

// Uidl executes "UIDL n", returning the unique identifier of message n. n
// must be >= 1.
func (c *Client) Uidl(ctx context.Context, n int) (item UidlItem, rerr error) {
	defer c.recover(&rerr)

	if n <= 0 {
		return UidlItem{}, Error{Err: ErrArgument, Details: "message number must be >= 1"}
	}
	if c.botched {
		return UidlItem{}, ErrBotched
	}

	st := c.xcommand(ctx, fmt.Sprintf("UIDL %d", n))
	return parseUidlLine(st.text)
}

// UidlAll executes UIDL with no argument, returning an entry for every
// message in the mailbox.
func (c *Client) UidlAll(ctx context.Context) (items []UidlItem, rerr error) {
	defer c.recover(&rerr)

	if c.botched {
		return nil, ErrBotched
	}

	c.xcommand(ctx, "UIDL")
	for _, line := range c.xreadMultiline(ctx) {
		item, err := parseUidlLine(line)
		if err != nil {
			panic(err)
		}
		items = append(items, item)
	}
	return items, nil
}

func parseUidlLine(line string) (UidlItem, error) {
	num, uid, ok := strings.Cut(line, " ")
	if !ok || uid == "" {
		return UidlItem{}, Error{Err: ErrProtocol, Details: "malformed UIDL entry: " + line}
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return UidlItem{}, Error{Err: ErrProtocol, Details: "malformed UIDL message number: " + line}
	}
	return UidlItem{Num: n, UID: uid}, nil
}

// Retr executes "RETR n", returning the full raw message text (headers and
// body) with dot-unstuffing applied and lines joined by CRLF.
func (c *Client) Retr(ctx context.Context, n int) (text string, rerr error) {
	defer c.recover(&rerr)

	if n <= 0 {
		return "", Error{Err: ErrArgument, Details: "message number must be >= 1"}
	}
	if c.botched {
		return "", ErrBotched
	}

	c.dlg.SetTrace(mlog.LevelTracedata)
	c.xcommand(ctx, fmt.Sprintf("RETR %d", n))
	lines := c.xreadMultiline(ctx)
	c.dlg.SetTrace(mlog.LevelTrace)
	return joinCRLF(lines), nil
}

// Top executes "TOP n lines", returning the message headers plus the first
// lines lines of the body, dot-unstuffed and CRLF-joined.
func (c *Client) Top(ctx context.Context, n, lines int) (text string, rerr error) {
	defer c.recover(&rerr)

	if n <= 0 {
		return "", Error{Err: ErrArgument, Details: "message number must be >= 1"}
	}
	if lines < 0 {
		return "", Error{Err: ErrArgument, Details: "line count must be >= 0"}
	}
	if c.botched {
		return "", ErrBotched
	}

	defer c.dlg.SetTrace(mlog.LevelTrace)
	c.dlg.SetTrace(mlog.LevelTracedata)
	c.xcommand(ctx, fmt.Sprintf("TOP %d %d", n, lines))
	body := c.xreadMultiline(ctx)
	return joinCRLF(body), nil
}

func joinCRLF(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\r\n") + "\r\n"
}

// Dele marks message n for deletion. The server only removes marked messages
// once Quit is sent; Rset before Quit undoes all pending deletions in this
// session.
func (c *Client) Dele(ctx context.Context, n int) (rerr error) {
	defer c.recover(&rerr)

	if c.botched {
		return ErrBotched
	}
	c.xcommand(ctx, fmt.Sprintf("DELE %d", n))
	return nil
}

// Rset undoes any messages marked for deletion in this session.
func (c *Client) Rset(ctx context.Context) (rerr error) {
	defer c.recover(&rerr)

	if c.botched {
		return ErrBotched
	}
	c.xcommand(ctx, "RSET")
	return nil
}

// Noop does nothing but keeps the connection alive.
func (c *Client) Noop(ctx context.Context) (rerr error) {
	defer c.recover(&rerr)

	if c.botched {
		return ErrBotched
	}
	c.xcommand(ctx, "NOOP")
	return nil
}

// Quit sends QUIT, causing the server to apply pending deletions and enter
// UPDATE state, then closes the underlying stream.
func (c *Client) Quit(ctx context.Context) (rerr error) {
	if c.dlg == nil {
		return ErrClosed
	}

	defer c.recover(&rerr)

	if !c.botched {
		c.xcommand(ctx, "QUIT")
	}
	err := c.dlg.Stream().Close()
	c.dlg = nil
	return err
}

// Botched returns whether this connection is botched, e.g. a protocol error
// occurred and the connection is in an unknown state.
func (c *Client) Botched() bool {
	return c.botched || c.dlg == nil
}
