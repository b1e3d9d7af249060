package message

import (
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
)

func tcheck(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %s", msg, err)
	}
}

func tcompare(t *testing.T, a, b any) {
	t.Helper()
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("got:\n%#v\nexpected:\n%#v", a, b)
	}
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestEmptyHeader(t *testing.T) {
	s := "\r\nbody"
	p, err := Parse(discardLogger, false, strings.NewReader(s))
	tcheck(t, err, "parse empty headers")
	buf, err := io.ReadAll(p.Reader())
	tcheck(t, err, "read body")
	if string(buf) != "body" {
		t.Fatalf("got body %q, expected %q", buf, "body")
	}
}

func TestSimplePlainText(t *testing.T) {
	s := "From: mjl@mox.example\r\nTo: other@mox.example\r\nSubject: test\r\nContent-Type: text/plain; charset=utf-8\r\n\r\nhi there\r\n"
	p, err := Parse(discardLogger, false, strings.NewReader(s))
	tcheck(t, err, "parse message")
	if p.MediaType != "TEXT" || p.MediaSubType != "PLAIN" {
		t.Fatalf("got media type %s/%s", p.MediaType, p.MediaSubType)
	}
	if p.Envelope == nil || p.Envelope.Subject != "test" {
		t.Fatalf("got envelope %v", p.Envelope)
	}
	if len(p.Envelope.From.Mailboxes) != 1 || p.Envelope.From.Mailboxes[0].Address.String() != "mjl@mox.example" {
		t.Fatalf("got from %v", p.Envelope.From)
	}
	buf, err := io.ReadAll(p.Reader())
	tcheck(t, err, "read body")
	if string(buf) != "hi there\r\n" {
		t.Fatalf("got body %q", buf)
	}
}

func TestMultipart(t *testing.T) {
	s := "From: mjl@mox.example\r\n" +
		"Content-Type: multipart/mixed; boundary=abc\r\n\r\n" +
		"--abc\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"part one\r\n" +
		"--abc\r\n" +
		"Content-Type: application/octet-stream\r\n" +
		"Content-Disposition: attachment; filename=x.bin\r\n" +
		"Content-Transfer-Encoding: base64\r\n\r\n" +
		"aGVsbG8=\r\n" +
		"--abc--\r\n"
	p, err := Parse(discardLogger, false, strings.NewReader(s))
	tcheck(t, err, "parse multipart message")
	if p.MediaType != "MULTIPART" || len(p.Parts) != 2 {
		t.Fatalf("got %d parts, expected 2", len(p.Parts))
	}
	att, err := p.Attachment(0)
	tcheck(t, err, "find attachment")
	if att.Filename != "x.bin" {
		t.Fatalf("got filename %q", att.Filename)
	}
	buf, err := io.ReadAll(att.Reader())
	tcheck(t, err, "read attachment")
	if string(buf) != "hello" {
		t.Fatalf("got attachment body %q", buf)
	}
}
