// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package shell

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
)

func init() {
	Add(Cmd{
		Name:    "join",
		Args:    2,
		Pattern: regexp.MustCompile(`^join (\w+) (\w+)$`),
		Syntax:  "<a> <b>",
		Help:    "join arguments",
		Fn: func(_ *Interface, arg []string) (string, error) {
			return arg[0] + "+" + arg[1], nil
		},
	})

	Add(Cmd{
		Name: "fail",
		Help: "always fails",
		Fn: func(_ *Interface, _ []string) (string, error) {
			return "", errors.New("failed")
		},
	})

	Add(Cmd{
		Name: "bye",
		Help: "close session",
		Fn: func(_ *Interface, _ []string) (string, error) {
			return "", io.EOF
		},
	})
}

func TestHandleLine(t *testing.T) {
	var buf bytes.Buffer

	iface := &Interface{}

	if err := iface.handleLine("join a b", &buf); err != nil {
		t.Fatal(err)
	}

	if buf.String() != "a+b\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}

	// argument count mismatch
	if err := iface.handleLine("join a", &buf); err != ErrUnknownCommand {
		t.Fatalf("unexpected result (%v)", err)
	}

	if err := iface.handleLine("fail", &buf); err == nil || err.Error() != "failed" {
		t.Fatalf("unexpected result (%v)", err)
	}
}

func TestHelp(t *testing.T) {
	iface := &Interface{}
	help, _ := iface.Help(iface, nil)

	for _, s := range []string{"join", "<a> <b>", "# join arguments", "# always fails"} {
		if !strings.Contains(help, s) {
			t.Fatalf("help does not contain %q\n%s", s, help)
		}
	}
}

type testConn struct {
	io.Reader
	bytes.Buffer
}

func (c *testConn) Write(p []byte) (int, error) {
	return c.Buffer.Write(p)
}

func (c *testConn) Read(p []byte) (int, error) {
	return c.Reader.Read(p)
}

func TestStart(t *testing.T) {
	conn := &testConn{
		Reader: strings.NewReader("join x y\rbogus\rfail\rbye\rjoin z w\r"),
	}

	iface := &Interface{
		Banner:     "test banner",
		ReadWriter: conn,
	}

	iface.Start()

	out := conn.String()

	for _, s := range []string{"test banner", "x+y", "unknown command", "command error, failed"} {
		if !strings.Contains(out, s) {
			t.Fatalf("output does not contain %q\n%s", s, out)
		}
	}

	if strings.Contains(out, "z+w") {
		t.Fatal("command handled after session end")
	}
}
