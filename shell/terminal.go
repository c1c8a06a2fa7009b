// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package shell implements a terminal console handler for user defined
// commands.
package shell

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sort"

	"golang.org/x/term"
)

// ErrUnknownCommand is returned for lines matching no registered command.
var ErrUnknownCommand = errors.New("unknown command, type `help`")

// Interface represents a terminal interface.
type Interface struct {
	// Banner represents the welcome message
	Banner string

	// ReadWriter represents the terminal connection
	ReadWriter io.ReadWriter

	// VT100 enables the terminal coloured prompt
	VT100 bool
}

func match(line string) (cmd *Cmd, arg []string) {
	var names []string

	for name := range cmds {
		names = append(names, name)
	}

	// deterministic precedence among overlapping patterns
	sort.Strings(names)

	for _, name := range names {
		c := cmds[name]

		if c.Pattern == nil {
			if c.Name == line {
				return c, nil
			}
		} else if m := c.Pattern.FindStringSubmatch(line); len(m) > 0 && (len(m)-1 == c.Args) {
			return c, m[1:]
		}
	}

	return
}

func (iface *Interface) handleLine(line string, w io.Writer) (err error) {
	var res string

	cmd, arg := match(line)

	if cmd == nil {
		return ErrUnknownCommand
	}

	if res, err = cmd.Fn(iface, arg); err != nil {
		return
	}

	if len(res) > 0 {
		fmt.Fprintln(w, res)
	}

	return
}

func (iface *Interface) readLine(t *term.Terminal, w io.Writer) error {
	s, err := t.ReadLine()

	if err == io.EOF {
		return err
	}

	if err != nil {
		log.Printf("readline error, %v", err)
		return nil
	}

	if len(s) == 0 {
		return nil
	}

	if err = iface.handleLine(s, w); err != nil {
		if err == io.EOF {
			return err
		}

		fmt.Fprintf(w, "command error, %v\n", err)
		return nil
	}

	return nil
}

// Start handles registered commands over the interface ReadWriter, until a
// command returns io.EOF or the connection is closed.
func (iface *Interface) Start() {
	var w io.Writer

	Add(Cmd{
		Name: "help",
		Help: "this help",
		Fn:   iface.Help,
	})

	t := term.NewTerminal(iface.ReadWriter, "> ")
	w = iface.ReadWriter

	if iface.VT100 {
		t.SetPrompt(string(t.Escape.Red) + "> " + string(t.Escape.Reset))
		w = t
	}

	help, _ := iface.Help(iface, nil)

	fmt.Fprintf(t, "\n%s\n\n", iface.Banner)
	fmt.Fprintf(t, "%s\n", help)

	for {
		if err := iface.readLine(t, w); err != nil {
			return
		}
	}
}
