// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package shell

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"text/tabwriter"
)

// CmdFn represents a command handler.
type CmdFn func(iface *Interface, arg []string) (res string, err error)

// Cmd represents a shell command.
type Cmd struct {
	// Name represents the command name, matched in full when Pattern is
	// not set.
	Name string
	// Args represents the number of Pattern submatches expected.
	Args int
	// Pattern represents the command matching expression, its
	// submatches are passed as arguments to Fn.
	Pattern *regexp.Regexp
	// Syntax represents the arguments syntax for help purposes.
	Syntax string
	// Help represents the command description.
	Help string
	// Fn represents the command handler.
	Fn CmdFn
}

var cmds = make(map[string]*Cmd)

// Add registers a terminal interface command, a command with the same name
// is replaced.
func Add(cmd Cmd) {
	cmds[cmd.Name] = &cmd
}

// Help returns a formatted string with instructions for all registered
// commands.
func (iface *Interface) Help(_ *Interface, _ []string) (res string, _ error) {
	var names []string
	var buf bytes.Buffer

	for name := range cmds {
		names = append(names, name)
	}

	sort.Strings(names)

	t := tabwriter.NewWriter(&buf, 16, 8, 0, '\t', tabwriter.TabIndent)

	for _, name := range names {
		fmt.Fprintf(t, "%s\t%s\t # %s\n", cmds[name].Name, cmds[name].Syntax, cmds[name].Help)
	}

	t.Flush()

	return buf.String(), nil
}
