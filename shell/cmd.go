// Copyright (c) The pi-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package shell

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"text/tabwriter"
)

// CmdFn represents a command handler.
type CmdFn func(iface *Interface, arg []string) (res string, err error)

// Cmd represents a shell command.
type Cmd struct {
	// Name represents the command name, matched against the whole line
	// when Pattern is nil.
	Name string
	// Args represents the number of Pattern submatches passed to Fn.
	Args int
	// Pattern represents the command line regular expression.
	Pattern *regexp.Regexp
	// Syntax represents the arguments synopsis.
	Syntax string
	// Help represents the command description.
	Help string
	// Fn represents the command handler.
	Fn CmdFn
}

var (
	mux  sync.RWMutex
	cmds = make(map[string]*Cmd)
)

// Add registers a terminal command, a command with the same name is
// replaced.
func Add(cmd Cmd) {
	mux.Lock()
	defer mux.Unlock()

	cmds[cmd.Name] = &cmd
}

// list returns all registered commands sorted by name.
func list() (l []*Cmd) {
	mux.RLock()
	defer mux.RUnlock()

	for _, cmd := range cmds {
		l = append(l, cmd)
	}

	sort.Slice(l, func(i, j int) bool {
		return l[i].Name < l[j].Name
	})

	return
}

// Help returns the help for all registered commands.
func Help(_ *Interface, _ []string) (string, error) {
	var buf bytes.Buffer

	t := tabwriter.NewWriter(&buf, 16, 8, 0, '\t', tabwriter.TabIndent)

	for _, cmd := range list() {
		_, _ = fmt.Fprintf(t, "%s\t%s\t # %s\n", cmd.Name, cmd.Syntax, cmd.Help)
	}

	_ = t.Flush()

	return buf.String(), nil
}
