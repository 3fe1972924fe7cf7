// Package plugins loads Lua scripts that add subcommands to mons.
//
// A plugin is a *.lua file defining a string PREFIX, the subcommand name,
// and a function main(args). An optional DESCRIPTION string is used as the
// command's short help. main receives the remaining command line as a
// table of strings and may return an exit code. Scripts run in a VM without
// the os, io, package and debug libraries.
package plugins

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// ErrInvalid is wrapped by errors for scripts that are not plugins.
var ErrInvalid = errors.New("invalid plugin")

// Plugin is a loaded plugin script.
type Plugin struct {
	Prefix      string
	Description string
	Path        string

	proto *lua.FunctionProto
}

// Load compiles every *.lua file in dir. Scripts that fail to compile or do
// not define PREFIX and main are skipped with a warning, as are prefixes for
// which reserved returns true and prefixes already taken by an earlier file.
// A missing dir yields no plugins.
func Load(dir string, reserved func(string) bool, logger *slog.Logger) ([]*Plugin, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read plugin directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	seen := make(map[string]string)
	var out []*Plugin
	for _, name := range names {
		path := filepath.Join(dir, name)
		p, err := LoadFile(path)
		if err != nil {
			logger.Warn("plugin not loaded", "path", path, "error", err)
			continue
		}
		if reserved != nil && reserved(p.Prefix) {
			logger.Warn("plugin not loaded: command name is taken", "path", path, "prefix", p.Prefix)
			continue
		}
		if prev, ok := seen[p.Prefix]; ok {
			logger.Warn("plugin not loaded: duplicate prefix", "path", path, "prefix", p.Prefix, "first", prev)
			continue
		}
		seen[p.Prefix] = path
		out = append(out, p)
	}
	return out, nil
}

// LoadFile compiles one plugin script and reads its PREFIX and
// DESCRIPTION.
func LoadFile(path string) (*Plugin, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return compile(f, path)
}

func compile(r io.Reader, name string) (*Plugin, error) {
	chunk, err := parse.Parse(r, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	L := newVM(io.Discard)
	defer L.Close()

	if err := exec(L, proto); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	prefix, ok := L.GetGlobal("PREFIX").(lua.LString)
	if !ok || strings.TrimSpace(string(prefix)) == "" {
		return nil, fmt.Errorf("%w: PREFIX must be a non-empty string", ErrInvalid)
	}
	if strings.ContainsAny(string(prefix), " \t\n") || strings.HasPrefix(string(prefix), "-") {
		return nil, fmt.Errorf("%w: PREFIX %q is not a valid command name", ErrInvalid, string(prefix))
	}
	if L.GetGlobal("main").Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: main must be a function", ErrInvalid)
	}

	p := &Plugin{Prefix: string(prefix), Path: name, proto: proto}
	if desc, ok := L.GetGlobal("DESCRIPTION").(lua.LString); ok {
		p.Description = string(desc)
	}
	return p, nil
}

func exec(L *lua.LState, proto *lua.FunctionProto) error {
	L.Push(L.NewFunctionFromProto(proto))
	return L.PCall(0, lua.MultRet, nil)
}

// Run executes the plugin's main with args in a fresh VM, writing print
// output to out. The exit code is main's numeric return value, or 0.
func (p *Plugin) Run(ctx context.Context, args []string, out io.Writer) (int, error) {
	L := newVM(out)
	defer L.Close()
	L.SetContext(ctx)

	if err := exec(L, p.proto); err != nil {
		return 1, fmt.Errorf("plugin %s: %w", p.Prefix, err)
	}

	tbl := L.NewTable()
	for _, a := range args {
		tbl.Append(lua.LString(a))
	}

	err := L.CallByParam(lua.P{
		Fn:      L.GetGlobal("main"),
		NRet:    1,
		Protect: true,
	}, tbl)
	if err != nil {
		return 1, fmt.Errorf("plugin %s: %w", p.Prefix, err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	if n, ok := ret.(lua.LNumber); ok {
		return int(n), nil
	}
	return 0, nil
}
