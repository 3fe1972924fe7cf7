package plugins

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePlugin(t *testing.T, dir, name, code string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(code), 0644))
	return path
}

const helloPlugin = `
PREFIX = "hello"
DESCRIPTION = "Say hello"

function main(args)
  print("hello", table.concat(args, ","))
  return #args
end
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, "hello.lua", helloPlugin)
	writePlugin(t, dir, "broken.lua", `PREFIX = "broken" function main(`)
	writePlugin(t, dir, "nomain.lua", `PREFIX = "nomain"`)
	writePlugin(t, dir, "noprefix.lua", `function main(args) end`)
	writePlugin(t, dir, "reserved.lua", `PREFIX = "list" function main(args) end`)
	writePlugin(t, dir, "zz-dup.lua", `PREFIX = "hello" function main(args) end`)
	writePlugin(t, dir, "notes.txt", `PREFIX = "txt" function main(args) end`)

	reserved := func(name string) bool { return name == "list" }
	plugins, err := Load(dir, reserved, nil)
	require.NoError(t, err)

	require.Len(t, plugins, 1)
	assert.Equal(t, "hello", plugins[0].Prefix)
	assert.Equal(t, "Say hello", plugins[0].Description)
	assert.Equal(t, filepath.Join(dir, "hello.lua"), plugins[0].Path)
}

func TestLoad_MissingDir(t *testing.T) {
	plugins, err := Load(filepath.Join(t.TempDir(), "none"), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, plugins)
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"syntax.lua":     `PREFIX = `,
		"runtime.lua":    `error("boom")`,
		"badprefix.lua":  `PREFIX = "two words" function main() end`,
		"flagprefix.lua": `PREFIX = "-x" function main() end`,
		"numprefix.lua":  `PREFIX = 3 function main() end`,
		"mainvalue.lua":  `PREFIX = "x" main = 1`,
	}
	for name, code := range tests {
		path := writePlugin(t, dir, name, code)
		_, err := LoadFile(path)
		assert.ErrorIs(t, err, ErrInvalid, name)
	}
}

func TestRun(t *testing.T) {
	path := writePlugin(t, t.TempDir(), "hello.lua", helloPlugin)
	p, err := LoadFile(path)
	require.NoError(t, err)

	var out bytes.Buffer
	code, err := p.Run(context.Background(), []string{"a", "b"}, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, code)
	assert.Equal(t, "hello\ta,b\n", out.String())
}

func TestRun_Error(t *testing.T) {
	path := writePlugin(t, t.TempDir(), "fail.lua", `
PREFIX = "fail"
function main(args)
  error("something went wrong")
end
`)
	p, err := LoadFile(path)
	require.NoError(t, err)

	code, err := p.Run(context.Background(), nil, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, 1, code)
	assert.Contains(t, err.Error(), "something went wrong")
}

func TestRun_Sandboxed(t *testing.T) {
	tests := []struct {
		name string
		call string
	}{
		{"os.execute", `os.execute("ls")`},
		{"io.open", `io.open("/etc/passwd")`},
		{"require", `require("socket")`},
		{"dofile", `dofile("/tmp/evil.lua")`},
		{"loadstring", `loadstring("return 1")()`},
		{"debug", `debug.getinfo(1)`},
	}

	dir := t.TempDir()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := "PREFIX = \"probe\"\nfunction main(args)\n  " + tt.call + "\nend\n"
			path := writePlugin(t, dir, strings.ReplaceAll(tt.name, ".", "_")+".lua", code)
			p, err := LoadFile(path)
			require.NoError(t, err)

			_, err = p.Run(context.Background(), nil, &bytes.Buffer{})
			assert.Error(t, err)
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	path := writePlugin(t, t.TempDir(), "loop.lua", `
PREFIX = "loop"
function main(args)
  while true do end
end
`)
	p, err := LoadFile(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Run(ctx, nil, &bytes.Buffer{})
	assert.Error(t, err)
}
