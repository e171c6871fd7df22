//go:build linux

package toolchain

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ja7ad/fecbench/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755))
	return p
}

func quietRunner() *Runner {
	return &Runner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
}

func TestCodeShape(t *testing.T) {
	want := map[int][2]int{
		2: {3, 1}, 3: {7, 4}, 4: {15, 11}, 5: {31, 26},
		6: {63, 57}, 7: {127, 120}, 8: {255, 247}, 9: {511, 502},
	}
	for p, nk := range want {
		n, k, err := CodeShape(p)
		require.NoError(t, err)
		assert.Equal(t, nk[0], n, "p=%d", p)
		assert.Equal(t, nk[1], k, "p=%d", p)
	}
	for _, p := range []int{0, 1, 10, -3} {
		_, _, err := CodeShape(p)
		assert.ErrorIs(t, err, ErrParityRange)
	}
}

func TestParityTable(t *testing.T) {
	lines := ParityTable()
	require.Len(t, lines, 8)
	assert.Equal(t, "parity_bits=2 => Hamming 3,1", lines[0])
	assert.Equal(t, "parity_bits=9 => Hamming 511,502", lines[7])
}

func TestRunner_Run(t *testing.T) {
	dir := t.TempDir()

	t.Run("success_forwards_output", func(t *testing.T) {
		tool := writeScript(t, dir, "ok", "echo hello \"$@\"\n")
		var out bytes.Buffer
		r := &Runner{Stdout: &out, Stderr: &bytes.Buffer{}}
		require.NoError(t, r.Run(context.Background(), tool, "a", "b"))
		assert.Equal(t, "hello a b\n", out.String())
	})

	t.Run("nonzero_exit_is_fatal", func(t *testing.T) {
		tool := writeScript(t, dir, "bad", "exit 3\n")
		err := quietRunner().Run(context.Background(), tool)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrToolFailed)

		var exitErr *exec.ExitError
		require.True(t, errors.As(err, &exitErr))
		assert.Equal(t, 3, exitErr.ExitCode())
	})

	t.Run("missing_binary", func(t *testing.T) {
		err := quietRunner().Run(context.Background(), filepath.Join(dir, "nope"))
		assert.ErrorIs(t, err, ErrToolFailed)
	})
}

func TestTools_Contract(t *testing.T) {
	dir := t.TempDir()
	gen := writeScript(t, dir, "gen_file", `[ "$1" = --fs ] && [ "$3" = --out ] || exit 9
head -c "$2" /dev/zero > "$4"
`)
	codec := `[ "$1" = --pb ] && [ "$3" = --target ] && [ "$5" = --out ] || exit 9
echo "$2" > "$6.pb"
cp "$4" "$6"
`
	enc := writeScript(t, dir, "file2hamm", codec)
	dec := writeScript(t, dir, "hamm2file", codec)

	tools := &Tools{Generator: gen, Encoder: enc, Decoder: dec, Runner: quietRunner()}
	ctx := context.Background()

	src := filepath.Join(dir, "image.img")
	coded := filepath.Join(dir, "image.hamm")
	decoded := filepath.Join(dir, "decoded.img")

	require.NoError(t, tools.Generate(ctx, types.Bytes(512), src))
	fi, err := os.Stat(src)
	require.NoError(t, err)
	assert.Equal(t, int64(512), fi.Size())

	require.NoError(t, tools.Encode(ctx, 3, src, coded))
	require.NoError(t, tools.Decode(ctx, 3, coded, decoded))

	pb, err := os.ReadFile(coded + ".pb")
	require.NoError(t, err)
	assert.Equal(t, "3", strings.TrimSpace(string(pb)))

	assert.Equal(t, []string{enc, dec, gen}, tools.Binaries())
}

func TestDirectCompile(t *testing.T) {
	api := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(api, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(api, "src", "hamm.c"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(api, "src", "str.c"), nil, 0o644))

	work := t.TempDir()
	target := filepath.Join(work, "file2hamm")

	t.Run("missing_target_source", func(t *testing.T) {
		b := &DirectCompile{Compiler: "cc", APIDir: api, Targets: []string{target}}
		assert.ErrorIs(t, b.Check(), ErrMissingDescriptor)
	})

	t.Run("missing_api_dir", func(t *testing.T) {
		b := &DirectCompile{Compiler: "cc", APIDir: filepath.Join(api, "absent")}
		assert.ErrorIs(t, b.Build(context.Background(), quietRunner()), ErrMissingDescriptor)
	})

	t.Run("invokes_compiler", func(t *testing.T) {
		require.NoError(t, os.WriteFile(target+".c", nil, 0o644))
		log := filepath.Join(work, "cc.log")
		cc := writeScript(t, work, "fakecc", `echo "$@" > "`+log+`"
while [ $# -gt 0 ]; do
  if [ "$1" = -o ]; then : > "$2"; fi
  shift
done
`)
		b := &DirectCompile{Compiler: cc, APIDir: api, Targets: []string{target}}
		require.NoError(t, b.Build(context.Background(), quietRunner()))

		got, err := os.ReadFile(log)
		require.NoError(t, err)
		args := strings.Fields(string(got))
		assert.Equal(t, "-I"+filepath.Join(api, "include"), args[0])
		assert.Contains(t, args, "-O2")
		assert.Contains(t, args, "-Wall")
		assert.Contains(t, args, filepath.Join(api, "src", "hamm.c"))
		assert.Contains(t, args, filepath.Join(api, "src", "str.c"))
		assert.Equal(t, target+".c", args[len(args)-1])
		assert.FileExists(t, target)
	})

	t.Run("compiler_failure", func(t *testing.T) {
		cc := writeScript(t, work, "brokencc", "exit 1\n")
		b := &DirectCompile{Compiler: cc, APIDir: api, Targets: []string{target}}
		assert.ErrorIs(t, b.Build(context.Background(), quietRunner()), ErrToolFailed)
	})
}

func TestDescriptorBuild(t *testing.T) {
	dir := t.TempDir()
	work := t.TempDir()

	b := &DescriptorBuild{Tool: "make", Dir: dir}
	assert.ErrorIs(t, b.Check(), ErrMissingDescriptor, "no Makefile yet")
	assert.ErrorIs(t, (&DescriptorBuild{Dir: filepath.Join(dir, "x")}).Check(), ErrMissingDescriptor)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Makefile"), []byte("all:\n"), 0o644))
	require.NoError(t, b.Check())

	log := filepath.Join(work, "make.log")
	b.Tool = writeScript(t, work, "fakemake", `echo "$@" > "`+log+`"`+"\n")
	require.NoError(t, b.Build(context.Background(), quietRunner()))

	got, err := os.ReadFile(log)
	require.NoError(t, err)
	assert.Equal(t, "-C "+dir, strings.TrimSpace(string(got)))
}

func TestNewBuilder(t *testing.T) {
	b, err := NewBuilder("", "gcc", "..", []string{"a"})
	require.NoError(t, err)
	assert.IsType(t, &DirectCompile{}, b)

	b, err = NewBuilder(KindMake, "gcc", "/src", nil)
	require.NoError(t, err)
	assert.Equal(t, &DescriptorBuild{Tool: "make", Dir: "/src"}, b)

	_, err = NewBuilder("bazel", "", "", nil)
	assert.ErrorIs(t, err, ErrUnknownBuild)
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0o644))

	require.NoError(t, Remove(nil, a, filepath.Join(dir, "missing"), ""))
	assert.NoFileExists(t, a)
}
