package cli

import (
	"bytes"
	"path/filepath"
	"testing"
)

var (
	typedefsDir  = filepath.Join("..", "compiler", "testdata", "typedefs")
	bridgeConfig = filepath.Join("..", "bridge", "testdata", "bridge.yaml")
	snapshotFile = filepath.Join("..", "bridge", "testdata", "snapshot.json")
	feedFile     = filepath.Join("..", "bridge", "testdata", "feed.jsonl")
	probeConfig  = filepath.Join("testdata", "probe.yaml")
)

// execute runs the root command with args and returns what it wrote to
// stdout and stderr.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, diag bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&diag)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), diag.String(), err
}
