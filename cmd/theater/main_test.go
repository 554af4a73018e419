package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCatalogPrintsDefaultScript(t *testing.T) {
	out, err := execute(t, "catalog")
	require.NoError(t, err)

	assert.Contains(t, out, "INTRODUCTION")
	assert.Contains(t, out, "welcome_intent")
	assert.Contains(t, out, "final_ending (end)")
	assert.Contains(t, out, "cannot be resolved")
}

func TestCatalogStrict(t *testing.T) {
	_, err := execute(t, "catalog", "--strict")
	assert.Error(t, err)
}

func TestCatalogFromFileWithMotions(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "script.yaml")
	require.NoError(t, os.WriteFile(script, []byte(`terminal_intent: bye
acts:
  - name: ONLY
    intents:
      - intent: bye
        gestures: [animations/Stand/Gestures/Yes_1]
`), 0o644))

	out, err := execute(t, "catalog", "--strict", "--catalog", script)
	require.NoError(t, err)
	assert.Contains(t, out, "1 intents, every gesture resolves")
}

func TestCatalogMissingFile(t *testing.T) {
	_, err := execute(t, "catalog", "--catalog", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestRunValidatesConfig(t *testing.T) {
	_, err := execute(t, "run", "--llm", "llama")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.provider")
}
