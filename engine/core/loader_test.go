package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ResolvePath(t *testing.T) {
	t.Run("Should resolve relative path using cwd when provided", func(t *testing.T) {
		dir := t.TempDir()
		f := filepath.Join(dir, "a.yaml")
		require.NoError(t, os.WriteFile(f, []byte("k: v"), 0o644))
		c, err := CWDFromPath(dir)
		require.NoError(t, err)
		p, err := ResolvePath(c, "a.yaml")
		require.NoError(t, err)
		assert.Equal(t, f, p)
	})
	t.Run("Should resolve absolute path without cwd", func(t *testing.T) {
		dir := t.TempDir()
		f := filepath.Join(dir, "b.yaml")
		require.NoError(t, os.WriteFile(f, []byte("k: v"), 0o644))
		p, err := ResolvePath(nil, f)
		require.NoError(t, err)
		pEval, err := filepath.EvalSymlinks(p)
		require.NoError(t, err)
		fEval, err := filepath.EvalSymlinks(f)
		require.NoError(t, err)
		assert.Equal(t, fEval, pEval)
	})
	t.Run("Should reject empty path", func(t *testing.T) {
		_, err := ResolvePath(nil, "")
		require.Error(t, err)
	})
}

func Test_MapFromFilePath(t *testing.T) {
	t.Run("Should read YAML file as map", func(t *testing.T) {
		dir := t.TempDir()
		p := filepath.Join(dir, "c.yaml")
		require.NoError(t, os.WriteFile(p, []byte("x: 1\ny: foo\n"), 0o644))
		m, err := MapFromFilePath(p)
		require.NoError(t, err)
		assert.Equal(t, 1, m["x"])
		assert.Equal(t, "foo", m["y"])
	})
}

func Test_LoadYAML(t *testing.T) {
	type doc struct {
		Name string `yaml:"name"`
	}
	t.Run("Should decode a typed document", func(t *testing.T) {
		dir := t.TempDir()
		p := filepath.Join(dir, "d.yaml")
		require.NoError(t, os.WriteFile(p, []byte("name: hello\n"), 0o644))
		d, err := LoadYAML[doc](p)
		require.NoError(t, err)
		assert.Equal(t, "hello", d.Name)
	})
	t.Run("Should reject directive keys", func(t *testing.T) {
		dir := t.TempDir()
		p := filepath.Join(dir, "e.yaml")
		require.NoError(t, os.WriteFile(p, []byte("$ref: foo\n"), 0o644))
		_, err := LoadYAML[doc](p)
		require.Error(t, err)
	})
}
