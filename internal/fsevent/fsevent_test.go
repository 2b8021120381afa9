package fsevent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	present := func(string) bool { return true }
	gone := func(string) bool { return false }

	tests := []struct {
		name   string
		op     fsnotify.Op
		exists ExistsFunc
		want   Kind
		ok     bool
	}{
		{"create", fsnotify.Create, present, Added, true},
		{"write", fsnotify.Write, present, Changed, true},
		{"remove", fsnotify.Remove, gone, Deleted, true},
		{"rename still present", fsnotify.Rename, present, Renamed, true},
		{"rename gone", fsnotify.Rename, gone, Deleted, true},
		{"create and write", fsnotify.Create | fsnotify.Write, present, Added, true},
		{"write and remove", fsnotify.Write | fsnotify.Remove, gone, Deleted, true},
		{"chmod", fsnotify.Chmod, present, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := Classify(fsnotify.Event{Name: "app/a/b.png", Op: tt.op}, tt.exists)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.want, ev.Kind)
			assert.Equal(t, "app/a/b.png", ev.Path)
		})
	}
}

func TestClassifyDefaultsToDisk(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "x.txt")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))

	ev, ok := Classify(fsnotify.Event{Name: p, Op: fsnotify.Rename}, nil)
	require.True(t, ok)
	assert.Equal(t, Renamed, ev.Kind)

	ev, ok = Classify(fsnotify.Event{Name: filepath.Join(dir, "missing"), Op: fsnotify.Rename}, nil)
	require.True(t, ok)
	assert.Equal(t, Deleted, ev.Kind)
}

func TestKindLabels(t *testing.T) {
	assert.Equal(t, "MODIFY", Changed.Tag())
	assert.Equal(t, "ADDED", Added.Tag())
	assert.Equal(t, "deleted", Deleted.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
