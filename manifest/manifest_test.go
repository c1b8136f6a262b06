// manifest/manifest_test.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package manifest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"testing/fstest"
)

func sha(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"textures/wall.png":     {Data: []byte("bricks")},
		"textures/wall@2x.png":  {Data: []byte("bigger bricks")},
		"sounds/boom.wav":       {Data: []byte("boom")},
		"sounds/.DS_Store":      {Data: []byte("junk")},
		"maps/level1.json~":     {Data: []byte("backup")},
		"maps/#level1.json#":    {Data: []byte("autosave")},
		"maps/level1.json":      {Data: []byte("{}")},
		".git/config":           {Data: []byte("[core]")},
		"manifest.json":         {Data: []byte("{}")},
		"textures/dup-wall.png": {Data: []byte("bricks")},
	}
}

func TestIsTemporaryFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"a/.hidden", true},
		{"#autosave#", true},
		{"file.txt~", true},
		{"dir/file.txt", false},
		{"#notclosed", false},
		{`dir\.hidden`, true},
		{`dir\#autosave#`, true},
		{`.git\config`, false},
	}
	for _, tt := range tests {
		if got := IsTemporaryFile(tt.name); got != tt.want {
			t.Errorf("IsTemporaryFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestBuild(t *testing.T) {
	m, err := Build(context.Background(), testFS(), 3)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"maps/level1.json", "sounds/boom.wav", "textures/dup-wall.png", "textures/wall.png", "textures/wall@2x.png"}
	if got := m.Paths(); !slices.Equal(got, want) {
		t.Errorf("Paths() = %v, want %v", got, want)
	}

	e, ok := m.Lookup("textures/wall.png")
	if !ok || e.Hash != sha("bricks") || e.Size != 6 {
		t.Errorf("Lookup(wall.png) = %+v, %v", e, ok)
	}
	if len(m.Hashes()) != 4 {
		t.Errorf("Hashes() has %d entries, want 4 (duplicate contents share a blob)", len(m.Hashes()))
	}
	if n := m.TotalSize(); n != int64(len("bricks")*2+len("bigger bricks")+len("boom")+len("{}")) {
		t.Errorf("TotalSize() = %d", n)
	}
}

func TestVerify(t *testing.T) {
	fsys := testFS()
	m, err := Build(context.Background(), fsys, 1)
	if err != nil {
		t.Fatal(err)
	}

	rep, err := m.Verify(fsys)
	if err != nil || !rep.OK() {
		t.Fatalf("Verify on unchanged tree = %+v, %v", rep, err)
	}

	delete(fsys, "sounds/boom.wav")
	fsys["maps/level1.json"] = &fstest.MapFile{Data: []byte(`{"changed":true}`)}

	rep, err = m.Verify(fsys)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(rep.Missing, []string{"sounds/boom.wav"}) {
		t.Errorf("Missing = %v", rep.Missing)
	}
	if !slices.Equal(rep.Mismatched, []string{"maps/level1.json"}) {
		t.Errorf("Mismatched = %v", rep.Mismatched)
	}
}

func TestSaveLoad(t *testing.T) {
	m, err := Build(context.Background(), testFS(), 2)
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{Filename, CompactFilename} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := m.Save(&buf, name); err != nil {
				t.Fatal(err)
			}
			if name == Filename && !strings.Contains(buf.String(), `"hash": "`+sha("boom")+`"`) {
				t.Errorf("JSON manifest missing expected hash:\n%s", buf.String())
			}

			loaded, err := Load(&buf, name)
			if err != nil {
				t.Fatal(err)
			}
			if !loaded.Equal(m) {
				t.Errorf("loaded manifest differs from saved one")
			}
		})
	}
}

func TestSaveFile(t *testing.T) {
	m := New()
	m.Set("a.txt", Entry{Hash: sha("a"), Size: 1})

	fn := filepath.Join(t.TempDir(), CompactFilename)
	if err := m.SaveFile(fn); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.Equal(m) {
		t.Errorf("LoadFile returned %v", loaded.Paths())
	}
}

func TestLoadNull(t *testing.T) {
	m, err := Load(strings.NewReader("null"), Filename)
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
	m.Set("a.txt", Entry{Hash: sha("a"), Size: 1})
	if e, ok := m.Lookup("a.txt"); !ok || e.Size != 1 {
		t.Errorf("Lookup after Set = %v, %v", e, ok)
	}
}

func TestLoadRejectsBadPaths(t *testing.T) {
	for _, doc := range []string{
		`{"/etc/passwd": {"hash": "x", "size": 1}}`,
		`{"../up.txt": {"hash": "x", "size": 1}}`,
		`{".": {"hash": "x", "size": 1}}`,
		`not json`,
	} {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("Parse(%s) succeeded", doc)
		}
	}
}
