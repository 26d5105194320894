package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0o644))
}

func TestScanCreatesDefaultCategories(t *testing.T) {
	root := filepath.Join(t.TempDir(), "soundboard")
	lib := NewLibrary(root)

	require.NoError(t, lib.Scan())
	for _, c := range DefaultCategories {
		assert.DirExists(t, filepath.Join(root, c))
		assert.Empty(t, lib.Tracks(c))
	}
	assert.Equal(t, DefaultCategories, lib.Categories())
}

func TestScanIndexesSupportedFiles(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "Combat", "sword.MP3"))
	touch(t, filepath.Join(root, "Combat", "arrow.ogg"))
	touch(t, filepath.Join(root, "Combat", "notes.txt"))
	touch(t, filepath.Join(root, "Tavern", "lute.flac"))

	lib := NewLibrary(root)
	require.NoError(t, lib.Scan())

	combat := lib.Tracks("Combat")
	require.Len(t, combat, 2)
	assert.Equal(t, "arrow", combat[0].Name)
	assert.Equal(t, "sword", combat[1].Name)
	assert.Equal(t, filepath.Join(root, "Combat", "sword.MP3"), combat[1].Path)

	assert.Equal(t, []string{"Default", "Combat", "Ambience", "Tavern"}, lib.Categories())
}

func TestFindIgnoresCase(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "Ambience", "Rain.wav"))
	lib := NewLibrary(root)
	require.NoError(t, lib.Scan())

	track, err := lib.Find("Ambience", "rain")
	require.NoError(t, err)
	assert.Equal(t, "Rain", track.Name)

	_, err = lib.Find("Default", "rain")
	assert.ErrorIs(t, err, ErrTrackNotFound)
}

func TestAddCustomSound(t *testing.T) {
	root := t.TempDir()
	lib := NewLibrary(root)
	require.NoError(t, lib.Scan())

	src := filepath.Join(t.TempDir(), "upload.wav")
	touch(t, src)

	track, err := lib.AddCustomSound("door creak", src, "")
	require.NoError(t, err)
	assert.Equal(t, "Default", track.Category)
	assert.Equal(t, filepath.Join(root, "Default", "door creak.wav"), track.Path)
	assert.FileExists(t, track.Path)

	found, err := lib.Find("Default", "Door Creak")
	require.NoError(t, err)
	assert.Equal(t, track, found)

	// survives a rescan
	require.NoError(t, lib.Scan())
	_, err = lib.Find("Default", "door creak")
	assert.NoError(t, err)
}

func TestAddCustomSoundRejectsBadInput(t *testing.T) {
	lib := NewLibrary(t.TempDir())
	src := filepath.Join(t.TempDir(), "upload.wav")
	touch(t, src)
	txt := filepath.Join(t.TempDir(), "readme.txt")
	touch(t, txt)

	_, err := lib.AddCustomSound("", src, "Default")
	assert.Error(t, err)
	_, err = lib.AddCustomSound("x", src, "../escape")
	assert.Error(t, err)
	_, err = lib.AddCustomSound("x", txt, "Default")
	assert.Error(t, err)
	_, err = lib.AddCustomSound("x", filepath.Join(t.TempDir(), "missing.wav"), "Default")
	assert.Error(t, err)
}
