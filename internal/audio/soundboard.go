// internal/audio/soundboard.go
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"bishop-bot/internal/logging"

	log "github.com/sirupsen/logrus"
)

// DefaultCategories always exist, even when their directories are empty.
var DefaultCategories = []string{"Default", "Combat", "Ambience"}

var ErrTrackNotFound = errors.New("track not found")

var supportedExt = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".ogg":  true,
	".flac": true,
}

type Track struct {
	Name     string
	Category string
	Path     string
}

// Library indexes the audio files under root/<category>/.
type Library struct {
	root   string
	mu     sync.RWMutex
	tracks map[string][]Track
	log    *log.Entry
}

func NewLibrary(root string) *Library {
	return &Library{
		root:   root,
		tracks: make(map[string][]Track),
		log:    logging.Component("soundboard"),
	}
}

func (l *Library) Root() string { return l.root }

// Scan rebuilds the index from disk. Default category directories are
// created when missing; any other subdirectory becomes a category too.
func (l *Library) Scan() error {
	for _, c := range DefaultCategories {
		if err := os.MkdirAll(filepath.Join(l.root, c), 0o755); err != nil {
			return fmt.Errorf("create category %s: %w", c, err)
		}
	}

	entries, err := os.ReadDir(l.root)
	if err != nil {
		return fmt.Errorf("read soundboard %s: %w", l.root, err)
	}

	library := make(map[string][]Track)
	total := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		tracks, err := scanCategory(l.root, e.Name())
		if err != nil {
			l.log.WithError(err).Warnf("skipping category %s", e.Name())
			continue
		}
		library[e.Name()] = tracks
		total += len(tracks)
	}

	l.mu.Lock()
	l.tracks = library
	l.mu.Unlock()

	l.log.Infof("found %d sounds across %d categories", total, len(library))
	return nil
}

func scanCategory(root, category string) ([]Track, error) {
	dir := filepath.Join(root, category)
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	tracks := make([]Track, 0, len(files))
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.Name()))
		if f.IsDir() || !supportedExt[ext] {
			continue
		}
		tracks = append(tracks, Track{
			Name:     strings.TrimSuffix(f.Name(), filepath.Ext(f.Name())),
			Category: category,
			Path:     filepath.Join(dir, f.Name()),
		})
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Name < tracks[j].Name })
	return tracks, nil
}

// Categories returns the known categories, defaults first.
func (l *Library) Categories() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := append([]string(nil), DefaultCategories...)
	var extra []string
	for c := range l.tracks {
		if !isDefault(c) {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func (l *Library) Tracks(category string) []Track {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Track(nil), l.tracks[category]...)
}

// Find looks a track up by name within a category, ignoring case.
func (l *Library) Find(category, name string) (Track, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, t := range l.tracks[category] {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}
	return Track{}, fmt.Errorf("%w: %s/%s", ErrTrackNotFound, category, name)
}

// AddCustomSound copies src into the category directory as name plus the
// source extension and indexes it.
func (l *Library) AddCustomSound(name, src, category string) (Track, error) {
	if category == "" {
		category = "Default"
	}
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(category, "..") || strings.ContainsAny(category, `/\`) {
		return Track{}, fmt.Errorf("invalid sound name %q in category %q", name, category)
	}
	ext := strings.ToLower(filepath.Ext(src))
	if !supportedExt[ext] {
		return Track{}, fmt.Errorf("unsupported audio format %q", ext)
	}

	dir := filepath.Join(l.root, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Track{}, fmt.Errorf("create category %s: %w", category, err)
	}
	dest := filepath.Join(dir, name+ext)
	if err := copyFile(src, dest); err != nil {
		return Track{}, err
	}

	track := Track{Name: name, Category: category, Path: dest}
	l.mu.Lock()
	l.tracks[category] = append(l.tracks[category], track)
	l.mu.Unlock()

	l.log.Infof("added custom sound %s to category %s", name, category)
	return track, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open sound %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create sound %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy sound to %s: %w", dest, err)
	}
	return out.Close()
}

func isDefault(category string) bool {
	for _, c := range DefaultCategories {
		if c == category {
			return true
		}
	}
	return false
}
