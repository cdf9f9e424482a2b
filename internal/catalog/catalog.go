// Package catalog indexes a directory tree of VGM and GEP files into a
// System -> Game -> Track hierarchy, reading only each file's header and
// (for VGM) its GD3 tag rather than the full opcode stream.
package catalog

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dewi-tim/genesisplay/internal/gep"
	"github.com/dewi-tim/genesisplay/internal/source"
	"github.com/dewi-tim/genesisplay/internal/vgm"
)

// Format identifies which interpreter a cataloged Track needs.
type Format int

const (
	FormatVGM Format = iota
	FormatGEP
)

func (f Format) String() string {
	if f == FormatGEP {
		return "GEP"
	}
	return "VGM"
}

var fileExtensions = []string{".vgm", ".vgz", ".gep"}

// Track is one indexed file, carrying just enough metadata to list,
// group, and later open it for playback.
type Track struct {
	Path         string
	Format       Format
	Title        string
	Game         string
	System       string
	Composer     string
	TotalSamples uint32
	HasLoop      bool
}

// Game groups tracks that share the same game name: the GD3 game title
// when the file carries one, otherwise the immediate parent directory,
// mirroring how music-archive dumps are usually laid out on disk (one
// directory per game/album).
type Game struct {
	Name   string
	System string
	Tracks []Track
}

// Catalog is an indexed tree of tracks, safe for concurrent reads while
// a rescan is in progress.
type Catalog struct {
	mu      sync.RWMutex
	root    string
	systems map[string]map[string]*Game // system name -> game name -> Game
	tracks  []Track
	log     *slog.Logger
}

// New creates an empty Catalog rooted at dir. log may be nil.
func New(dir string, log *slog.Logger) *Catalog {
	if log == nil {
		log = slog.Default()
	}
	return &Catalog{root: dir, systems: make(map[string]map[string]*Game), log: log}
}

func (c *Catalog) Root() string { return c.root }

// Scan walks the root directory, reads each candidate file's header (and
// GD3 tag, for VGM), and rebuilds the index. Files that fail to parse
// are logged and skipped rather than aborting the whole scan. It returns
// the number of tracks indexed.
func (c *Catalog) Scan() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.systems = make(map[string]map[string]*Game)
	c.tracks = c.tracks[:0]

	err := filepath.Walk(c.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !hasCatalogExtension(info.Name()) {
			return nil
		}
		track, readErr := c.readTrack(path)
		if readErr != nil {
			c.log.Warn("skipping unreadable track", slog.String("path", path), slog.Any("err", readErr))
			return nil
		}
		c.tracks = append(c.tracks, track)
		c.addTrack(track)
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, games := range c.systems {
		for _, g := range games {
			sort.Slice(g.Tracks, func(i, j int) bool { return g.Tracks[i].Title < g.Tracks[j].Title })
		}
	}
	return len(c.tracks), nil
}

func (c *Catalog) readTrack(path string) (Track, error) {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".gep") {
		return readGEPTrack(path)
	}
	return readVGMTrack(path)
}

func readVGMTrack(path string) (Track, error) {
	var src source.Source
	if strings.HasSuffix(strings.ToLower(path), ".vgz") {
		src = source.NewGzipStreamSource(path, nil)
	} else {
		src = source.NewFileSource(path)
	}
	if err := src.Open(); err != nil {
		return Track{}, err
	}
	defer src.Close()

	h, err := vgm.ParseHeader(src)
	if err != nil {
		return Track{}, err
	}
	track := Track{
		Path:         path,
		Format:       FormatVGM,
		TotalSamples: h.TotalSamples,
		HasLoop:      h.HasLoop(),
	}
	if meta, gd3Err := vgm.ParseGD3(src, h); gd3Err == nil {
		track.Title = meta.TitleEn
		track.Game = meta.GameEn
		track.System = meta.SystemEn
		track.Composer = meta.ComposerEn
	}
	fillDefaults(&track, path)
	return track, nil
}

func readGEPTrack(path string) (Track, error) {
	src := source.NewFileSource(path)
	if err := src.Open(); err != nil {
		return Track{}, err
	}
	defer src.Close()

	h, err := gep.ParseHeader(src)
	if err != nil {
		return Track{}, err
	}
	track := Track{
		Path:         path,
		Format:       FormatGEP,
		TotalSamples: h.TotalSamples,
		HasLoop:      h.HasLoop(),
	}
	fillDefaults(&track, path)
	return track, nil
}

func fillDefaults(track *Track, path string) {
	if track.Title == "" {
		track.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if track.Game == "" {
		track.Game = filepath.Base(filepath.Dir(path))
	}
	if track.System == "" {
		track.System = "Unknown"
	}
}

func (c *Catalog) addTrack(track Track) {
	games, ok := c.systems[track.System]
	if !ok {
		games = make(map[string]*Game)
		c.systems[track.System] = games
	}
	g, ok := games[track.Game]
	if !ok {
		g = &Game{Name: track.Game, System: track.System}
		games[track.Game] = g
	}
	g.Tracks = append(g.Tracks, track)
}

// Systems returns a sorted list of indexed system names.
func (c *Catalog) Systems() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.systems))
	for name := range c.systems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Games returns a sorted list of game names under a system.
func (c *Catalog) Games(system string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	games, ok := c.systems[system]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(games))
	for name := range games {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetGame returns a game by system and game name, or nil if not found.
func (c *Catalog) GetGame(system, game string) *Game {
	c.mu.RLock()
	defer c.mu.RUnlock()

	games, ok := c.systems[system]
	if !ok {
		return nil
	}
	return games[game]
}

// AllTracks returns every indexed track.
func (c *Catalog) AllTracks() []Track {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]Track, len(c.tracks))
	copy(result, c.tracks)
	return result
}

// TrackCount returns the number of indexed tracks.
func (c *Catalog) TrackCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tracks)
}

func hasCatalogExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range fileExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
