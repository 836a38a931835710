package index

import (
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/dagaz/internal/frontmatter"
	"github.com/starford/dagaz/internal/storage"
)

// Engine reconciles the manifest against the actual set of document
// files on disk. Reconciliation, not a registration API, is the
// integration point: an external writer can drop a file into the
// documents directory and it appears in the index with inferred
// metadata on the next pass.
type Engine struct {
	store       storage.Provider
	manifest    *Manifest
	rules       []Rule
	defaultIcon string
	logger      *slog.Logger
	group       singleflight.Group
}

// NewEngine creates a sync engine. rules defaults to DefaultRules
// when nil.
func NewEngine(store storage.Provider, manifest *Manifest, rules []Rule, defaultIcon string, logger *slog.Logger) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:       store,
		manifest:    manifest,
		rules:       rules,
		defaultIcon: defaultIcon,
		logger:      logger,
	}
}

// Reconcile brings the manifest up to date with the on-disk file set:
// files without an entry gain a synthesized one, entries without a
// backing file are dropped, and the manifest is written only when
// something changed. Concurrent callers are collapsed into a single
// pass sharing one result.
func (e *Engine) Reconcile() ([]Entry, error) {
	v, err, _ := e.group.Do("reconcile", func() (any, error) {
		return e.reconcile()
	})
	if err != nil {
		return nil, err
	}
	return v.([]Entry), nil
}

func (e *Engine) reconcile() ([]Entry, error) {
	return e.manifest.Update(func(entries []Entry) ([]Entry, bool, error) {
		files, err := e.store.List()
		if err != nil {
			return nil, false, err
		}

		disk := make(map[string]struct{}, len(files))
		for _, name := range files {
			disk[name] = struct{}{}
		}
		known := make(map[string]struct{}, len(entries))
		for _, en := range entries {
			known[en.Filename] = struct{}{}
		}

		changed := false

		// Drop entries whose backing file is gone.
		kept := entries[:0]
		for _, en := range entries {
			if _, ok := disk[en.Filename]; !ok {
				e.logger.Debug("sync: removed stale entry", slog.String("filename", en.Filename))
				changed = true
				continue
			}
			kept = append(kept, en)
		}
		entries = kept

		// Synthesize entries for undiscovered files, prepending so the
		// most recently discovered documents list first.
		for _, name := range files {
			if _, ok := known[name]; ok {
				continue
			}
			en := e.synthesize(name)
			entries = append([]Entry{en}, entries...)
			changed = true
			e.logger.Debug("sync: discovered document",
				slog.String("filename", name),
				slog.String("title", en.Title),
				slog.String("category", en.Category))
		}

		return entries, changed, nil
	})
}

// synthesize builds an index entry for an undiscovered file. A read
// failure degrades to filename-derived defaults; discovery never
// fails wholesale because one file is unreadable.
func (e *Engine) synthesize(name string) Entry {
	var meta frontmatter.Meta
	var body string
	if data, err := e.store.Read(name); err == nil {
		meta, body = frontmatter.Parse(string(data))
	} else {
		e.logger.Warn("sync: read failed, using filename defaults",
			slog.String("filename", name),
			slog.String("error", err.Error()))
	}

	title := meta.Title
	if title == "" {
		title = frontmatter.FirstHeading(body)
	}
	if title == "" {
		title = titleFromFilename(name)
	}

	icon := meta.Icon
	if icon == "" {
		icon = e.defaultIcon
	}

	category := meta.Category
	if !ValidCategory(category) {
		category = Categorize(e.rules, title)
	}

	// Index timestamps track entry creation, not file mtimes.
	now := time.Now().UTC()
	return Entry{
		Filename:  name,
		Title:     title,
		Emoji:     icon,
		Category:  category,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// titleFromFilename derives a display title from a filename by
// stripping the extension and replacing separators with spaces.
func titleFromFilename(name string) string {
	base := strings.TrimSuffix(name, storage.DocExt)
	base = strings.ReplaceAll(base, "-", " ")
	base = strings.ReplaceAll(base, "_", " ")
	return strings.TrimSpace(base)
}
