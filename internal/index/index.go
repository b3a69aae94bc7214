// Package index implements the on-disk mirror of the upstream Zig
// download index described in spec.md §4.2: TTL-governed caching,
// forced refresh, and per-VersionSpec lookup.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/zv-tools/zv/internal/errs"
	"github.com/zv-tools/zv/internal/httpclient"
	"github.com/zv-tools/zv/internal/logx"
	"github.com/zv-tools/zv/internal/verspec"
)

// IndexURL is the upstream download index, per spec.md §6.
const IndexURL = "https://ziglang.org/download/index.json"

// Asset is one target's download entry for a version.
type Asset struct {
	Tarball string `json:"tarball"`
	Shasum  string `json:"shasum"`
	Size    int64  `json:"size"`
}

// Entry is a per-version record: for master, Version holds the dev
// string; for released versions it mirrors the key.
type Entry struct {
	Version string           `json:"version"`
	Date    string           `json:"date,omitempty"`
	Docs    string           `json:"docs,omitempty"`
	Notes   string           `json:"notes,omitempty"`
	Assets  map[string]Asset `json:"-"`
}

// rawEntry mirrors the upstream JSON shape, where each target triple
// is a sibling key alongside "version"/"date"/etc. rather than nested
// under an "assets" key.
type rawEntry map[string]json.RawMessage

// Index is the parsed index.json document: a map from version key
// ("0.13.0", "master", ...) to its Entry.
type Index struct {
	Entries map[string]Entry

	// Stale is true when this Index was loaded from a cache file older
	// than the TTL, or when no cache file exists at all.
	Stale bool
}

// Cache manages index.json under a ZV_DIR.
type Cache struct {
	Dir    string
	TTL    time.Duration
	Client *retryablehttp.Client
}

// New returns a Cache rooted at dir.
func New(dir string, ttl time.Duration, timeout time.Duration) *Cache {
	return &Cache{Dir: dir, TTL: ttl, Client: httpclient.New(timeout)}
}

func (c *Cache) path() string {
	return filepath.Join(c.Dir, "index.json")
}

// Load reads index.json. Per spec.md §4.2, reads never fail the
// caller: a missing file, a stale file, or a parse error all yield a
// stale/empty Index plus (for parse errors) a logged warning.
func (c *Cache) Load() Index {
	info, err := os.Stat(c.path())
	if err != nil {
		return Index{Entries: map[string]Entry{}, Stale: true}
	}

	stale := time.Since(info.ModTime()) > c.TTL

	data, err := os.ReadFile(c.path())
	if err != nil {
		return Index{Entries: map[string]Entry{}, Stale: true}
	}

	entries, err := parseIndex(data)
	if err != nil {
		logx.L().Warn("failed to parse cached index.json, treating as empty", zap.Error(err))
		return Index{Entries: map[string]Entry{}, Stale: true}
	}

	return Index{Entries: entries, Stale: stale}
}

func parseIndex(data []byte) (map[string]Entry, error) {
	var raw map[string]rawEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	entries := make(map[string]Entry, len(raw))
	for key, fields := range raw {
		entry := Entry{Assets: map[string]Asset{}}
		for field, value := range fields {
			switch field {
			case "version":
				_ = json.Unmarshal(value, &entry.Version)
			case "date":
				_ = json.Unmarshal(value, &entry.Date)
			case "docs":
				_ = json.Unmarshal(value, &entry.Docs)
			case "notes":
				_ = json.Unmarshal(value, &entry.Notes)
			default:
				var asset Asset
				if err := json.Unmarshal(value, &asset); err == nil && asset.Tarball != "" {
					entry.Assets[field] = asset
				}
			}
		}
		if entry.Version == "" {
			entry.Version = key
		}
		entries[key] = entry
	}
	return entries, nil
}

// Refresh fetches index.json from the network and atomically replaces
// the cache file (write-to-temp + rename). On failure, the prior cache
// is preserved and the stale copy (if any) is returned alongside the
// error.
func (c *Cache) Refresh(force bool) (Index, error) {
	if !force {
		cur := c.Load()
		if !cur.Stale {
			return cur, nil
		}
	}

	body, resp, err := httpclient.Get(c.Client, IndexURL)
	if err != nil {
		return c.Load(), &errs.IndexFetchFailed{URL: IndexURL, Err: err}
	}
	if resp.StatusCode != 200 {
		return c.Load(), &errs.IndexFetchFailed{URL: IndexURL, Err: fmt.Errorf("http %d", resp.StatusCode)}
	}

	entries, err := parseIndex(body)
	if err != nil {
		return c.Load(), &errs.IndexFetchFailed{URL: IndexURL, Err: err}
	}

	if err := c.writeAtomic(body); err != nil {
		return Index{Entries: entries, Stale: false}, err
	}

	logx.L().Info("refreshed download index", zap.Int("versions", len(entries)))
	return Index{Entries: entries, Stale: false}, nil
}

func (c *Cache) writeAtomic(data []byte) error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return &errs.IoError{Op: "mkdir " + c.Dir, Err: err}
	}
	tmp, err := os.CreateTemp(c.Dir, "index.json.tmp-*")
	if err != nil {
		return &errs.IoError{Op: "create temp index file", Err: err}
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &errs.IoError{Op: "write temp index file", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &errs.IoError{Op: "close temp index file", Err: err}
	}
	if err := os.Rename(tmpPath, c.path()); err != nil {
		os.Remove(tmpPath)
		return &errs.IoError{Op: "rename temp index file", Err: err}
	}
	return nil
}

// UnverifiedEntry is the sentinel returned by Lookup for community-mirror
// versions that have no index entry: the downloader must rely on
// minisign alone (spec.md §4.2).
func UnverifiedEntry(version string) Entry {
	return Entry{Version: version, Assets: map[string]Asset{}}
}

// Lookup resolves a VersionSpec against the index, refreshing as
// needed. The returned Entry's Version field always holds the
// concrete, resolved version string.
func (c *Cache) Lookup(spec verspec.Spec) (Entry, error) {
	switch spec.Kind {
	case verspec.KindMaster:
		idx := c.ensureFresh(false)
		entry, ok := idx.Entries["master"]
		if !ok {
			return Entry{}, &errs.UnknownVersion{Spec: spec.Literal}
		}
		return entry, nil

	case verspec.KindStable:
		idx := c.Load()
		return latestReleased(idx)

	case verspec.KindLatest:
		idx, err := c.Refresh(false)
		if err != nil && len(idx.Entries) == 0 {
			return Entry{}, err
		}
		return latestReleased(idx)

	case verspec.KindSemver:
		resolved := spec.Normalize()
		key := resolved.String()

		idx := c.Load()
		if entry, ok := idx.Entries[key]; ok {
			return entry, nil
		}

		if idx.Stale {
			idx, err := c.Refresh(true)
			if err != nil && len(idx.Entries) == 0 {
				return Entry{}, err
			}
			if entry, ok := idx.Entries[key]; ok {
				return entry, nil
			}
		}
		return Entry{}, &errs.UnknownVersion{Spec: spec.Literal}

	case verspec.KindMasterPinned:
		// A pinned nightly is never looked up in the index: it must
		// already exist locally (see DESIGN.md's Open Question
		// resolution). Callers resolve it against the store instead.
		return UnverifiedEntry(spec.DevString), nil

	default:
		return Entry{}, &errs.BadVersionSpec{Input: spec.Literal}
	}
}

// ensureFresh refreshes the index once if the cached copy is stale,
// tolerating a refresh failure by falling back to whatever is cached.
func (c *Cache) ensureFresh(force bool) Index {
	idx := c.Load()
	if force || idx.Stale {
		refreshed, err := c.Refresh(force)
		if err == nil {
			return refreshed
		}
		logx.L().Warn("index refresh failed, using stale cache", zap.Error(err))
	}
	return idx
}

func latestReleased(idx Index) (Entry, error) {
	var best *verspec.Resolved
	var bestKey string

	for key, entry := range idx.Entries {
		if key == "master" {
			continue
		}
		resolved, err := parseSemverKey(key)
		if err != nil {
			continue
		}
		if best == nil || best.Less(resolved) {
			r := resolved
			best = &r
			bestKey = key
		}
	}

	if best == nil {
		return Entry{}, &errs.UnknownVersion{Spec: "stable"}
	}
	return idx.Entries[bestKey], nil
}

func parseSemverKey(key string) (verspec.Resolved, error) {
	parts := strings.SplitN(key, "-", 2)
	nums := strings.Split(parts[0], ".")
	if len(nums) != 3 {
		return verspec.Resolved{}, fmt.Errorf("not a released version key: %q", key)
	}
	major, err1 := strconv.Atoi(nums[0])
	minor, err2 := strconv.Atoi(nums[1])
	patch, err3 := strconv.Atoi(nums[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return verspec.Resolved{}, fmt.Errorf("not a released version key: %q", key)
	}
	pre := ""
	if len(parts) == 2 {
		pre = parts[1]
	}
	return verspec.Resolved{Major: major, Minor: minor, Patch: patch, PreRelease: pre}, nil
}

// SortedReleasedKeys returns the index's released-version keys in
// ascending order, used by `zv list` to present a stable ordering.
func SortedReleasedKeys(idx Index) []string {
	keys := make([]string, 0, len(idx.Entries))
	for key := range idx.Entries {
		if key != "master" {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, erri := parseSemverKey(keys[i])
		rj, errj := parseSemverKey(keys[j])
		if erri != nil || errj != nil {
			return keys[i] < keys[j]
		}
		return ri.Less(rj)
	})
	return keys
}
