// Package mirror implements the community mirror registry described in
// spec.md §4.3: a persistent, TOML-backed list of mirrors with rank,
// failure counters, and weighted random selection.
package mirror

import (
	"bufio"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/zv-tools/zv/internal/errs"
	"github.com/zv-tools/zv/internal/httpclient"
	"github.com/zv-tools/zv/internal/logx"
)

// MirrorsURL is the upstream community mirror list, per spec.md §6.
const MirrorsURL = "https://ziglang.org/download/community-mirrors.txt"

// OriginURL is the official origin, always appended as the final
// selection candidate (spec.md §4.3).
const OriginURL = "https://ziglang.org"

// FailureThreshold is K from spec.md §4.3: mirrors with this many
// consecutive failures are demoted to the minimum selection weight.
const FailureThreshold = 3

// Mirror is a single registry entry.
type Mirror struct {
	URL         string     `toml:"url"`
	Rank        int        `toml:"rank"`
	Failures    int        `toml:"failures"`
	LastSuccess *time.Time `toml:"last_success,omitempty"`
	LastFailure *time.Time `toml:"last_failure,omitempty"`

	// retained marks an entry absent from the latest resync but kept
	// because the user may have hand-edited its rank (spec.md §4.3).
	retained bool
}

// Retained reports whether m was absent from the upstream mirror list
// at the most recent Resync but kept anyway, per spec.md §4.3's
// "flagged" behavior for dropped mirrors.
func (m Mirror) Retained() bool {
	return m.retained
}

type document struct {
	Mirrors []Mirror `toml:"mirrors"`
}

// Registry manages mirrors.toml under a ZV_DIR.
type Registry struct {
	Dir     string
	Mirrors []Mirror
	Client  *retryablehttp.Client
}

func path(dir string) string {
	return filepath.Join(dir, "mirrors.toml")
}

// Load reads mirrors.toml. A missing file yields an empty registry.
func Load(dir string) (*Registry, error) {
	data, err := os.ReadFile(path(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{Dir: dir}, nil
		}
		return nil, &errs.IoError{Op: "read mirrors.toml", Err: err}
	}

	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		logx.L().Warn("failed to parse mirrors.toml, starting with an empty registry", zap.Error(err))
		return &Registry{Dir: dir}, nil
	}
	return &Registry{Dir: dir, Mirrors: doc.Mirrors}, nil
}

// SaveAtomic writes mirrors.toml via write-to-temp + rename.
func (r *Registry) SaveAtomic() error {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return &errs.IoError{Op: "mkdir " + r.Dir, Err: err}
	}

	data, err := toml.Marshal(document{Mirrors: r.Mirrors})
	if err != nil {
		return &errs.IoError{Op: "marshal mirrors.toml", Err: err}
	}

	tmp, err := os.CreateTemp(r.Dir, "mirrors.toml.tmp-*")
	if err != nil {
		return &errs.IoError{Op: "create temp mirrors file", Err: err}
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &errs.IoError{Op: "write temp mirrors file", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &errs.IoError{Op: "close temp mirrors file", Err: err}
	}
	if err := os.Rename(tmpPath, path(r.Dir)); err != nil {
		os.Remove(tmpPath)
		return &errs.IoError{Op: "rename temp mirrors file", Err: err}
	}
	return nil
}

// RecordSuccess resets a mirror's failure counter and timestamps its
// last success. Unknown URLs are ignored (the origin is never
// persisted as a registry entry).
func (r *Registry) RecordSuccess(url string) {
	now := time.Now()
	for i := range r.Mirrors {
		if r.Mirrors[i].URL == url {
			r.Mirrors[i].Failures = 0
			r.Mirrors[i].LastSuccess = &now
			return
		}
	}
}

// RecordFailure increments a mirror's failure counter and timestamps
// its last failure.
func (r *Registry) RecordFailure(url string) {
	now := time.Now()
	for i := range r.Mirrors {
		if r.Mirrors[i].URL == url {
			r.Mirrors[i].Failures++
			r.Mirrors[i].LastFailure = &now
			return
		}
	}
}

// weight implements spec.md §4.3: weight is max(1, 256-rank); mirrors
// with failures >= FailureThreshold are demoted to weight 1.
func weight(m Mirror) int {
	if m.Failures >= FailureThreshold {
		return 1
	}
	w := 256 - m.Rank
	if w < 1 {
		return 1
	}
	return w
}

// SelectCandidates returns up to n mirrors sampled without replacement
// via weighted random selection, with OriginURL always appended last.
func (r *Registry) SelectCandidates(n int) []string {
	pool := make([]Mirror, len(r.Mirrors))
	copy(pool, r.Mirrors)

	var chosen []string
	for len(chosen) < n && len(pool) > 0 {
		total := 0
		for _, m := range pool {
			total += weight(m)
		}
		pick := rand.IntN(total)
		idx := 0
		cum := 0
		for i, m := range pool {
			cum += weight(m)
			if pick < cum {
				idx = i
				break
			}
		}
		chosen = append(chosen, pool[idx].URL)
		pool = append(pool[:idx], pool[idx+1:]...)
	}

	chosen = append(chosen, OriginURL)
	return chosen
}

// Resync fetches community-mirrors.txt and merges it into the
// registry: new mirrors are inserted at rank 1 with zero failures;
// mirrors absent from the new list are retained (so a user's rank
// edits survive) but flagged.
func (r *Registry) Resync() ([]Mirror, error) {
	body, resp, err := httpclient.Get(r.Client, MirrorsURL)
	if err != nil {
		return nil, &errs.MirrorsFetchFailed{URL: MirrorsURL, Err: err}
	}
	if resp.StatusCode != 200 {
		return nil, &errs.MirrorsFetchFailed{URL: MirrorsURL, Err: fmt.Errorf("http %d", resp.StatusCode)}
	}

	fresh := parseMirrorList(string(body))
	freshSet := make(map[string]bool, len(fresh))
	for _, u := range fresh {
		freshSet[u] = true
	}

	existing := make(map[string]Mirror, len(r.Mirrors))
	for _, m := range r.Mirrors {
		existing[m.URL] = m
	}

	merged := make([]Mirror, 0, len(fresh)+len(r.Mirrors))
	for _, u := range fresh {
		if m, ok := existing[u]; ok {
			m.retained = false
			merged = append(merged, m)
		} else {
			merged = append(merged, Mirror{URL: u, Rank: 1})
		}
	}
	for _, m := range r.Mirrors {
		if !freshSet[m.URL] {
			m.retained = true
			merged = append(merged, m)
		}
	}

	r.Mirrors = merged
	return merged, nil
}

func parseMirrorList(body string) []string {
	var urls []string
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls
}
