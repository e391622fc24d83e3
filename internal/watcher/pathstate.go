package watcher

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// archiveDir is scanned one level below a watched directory.
const archiveDir = "archive"

type stamp struct {
	size    int64
	modTime time.Time
}

func (s stamp) equal(o stamp) bool {
	return s.size == o.size && s.modTime.Equal(o.modTime)
}

// pathState is the last observation of one watched state path.
type pathState struct {
	path        string
	dir         bool
	exists      bool
	stamp       stamp
	fingerprint uint64
	entries     map[string]stamp
}

func newPathState(path string, info os.FileInfo) *pathState {
	ps := &pathState{path: path, dir: info.IsDir()}
	ps.observe()
	return ps
}

// observe refreshes the recorded state and reports what changed, if
// anything. The returned path is the file to name in the notification: the
// path itself, or for directories the entry that was added or modified.
func (ps *pathState) observe() (string, bool) {
	info, err := os.Stat(ps.path)
	if err != nil {
		ps.exists = false
		ps.entries = nil
		ps.fingerprint = 0
		return "", false
	}
	reappeared := !ps.exists
	ps.exists = true
	if !ps.dir {
		current := stamp{size: info.Size(), modTime: info.ModTime()}
		changed := reappeared || !current.equal(ps.stamp)
		ps.stamp = current
		return ps.path, changed
	}

	entries, fingerprint := scanDir(ps.path)
	if !reappeared && fingerprint == ps.fingerprint {
		ps.entries = entries
		return "", false
	}
	changedPath := ps.path
	var newest time.Time
	for name, st := range entries {
		prev, ok := ps.entries[name]
		if ok && prev.equal(st) {
			continue
		}
		if changedPath == ps.path || st.modTime.After(newest) {
			changedPath = filepath.Join(ps.path, name)
			newest = st.modTime
		}
	}
	ps.entries = entries
	ps.fingerprint = fingerprint
	return changedPath, true
}

// scanDir lists the regular files of dir and dir/archive keyed by their path
// relative to dir, plus a digest of the listing.
func scanDir(dir string) (map[string]stamp, uint64) {
	entries := make(map[string]stamp)
	digest := xxhash.New()
	for _, sub := range []string{"", archiveDir} {
		listing, err := os.ReadDir(filepath.Join(dir, sub))
		if err != nil {
			continue
		}
		for _, entry := range listing {
			if !entry.Type().IsRegular() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			name := filepath.Join(sub, entry.Name())
			st := stamp{size: info.Size(), modTime: info.ModTime()}
			entries[name] = st
			_, _ = digest.WriteString(name)
			_, _ = digest.WriteString("\x00" + strconv.FormatInt(st.size, 10))
			_, _ = digest.WriteString("\x00" + strconv.FormatInt(st.modTime.UnixNano(), 10) + "\n")
		}
	}
	return entries, digest.Sum64()
}
