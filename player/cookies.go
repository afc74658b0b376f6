package player

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kanade-music/kanade/sys"
)

// CookieJar maintains the pool of YouTube cookie files used to improve the
// odds of successful extraction. One file is issued at random per request.
// A file evicted after a failure attributed to it is never reissued; the
// files on disk are not touched.
type CookieJar struct {
	mu      sync.Mutex
	dir     string
	files   []string
	checked bool
	warn    sync.Once
}

func NewCookieJar(dir string) *CookieJar {
	return &CookieJar{dir: dir}
}

// Pick returns the path of a random usable cookie file, or "" when none are
// left. The empty-pool warning is emitted once per process lifetime so a
// missing cookies directory degrades quietly instead of flooding the logs.
func (c *CookieJar) Pick() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.checked {
		entries, err := os.ReadDir(c.dir)
		if err == nil {
			for _, e := range entries {
				if !e.IsDir() && strings.HasSuffix(e.Name(), ".txt") {
					c.files = append(c.files, filepath.Join(c.dir, e.Name()))
				}
			}
		}
		c.checked = true
	}

	if len(c.files) == 0 {
		c.warn.Do(func() {
			sys.LogYouTubeWarn("Cookies are missing; downloads might fail.")
		})
		return ""
	}
	return c.files[rand.IntN(len(c.files))]
}

// Evict permanently removes a cookie from the pool.
func (c *CookieJar) Evict(path string) {
	if path == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, f := range c.files {
		if f == path {
			c.files = append(c.files[:i], c.files[i+1:]...)
			sys.LogYouTubeWarn("Evicted cookie %s (%d left)", filepath.Base(path), len(c.files))
			return
		}
	}
}

// Count reports how many cookies are still usable.
func (c *CookieJar) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.files)
}
