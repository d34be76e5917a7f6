package sync

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/percus-ai/daihen-physical-ai-interfaces/internal/utils"
)

// Selector restricts a dataset download to a subset of its objects.
// A nil *Selector means a full transfer; a selector with an empty
// episode set transfers metadata objects only. Episode directories
// appear in the wild with both 3-digit and 6-digit zero padding, so
// matching is done on the numeric value, not the literal string.
type Selector struct {
	Episodes      []int
	IncludeVideos bool
}

var episodeDirPattern = regexp.MustCompile(`episode_(\d+)`)

// Matches reports whether the item-relative object path should be
// transferred. Metadata objects (the sidecar and anything under meta/)
// are always included.
func (s Selector) Matches(relPath string) bool {
	if relPath == utils.SidecarFileName {
		return true
	}
	first := relPath
	if i := strings.IndexByte(relPath, '/'); i >= 0 {
		first = relPath[:i]
	}
	if first == "meta" {
		return true
	}
	if !s.IncludeVideos && first == "videos" {
		return false
	}
	return s.matchesEpisode(relPath)
}

func (s Selector) matchesEpisode(relPath string) bool {
	matches := episodeDirPattern.FindAllStringSubmatch(relPath, -1)
	for _, m := range matches {
		digits := m[1]
		if len(digits) != 3 && len(digits) != 6 {
			continue
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		for _, want := range s.Episodes {
			if n == want {
				return true
			}
		}
	}
	return false
}
