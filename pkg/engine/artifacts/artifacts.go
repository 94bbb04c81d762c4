// Package artifacts persists synthesized reply audio to local disk and maps
// each file to the public reference served under the static route.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lunavoice/luna/pkg/core"
)

// RefPrefix is the URL path prefix under which stored audio is served.
const RefPrefix = "/static/"

// Manager owns the audio artifact directory. File names are derived from the
// session id and turn index, which is what lets Purge find every artifact
// belonging to a session without any extra bookkeeping.
type Manager struct {
	dir string
}

// New creates the artifact directory if needed.
func New(dir string) (*Manager, error) {
	if dir == "" {
		return nil, core.NewAudioStorageError(fmt.Errorf("artifact directory not configured"))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, core.NewAudioStorageError(fmt.Errorf("create artifact dir: %w", err))
	}
	return &Manager{dir: dir}, nil
}

// Dir returns the directory artifacts are written to.
func (m *Manager) Dir() string {
	return m.dir
}

// Store writes one reply's audio and returns its public reference.
func (m *Manager) Store(sessionID string, turnIndex int, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", core.NewAudioStorageError(fmt.Errorf("empty audio payload"))
	}
	name := fmt.Sprintf("%s_%d.wav", sanitizeID(sessionID), turnIndex)
	if err := os.WriteFile(filepath.Join(m.dir, name), audio, 0o644); err != nil {
		return "", core.NewAudioStorageError(fmt.Errorf("write artifact: %w", err))
	}
	return RefPrefix + name, nil
}

// Purge removes every artifact belonging to the session and returns how many
// files were deleted. Removal failures for individual files are skipped; the
// sweeper will not see them again, but orphaned files are harmless.
func (m *Manager) Purge(sessionID string) int {
	prefix := sanitizeID(sessionID) + "_"
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		if os.Remove(filepath.Join(m.dir, e.Name())) == nil {
			removed++
		}
	}
	return removed
}

// sanitizeID keeps artifact names safe as path components. Session ids are
// uuids in practice, but the manager does not rely on that.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, id)
}
