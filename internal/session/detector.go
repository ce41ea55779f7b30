package session

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cogmem/cogmem/internal/types"
)

// Strategy names how a working session's identity is detected. Adapted
// from the teacher's memory.SessionStrategy, folded down to a numeric
// types.SessionID instead of a string, since the graph stores SessionID
// as a dense uint32 rather than a free-form string key.
type Strategy string

const (
	// StrategyGitDirectory keys the session off the git repository root's
	// directory name.
	StrategyGitDirectory Strategy = "git-directory"
	// StrategyManual requires an explicit session key.
	StrategyManual Strategy = "manual"
	// StrategyHash keys the session off a hash of the git remote URL, so
	// the same session id is produced for the same remote regardless of
	// where it's checked out locally.
	StrategyHash Strategy = "hash"
)

// Detector resolves the current working session's string key and its
// derived numeric SessionID.
type Detector struct {
	Strategy Strategy
	ManualID string

	cacheDir string
	cacheKey string
}

// NewDetector creates a detector for the given strategy.
func NewDetector(strategy Strategy) *Detector {
	return &Detector{Strategy: strategy}
}

// DetectKey returns the session's string key under the configured
// strategy, caching it per working directory the way the teacher's
// detector does.
func (d *Detector) DetectKey() string {
	switch d.Strategy {
	case StrategyManual:
		if d.ManualID != "" {
			return d.ManualID
		}
		return d.detectGitDirectory()
	case StrategyHash:
		return d.detectGitHash()
	case StrategyGitDirectory:
		fallthrough
	default:
		return d.detectGitDirectory()
	}
}

// DetectID returns the numeric SessionID derived from DetectKey, by
// truncating a sha256 of the key to 32 bits. Collisions between unrelated
// session keys are possible but benign: at worst two sessions share a
// SessionIndex bucket.
func (d *Detector) DetectID() types.SessionID {
	return KeyToID(d.DetectKey())
}

// KeyToID derives a types.SessionID from an arbitrary session key string.
func KeyToID(key string) types.SessionID {
	sum := sha256.Sum256([]byte(key))
	return types.SessionID(binary.LittleEndian.Uint32(sum[:4]))
}

func (d *Detector) detectGitDirectory() string {
	cwd, _ := os.Getwd()
	if d.cacheDir == cwd && d.cacheKey != "" {
		return d.cacheKey
	}

	root := findGitRoot(cwd)
	if root == "" {
		root = cwd
	}
	d.cacheDir = cwd
	d.cacheKey = sanitize(filepath.Base(root))
	return d.cacheKey
}

func (d *Detector) detectGitHash() string {
	cwd, _ := os.Getwd()
	root := findGitRoot(cwd)
	if root == "" {
		return d.detectGitDirectory()
	}

	out, err := exec.Command("git", "-C", root, "config", "--get", "remote.origin.url").Output()
	if err != nil {
		return d.detectGitDirectory()
	}
	remote := strings.TrimSpace(string(out))
	if remote == "" {
		return d.detectGitDirectory()
	}

	hash := sha256.Sum256([]byte(remote))
	return hex.EncodeToString(hash[:8])
}

func findGitRoot(start string) string {
	dir := start
	for {
		gitPath := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitPath); err == nil {
			_ = info
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('-')
		}
	}
	return strings.ToLower(b.String())
}
