// Package images maps a person's name to a profile picture in a local
// directory.
package images

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// profileSuffix is trailing noise found on exported picture names,
// e.g. "AdaLovelace_ProfilePicture.jpg".
const profileSuffix = "profilepicture"

type MatchKind string

const (
	MatchExact    MatchKind = "exact"
	MatchLastName MatchKind = "last-name"
	MatchDefault  MatchKind = "default"
)

// Match is a resolved image file.
type Match struct {
	Path string
	Kind MatchKind
}

// Resolver is built once per run and is read-only afterwards.
type Resolver struct {
	index         map[string]string
	defaultAvatar string
	logger        *zap.Logger
}

// NewResolver indexes the regular files in dir. defaultAvatar is a file name
// relative to dir (or an absolute path); it is used only if it exists.
// A missing dir is logged and yields a resolver that can only return the
// default avatar.
func NewResolver(dir, defaultAvatar string, logger *zap.Logger) (*Resolver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{index: make(map[string]string), logger: logger}

	entries, err := os.ReadDir(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("images folder not found; local media upload disabled", zap.String("dir", dir))
	case err != nil:
		return nil, fmt.Errorf("reading images dir %s: %w", dir, err)
	}

	// ReadDir sorts by name, so on key collisions the later name wins.
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		key := strings.TrimSuffix(Key(stem), profileSuffix)
		if key == "" {
			continue
		}
		r.index[key] = filepath.Join(dir, name)
	}

	if defaultAvatar != "" {
		p := defaultAvatar
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			r.defaultAvatar = p
		} else {
			logger.Warn("default avatar not found; rows without a matching image will skip media", zap.String("path", p))
		}
	}

	logger.Debug("images indexed", zap.Int("files", len(r.index)), zap.String("dir", dir))
	return r, nil
}

// Len reports the number of indexed names.
func (r *Resolver) Len() int {
	return len(r.index)
}

// Resolve looks up first+last, then last alone, then the default avatar.
func (r *Resolver) Resolve(firstName, lastName string) (Match, bool) {
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return Match{}, false
	}

	if p, ok := r.index[Key(firstName+lastName)]; ok {
		return Match{Path: p, Kind: MatchExact}, true
	}
	if p, ok := r.index[Key(lastName)]; ok {
		return Match{Path: p, Kind: MatchLastName}, true
	}
	if r.defaultAvatar != "" {
		r.logger.Info("no local image; using default avatar",
			zap.String("first_name", firstName), zap.String("last_name", lastName))
		return Match{Path: r.defaultAvatar, Kind: MatchDefault}, true
	}
	return Match{}, false
}

// Key folds accents, drops everything but ASCII letters and digits, and
// lowercases: "José O'Neil" -> "joseoneil".
func Key(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, c := range folded {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c >= 'A' && c <= 'Z':
			b.WriteRune(c + ('a' - 'A'))
		}
	}
	return b.String()
}
