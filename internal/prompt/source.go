package prompt

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrTemplateMissing is returned when the system-prompt template cannot be
// read.
var ErrTemplateMissing = errors.New("prompt template missing")

// Source supplies the operator-authored system-prompt template.
type Source interface {
	Template() (string, error)
}

// FileSource reads the template from disk once and caches it for the process
// lifetime. A failed read is not cached, so a template dropped in after
// startup is picked up on the next session.
type FileSource struct {
	path string

	mu  sync.Mutex
	tpl string
	ok  bool
}

// NewFileSource returns a FileSource for the given template path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Template returns the cached template, loading it on first use.
func (f *FileSource) Template() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ok {
		return f.tpl, nil
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("prompt: read %s: %w: %v", f.path, ErrTemplateMissing, err)
	}

	f.tpl = string(data)
	f.ok = true
	log.Info().Str("path", f.path).Msg("prompt: template loaded")
	return f.tpl, nil
}
