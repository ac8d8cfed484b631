package proximity

import (
	"context"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// ConfigurationSource provides land-use configurations.
//
// Poll returns latest configuration and whether it differs from the one returned previously.
type ConfigurationSource interface {
	Poll(ctx context.Context) (*Configuration, bool, error)
}

// FileSource reads configuration from JSON file. Changes are detected by content hash.
type FileSource struct {
	fname string

	mu   sync.Mutex
	last string
}

// NewFileSource returns source reading given file
func NewFileSource(fname string) *FileSource {
	return &FileSource{fname: fname}
}

// Poll implements ConfigurationSource
func (src *FileSource) Poll(ctx context.Context) (*Configuration, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(src.fname)
	if err != nil {
		return nil, false, errors.Wrap(err, "Can't read configuration file")
	}
	cfg, err := ParseConfiguration(data)
	if err != nil {
		return nil, false, err
	}
	hash := cfg.Hash()

	src.mu.Lock()
	defer src.mu.Unlock()
	changed := hash != src.last
	src.last = hash
	return cfg, changed, nil
}
