package mp4edit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/mattetti/mp4edit/container"
	"github.com/mattetti/mp4edit/internal/logging"
	"github.com/mattetti/mp4edit/task"
)

// Load reads the movie at path. It fails with ErrNotFound when path does not
// exist.
func Load(path string, opts ...Option) task.Task[*container.Movie] {
	o := newOptions(opts)
	return func(ctx context.Context) (*container.Movie, error) {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
			}
			return nil, err
		}
		movie, err := container.LoadFile(path, o.read)
		if err != nil {
			return nil, err
		}
		logging.FromContext(ctx).Debug("movie loaded",
			"path", path,
			"tracks", len(movie.Tracks()),
			"duration", movie.Duration(),
		)
		return movie, nil
	}
}

// LoadFile reads the movie stored in f. Only the file's name is used; f is
// left open.
func LoadFile(f *os.File, opts ...Option) task.Task[*container.Movie] {
	return Load(f.Name(), opts...)
}
