package mp4edit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/mattetti/mp4edit/container"
	"github.com/mattetti/mp4edit/internal/logging"
	"github.com/mattetti/mp4edit/task"
)

// destination is the file a container is written to.
type destination interface {
	io.WriteSeeker
	io.Closer
	Sync() error
}

var createDestination = func(name string) (destination, error) {
	return os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
}

// Output writes the movie produced by movie to dest and yields dest.
//
// The container is built before dest is touched. It is then written to a
// temporary file next to dest which is renamed over dest once complete, so
// dest never holds a partial movie. The temporary file is closed, and
// removed on failure, before the task returns.
func Output(movie task.Task[*container.Movie], dest string, opts ...Option) task.Task[string] {
	o := newOptions(opts)
	return task.Then(movie, func(m *container.Movie) task.Task[string] {
		return func(ctx context.Context) (string, error) {
			if err := writeMovie(ctx, m, dest, o); err != nil {
				return "", err
			}
			return dest, nil
		}
	})
}

// OutputMovie writes m to dest.
func OutputMovie(m *container.Movie, dest string, opts ...Option) task.Task[string] {
	return Output(task.Value(m), dest, opts...)
}

func writeMovie(ctx context.Context, m *container.Movie, dest string, o options) (err error) {
	c, err := container.Build(m, o.read)
	if err != nil {
		return fmt.Errorf("build container: %w", err)
	}

	lock := flock.New(dest + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock %s: %w", dest, err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", ErrDestinationBusy, dest)
	}
	defer func() { _ = lock.Unlock() }()

	if !o.overwrite {
		if _, err := os.Stat(dest); err == nil {
			return fmt.Errorf("%w: %s", ErrDestinationExists, dest)
		}
	}

	tmp := filepath.Join(filepath.Dir(dest), "."+filepath.Base(dest)+"."+uuid.NewString()+".tmp")
	f, err := createDestination(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	closed := false
	defer func() {
		if !closed {
			err = errors.Join(err, f.Close())
		}
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := c.WriteContainer(f); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	closed = true
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}

	logging.FromContext(ctx).Debug("movie written",
		"path", dest,
		"tracks", len(m.Tracks()),
		"duration", m.Duration(),
	)
	return nil
}
