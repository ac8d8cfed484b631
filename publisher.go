package proximity

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Publisher delivers snapshots to consumers
type Publisher interface {
	Publish(ctx context.Context, snap *Snapshot) error
}

// FilePublisher writes access.geojson and indicators.json into directory
type FilePublisher struct {
	dir string
}

// NewFilePublisher returns publisher writing into dir. Directory is created when missing.
func NewFilePublisher(dir string) (*FilePublisher, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, errors.Wrap(err, "Can't create output directory")
	}
	return &FilePublisher{dir: dir}, nil
}

// Publish implements Publisher. Files are replaced atomically.
func (pub *FilePublisher) Publish(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	access, err := snap.MarshalGeoJSON()
	if err != nil {
		return err
	}
	err = writeFileAtomic(filepath.Join(pub.dir, "access.geojson"), access)
	if err != nil {
		return errors.Wrap(err, "Can't write accessibility")
	}
	indicators, err := snap.MarshalIndicators()
	if err != nil {
		return err
	}
	err = writeFileAtomic(filepath.Join(pub.dir, "indicators.json"), indicators)
	if err != nil {
		return errors.Wrap(err, "Can't write indicators")
	}
	return nil
}

// writeFileAtomic writes data next to fname and renames it over fname. Write, sync and close errors are reported.
func writeFileAtomic(fname string, data []byte) error {
	tmp := fname + ".tmp"
	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	_, err = file.Write(data)
	if err == nil {
		err = file.Sync()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, fname)
}

// LogPublisher logs indicators
type LogPublisher struct{}

// Publish implements Publisher
func (LogPublisher) Publish(ctx context.Context, snap *Snapshot) error {
	fields := make([]zap.Field, 0, len(snap.Indicators)+2)
	fields = append(fields, zap.String("hash", snap.Hash), zap.Int("touched", snap.Touched))
	for _, ind := range snap.Indicators {
		fields = append(fields, zap.Float64(ind.Name, ind.Value))
	}
	zap.L().Info("indicators", fields...)
	return nil
}

// MultiPublisher publishes to every publisher in order and stops on first error
type MultiPublisher []Publisher

// Publish implements Publisher
func (pubs MultiPublisher) Publish(ctx context.Context, snap *Snapshot) error {
	for _, pub := range pubs {
		if err := pub.Publish(ctx, snap); err != nil {
			return err
		}
	}
	return nil
}
