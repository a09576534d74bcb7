package pitarchive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Source is the external data collaborator: it produces the raw records for
// one partition request. Transport details (HTTP, auth, pagination) stay
// behind this interface; the archive only sees records and errors.
//
// An empty record set is a valid answer: it means the partition genuinely
// has no data yet, not that the fetch failed.
type Source interface {
	Fetch(ctx context.Context, asset *Asset, req Request) (*RecordSet, error)
}

// FileSource serves payloads from a directory tree, one JSON document per
// partition at <dir>/<asset>/<key>.json, extracted through the asset's
// rules. It backs offline replays and tests.
type FileSource struct {
	dir string
}

// NewFileSource returns a source reading payload files under dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

func (s *FileSource) Fetch(ctx context.Context, asset *Asset, req Request) (*RecordSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if asset.Extract == nil {
		return nil, fmt.Errorf("%w: asset %q has no extract rules", ErrFetch, asset.Name)
	}
	key, err := ResolveKey(asset, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	raw, err := os.ReadFile(filepath.Join(s.dir, asset.Name, key+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		// No payload file, no data for this partition.
		return NewRecordSet(asset.Extract.Columns...), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return Extract(raw, asset.Extract)
}
