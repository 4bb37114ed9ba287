package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

type memBlobs struct {
	objects map[string]string
	mod     map[string]time.Time
}

func (m memBlobs) Get(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := m.objects[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (m memBlobs) List(_ context.Context, prefix string) ([]domain.ObjectInfo, error) {
	var infos []domain.ObjectInfo
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, domain.ObjectInfo{Key: key, LastModified: m.mod[key]})
		}
	}
	return infos, nil
}

func TestBlobSource(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	blobs := memBlobs{
		objects: map[string]string{
			"raw/old.json":    `{"markets": [{"question": "old"}]}`,
			"raw/new.json":    `{"markets": [{"question": "new"}, {"question": "newer"}]}`,
			"raw/notes.txt":   `not a snapshot`,
			"raw/bad.json":    `{"markets": 7}`,
			"fixed/only.json": `{"markets": []}`,
		},
		mod: map[string]time.Time{
			"raw/old.json":  t0,
			"raw/new.json":  t0.Add(time.Hour),
			"raw/notes.txt": t0.Add(2 * time.Hour),
			"raw/bad.json":  t0.Add(-time.Hour),
		},
	}

	tests := []struct {
		name      string
		key       string
		wantCount int
		wantErr   error
	}{
		{name: "exact key", key: "raw/old.json", wantCount: 1},
		{name: "prefix picks newest json", key: "raw/", wantCount: 2},
		{name: "empty prefix", key: "none/", wantErr: domain.ErrNotFound},
		{name: "missing key", key: "raw/gone.json", wantErr: domain.ErrNotFound},
		{name: "malformed", key: "raw/bad.json", wantErr: domain.ErrMalformedBatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			snap, err := BlobSource{Reader: blobs, Key: tt.key}.Load(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(snap.Markets) != tt.wantCount {
				t.Errorf("markets = %d, want %d", len(snap.Markets), tt.wantCount)
			}
		})
	}
}
