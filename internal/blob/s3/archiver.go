package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/alanyoungcy/marketnorm/internal/domain"
)

const (
	contentTypeJSON  = "application/json"
	contentTypeJSONL = "application/x-ndjson"
)

// Archiver writes normalized batches and raw snapshots to object storage.
// Each object is written under a dated key and mirrored to a "latest" key so
// consumers can read the newest batch without listing.
//
// Key schema (prefix "normalized/"):
//
//	normalized/rich/2025/01/02/{runID}.json
//	normalized/rich/latest.json
//	normalized/simple/2025/01/02/{runID}.jsonl
type Archiver struct {
	writer    domain.BlobWriter
	prefix    string
	threshold int64
}

// NewArchiver creates an Archiver. Payloads larger than multipartMB
// megabytes are uploaded with multipart using parts of the same size; a
// non-positive value disables multipart.
func NewArchiver(writer domain.BlobWriter, prefix string, multipartMB int) *Archiver {
	return &Archiver{
		writer:    writer,
		prefix:    prefix,
		threshold: int64(multipartMB) * 1024 * 1024,
	}
}

// ArchiveBatch uploads payload as one JSON document for variant and returns
// the keys written.
func (a *Archiver) ArchiveBatch(ctx context.Context, variant, runID string, at time.Time, payload any) ([]string, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("s3blob: archive %s marshal: %w", variant, err)
	}

	meta := runMetadata(variant, runID, at)
	dated := a.datedKey(variant, runID, at, ".json")
	latest := a.key(variant, "latest.json")
	for _, key := range []string{dated, latest} {
		obj := domain.Object{Key: key, Body: buf, ContentType: contentTypeJSON, Metadata: meta}
		if err := a.upload(ctx, obj); err != nil {
			return nil, fmt.Errorf("s3blob: archive %s upload: %w", variant, err)
		}
	}
	return []string{dated, latest}, nil
}

// ArchiveMarkets uploads compact markets as JSONL, one market per line, and
// returns the key written.
func (a *Archiver) ArchiveMarkets(ctx context.Context, variant, runID string, at time.Time, markets []domain.CompactMarket) (string, error) {
	buf, err := marshalJSONL(markets)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive %s markets marshal: %w", variant, err)
	}

	obj := domain.Object{
		Key:         a.datedKey(variant, runID, at, ".jsonl"),
		Body:        buf,
		ContentType: contentTypeJSONL,
		Metadata:    runMetadata(variant, runID, at),
	}
	if err := a.upload(ctx, obj); err != nil {
		return "", fmt.Errorf("s3blob: archive %s markets upload: %w", variant, err)
	}
	return obj.Key, nil
}

// ArchiveSnapshot uploads a raw snapshot to key.
func (a *Archiver) ArchiveSnapshot(ctx context.Context, key string, snap domain.RawSnapshot) error {
	buf, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("s3blob: archive snapshot marshal: %w", err)
	}
	obj := domain.Object{
		Key:         key,
		Body:        buf,
		ContentType: contentTypeJSON,
		Metadata:    map[string]string{"markets": strconv.Itoa(len(snap.Markets))},
	}
	if err := a.upload(ctx, obj); err != nil {
		return fmt.Errorf("s3blob: archive snapshot upload: %w", err)
	}
	return nil
}

// upload switches to multipart once the payload crosses the threshold.
func (a *Archiver) upload(ctx context.Context, obj domain.Object) error {
	if a.threshold > 0 && int64(len(obj.Body)) > a.threshold {
		return a.writer.PutMultipart(ctx, obj, a.threshold)
	}
	return a.writer.Put(ctx, obj)
}

func (a *Archiver) key(parts ...string) string {
	return a.prefix + path.Join(parts...)
}

// datedKey partitions by the UTC day of the run.
func (a *Archiver) datedKey(variant, runID string, at time.Time, ext string) string {
	return a.key(variant, at.UTC().Format("2006/01/02"), runID+ext)
}

func runMetadata(variant, runID string, at time.Time) map[string]string {
	return map[string]string{
		"variant":  variant,
		"run-id":   runID,
		"run-time": at.UTC().Format(time.RFC3339),
	}
}

// marshalJSONL encodes each record as one compact JSON line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
