package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vango-dev/reactor/pkg/reactor"
)

// Document is a point-in-time export of a runtime.
type Document struct {
	Run     string                 `json:"run"`
	TakenAt time.Time              `json:"takenAt"`
	Stats   reactor.Stats          `json:"stats"`
	Roots   []reactor.NodeSnapshot `json:"roots"`
}

// Capture copies the runtime's tree. It must run on the goroutine that owns
// rt.
func Capture(rt *reactor.Runtime, run string) Document {
	return Document{
		Run:     run,
		TakenAt: time.Now().UTC(),
		Stats:   rt.Stats(),
		Roots:   rt.SnapshotRoots(),
	}
}

// Encode writes the document as indented JSON.
func (d Document) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// Decode reads a document written by Encode.
func Decode(r io.Reader) (Document, error) {
	var d Document
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return Document{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return d, nil
}

// Exporter stores documents somewhere and returns where.
type Exporter interface {
	Export(ctx context.Context, doc Document) (string, error)
}

// FileExporter writes each document to its own file in Dir.
type FileExporter struct {
	Dir string
}

// Export implements Exporter.
func (e FileExporter) Export(ctx context.Context, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(e.Dir, fileName(doc))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot file: %w", err)
	}
	if err := doc.Encode(f); err != nil {
		f.Close()
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close snapshot file: %w", err)
	}
	return path, nil
}

func fileName(doc Document) string {
	run := doc.Run
	if run == "" {
		run = "snapshot"
	}
	return fmt.Sprintf("%s-%06d.json", run, doc.Stats.Passes)
}

// Multi exports to every exporter in order and returns every location. It
// stops at the first failure.
type Multi []Exporter

// Export implements Exporter. Locations are joined with a comma.
func (m Multi) Export(ctx context.Context, doc Document) (string, error) {
	var out string
	for _, e := range m {
		loc, err := e.Export(ctx, doc)
		if err != nil {
			return out, err
		}
		if out != "" {
			out += ","
		}
		out += loc
	}
	return out, nil
}
