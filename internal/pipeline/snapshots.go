package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/entorg/internal/model"
	"github.com/ppiankov/entorg/internal/table"
)

// ErrNoSnapshot is returned when a current snapshot cannot be found locally or remotely
var ErrNoSnapshot = errors.New("no transformed snapshot")

// SnapshotSource locates transformed resources and the resource each one superseded
type SnapshotSource struct {
	fetcher        *Fetcher
	historicURL    string
	transformedURL string
	localDir       string
}

// NewSnapshotSource creates a source over the configured reporting hosts.
// localDir, when set, is searched for current snapshots before the files host.
func NewSnapshotSource(fetcher *Fetcher, cfg model.ReportingConfig, localDir string) *SnapshotSource {
	return &SnapshotSource{
		fetcher:        fetcher,
		historicURL:    cfg.HistoricEndpointsURL,
		transformedURL: cfg.TransformedURL,
		localDir:       localDir,
	}
}

// PreviousResource returns the most recently ended resource collected from
// endpoint, or "" when the endpoint has never had a resource superseded
func (s *SnapshotSource) PreviousResource(ctx context.Context, endpoint string) (string, error) {
	query, err := s.historicQuery(endpoint)
	if err != nil {
		return "", err
	}

	res, err := s.fetcher.FetchWithRetry(ctx, query)
	if err != nil {
		return "", fmt.Errorf("historic endpoints: %w", err)
	}

	t, err := table.Read(bytes.NewReader(res.Body))
	if errors.Is(err, table.ErrEmptyTable) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("historic endpoints: %w", err)
	}
	cols, err := t.Require([]string{"resource"})
	if err != nil {
		return "", fmt.Errorf("historic endpoints: %w", err)
	}

	for _, rec := range t.Records {
		if resource := table.Field(rec, cols[0]); resource != "" {
			return resource, nil
		}
	}
	return "", nil
}

func (s *SnapshotSource) historicQuery(endpoint string) (string, error) {
	u, err := url.Parse(s.historicURL)
	if err != nil {
		return "", fmt.Errorf("parse historic endpoints URL: %w", err)
	}
	q := u.Query()
	q.Set("_sort_desc", "rowid")
	q.Set("resource_end_date__notblank", "1")
	q.Set("endpoint__exact", endpoint)
	q.Set("_size", "1")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// TransformedURL fills the transformed snapshot template
func (s *SnapshotSource) TransformedURL(collection, dataset, resource string) string {
	return strings.NewReplacer(
		"{collection}", url.PathEscape(collection),
		"{dataset}", url.PathEscape(dataset),
		"{resource}", url.PathEscape(resource),
	).Replace(s.transformedURL)
}

// Remote downloads a transformed snapshot from the files host
func (s *SnapshotSource) Remote(ctx context.Context, collection, dataset, resource string) ([]model.SnapshotRow, error) {
	res, err := s.fetcher.FetchWithRetry(ctx, s.TransformedURL(collection, dataset, resource))
	if err != nil {
		return nil, fmt.Errorf("transformed %s: %w", resource, err)
	}
	rows, _, err := table.ReadSnapshot(bytes.NewReader(res.Body))
	if err != nil {
		return nil, fmt.Errorf("transformed %s: %w", resource, err)
	}
	return rows, nil
}

// Previous returns the resource superseded at endpoint and its snapshot.
// Both are empty when there is nothing to compare against.
func (s *SnapshotSource) Previous(ctx context.Context, endpoint, collection, dataset string) (string, []model.SnapshotRow, error) {
	resource, err := s.PreviousResource(ctx, endpoint)
	if err != nil || resource == "" {
		return "", nil, err
	}
	rows, err := s.Remote(ctx, collection, dataset, resource)
	if err != nil {
		return resource, nil, err
	}
	if rows == nil {
		rows = []model.SnapshotRow{}
	}
	return resource, rows, nil
}

// Current returns the snapshot of a newly collected resource, preferring
// localDir/<resource>.csv over the files host
func (s *SnapshotSource) Current(ctx context.Context, collection, dataset, resource string) ([]model.SnapshotRow, error) {
	if s.localDir != "" {
		path := filepath.Join(s.localDir, resource+".csv")
		rows, err := LoadSnapshotFile(path)
		if err == nil {
			return rows, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	if s.transformedURL == "" {
		return nil, fmt.Errorf("%s: %w", resource, ErrNoSnapshot)
	}
	return s.Remote(ctx, collection, dataset, resource)
}

// LoadSnapshotFile reads a transformed snapshot from disk
func LoadSnapshotFile(path string) ([]model.SnapshotRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	rows, _, err := table.ReadSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
