// Package fetcher retrieves board snapshots from the remote JSON API.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"board_mirror/internal/markup"
	"board_mirror/internal/model"
)

// ErrNotFound is returned when the remote thread no longer exists.
var ErrNotFound = errors.New("not found")

// ErrDecode is wrapped by errors for responses that are not in the expected shape.
var ErrDecode = errors.New("decode response")

const maxBodySize = 16 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures the remote endpoints.
type Options struct {
	Board     string
	APIBase   string
	ImageBase string
	Timeout   time.Duration
}

// Fetcher downloads board snapshots.
type Fetcher struct {
	client    HTTPClient
	board     string
	apiBase   string
	imageBase string
	timeout   time.Duration
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient, opts Options) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client:    client,
		board:     opts.Board,
		apiBase:   strings.TrimRight(opts.APIBase, "/"),
		imageBase: strings.TrimRight(opts.ImageBase, "/"),
		timeout:   timeout,
	}
}

type catalogPage struct {
	Page    int `json:"page"`
	Threads []struct {
		No           int64 `json:"no"`
		Replies      int   `json:"replies"`
		LastModified int64 `json:"last_modified"`
	} `json:"threads"`
}

type threadResponse struct {
	Posts []post `json:"posts"`
}

type post struct {
	No      int64  `json:"no"`
	Sub     string `json:"sub"`
	Com     string `json:"com"`
	Time    int64  `json:"time"`
	Tim     int64  `json:"tim"`
	Ext     string `json:"ext"`
	Replies int    `json:"replies"`
}

// FetchCatalog returns the catalog pages in board order.
func (f *Fetcher) FetchCatalog(ctx context.Context) ([]model.CatalogPage, error) {
	var raw []catalogPage
	if err := f.getJSON(ctx, f.boardURL("catalog.json"), &raw); err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	pages := make([]model.CatalogPage, 0, len(raw))
	for _, p := range raw {
		page := model.CatalogPage{Number: p.Page, Threads: make([]model.ThreadSummary, 0, len(p.Threads))}
		for _, t := range p.Threads {
			page.Threads = append(page.Threads, model.ThreadSummary{ID: t.No, Replies: t.Replies})
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// FetchThreadModTimes returns the last modification time of every live thread.
func (f *Fetcher) FetchThreadModTimes(ctx context.Context) (map[int64]time.Time, error) {
	var raw []catalogPage
	if err := f.getJSON(ctx, f.boardURL("threads.json"), &raw); err != nil {
		return nil, fmt.Errorf("fetch thread mod times: %w", err)
	}

	mods := make(map[int64]time.Time)
	for _, p := range raw {
		for _, t := range p.Threads {
			mods[t.No] = time.Unix(t.LastModified, 0).UTC()
		}
	}
	return mods, nil
}

// FetchArchiveIDs returns the ids of archived threads, oldest first.
func (f *Fetcher) FetchArchiveIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := f.getJSON(ctx, f.boardURL("archive.json"), &ids); err != nil {
		return nil, fmt.Errorf("fetch archive: %w", err)
	}
	return ids, nil
}

// FetchThread downloads a thread and converts it into a ThreadRecord.
// The opening post becomes the record body and every later post a reply.
func (f *Fetcher) FetchThread(ctx context.Context, id int64) (*model.ThreadRecord, error) {
	var raw threadResponse
	if err := f.getJSON(ctx, f.boardURL(fmt.Sprintf("thread/%d.json", id)), &raw); err != nil {
		return nil, fmt.Errorf("fetch thread %d: %w", id, err)
	}
	if len(raw.Posts) == 0 {
		return nil, fmt.Errorf("fetch thread %d: %w: no posts", id, ErrDecode)
	}

	op := raw.Posts[0]
	rec := &model.ThreadRecord{
		Title:     op.Sub,
		Text:      markup.Text(op.Com),
		Date:      postTime(op),
		ImageLink: f.imageLink(op),
		Replies:   make([]model.Reply, 0, len(raw.Posts)-1),
	}
	for _, p := range raw.Posts[1:] {
		rec.Replies = append(rec.Replies, model.Reply{
			Text:      markup.Text(p.Com),
			Date:      postTime(p),
			ImageLink: f.imageLink(p),
		})
	}
	return rec, nil
}

func (f *Fetcher) boardURL(path string) string {
	return fmt.Sprintf("%s/%s/%s", f.apiBase, f.board, path)
}

func (f *Fetcher) imageLink(p post) string {
	if p.Tim == 0 || p.Ext == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/%d%s", f.imageBase, f.board, p.Tim, p.Ext)
}

func postTime(p post) time.Time {
	return time.Unix(p.Time, 0).UTC()
}

func (f *Fetcher) getJSON(ctx context.Context, url string, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "BoardMirror/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}
