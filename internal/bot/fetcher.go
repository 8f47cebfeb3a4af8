package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Fetcher downloads uploaded photos through Telegram's getFile API. It
// implements transfer.ArtifactFetcher: the ref is a Telegram file id.
type Fetcher struct {
	api         *tgbotapi.BotAPI
	httpClient  *http.Client
	maxFileSize int64
}

func NewFetcher(api *tgbotapi.BotAPI, maxFileSize int64) *Fetcher {
	return &Fetcher{
		api:         api,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		maxFileSize: maxFileSize,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	file, err := f.api.GetFile(tgbotapi.FileConfig{FileID: ref})
	if err != nil {
		return nil, fmt.Errorf("resolve file %s: %w", ref, err)
	}
	if f.maxFileSize > 0 && int64(file.FileSize) > f.maxFileSize {
		return nil, fmt.Errorf("file %s is %d bytes, limit %d", ref, file.FileSize, f.maxFileSize)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(f.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file %s: status %d", ref, resp.StatusCode)
	}

	limit := f.maxFileSize
	if limit <= 0 {
		limit = 50 << 20
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", ref, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file %s exceeds %d bytes", ref, limit)
	}
	return data, nil
}
