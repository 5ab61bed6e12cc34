package storage

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	apperrors "github.com/anime-shed/image-forensics-go/internal/errors"
	"github.com/anime-shed/image-forensics-go/internal/logger"
	"github.com/sirupsen/logrus"
)

const (
	fetchAttempts = 3

	// DefaultMaxImageBytes caps the size of a downloaded image body
	DefaultMaxImageBytes = 50 << 20
)

type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) (image.Image, error)
}

// HTTPFetcherOptions tunes the HTTP image fetcher
type HTTPFetcherOptions struct {
	Timeout  time.Duration
	Backoff  time.Duration
	MaxBytes int64
}

// DefaultHTTPFetcherOptions returns the defaults used by NewHTTPImageFetcher
func DefaultHTTPFetcherOptions() HTTPFetcherOptions {
	return HTTPFetcherOptions{
		Timeout:  30 * time.Second,
		Backoff:  time.Second,
		MaxBytes: DefaultMaxImageBytes,
	}
}

// HTTPImageFetcher downloads and decodes images with bounded retries
type HTTPImageFetcher struct {
	client   *http.Client
	backoff  time.Duration
	maxBytes int64
}

// NewHTTPImageFetcher creates an HTTP image fetcher with default options
func NewHTTPImageFetcher() ImageFetcher {
	return NewHTTPImageFetcherWithOptions(DefaultHTTPFetcherOptions())
}

// NewHTTPImageFetcherWithOptions creates an HTTP image fetcher
func NewHTTPImageFetcherWithOptions(opts HTTPFetcherOptions) ImageFetcher {
	transport := &http.Transport{
		// Connection pooling sized for single image downloads
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxImageBytes
	}

	return &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,

			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		backoff:  opts.Backoff,
		maxBytes: opts.MaxBytes,
	}
}

func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid URL", err)
	}

	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/gif, image/bmp, image/tiff, */*")
	req.Header.Set("User-Agent", "Image-Forensics-Go/1.0")

	// Retry only on transient errors; 4xx is final
	var resp *http.Response
	var lastErr error
	notFound := false

	for attempt := 0; attempt < fetchAttempts; attempt++ {
		resp, err = h.client.Do(req)
		if err != nil {
			lastErr = err
			resp = nil
		} else if resp.StatusCode == http.StatusOK {
			break
		} else {
			status := resp.StatusCode
			resp.Body.Close()
			resp = nil

			if status >= 400 && status < 500 {
				lastErr = fmt.Errorf("client error: status code %d", status)
				notFound = status == http.StatusNotFound
				break
			}
			lastErr = fmt.Errorf("server error: status code %d", status)
		}

		if attempt < fetchAttempts-1 {
			logger.WithFields(logrus.Fields{
				"url":     imageURL,
				"attempt": attempt + 1,
				"error":   lastErr,
			}).Warn("Image fetch failed, retrying")

			if err := sleepContext(ctx, time.Duration(attempt+1)*h.backoff); err != nil {
				return nil, apperrors.NewTimeoutError("image fetch cancelled", err)
			}
		}
	}

	if resp == nil {
		if lastErr == nil {
			lastErr = fmt.Errorf("unknown error")
		}
		if notFound {
			return nil, apperrors.NewNotFoundError("image not found", lastErr)
		}
		return nil, apperrors.NewNetworkError(fmt.Sprintf("failed to fetch image after %d attempts", fetchAttempts), lastErr)
	}
	defer resp.Body.Close()

	img, _, err := DecodeImage(io.LimitReader(resp.Body, h.maxBytes))
	if err != nil {
		return nil, err
	}
	return img, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
