// Package origin downloads blobs from an actor's PDS.
package origin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/lyzr/cdn/common/clients"
	"github.com/lyzr/cdn/common/models"
)

var ErrFetchFailed = errors.New("blob: failed to fetch blob from pds")

const getBlobPath = "/xrpc/com.atproto.sync.getBlob"

// Fetcher retrieves raw blob bytes from an origin
type Fetcher interface {
	FetchBlob(ctx context.Context, origin string, actor models.ActorID, content models.ContentID) ([]byte, error)
}

// EndpointValidator vets an origin URL before any connection is made
type EndpointValidator interface {
	Validate(ctx context.Context, urlStr string) error
}

// xrpcError is the error body an XRPC server returns on failure
type xrpcError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// XRPCFetcher calls com.atproto.sync.getBlob on the origin PDS.
// It never retries.
type XRPCFetcher struct {
	http      *clients.HTTPClient
	validator EndpointValidator
	timeout   time.Duration
	maxBytes  int64
	logger    clients.Logger
}

// NewXRPCFetcher creates a fetcher. validator may be nil to skip endpoint checks.
func NewXRPCFetcher(httpClient *clients.HTTPClient, validator EndpointValidator, timeout time.Duration, maxBytes int64, logger clients.Logger) *XRPCFetcher {
	return &XRPCFetcher{
		http:      httpClient,
		validator: validator,
		timeout:   timeout,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// FetchBlob downloads the blob named by content from the actor's repository on origin
func (f *XRPCFetcher) FetchBlob(ctx context.Context, origin string, actor models.ActorID, content models.ContentID) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	if f.validator != nil {
		if err := f.validator.Validate(ctx, origin); err != nil {
			return nil, fmt.Errorf("%w: origin rejected: %v", ErrFetchFailed, err)
		}
	}

	reqURL := BlobURL(origin, actor, content)

	resp, err := f.http.Get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrFetchFailed, describeFailure(resp))
	}

	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: blob is %d bytes, limit is %d", ErrFetchFailed, resp.ContentLength, f.maxBytes)
	}

	body := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetchFailed, err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: blob exceeds %d bytes", ErrFetchFailed, f.maxBytes)
	}

	f.logger.Debug("fetched blob", "origin", origin, "did", actor.String(), "cid", content.String(), "size", len(data))
	return data, nil
}

// BlobURL builds the getBlob request URL
func BlobURL(origin string, actor models.ActorID, content models.ContentID) string {
	q := url.Values{}
	q.Set("did", actor.String())
	q.Set("cid", content.String())
	return origin + getBlobPath + "?" + q.Encode()
}

func describeFailure(resp *http.Response) string {
	var xe xrpcError
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &xe); err == nil && xe.Error != "" {
		if xe.Message != "" {
			return fmt.Sprintf("status %d: %s: %s", resp.StatusCode, xe.Error, xe.Message)
		}
		return fmt.Sprintf("status %d: %s", resp.StatusCode, xe.Error)
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}
