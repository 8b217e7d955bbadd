// Package identity resolves actor DIDs to the PDS endpoint that hosts their blobs.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lyzr/cdn/common/clients"
	"github.com/lyzr/cdn/common/models"
)

var (
	ErrResolutionFailed = errors.New("did: failed to resolve did doc")
	ErrNoOriginEndpoint = errors.New("did: no pds endpoint on record")
)

const (
	pdsServiceID   = "#atproto_pds"
	pdsServiceType = "AtprotoPersonalDataServer"

	maxDocumentBytes = 1 << 20
)

// HostValidator vets a did:web document URL before it is requested
type HostValidator interface {
	Validate(ctx context.Context, urlStr string) error
}

// Resolver maps an actor to its origin endpoint
type Resolver interface {
	ResolveOrigin(ctx context.Context, actor models.ActorID) (string, error)
}

// Document is the subset of a DID document the CDN reads
type Document struct {
	ID      string    `json:"id"`
	Service []Service `json:"service"`
}

// Service is one entry of a DID document's service list
type Service struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	ServiceEndpoint any    `json:"serviceEndpoint"`
}

// DIDResolver resolves did:plc through a PLC directory and did:web through
// the host's well-known document.
type DIDResolver struct {
	plcURL    string
	http      *clients.HTTPClient
	timeout   time.Duration
	logger    clients.Logger
	validator HostValidator
	webURL    func(host string) string
}

// NewDIDResolver creates a resolver against the given PLC directory
func NewDIDResolver(plcDirectoryURL string, httpClient *clients.HTTPClient, timeout time.Duration, logger clients.Logger) *DIDResolver {
	return &DIDResolver{
		plcURL:  strings.TrimSuffix(plcDirectoryURL, "/"),
		http:    httpClient,
		timeout: timeout,
		logger:  logger,
		webURL: func(host string) string {
			return "https://" + host + "/.well-known/did.json"
		},
	}
}

// WithValidator checks every did:web document URL with v before it is fetched.
// The PLC directory is operator configured and is not checked.
func (r *DIDResolver) WithValidator(v HostValidator) *DIDResolver {
	r.validator = v
	return r
}

// ResolveOrigin fetches the DID document and returns its PDS endpoint
func (r *DIDResolver) ResolveOrigin(ctx context.Context, actor models.ActorID) (string, error) {
	doc, err := r.Resolve(ctx, actor)
	if err != nil {
		return "", err
	}
	return PDSEndpoint(doc)
}

// Resolve fetches and sanity-checks the DID document for actor
func (r *DIDResolver) Resolve(ctx context.Context, actor models.ActorID) (*Document, error) {
	docURL, err := r.documentURL(actor)
	if err != nil {
		return nil, err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if actor.Method() == "web" && r.validator != nil {
		if err := r.validator.Validate(ctx, docURL); err != nil {
			return nil, fmt.Errorf("%w: did:web host rejected: %v", ErrResolutionFailed, err)
		}
	}

	resp, err := r.http.Get(ctx, docURL)
	if err != nil {
		r.logger.Debug("did document request failed", "did", actor.String(), "url", docURL, "error", err)
		// url.Error carries the document URL, which is not for clients
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Debug("did document lookup rejected", "did", actor.String(), "url", docURL, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrResolutionFailed, resp.StatusCode)
	}

	var doc Document
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDocumentBytes)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode document: %v", ErrResolutionFailed, err)
	}

	if doc.ID != actor.String() {
		return nil, fmt.Errorf("%w: document id %q does not match %q", ErrResolutionFailed, doc.ID, actor)
	}

	r.logger.Debug("resolved did document", "did", actor.String(), "services", len(doc.Service))
	return &doc, nil
}

func (r *DIDResolver) documentURL(actor models.ActorID) (string, error) {
	switch actor.Method() {
	case "plc":
		return r.plcURL + "/" + url.PathEscape(actor.String()), nil
	case "web":
		host, err := url.PathUnescape(actor.MethodSpecificID())
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrResolutionFailed, err)
		}
		// atproto only allows hostname-level did:web, no paths
		if !validWebHost(host) {
			return "", fmt.Errorf("%w: unsupported did:web %q", ErrResolutionFailed, actor)
		}
		return r.webURL(host), nil
	default:
		return "", fmt.Errorf("%w: unsupported did method %q", ErrResolutionFailed, actor.Method())
	}
}

func validWebHost(s string) bool {
	if s == "" || strings.ContainsAny(s, "/?#@") {
		return false
	}
	host, port, found := strings.Cut(s, ":")
	if !found {
		return true
	}
	return host != "" && port != "" && strings.Trim(port, "0123456789") == ""
}

// PDSEndpoint extracts the atproto PDS service endpoint from doc
func PDSEndpoint(doc *Document) (string, error) {
	for _, svc := range doc.Service {
		if svc.ID != pdsServiceID && svc.ID != doc.ID+pdsServiceID {
			continue
		}
		if svc.Type != pdsServiceType {
			continue
		}

		endpoint, ok := svc.ServiceEndpoint.(string)
		if !ok {
			return "", fmt.Errorf("%w: service endpoint is not a string", ErrNoOriginEndpoint)
		}

		u, err := url.Parse(endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "", fmt.Errorf("%w: invalid service endpoint %q", ErrNoOriginEndpoint, endpoint)
		}

		return strings.TrimSuffix(endpoint, "/"), nil
	}

	return "", ErrNoOriginEndpoint
}
