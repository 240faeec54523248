package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vterekhov/recordsync/internal/wire"
)

// WriteTimeout bounds both connection establishment and the full response of
// every remote write operation. Timed-out writes classify as recoverable.
const WriteTimeout = 10 * time.Second

// errorBody is the JSON error shape the server responds with.
type errorBody struct {
	Error  string            `json:"error"`
	Failed map[string]string `json:"failed,omitempty"`
}

// httpClient is the transport shared by the two database handles and the
// asset endpoints of one container.
type httpClient struct {
	baseURL    string
	actorToken string
	client     *http.Client
}

// NewHTTPContainer builds a Container speaking JSON over HTTP to baseURL,
// authenticating every call with the given actor token.
func NewHTTPContainer(baseURL, actorToken string) *Container {
	hc := &httpClient{
		baseURL:    baseURL,
		actorToken: actorToken,
		client:     &http.Client{},
	}
	return &Container{
		Private: &httpDatabase{c: hc, scope: wire.ScopePrivate},
		Shared:  &httpDatabase{c: hc, scope: wire.ScopeShared},
		Assets:  &httpAssets{c: hc},
	}
}

// do performs one JSON round-trip. A nil in sends no body; a nil out discards
// the response body.
func (c *httpClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.actorToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return mapStatus(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

func mapStatus(resp *http.Response) error {
	var eb errorBody
	_ = json.NewDecoder(resp.Body).Decode(&eb)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrPermission
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusGone:
		return ErrExpiredToken
	case http.StatusLocked:
		return ErrZoneBusy
	case http.StatusInsufficientStorage:
		return ErrQuota
	case http.StatusUnprocessableEntity:
		if len(eb.Failed) > 0 {
			return &PartialError{Failed: eb.Failed}
		}
		return fmt.Errorf("rejected: %s", eb.Error)
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return ErrUnavailable
	default:
		if eb.Error != "" {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, eb.Error)
		}
		return fmt.Errorf("server error (%d)", resp.StatusCode)
	}
}

type httpDatabase struct {
	c     *httpClient
	scope wire.Scope
}

func (d *httpDatabase) Scope() wire.Scope { return d.scope }

func (d *httpDatabase) path(suffix string) string {
	return "/api/" + string(d.scope) + suffix
}

// withWriteTimeout derives the bounded context used for every write.
func withWriteTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, WriteTimeout)
}

func (d *httpDatabase) SaveRecords(ctx context.Context, records []*wire.Record) ([]*wire.Record, error) {
	ctx, cancel := withWriteTimeout(ctx)
	defer cancel()

	var saved []*wire.Record
	if err := d.c.do(ctx, http.MethodPost, d.path("/records"), records, &saved); err != nil {
		return nil, err
	}
	return saved, nil
}

func (d *httpDatabase) DeleteRecord(ctx context.Context, name string) error {
	ctx, cancel := withWriteTimeout(ctx)
	defer cancel()

	return d.c.do(ctx, http.MethodDelete, d.path("/records/"+url.PathEscape(name)), nil, nil)
}

func (d *httpDatabase) FetchRecord(ctx context.Context, name string) (*wire.Record, error) {
	var rec wire.Record
	if err := d.c.do(ctx, http.MethodGet, d.path("/records/"+url.PathEscape(name)), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (d *httpDatabase) FetchAll(ctx context.Context) ([]*wire.Record, error) {
	var recs []*wire.Record
	if err := d.c.do(ctx, http.MethodGet, d.path("/records"), nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (d *httpDatabase) Query(ctx context.Context, q wire.Query) ([]*wire.Record, error) {
	var recs []*wire.Record
	if err := d.c.do(ctx, http.MethodPost, d.path("/query"), q, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (d *httpDatabase) SaveZone(ctx context.Context, name string) error {
	ctx, cancel := withWriteTimeout(ctx)
	defer cancel()

	in := map[string]string{"name": name}
	return d.c.do(ctx, http.MethodPost, d.path("/zones"), in, nil)
}

func (d *httpDatabase) FetchZones(ctx context.Context) ([]string, error) {
	var zones []string
	if err := d.c.do(ctx, http.MethodGet, d.path("/zones"), nil, &zones); err != nil {
		return nil, err
	}
	return zones, nil
}

func (d *httpDatabase) SaveSubscription(ctx context.Context, sub wire.Subscription) error {
	ctx, cancel := withWriteTimeout(ctx)
	defer cancel()

	return d.c.do(ctx, http.MethodPost, d.path("/subscriptions"), sub, nil)
}

func (d *httpDatabase) DatabaseChanges(ctx context.Context, since wire.Token) (*wire.DatabaseChangesPage, error) {
	var page wire.DatabaseChangesPage
	p := d.path("/changes/database?since=" + url.QueryEscape(string(since)))
	if err := d.c.do(ctx, http.MethodGet, p, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (d *httpDatabase) ZoneChanges(ctx context.Context, zone string, since wire.Token) (*wire.ZoneChangesPage, error) {
	var page wire.ZoneChangesPage
	p := d.path("/changes/zone?zone=" + url.QueryEscape(zone) + "&since=" + url.QueryEscape(string(since)))
	if err := d.c.do(ctx, http.MethodGet, p, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (d *httpDatabase) SaveShare(ctx context.Context, share wire.Share) (*wire.Share, error) {
	ctx, cancel := withWriteTimeout(ctx)
	defer cancel()

	var saved wire.Share
	if err := d.c.do(ctx, http.MethodPost, d.path("/shares"), share, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (d *httpDatabase) AcceptShare(ctx context.Context, meta wire.ShareMetadata) (*wire.Record, error) {
	ctx, cancel := withWriteTimeout(ctx)
	defer cancel()

	var rec wire.Record
	if err := d.c.do(ctx, http.MethodPost, d.path("/shares/accept"), meta, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

type httpAssets struct {
	c *httpClient
}

type assetURLBody struct {
	Key string `json:"key,omitempty"`
	URL string `json:"url"`
}

func (a *httpAssets) UploadURL(ctx context.Context) (string, string, error) {
	var out assetURLBody
	if err := a.c.do(ctx, http.MethodPost, "/api/assets/upload-url", nil, &out); err != nil {
		return "", "", err
	}
	return out.Key, out.URL, nil
}

func (a *httpAssets) DownloadURL(ctx context.Context, key string) (string, error) {
	var out assetURLBody
	p := "/api/assets/download-url?key=" + url.QueryEscape(key)
	if err := a.c.do(ctx, http.MethodGet, p, nil, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}
