package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
)

// maxBodySize caps feed responses; SondeHub's aggregate can be large.
const maxBodySize = 32 << 20

// GetJSON performs a GET request and returns the parsed JSON document.
func GetJSON(ctx context.Context, client *http.Client, u *url.URL) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		// url.Error embeds the full URL, including API keys
		return gjson.Result{}, fmt.Errorf("requesting %s: %w", Redact(u), unwrapURLError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, &StatusError{Code: resp.StatusCode, URL: Redact(u)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("reading response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("invalid JSON from %s", Redact(u))
	}

	return gjson.ParseBytes(body), nil
}

// Redact returns the URL with secret query parameters masked.
func Redact(u *url.URL) string {
	q := u.Query()
	if q.Has("apikey") {
		q.Set("apikey", "xxxxx")
		c := *u
		c.RawQuery = q.Encode()
		return c.String()
	}
	return u.String()
}

func unwrapURLError(err error) error {
	if ue, ok := err.(*url.Error); ok {
		return ue.Err
	}
	return err
}
