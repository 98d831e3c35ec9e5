package behaviour

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"net/http"
)

// HTTPClient is the HTTPFetcher over net/http.
type HTTPClient struct {
	Client *http.Client
}

// Fetch performs the request and reads the whole body.
func (c HTTPClient) Fetch(ctx context.Context, r HTTPRequest) (HTTPResponse, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequest(r.Method, r.URL, body)
	if err != nil {
		return HTTPResponse{}, err
	}
	req = req.WithContext(ctx)
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return HTTPResponse{}, err
	}
	defer resp.Body.Close()
	raw, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return HTTPResponse{}, err
	}
	return HTTPResponse{StatusCode: resp.StatusCode, Body: raw}, nil
}
