// Package ipfs publishes request metadata to an ipfs node.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
)

// Client adds files through the http api of an ipfs node.
type Client struct {
	api  string
	http *http.Client

	log log.Logger
}

// NewClient constructor. api is the node address, e.g. http://localhost:5001.
func NewClient(api string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		api:  strings.TrimSuffix(api, "/"),
		http: httpClient,
		log:  log.New("module", "ipfs"),
	}
}

type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Store adds payload as filename, wrapped in a directory, and returns the
// v0 cid of the directory.
func (c *Client) Store(ctx context.Context, filename string, payload []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(payload); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	url := c.api + "/api/v0/add?wrap-with-directory=true&cid-version=0&pin=true"
	req, err := http.NewRequest(http.MethodPost, url, &body)
	if err != nil {
		return "", err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("ipfs add: %s: %s", resp.Status, raw)
	}

	// one json object per added entry, the wrapping directory comes last
	var added addResponse
	dec := json.NewDecoder(bytes.NewReader(raw))
	for dec.More() {
		if err := dec.Decode(&added); err != nil {
			return "", errors.Wrap(err, "ipfs add response")
		}
	}
	if added.Hash == "" {
		return "", errors.New("ipfs add returned no hash")
	}
	c.log.Debug("Stored file", "name", filename, "cid", added.Hash, "size", len(payload))
	return added.Hash, nil
}
