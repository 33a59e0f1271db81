package flickr

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wishlane/wishlane-backend/pkg/config"
)

const (
	defaultRESTURL   = "https://api.flickr.com/services/rest"
	defaultUploadURL = "https://up.flickr.com/services/upload/"

	errorBodyReadLimit = 2048
)

var errNotConfigured = errors.New("flickr credentials are not configured")

// Client talks to the Flickr REST and upload APIs with OAuth 1.0a signing.
type Client struct {
	httpClient       *http.Client
	restURL          string
	uploadURL        string
	apiKey           string
	apiSecret        string
	oauthToken       string
	oauthTokenSecret string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithEndpoints overrides the REST and upload endpoints.
func WithEndpoints(restURL, uploadURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(restURL); trimmed != "" {
			c.restURL = trimmed
		}
		if trimmed := strings.TrimSpace(uploadURL); trimmed != "" {
			c.uploadURL = trimmed
		}
	}
}

// NewClient builds the Flickr client from configuration.
func NewClient(cfg config.FlickrConfig, opts ...Option) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errNotConfigured
	}

	client := &Client{
		httpClient:       &http.Client{Timeout: 30 * time.Second},
		restURL:          defaultRESTURL,
		uploadURL:        defaultUploadURL,
		apiKey:           cfg.APIKey,
		apiSecret:        cfg.APISecret,
		oauthToken:       cfg.OAuthToken,
		oauthTokenSecret: cfg.OAuthTokenSecret,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

type uploadResponse struct {
	XMLName xml.Name `xml:"rsp"`
	Stat    string   `xml:"stat,attr"`
	PhotoID string   `xml:"photoid"`
	Err     struct {
		Code string `xml:"code,attr"`
		Msg  string `xml:"msg,attr"`
	} `xml:"err"`
}

// Upload pushes photo bytes to the upload endpoint and returns the photo id.
func (c *Client) Upload(ctx context.Context, photo []byte, fileName, title string) (string, error) {
	params := c.oauthParams()
	params["title"] = title
	params["is_public"] = "1"
	c.sign(http.MethodPost, c.uploadURL, params)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range params {
		if err := writer.WriteField(k, v); err != nil {
			return "", fmt.Errorf("building upload form: %w", err)
		}
	}
	part, err := writer.CreateFormFile("photo", fileName)
	if err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if _, err := part.Write(photo); err != nil {
		return "", fmt.Errorf("writing photo bytes: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("closing upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return "", fmt.Errorf("upload returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var decoded uploadResponse
	if err := xml.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if decoded.Stat != "ok" {
		return "", fmt.Errorf("upload failed: %s (%s)", decoded.Err.Msg, decoded.Err.Code)
	}
	if decoded.PhotoID == "" {
		return "", errors.New("upload response missing photo id")
	}

	return decoded.PhotoID, nil
}

// CreatePhotoset creates a set with the provided primary photo and returns its id.
func (c *Client) CreatePhotoset(ctx context.Context, title, primaryPhotoID string) (string, error) {
	var decoded struct {
		Photoset struct {
			ID string `json:"id"`
		} `json:"photoset"`
		Stat    string `json:"stat"`
		Message string `json:"message"`
	}
	err := c.call(ctx, "flickr.photosets.create", map[string]string{
		"title":            title,
		"primary_photo_id": primaryPhotoID,
	}, &decoded)
	if err != nil {
		return "", err
	}
	if decoded.Stat != "ok" {
		return "", fmt.Errorf("photosets.create failed: %s", decoded.Message)
	}
	return decoded.Photoset.ID, nil
}

// AddToPhotoset attaches the photo to an existing set.
func (c *Client) AddToPhotoset(ctx context.Context, photosetID, photoID string) error {
	var decoded struct {
		Stat    string `json:"stat"`
		Message string `json:"message"`
	}
	err := c.call(ctx, "flickr.photosets.addPhoto", map[string]string{
		"photoset_id": photosetID,
		"photo_id":    photoID,
	}, &decoded)
	if err != nil {
		return err
	}
	if decoded.Stat != "ok" {
		return fmt.Errorf("photosets.addPhoto failed: %s", decoded.Message)
	}
	return nil
}

// Size is one available rendition of a photo.
type Size struct {
	Label  string `json:"label"`
	Width  int    `json:"width,string"`
	Height int    `json:"height,string"`
	Source string `json:"source"`
}

// GetSizes lists the renditions available for a photo.
func (c *Client) GetSizes(ctx context.Context, photoID string) ([]Size, error) {
	var decoded struct {
		Sizes struct {
			Size []Size `json:"size"`
		} `json:"sizes"`
		Stat    string `json:"stat"`
		Message string `json:"message"`
	}
	err := c.call(ctx, "flickr.photos.getSizes", map[string]string{
		"photo_id": photoID,
	}, &decoded)
	if err != nil {
		return nil, err
	}
	if decoded.Stat != "ok" {
		return nil, fmt.Errorf("photos.getSizes failed: %s", decoded.Message)
	}
	return decoded.Sizes.Size, nil
}

// LargestDisplayURL picks the widest non-Original rendition. Original assets
// can be access-restricted even on public photos, so display sizes win.
func LargestDisplayURL(sizes []Size) string {
	best := ""
	bestWidth := -1
	for _, size := range sizes {
		if strings.EqualFold(size.Label, "Original") {
			continue
		}
		if size.Source == "" {
			continue
		}
		if size.Width > bestWidth {
			bestWidth = size.Width
			best = size.Source
		}
	}
	return best
}

func (c *Client) call(ctx context.Context, method string, args map[string]string, dest any) error {
	params := c.oauthParams()
	params["method"] = method
	params["format"] = "json"
	params["nojsoncallback"] = "1"
	for k, v := range args {
		params[k] = v
	}
	c.sign(http.MethodGet, c.restURL, params)

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.restURL+"?"+values.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return fmt.Errorf("%s returned %s: %s", method, resp.Status, strings.TrimSpace(string(raw)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	return nil
}
