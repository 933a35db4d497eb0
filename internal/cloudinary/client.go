// Package cloudinary hosts rendered ID cards on Cloudinary.
package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the Cloudinary REST endpoint.
const DefaultBaseURL = "https://api.cloudinary.com/v1_1"

// unsigned lists the upload fields Cloudinary leaves out of the signature.
var unsigned = map[string]bool{"api_key": true, "file": true, "resource_type": true, "cloud_name": true}

// Client uploads card images with signed requests.
type Client struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	BaseURL   string
	HTTP      *http.Client
	Now       func() time.Time
}

// New returns nil when cloudName is empty, which leaves card hosting disabled.
func New(cloudName, apiKey, apiSecret, folder string) *Client {
	if cloudName == "" {
		return nil
	}
	return &Client{
		CloudName: cloudName,
		APIKey:    apiKey,
		APISecret: apiSecret,
		Folder:    folder,
		BaseURL:   DefaultBaseURL,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		Now:       time.Now,
	}
}

// UploadResult is the part of the upload response the console keeps.
type UploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Version   int64  `json:"version"`
	Bytes     int    `json:"bytes"`
}

// APIError is a non-2xx answer from Cloudinary.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cloudinary: status %d: %s", e.Status, e.Message)
}

// Upload stores a card PNG as publicID inside the configured folder, replacing an earlier card.
func (c *Client) Upload(ctx context.Context, data []byte, publicID string) (*UploadResult, error) {
	fields := url.Values{}
	fields.Set("timestamp", strconv.FormatInt(c.Now().Unix(), 10))
	fields.Set("public_id", publicID)
	fields.Set("overwrite", "true")
	if c.Folder != "" {
		fields.Set("folder", c.Folder)
	}
	fields.Set("signature", c.sign(fields))
	fields.Set("api_key", c.APIKey)

	body, contentType, err := cardForm(fields, publicID+".png", data)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: build form: %w", err)
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/" + c.CloudName + "/image/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: upload %s: %w", publicID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, readAPIError(resp)
	}
	var res UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("cloudinary: decode upload of %s: %w", publicID, err)
	}
	return &res, nil
}

// cardForm writes the fields in key order followed by the file part.
func cardForm(fields url.Values, filename string, data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, fields.Get(k)); err != nil {
			return nil, "", err
		}
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// readAPIError prefers Cloudinary's {"error":{"message":...}} body over the raw text.
func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
		msg = body.Error.Message
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

// sign is the hex SHA-1 of the sorted signed fields joined with '&', followed by the secret.
func (c *Client) sign(fields url.Values) string {
	pairs := make([]string, 0, len(fields))
	for k := range fields {
		v := fields.Get(k)
		if unsigned[k] || v == "" {
			continue
		}
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.APISecret))
	return hex.EncodeToString(sum[:])
}
