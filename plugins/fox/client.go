package fox

import (
	"context"
	"errors"
	"fmt"
	"github.com/tidwall/gjson"
	"io"
	"net/http"
	"time"
)

// DefaultEndpoint is the randomfox.ca API that returns one random fox image.
const DefaultEndpoint = "https://randomfox.ca/floof/"

// ErrImageNotFound is returned when the API response carries no image URL.
var ErrImageNotFound = errors.New("image is not found in response")

// Config contains some configuration variables for Client.
type Config struct {
	Endpoint string        `json:"endpoint" yaml:"endpoint"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
}

// NewConfig returns initialized Config struct with default settings.
func NewConfig() *Config {
	return &Config{
		Endpoint: DefaultEndpoint,
		Timeout:  5 * time.Second,
	}
}

// Floof is one random fox returned by the API.
type Floof struct {
	Image string
	Link  string
}

// Client is an API client for randomfox.ca.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates and returns a new API client with the given Config struct.
func NewClient(config *Config) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Floof fetches a random fox.
func (client *Client) Floof(ctx context.Context) (*Floof, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.config.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed on GET request for %s: %w", client.config.Endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("response status %d is returned", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("failed to parse returned json data: %s", string(body))
	}

	image := gjson.GetBytes(body, "image").String()
	if image == "" {
		return nil, ErrImageNotFound
	}

	return &Floof{
		Image: image,
		Link:  gjson.GetBytes(body, "link").String(),
	}, nil
}
