package natureremo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	BASE_URL = "https://api.nature.global/1"
)

// CloudClient is the subset of the Nature Remo cloud API the bridge uses.
type CloudClient interface {
	GetMe(ctx context.Context) (*User, error)
	GetDevices(ctx context.Context) ([]Device, error)
	GetAppliances(ctx context.Context) ([]Appliance, error)
	UpdateAirconSettings(ctx context.Context, applianceId string, update AirconSettingsUpdate) (*AirconSettings, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient returns a client authenticating every request with the given
// access token as a bearer token.
func NewClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = BASE_URL
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	httpClient.Timeout = timeout

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var user User
	if err := c.get(ctx, "/users/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetDevices(ctx context.Context) ([]Device, error) {
	c.logger.Debug("natureremo: fetching device list")
	var devices []Device
	if err := c.get(ctx, "/devices", &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

func (c *Client) GetDevice(ctx context.Context, deviceId string) (*Device, error) {
	c.logger.Debug("natureremo: fetching device", zap.String("device", deviceId))
	devices, err := c.GetDevices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if devices[i].Id == deviceId {
			return &devices[i], nil
		}
	}
	return nil, NotFoundError()
}

func (c *Client) GetAppliances(ctx context.Context) ([]Appliance, error) {
	c.logger.Debug("natureremo: fetching appliance list")
	var appliances []Appliance
	if err := c.get(ctx, "/appliances", &appliances); err != nil {
		return nil, err
	}
	return appliances, nil
}

func (c *Client) GetAppliance(ctx context.Context, applianceId string) (*Appliance, error) {
	c.logger.Debug("natureremo: fetching appliance", zap.String("appliance", applianceId))
	appliances, err := c.GetAppliances(ctx)
	if err != nil {
		return nil, err
	}
	for i := range appliances {
		if appliances[i].Id == applianceId {
			return &appliances[i], nil
		}
	}
	return nil, NotFoundError()
}

func (c *Client) UpdateAirconSettings(ctx context.Context, applianceId string, update AirconSettingsUpdate) (*AirconSettings, error) {
	form := url.Values{}
	for k, v := range update.Fields() {
		form.Set(k, v)
	}
	var settings AirconSettings
	if err := c.Post(ctx, fmt.Sprintf("/appliances/%s/aircon_settings", url.PathEscape(applianceId)), form, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Post sends a form-encoded request to path and decodes the JSON response
// into out, which may be nil.
func (c *Client) Post(ctx context.Context, path string, form url.Values, out any) error {
	c.logger.Debug("natureremo: post", zap.String("path", path), zap.Any("data", form))
	return c.do(ctx, http.MethodPost, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Cause: fmt.Errorf("read %s response: %w", path, err)}
	}

	if apiErr := parseError(raw); apiErr != nil {
		return apiErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{
			Code:    resp.StatusCode,
			Message: http.StatusText(resp.StatusCode),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Cause: fmt.Errorf("decode %s response: %w", path, err)}
	}
	return nil
}

// parseError detects the cloud error body, a JSON object carrying code and
// message. Lists and objects without code are not errors.
func parseError(raw []byte) *Error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var body struct {
		Code    *int   `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &body); err != nil || body.Code == nil {
		return nil
	}
	return &Error{
		Code:    *body.Code,
		Message: body.Message,
	}
}

// ensure interface compliance
var _ CloudClient = (*Client)(nil)
