package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const Scope = "https://graph.microsoft.com/.default"

type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	SenderEmail  string
	AuthURL      string
	GraphURL     string
}

// Missing returns the names of unset required variables.
func (c Config) Missing() []string {
	var out []string
	for _, v := range []struct{ name, val string }{
		{"MICROSOFT_TENANT_ID", c.TenantID},
		{"MICROSOFT_CLIENT_ID", c.ClientID},
		{"MICROSOFT_CLIENT_SECRET", c.ClientSecret},
		{"MICROSOFT_SENDER_EMAIL", c.SenderEmail},
	} {
		if strings.TrimSpace(v.val) == "" {
			out = append(out, v.name)
		}
	}
	return out
}

func (c Config) tokenURL() string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/token", strings.TrimRight(c.AuthURL, "/"), url.PathEscape(c.TenantID))
}

type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = "https://login.microsoftonline.com"
	}
	if cfg.GraphURL == "" {
		cfg.GraphURL = "https://graph.microsoft.com/v1.0"
	}
	return &Client{cfg: cfg, http: hc}
}

func (c *Client) Sender() string { return c.cfg.SenderEmail }

func (c *Client) SendMail(ctx context.Context, m Mail) error {
	if len(m.To) == 0 {
		return errors.New("mail has no recipients")
	}
	body := sendMailRequest{Message: m.message(), SaveToSentItems: true}
	return c.post(ctx, "sendMail", body, nil)
}

func (c *Client) CreateEvent(ctx context.Context, e Event) (*CreatedEvent, error) {
	req, err := e.request()
	if err != nil {
		return nil, err
	}
	var out CreatedEvent
	if err := c.post(ctx, "events", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// token fetches a fresh access token on every call.
func (c *Client) token(ctx context.Context) (string, error) {
	if missing := c.cfg.Missing(); len(missing) > 0 {
		return "", &ConfigError{Missing: missing}
	}
	cc := clientcredentials.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		TokenURL:     c.cfg.tokenURL(),
		Scopes:       []string{Scope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	tok, err := cc.Token(context.WithValue(ctx, oauth2.HTTPClient, c.http))
	if err != nil {
		te := &TokenError{Err: err}
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			if re.Response != nil {
				te.Status = re.Response.StatusCode
			}
			te.Code = re.ErrorCode
			te.Description = re.ErrorDescription
		}
		return "", te
	}
	return tok.AccessToken, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	access, err := c.token(ctx)
	if err != nil {
		return err
	}
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/users/%s/%s", strings.TrimRight(c.cfg.GraphURL, "/"), url.PathEscape(c.cfg.SenderEmail), path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+access)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("graph %s: %w", path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp.StatusCode, raw)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode graph %s response: %w", path, err)
		}
	}
	return nil
}

func apiError(status int, raw []byte) *APIError {
	e := &APIError{Status: status, Hint: hintFor(status)}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		e.Code = body.Error.Code
		e.Message = body.Error.Message
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(raw))
	}
	return e
}
