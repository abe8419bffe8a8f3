package site

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/publicsuffix"

	"telegram-sender-admin/internal/config"
	"telegram-sender-admin/internal/domain"
	"telegram-sender-admin/internal/domain/ports/adapter"
	"telegram-sender-admin/internal/infra/metrics"
)

const (
	getAccountDataPath = "/dataFunctions/getAccountData"
	editAccountPath    = "/dataFunctions/editAccount"
	maxBodyBytes       = 1 << 20
)

var errNoCSRFMeta = errors.New("csrf-token meta tag not found")

// Client talks to the sender panel with a pre-authenticated cookie session.
type Client struct {
	baseURL     string
	sessionPath string
	userAgent   string
	http        *http.Client
	log         *zerolog.Logger

	mu    sync.Mutex
	token string
}

var _ adapter.SenderSite = (*Client)(nil)

func NewClient(cfg config.SiteConfig, logger *zerolog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid site base url %q", cfg.BaseURL)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(cfg.Cookies))
	for name, value := range cfg.Cookies {
		cookies = append(cookies, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	jar.SetCookies(base, cookies)

	compLog := logger.With().Str("component", "SiteClient").Logger()
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		sessionPath: cfg.SessionPath,
		userAgent:   cfg.UserAgent,
		http:        &http.Client{Jar: jar, Timeout: cfg.Timeout},
		log:         &compLog,
	}, nil
}

// CSRFToken returns the cached token or scrapes a fresh one from the session page.
func (c *Client) CSRFToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.sessionPath, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.decorate(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetch session page: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()
	metrics.IncSiteRequest("session", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: session page status %d", domain.ErrTransientAuth, resp.StatusCode)
	}
	token, err := extractCSRFToken(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTransientAuth, err)
	}
	c.token = token
	c.log.Debug().Msg("csrf token refreshed")
	return token, nil
}

func (c *Client) InvalidateCSRF() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *Client) GetAccountData(ctx context.Context, accountID, csrfToken string) (*adapter.AccountDataResponse, error) {
	form := url.Values{}
	form.Set("idAccount", accountID)
	form.Set("csrf_token", csrfToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+getAccountDataPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	status, body, err := c.do(req, "get_account_data")
	if err != nil {
		return nil, err
	}
	out := &adapter.AccountDataResponse{StatusCode: status, Body: string(body)}
	if status != http.StatusOK {
		return out, nil
	}

	var payload struct {
		Data []interface{} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode account data: %v", domain.ErrDataFetch, err)
	}
	out.Row = make([]string, len(payload.Data))
	for i, v := range payload.Data {
		out.Row[i] = stringify(v)
	}
	return out, nil
}

// editAccountPayload is the full record the panel expects; untouched panel
// fields are sent with their neutral values.
type editAccountPayload struct {
	IDAccount    string `json:"idAccount"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	AmountToTake string `json:"amountToTake"`
	AmountToKeep string `json:"amountToKeep"`
	BackupCodes  string `json:"backupCodes"`
	GroupName    string `json:"groupName"`
	Priority     string `json:"priority"`
	AccountLock  int    `json:"accountLock"`
	ForceProxy   string `json:"forceProxy"`
	UserPrice    string `json:"userPrice"`
	CSRFToken    string `json:"csrf_token"`
}

func (c *Client) EditAccount(ctx context.Context, r adapter.EditAccountRequest) (*adapter.EditAccountResponse, error) {
	jsonData, err := json.Marshal(editAccountPayload{
		IDAccount:   r.AccountID,
		Email:       r.Email,
		Password:    r.Password,
		BackupCodes: r.BackupCodes,
		GroupName:   r.Group,
		Priority:    "0",
		AccountLock: 1,
		CSRFToken:   r.CSRFToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+editAccountPath, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	status, body, err := c.do(req, "edit_account")
	if err != nil {
		return nil, err
	}
	return &adapter.EditAccountResponse{StatusCode: status, Body: string(body)}, nil
}

func (c *Client) do(req *http.Request, endpoint string) (int, []byte, error) {
	c.decorate(req)
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.IncSiteRequest(endpoint, 0)
		return 0, nil, fmt.Errorf("%w: %s: %v", domain.ErrNetwork, endpoint, err)
	}
	defer resp.Body.Close()
	metrics.IncSiteRequest(endpoint, resp.StatusCode)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read %s body: %v", domain.ErrNetwork, endpoint, err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

// extractCSRFToken finds <meta name="csrf-token" content="...">.
func extractCSRFToken(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}
	var walk func(n *html.Node) string
	walk = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.Data == "meta" && getAttr(n, "name") == "csrf-token" {
			return getAttr(n, "content")
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if v := walk(child); v != "" {
				return v
			}
		}
		return ""
	}
	if token := walk(doc); token != "" {
		return token, nil
	}
	return "", errNoCSRFMeta
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// stringify renders a decoded JSON scalar the way the panel displays it.
func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
