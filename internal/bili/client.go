package bili

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// DefaultUserAgent matches a recent desktop Chrome. The platform rejects
// library-default agents on several endpoints.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

const (
	defaultAPIBase      = "https://api.bilibili.com"
	defaultPassportBase = "https://passport.bilibili.com"

	// spaceBase builds the Referer values the space endpoints insist on.
	spaceBase = "https://space.bilibili.com"

	// VideoURLBase prefixed with a bvid yields the canonical watch URL.
	VideoURLBase = "https://www.bilibili.com/video/"
)

const (
	navPath          = "/x/web-interface/nav"
	qrGeneratePath   = "/x/passport-login/web/qrcode/generate"
	qrPollPath       = "/x/passport-login/web/qrcode/poll"
	relationTagsPath = "/x/relation/tags"
	relationTagPath  = "/x/relation/tag"
	arcSearchPath    = "/x/space/wbi/arc/search"
	viewPath         = "/x/web-interface/view"
)

// Config carries the knobs for a platform session. Zero values select the
// production hosts and polite defaults.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Retry     RetryPolicy

	// APIBase and PassportBase override the platform hosts, for tests.
	APIBase      string
	PassportBase string
}

// Client is one platform session: an HTTP client with a persistent cookie
// jar, the current signing key derivation, and the retry policy shared by
// every call. Methods are not safe for concurrent use during login; after
// authentication the read paths may be called from multiple goroutines.
type Client struct {
	http         *http.Client
	ua           string
	apiBase      string
	passportBase string
	retry        RetryPolicy

	// signerMu guards the signer swap: a key refresh triggered by one
	// worker must not race other workers reading the pointer mid-sign.
	signerMu sync.RWMutex
	signer   *Signer

	state State
	mid   int64
	uname string
}

// New builds an unauthenticated session. Call LoadCookies plus ProbeSession,
// or LoginByQRCode, before any authenticated call.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retry.Max == 0 {
		cfg.Retry = DefaultRetryPolicy
	}
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.PassportBase == "" {
		cfg.PassportBase = defaultPassportBase
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &Client{
		http: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
		ua:           cfg.UserAgent,
		apiBase:      cfg.APIBase,
		passportBase: cfg.PassportBase,
		retry:        cfg.Retry,
		signer:       &Signer{},
		state:        StateUnauthenticated,
	}, nil
}

// State reports where the session is in the login lifecycle.
func (c *Client) State() State { return c.state }

// Mid returns the authenticated account id, 0 before login.
func (c *Client) Mid() int64 { return c.mid }

// Uname returns the authenticated display name, empty before login.
func (c *Client) Uname() string { return c.uname }

func (c *Client) currentSigner() *Signer {
	c.signerMu.RLock()
	defer c.signerMu.RUnlock()
	return c.signer
}

func (c *Client) setSigner(s *Signer) {
	c.signerMu.Lock()
	c.signer = s
	c.signerMu.Unlock()
}

// getJSON performs one GET against base+path and decodes the response
// envelope. Transport faults and non-2xx statuses are errors; the envelope
// code is returned to the caller undisturbed because several endpoints carry
// usable data alongside a non-zero code.
func getJSON[T any](ctx context.Context, c *Client, base, path string, query url.Values, referer string) (apiResponse[T], error) {
	var out apiResponse[T]

	u := base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return out, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.ua)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, &httpStatusError{StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

// SaveCookies writes the session cookies as a flat name-to-value map,
// the shape other tooling around the platform expects. The file ends up
// mode 0600 because it holds the session credential.
func (c *Client) SaveCookies(path string) error {
	base, err := url.Parse(c.apiBase)
	if err != nil {
		return fmt.Errorf("parse api base: %w", err)
	}

	flat := make(map[string]string)
	for _, ck := range c.http.Jar.Cookies(base) {
		flat[ck.Name] = ck.Value
	}

	data, err := json.MarshalIndent(flat, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cookies: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create cookie directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write cookie file: %w", err)
	}
	return nil
}

// LoadCookies restores a saved cookie map into the jar. A missing file is
// reported via fs.ErrNotExist so callers can fall through to a fresh login.
func (c *Client) LoadCookies(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read cookie file: %w", err)
	}

	var flat map[string]string
	if err := json.Unmarshal(data, &flat); err != nil {
		return fmt.Errorf("unmarshal cookies: %w", err)
	}

	base, err := url.Parse(c.apiBase)
	if err != nil {
		return fmt.Errorf("parse api base: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(flat))
	for name, value := range flat {
		cookies = append(cookies, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	c.http.Jar.SetCookies(base, cookies)
	return nil
}
