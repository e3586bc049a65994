package bili

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// State tracks the session through the login lifecycle.
type State int

const (
	StateUnauthenticated State = iota
	StateAwaitingScan
	StateAwaitingConfirm
	StateAuthenticated
	StateQRExpired
	StateLoginFailed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAwaitingScan:
		return "awaiting_scan"
	case StateAwaitingConfirm:
		return "awaiting_confirm"
	case StateAuthenticated:
		return "authenticated"
	case StateQRExpired:
		return "qr_expired"
	case StateLoginFailed:
		return "login_failed"
	default:
		return "unknown"
	}
}

var (
	// ErrQRExpired means the presented code timed out before confirmation.
	// Callers may generate a fresh one.
	ErrQRExpired = errors.New("qr code expired")

	// ErrNotAuthenticated guards calls that need a logged-in session.
	ErrNotAuthenticated = errors.New("session not authenticated")
)

// qrPollInterval is deliberately shorter than the retry interval; the poll
// loop is its own pacing regime, not a retried call.
const qrPollInterval = time.Second

// ProbeSession asks the platform whether the current cookies identify a
// logged-in account. On success the account id and display name are captured
// and the session becomes authenticated. A clean "not logged in" answer is
// not an error; the session simply stays unauthenticated.
func (c *Client) ProbeSession(ctx context.Context) (bool, error) {
	resp, err := RetryDo(ctx, c.retry, "nav probe", func() (apiResponse[navData], error) {
		IncrNavCalls()
		return getJSON[navData](ctx, c, c.apiBase, navPath, nil, "")
	})
	if err != nil {
		return false, err
	}

	// The envelope code is -101 for anonymous sessions; isLogin is the
	// authoritative answer either way.
	if !resp.Data.IsLogin {
		c.state = StateUnauthenticated
		return false, nil
	}

	c.mid = resp.Data.Mid
	c.uname = resp.Data.Uname
	c.state = StateAuthenticated
	slog.Info("session valid",
		slog.Int64("mid", c.mid),
		slog.String("uname", c.uname))
	return true, nil
}

// LoginByQRCode runs the interactive login flow: generate a code, hand its
// content URL to present for display, then poll at a fixed cadence until the
// platform reports success, expiry, or the context ends. On success the
// session cookies are already in the jar and the account identity is
// re-probed so the session lands in the authenticated state.
func (c *Client) LoginByQRCode(ctx context.Context, present func(content string)) error {
	gen, err := RetryDo(ctx, c.retry, "qr generate", func() (apiResponse[qrGenerateData], error) {
		IncrQRGenerates()
		resp, err := getJSON[qrGenerateData](ctx, c, c.passportBase, qrGeneratePath, nil, "")
		if err != nil {
			return resp, err
		}
		return resp, resp.Err()
	})
	if err != nil {
		c.state = StateLoginFailed
		return err
	}

	c.state = StateAwaitingScan
	if present != nil {
		present(gen.Data.URL)
	}
	slog.Info("waiting for qr scan", slog.String("qrcode_key", gen.Data.QrcodeKey))

	limiter := rate.NewLimiter(rate.Every(qrPollInterval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			c.state = StateLoginFailed
			return err
		}

		IncrQRPolls()
		resp, err := getJSON[qrPollData](ctx, c, c.passportBase, qrPollPath,
			url.Values{"qrcode_key": {gen.Data.QrcodeKey}}, "")
		if err != nil {
			// A transport fault mid-poll ends this attempt; the caller
			// restarts the whole flow with a fresh code.
			c.state = StateLoginFailed
			return fmt.Errorf("qr status poll: %w", err)
		}

		switch resp.Data.Code {
		case qrCodeSuccess:
			ok, err := c.ProbeSession(ctx)
			if err != nil {
				c.state = StateLoginFailed
				return err
			}
			if !ok {
				c.state = StateLoginFailed
				return errors.New("login confirmed but session probe failed")
			}
			slog.Info("login successful",
				slog.Int64("mid", c.mid),
				slog.String("uname", c.uname))
			return nil
		case qrCodeExpired:
			c.state = StateQRExpired
			return ErrQRExpired
		case qrCodeScanned:
			if c.state != StateAwaitingConfirm {
				c.state = StateAwaitingConfirm
				slog.Info("qr scanned, waiting for confirmation")
			}
		default:
			// Not yet scanned, or an undocumented transition; keep polling.
		}
	}
}

// RefreshSigningKeys re-derives the request signer from the key fragments
// the nav endpoint embeds in its wbi_img URLs. The fragments are served to
// anonymous sessions too, so this works before login. A signer is only
// swapped in when the fetched fragments are usable; on failure the previous
// key material, if any, stays in place.
func (c *Client) RefreshSigningKeys(ctx context.Context) error {
	resp, err := RetryDo(ctx, c.retry, "nav keys", func() (apiResponse[navData], error) {
		IncrNavCalls()
		return getJSON[navData](ctx, c, c.apiBase, navPath, nil, "")
	})
	if err != nil {
		return err
	}

	imgKey := wbiKeyFromURL(resp.Data.WbiImg.ImgURL)
	subKey := wbiKeyFromURL(resp.Data.WbiImg.SubURL)
	signer := NewSigner(imgKey, subKey)
	if !signer.Ready() {
		slog.Warn("signing keys unavailable", slog.String("img_url", resp.Data.WbiImg.ImgURL))
		return errors.New("signing keys unavailable")
	}
	c.setSigner(signer)
	slog.Debug("signing keys refreshed")
	return nil
}

// wbiKeyFromURL extracts the key fragment hidden in the URL's file name,
// dropping the extension.
func wbiKeyFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	name := path.Base(raw)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return name
}
