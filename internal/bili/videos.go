package bili

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
)

// DefaultVideoPageSize mirrors the web player's listing page.
const DefaultVideoPageSize = 30

// ListCreatorVideos returns one page of a creator's uploads, most recent
// first. The call is wbi-signed; a signature rejection triggers one key
// refresh followed by a second attempt, since rejection usually means the
// server rotated its key material mid-run.
func (c *Client) ListCreatorVideos(ctx context.Context, mid int64, page, pageSize int) ([]VideoSummary, error) {
	if c.state != StateAuthenticated {
		return nil, ErrNotAuthenticated
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultVideoPageSize
	}
	if !c.currentSigner().Ready() {
		if err := c.RefreshSigningKeys(ctx); err != nil {
			return nil, err
		}
	}

	list, err := c.listCreatorVideosOnce(ctx, mid, page, pageSize)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == codeSignatureRejected {
		slog.Warn("signature rejected, refreshing keys", slog.Int64("mid", mid))
		if rerr := c.RefreshSigningKeys(ctx); rerr != nil {
			return nil, rerr
		}
		list, err = c.listCreatorVideosOnce(ctx, mid, page, pageSize)
	}
	return list, err
}

func (c *Client) listCreatorVideosOnce(ctx context.Context, mid int64, page, pageSize int) ([]VideoSummary, error) {
	params := map[string]string{
		"mid":          strconv.FormatInt(mid, 10),
		"ps":           strconv.Itoa(pageSize),
		"pn":           strconv.Itoa(page),
		"order":        "pubdate",
		"platform":     "web",
		"web_location": "1550101",
	}
	referer := fmt.Sprintf("%s/%d/", spaceBase, mid)
	label := fmt.Sprintf("arc search mid %d", mid)

	resp, err := RetryDo(ctx, c.retry, label, func() (apiResponse[arcSearchData], error) {
		IncrVideoLists()
		// Signed per attempt so wts stays current across retries.
		query := c.currentSigner().Sign(params)
		if query == nil {
			return apiResponse[arcSearchData]{}, errors.New("signer has no key material")
		}
		r, err := getJSON[arcSearchData](ctx, c, c.apiBase, arcSearchPath, query, referer)
		if err != nil {
			return r, err
		}
		return r, r.Err()
	})
	if err != nil {
		return nil, err
	}
	return resp.Data.List.Vlist, nil
}

// FetchVideoDetail resolves publish metadata for one video. The endpoint is
// public, so no session state is required.
func (c *Client) FetchVideoDetail(ctx context.Context, bvid string) (VideoDetail, error) {
	resp, err := RetryDo(ctx, c.retry, "view "+bvid, func() (apiResponse[VideoDetail], error) {
		IncrDetailFetches()
		r, err := getJSON[VideoDetail](ctx, c, c.apiBase, viewPath, url.Values{"bvid": {bvid}}, "")
		if err != nil {
			return r, err
		}
		return r, r.Err()
	})
	if err != nil {
		return VideoDetail{}, err
	}
	return resp.Data, nil
}

// VideoURL returns the canonical watch URL for a bvid.
func VideoURL(bvid string) string {
	return VideoURLBase + bvid
}
