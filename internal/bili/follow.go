package bili

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// memberPageSize is the largest page the relation endpoint serves.
const memberPageSize = 100

// ListFollowGroups returns every follow group of the authenticated account,
// including the platform-default ones. The snapshot is taken fresh each call;
// group membership is never cached.
func (c *Client) ListFollowGroups(ctx context.Context) ([]FollowGroup, error) {
	if c.state != StateAuthenticated {
		return nil, ErrNotAuthenticated
	}

	resp, err := RetryDo(ctx, c.retry, "relation tags", func() (apiResponse[relationTagsData], error) {
		IncrGroupLists()
		r, err := getJSON[relationTagsData](ctx, c, c.apiBase, relationTagsPath, nil, "")
		if err != nil {
			return r, err
		}
		return r, r.Err()
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListGroupMembers walks every page of one follow group and returns all
// creators in it. An empty group yields an empty slice, not an error.
func (c *Client) ListGroupMembers(ctx context.Context, tagID int64) ([]Creator, error) {
	if c.state != StateAuthenticated {
		return nil, ErrNotAuthenticated
	}

	referer := fmt.Sprintf("%s/%d/fans/follow", spaceBase, c.mid)

	var members []Creator
	for pn := 1; ; pn++ {
		query := url.Values{
			"mid":   {strconv.FormatInt(c.mid, 10)},
			"tagid": {strconv.FormatInt(tagID, 10)},
			"pn":    {strconv.Itoa(pn)},
			"ps":    {strconv.Itoa(memberPageSize)},
		}

		label := fmt.Sprintf("relation tag %d page %d", tagID, pn)
		resp, err := RetryDo(ctx, c.retry, label, func() (apiResponse[[]Creator], error) {
			IncrMemberPages()
			r, err := getJSON[[]Creator](ctx, c, c.apiBase, relationTagPath, query, referer)
			if err != nil {
				return r, err
			}
			return r, r.Err()
		})
		if err != nil {
			return nil, err
		}

		members = append(members, resp.Data...)
		if len(resp.Data) < memberPageSize {
			return members, nil
		}
	}
}
