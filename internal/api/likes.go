package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	likePostPath    = "/like"
	likeCommentPath = "/like-comment"
)

// LikePost toggles the current user's like on a post and returns the new
// like count.
func (c *Client) LikePost(ctx context.Context, postID int) (int, error) {
	return c.toggleLike(ctx, likePostPath, "post_id", postID)
}

// LikeComment toggles the current user's like on a comment and returns the
// new like count.
func (c *Client) LikeComment(ctx context.Context, commentID int) (int, error) {
	return c.toggleLike(ctx, likeCommentPath, "comment_id", commentID)
}

func (c *Client) toggleLike(ctx context.Context, path, field string, id int) (int, error) {
	form := url.Values{field: []string{strconv.Itoa(id)}}
	body, err := c.do(ctx, http.MethodPost, path, nil, form)
	if err != nil {
		return 0, errors.Wrapf(err, "toggle like %s=%d", field, id)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(body)))
	if err != nil {
		return 0, errors.Wrapf(err, "parse like count %q", string(body))
	}
	return n, nil
}
