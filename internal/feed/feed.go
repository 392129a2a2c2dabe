// Package feed holds the client-side rules of the post feed: when a post
// may be submitted, which comment threads are expanded and image previews.
package feed

import (
	"encoding/base64"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// MaxPreviewSize bounds the image read by PreviewDataURI.
const MaxPreviewSize = 10 << 20

// CanSubmitPost reports whether a post with the given tags and content may
// be submitted: at least one tag and non-blank content.
func CanSubmitPost(tags []string, content string) bool {
	return len(tags) > 0 && strings.TrimSpace(content) != ""
}

// CommentToggle tracks which posts have their comment thread expanded.
type CommentToggle struct {
	mu      sync.Mutex
	visible map[int]bool
}

// NewCommentToggle returns a toggle with every thread collapsed.
func NewCommentToggle() *CommentToggle {
	return &CommentToggle{visible: make(map[int]bool)}
}

// Toggle flips the thread of postID and returns its new visibility.
func (t *CommentToggle) Toggle(postID int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := !t.visible[postID]
	if v {
		t.visible[postID] = true
	} else {
		delete(t.visible, postID)
	}
	return v
}

// Visible reports whether the thread of postID is expanded.
func (t *CommentToggle) Visible(postID int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visible[postID]
}

// PreviewDataURI reads the image at path and returns it as a data URI.
func PreviewDataURI(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrap(err, "stat image")
	}
	if info.Size() > MaxPreviewSize {
		return "", errors.Errorf("image %s is %d bytes, limit is %d", path, info.Size(), MaxPreviewSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "read image")
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", errors.Errorf("%s is not an image (%s)", path, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
