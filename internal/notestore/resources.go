package notestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/mrlokans/notestation-importer/internal/document"
)

var _ document.ResourceInserter = (*Client)(nil)

// GetResource returns the id and recorded size of a stored resource.
func (c *Client) GetResource(ctx context.Context, id string) (*Resource, error) {
	q := url.Values{}
	q.Set("fields", "id,size")

	var res Resource
	if err := c.do(ctx, http.MethodGet, "/resources/"+url.PathEscape(id), q, nil, "", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UploadResource stores data under title unless an identical resource already
// exists. Identity is the exact title plus the byte length; two different files
// that share both are treated as the same resource.
func (c *Client) UploadResource(ctx context.Context, title string, data []byte) (*Resource, error) {
	existing, err := c.findResource(ctx, title, int64(len(data)))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		c.logger.Debug("reusing resource", "id", existing.ID, "title", title, "size", existing.Size)
		return existing, nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	props, err := json.Marshal(map[string]string{"title": title})
	if err != nil {
		return nil, fmt.Errorf("encode resource props: %w", err)
	}
	if err := mw.WriteField("props", string(props)); err != nil {
		return nil, fmt.Errorf("write props part: %w", err)
	}
	part, err := mw.CreateFormFile("data", title)
	if err != nil {
		return nil, fmt.Errorf("create data part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write data part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	var res Resource
	if err := c.do(ctx, http.MethodPost, "/resources", nil, &buf, mw.FormDataContentType(), &res); err != nil {
		return nil, err
	}
	if res.ID == "" {
		return nil, fmt.Errorf("%w: resource %q created without id", ErrRemoteRequestFailed, title)
	}
	if res.Title == "" {
		res.Title = title
	}
	res.Size = int64(len(data))
	c.logger.Debug("uploaded resource", "id", res.ID, "title", title, "size", res.Size)
	return &res, nil
}

// InsertResource uploads through the dedup protocol and returns the resource id.
func (c *Client) InsertResource(ctx context.Context, title string, data []byte) (string, error) {
	res, err := c.UploadResource(ctx, title, data)
	if err != nil {
		return "", err
	}
	return res.ID, nil
}

func (c *Client) findResource(ctx context.Context, title string, size int64) (*Resource, error) {
	items, err := c.Search(ctx, title, TypeResource)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.Title != title {
			continue
		}
		res, err := c.GetResource(ctx, item.ID)
		if err != nil {
			var reqErr *RequestError
			if errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusNotFound {
				// Search index can lag behind deletions.
				continue
			}
			return nil, err
		}
		if res.Size == size {
			return &Resource{ID: res.ID, Title: title, Size: res.Size, Reused: true}, nil
		}
	}
	return nil, nil
}
