package images

import (
	"context"
	"fmt"

	"github.com/hpcadm/hpcadm/internal/gateway"
)

const basePath = "/images/v1"

// Build job statuses reported by the image service.
const (
	JobPending  = "pending"
	JobBuilding = "building"
	JobReady    = "ready"
	JobError    = "error"
)

// Image is a bootable image known to the image service.
type Image struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BuildJob tracks one asynchronous image build.
type BuildJob struct {
	ID               string `json:"id"`
	Status           string `json:"status"` // pending | building | ready | error
	BaseImageID      string `json:"baseImageId"`
	ResultantImageID string `json:"resultantImageId,omitempty"` // set once ready
	Error            string `json:"error,omitempty"`            // set when status is error
}

// BuildRequest submits a new image build.
type BuildRequest struct {
	Name        string `json:"name"`
	BaseImageID string `json:"baseImageId"`
}

// Client wraps the image service endpoints.
type Client struct {
	gw *gateway.Client
}

// NewClient builds an image client on top of the shared gateway client.
func NewClient(gw *gateway.Client) *Client {
	return &Client{gw: gw}
}

// SubmitBuild asks the image service to build a new image from a base.
// The service answers immediately with a job; the build runs asynchronously.
func (c *Client) SubmitBuild(ctx context.Context, req BuildRequest) (*BuildJob, error) {
	var out BuildJob
	if err := c.gw.PostJSON(ctx, basePath+"/jobs", req, &out); err != nil {
		return nil, fmt.Errorf("submitting build of %s: %w", req.Name, err)
	}
	return &out, nil
}

// GetJob fetches the status of a build job.
func (c *Client) GetJob(ctx context.Context, id string) (*BuildJob, error) {
	var out BuildJob
	if err := c.gw.GetJSON(ctx, fmt.Sprintf("%s/jobs/%s", basePath, id), &out); err != nil {
		return nil, fmt.Errorf("fetching build job %s: %w", id, err)
	}
	return &out, nil
}

// GetImage fetches an image record by ID.
func (c *Client) GetImage(ctx context.Context, id string) (*Image, error) {
	var out Image
	if err := c.gw.GetJSON(ctx, fmt.Sprintf("%s/images/%s", basePath, id), &out); err != nil {
		return nil, fmt.Errorf("fetching image %s: %w", id, err)
	}
	return &out, nil
}
