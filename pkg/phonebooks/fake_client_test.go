package phonebooks

import (
	"context"

	"github.com/hausnetz/fonwatch/pkg/httpclient"
)

type fakeResponse struct {
	body   []byte
	status int
}

func (r fakeResponse) Body() []byte    { return r.body }
func (r fakeResponse) StatusCode() int { return r.status }

// fakeClient serves a canned response and records the request it saw.
type fakeClient struct {
	body    string
	status  int
	err     error
	lastURL string
	headers map[string]string
}

func (c *fakeClient) Get(_ context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	c.lastURL = url
	c.headers = headers
	if c.err != nil {
		return nil, c.err
	}
	return fakeResponse{body: []byte(c.body), status: c.status}, nil
}
