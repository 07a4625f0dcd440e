package phonebooks

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hausnetz/fonwatch/pkg/httpclient"
)

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// fetchDocument downloads the raw phonebook document, honoring the source's
// own timeout on top of the shared client deadline.
func fetchDocument(ctx context.Context, client httpclient.Client, src Source) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, src.Timeout())
	defer cancel()

	resp, err := client.Get(ctx, src.URL, Headers(src))
	if err != nil {
		return nil, fmt.Errorf("fetch %s phonebook: %w", src.ID, err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%s phonebook returned status %d body: %s", src.ID, resp.StatusCode(), responseSnippet(body))
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%s phonebook returned an empty document", src.ID)
	}

	return body, nil
}
