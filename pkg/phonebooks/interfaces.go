package phonebooks

import (
	"context"

	"github.com/hausnetz/fonwatch/internal/domain"
	"github.com/hausnetz/fonwatch/pkg/httpclient"
)

// Fetcher retrieves and parses the phonebook document for a source.
// Concrete implementations live in type-specific files (e.g., tr064.go).
type Fetcher interface {
	ID() string
	Fetch(ctx context.Context, src Source) (domain.Phonebook, error)
}

// FetcherRegistry resolves the fetcher implementation for a given source config.
type FetcherRegistry interface {
	FetcherFor(src Source) (Fetcher, error)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within phonebooks.
type HTTPClient = httpclient.Client
