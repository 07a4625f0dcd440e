package phonebooks

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/hausnetz/fonwatch/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB

	defaultTitleSelector  = "h1"
	defaultRowSelector    = "table.contacts tr"
	defaultNameSelector   = "td.name"
	defaultNumberSelector = "td.number"

	// Config keys for selector overrides.
	ConfigTitleSelectorKey  = "title_selector"
	ConfigRowSelectorKey    = "row_selector"
	ConfigNameSelectorKey   = "name_selector"
	ConfigNumberSelectorKey = "number_selector"
)

// webUIFetcher implements Fetcher for routers that only expose their
// phonebook as an HTML contact list in the web UI.
type webUIFetcher struct {
	client HTTPClient
}

// NewWebUIFetcher builds a fetcher that scrapes HTML contact tables.
func NewWebUIFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &webUIFetcher{client: client}
}

func (f *webUIFetcher) ID() string {
	return TypeWebUI
}

func (f *webUIFetcher) Fetch(ctx context.Context, src Source) (domain.Phonebook, error) {
	if !strings.EqualFold(src.Type, TypeWebUI) {
		return domain.Phonebook{}, fmt.Errorf("webui fetcher received incompatible source type %q", src.Type)
	}
	if strings.TrimSpace(src.URL) == "" {
		return domain.Phonebook{}, fmt.Errorf("phonebook %q url is empty", src.ID)
	}

	body, err := fetchDocument(ctx, f.client, src)
	if err != nil {
		return domain.Phonebook{}, err
	}
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	pb, err := parseContactTable(body, src)
	if err != nil {
		return domain.Phonebook{}, fmt.Errorf("parse %s contact page: %w", src.ID, err)
	}
	return pb, nil
}

func parseContactTable(body []byte, src Source) (domain.Phonebook, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return domain.Phonebook{}, fmt.Errorf("parse html: %w", err)
	}

	titleSel := ConfigString(src, ConfigTitleSelectorKey, defaultTitleSelector)
	rowSel := ConfigString(src, ConfigRowSelectorKey, defaultRowSelector)
	nameSel := ConfigString(src, ConfigNameSelectorKey, defaultNameSelector)
	numberSel := ConfigString(src, ConfigNumberSelectorKey, defaultNumberSelector)

	name := strings.TrimSpace(doc.Find(titleSel).First().Text())

	var contacts []domain.Contact
	doc.Find(rowSel).Each(func(_ int, row *goquery.Selection) {
		contactName := strings.TrimSpace(row.Find(nameSel).First().Text())
		if contactName == "" {
			return
		}

		var numbers []string
		row.Find(numberSel).Each(func(_ int, cell *goquery.Selection) {
			if num := strings.TrimSpace(cell.Text()); num != "" {
				numbers = append(numbers, num)
			}
		})
		if len(numbers) == 0 {
			return
		}

		contacts = append(contacts, domain.Contact{
			Name:    contactName,
			Numbers: numbers,
		})
	})

	return domain.Phonebook{
		Name:     name,
		Contacts: contacts,
	}, nil
}
