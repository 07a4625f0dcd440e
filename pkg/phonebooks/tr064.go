package phonebooks

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/hausnetz/fonwatch/internal/domain"
)

// tr064Fetcher implements Fetcher for TR-064 phonebook XML exports
// (the document served by a router's X_AVM-DE_GetPhonebook URL).
type tr064Fetcher struct {
	client HTTPClient
}

// NewTR064Fetcher builds a fetcher for TR-064 phonebook documents.
func NewTR064Fetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &tr064Fetcher{client: client}
}

func (f *tr064Fetcher) ID() string {
	return TypeTR064
}

func (f *tr064Fetcher) Fetch(ctx context.Context, src Source) (domain.Phonebook, error) {
	if !strings.EqualFold(src.Type, TypeTR064) {
		return domain.Phonebook{}, fmt.Errorf("tr064 fetcher received incompatible source type %q", src.Type)
	}
	if strings.TrimSpace(src.URL) == "" {
		return domain.Phonebook{}, fmt.Errorf("phonebook %q url is empty", src.ID)
	}

	raw, err := fetchDocument(ctx, f.client, src)
	if err != nil {
		return domain.Phonebook{}, err
	}

	doc, err := parseTR064Document(raw)
	if err != nil {
		return domain.Phonebook{}, fmt.Errorf("decode tr064 phonebook: %w", err)
	}

	return buildPhonebookFromTR064(doc), nil
}

type tr064Document struct {
	Phonebook tr064Phonebook `xml:"phonebook"`
}

type tr064Phonebook struct {
	// Routers disagree on whether the phonebook name is an attribute or
	// a child element; accept both, attribute wins.
	NameAttr string         `xml:"name,attr"`
	NameElem string         `xml:"name"`
	Contacts []tr064Contact `xml:"contact"`
}

type tr064Contact struct {
	Person    tr064Person    `xml:"person"`
	Telephony tr064Telephony `xml:"telephony"`
}

type tr064Person struct {
	RealName string `xml:"realName"`
}

type tr064Telephony struct {
	Numbers []tr064Number `xml:"number"`
}

type tr064Number struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

func parseTR064Document(data []byte) (tr064Document, error) {
	var doc tr064Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return tr064Document{}, err
	}
	return doc, nil
}

func buildPhonebookFromTR064(doc tr064Document) domain.Phonebook {
	name := strings.TrimSpace(doc.Phonebook.NameAttr)
	if name == "" {
		name = strings.TrimSpace(doc.Phonebook.NameElem)
	}

	contacts := make([]domain.Contact, 0, len(doc.Phonebook.Contacts))
	for _, entry := range doc.Phonebook.Contacts {
		contactName := strings.TrimSpace(entry.Person.RealName)

		numbers := make([]string, 0, len(entry.Telephony.Numbers))
		for _, num := range entry.Telephony.Numbers {
			value := strings.TrimSpace(num.Value)
			if value == "" {
				continue
			}
			numbers = append(numbers, value)
		}
		if contactName == "" || len(numbers) == 0 {
			continue
		}

		contacts = append(contacts, domain.Contact{
			Name:    contactName,
			Numbers: numbers,
		})
	}

	return domain.Phonebook{
		Name:     name,
		Contacts: contacts,
	}
}
