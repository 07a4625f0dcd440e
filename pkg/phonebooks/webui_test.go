package phonebooks

import (
	"context"
	"testing"
)

const webUISampleHTML = `<html><body>
<h1>Office router</h1>
<table class="contacts">
  <tr><td class="name">Alice</td><td class="number">0301234567</td><td class="number">+491701234567</td></tr>
  <tr><td class="name">Bob</td><td class="number"> 030 7654321 </td></tr>
  <tr><td class="name"></td><td class="number">0309999999</td></tr>
  <tr><td class="name">NoNumbers</td><td class="number">   </td></tr>
</table>
</body></html>`

func webUISource() Source {
	return Source{ID: "office", Type: TypeWebUI, URL: "http://office-router.lan/contacts.html"}
}

func TestWebUIFetcherParsesContactTable(t *testing.T) {
	client := &fakeClient{body: webUISampleHTML, status: 200}

	pb, err := NewWebUIFetcher(client).Fetch(context.Background(), webUISource())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if pb.Name != "Office router" {
		t.Errorf("phonebook name = %q, want Office router", pb.Name)
	}
	if len(pb.Contacts) != 2 {
		t.Fatalf("expected 2 usable contacts, got %d", len(pb.Contacts))
	}
	if pb.Contacts[0].Name != "Alice" || len(pb.Contacts[0].Numbers) != 2 {
		t.Errorf("unexpected first contact: %+v", pb.Contacts[0])
	}
	if pb.Contacts[1].Numbers[0] != "030 7654321" {
		t.Errorf("number not trimmed: %q", pb.Contacts[1].Numbers[0])
	}
}

func TestWebUIFetcherSelectorOverrides(t *testing.T) {
	client := &fakeClient{status: 200, body: `<html><body>
<h2 id="book">Haus</h2>
<ul class="entries">
  <li class="entry"><span class="who">Alice</span><span class="tel">0301234567</span></li>
</ul>
</body></html>`}

	src := webUISource()
	src.Config = map[string]any{
		ConfigTitleSelectorKey:  "h2#book",
		ConfigRowSelectorKey:    "li.entry",
		ConfigNameSelectorKey:   "span.who",
		ConfigNumberSelectorKey: "span.tel",
	}

	pb, err := NewWebUIFetcher(client).Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if pb.Name != "Haus" {
		t.Errorf("phonebook name = %q, want Haus", pb.Name)
	}
	if len(pb.Contacts) != 1 || pb.Contacts[0].Name != "Alice" {
		t.Fatalf("unexpected contacts: %+v", pb.Contacts)
	}
}

func TestWebUIFetcherNon200(t *testing.T) {
	client := &fakeClient{body: "login required", status: 403}

	if _, err := NewWebUIFetcher(client).Fetch(context.Background(), webUISource()); err == nil {
		t.Fatal("expected status error")
	}
}

func TestWebUIFetcherRejectsWrongSourceType(t *testing.T) {
	client := &fakeClient{body: webUISampleHTML, status: 200}
	src := webUISource()
	src.Type = TypeTR064

	if _, err := NewWebUIFetcher(client).Fetch(context.Background(), src); err == nil {
		t.Fatal("expected incompatible source type error")
	}
}
