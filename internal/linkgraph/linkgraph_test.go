package linkgraph

import "testing"

func TestExtractOutgoingLinks_SchemePrefixed(t *testing.T) {
	html := `<a href="http://example.com/page">link</a>`
	links, err := ExtractOutgoingLinks(html, "source.com/a")
	if err != nil {
		t.Fatalf("ExtractOutgoingLinks() error = %v", err)
	}
	if len(links) != 1 || links[0] != "example.com/page" {
		t.Errorf("links = %v, want [\"example.com/page\"]", links)
	}
}

func TestExtractOutgoingLinks_Relative(t *testing.T) {
	html := `<a href="/other">link</a>`
	links, err := ExtractOutgoingLinks(html, "http://example.com/dir/page")
	if err != nil {
		t.Fatalf("ExtractOutgoingLinks() error = %v", err)
	}
	if len(links) != 1 || links[0] != "example.com/other" {
		t.Errorf("links = %v, want [\"example.com/other\"]", links)
	}
}

func TestBuildAuthority_SumsToApproximatelyOne(t *testing.T) {
	docs := []Document{
		{URL: "a.com", RawHTML: `<a href="http://b.com">b</a>`},
		{URL: "b.com", RawHTML: `<a href="http://a.com">a</a>`},
		{URL: "c.com", RawHTML: `no links here`},
	}
	scores, err := BuildAuthority(docs)
	if err != nil {
		t.Fatalf("BuildAuthority() error = %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("scores = %v, want 3 entries", scores)
	}
	var sum float64
	for _, s := range scores {
		if s < 0 || s > 1 {
			t.Errorf("authority %v out of [0,1]", s)
		}
		sum += s
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("sum of authority scores = %v, want ~1", sum)
	}
}

func TestBuildAuthority_ExternalLinksExcluded(t *testing.T) {
	docs := []Document{
		{URL: "a.com", RawHTML: `<a href="http://external.com/page">ext</a>`},
		{URL: "b.com", RawHTML: ``},
	}
	scores, err := BuildAuthority(docs)
	if err != nil {
		t.Fatalf("BuildAuthority() error = %v", err)
	}
	if _, ok := scores["external.com/page"]; ok {
		t.Error("external URL should not appear in authority scores")
	}
}
