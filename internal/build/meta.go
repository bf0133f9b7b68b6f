package build

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/mdxbuilder/internal/frontmatter"
)

// Defaults for tags that are always emitted.
const (
	DefaultOGType      = "website"
	DefaultTwitterCard = "summary"
)

type metaTag struct {
	attr    string // "name" or "property"
	key     string
	content string
}

// metaTags derives the head tags for fields. Absent fields produce no tag
// except og:type and twitter:card.
func metaTags(fields map[string]any) []metaTag {
	var tags []metaTag
	add := func(attr, key, content string) {
		if content != "" {
			tags = append(tags, metaTag{attr: attr, key: key, content: content})
		}
	}
	str := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := frontmatter.String(fields, k); ok {
				return v
			}
		}
		return ""
	}

	title := str("title")
	description := str("description", "summary")
	image := str("image", "cover")

	add("name", "description", description)
	if kw := frontmatter.Strings(fields, "keywords"); len(kw) > 0 {
		add("name", "keywords", strings.Join(kw, ", "))
	} else if topics := frontmatter.Strings(fields, "tags"); len(topics) > 0 {
		add("name", "keywords", strings.Join(topics, ", "))
	}
	add("name", "author", str("author"))
	add("name", "robots", str("robots"))

	ogType := str("og_type", "type")
	if ogType == "" {
		ogType = DefaultOGType
	}
	add("property", "og:type", ogType)
	add("property", "og:title", title)
	add("property", "og:description", description)
	add("property", "og:image", image)
	add("property", "og:url", str("canonical"))

	card := str("twitter_card")
	if card == "" {
		card = DefaultTwitterCard
	}
	add("name", "twitter:card", card)
	add("name", "twitter:title", title)
	add("name", "twitter:description", description)
	add("name", "twitter:image", image)
	add("name", "twitter:site", str("twitter"))

	date := str("date", "published")
	add("name", "date", date)
	add("property", "article:published_time", date)
	add("property", "article:modified_time", str("updated", "lastmod", "modified"))
	return tags
}

// InjectFrontmatter adds the title, meta tags and canonical link derived
// from fields to the head of doc. An existing title is replaced. Values are
// escaped by the HTML renderer.
func InjectFrontmatter(doc []byte, fields map[string]any) ([]byte, error) {
	if len(fields) == 0 {
		return doc, nil
	}
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, err
	}
	head := findElement(root, atom.Head)
	if head == nil {
		return doc, nil
	}

	if title, ok := frontmatter.String(fields, "title"); ok {
		t := findElement(head, atom.Title)
		if t == nil {
			t = appendHeadElement(head, atom.Title, nil)
		}
		for t.FirstChild != nil {
			t.RemoveChild(t.FirstChild)
		}
		t.AppendChild(&html.Node{Type: html.TextNode, Data: title})
	}

	for _, tag := range metaTags(fields) {
		appendHeadElement(head, atom.Meta, []html.Attribute{
			{Key: tag.attr, Val: tag.key},
			{Key: "content", Val: tag.content},
		})
	}
	if canonical, ok := frontmatter.String(fields, "canonical"); ok {
		appendHeadElement(head, atom.Link, []html.Attribute{
			{Key: "rel", Val: "canonical"},
			{Key: "href", Val: canonical},
		})
	}
	return renderDocument(root)
}
