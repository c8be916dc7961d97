// Package builtin provides the library of named preconditions kash ships
// out of the box, ported from the reference implementation's precondition
// definitions and trimmed to the subset meaningful without markdown/HTML
// chunking tools this port does not carry.
package builtin

import (
	"regexp"
	"strings"

	"github.com/kashrun/kash/internal/format"
	"github.com/kashrun/kash/internal/item"
	"github.com/kashrun/kash/internal/precondition"
)

func pred(name string, fn func(item.Item) bool) precondition.Precondition {
	return precondition.New(name, func(it item.Item) (bool, error) { return fn(it), nil })
}

// IsResource reports whether the item is a resource record.
var IsResource = pred("is_resource", func(it item.Item) bool { return it.Type == item.TypeResource })

// IsConcept reports whether the item is a concept record.
var IsConcept = pred("is_concept", func(it item.Item) bool { return it.Type == item.TypeConcept })

// IsConfig reports whether the item is a config record.
var IsConfig = pred("is_config", func(it item.Item) bool { return it.Type == item.TypeConfig })

// IsDoc reports whether the item is a doc record.
var IsDoc = pred("is_doc", func(it item.Item) bool { return it.Type == item.TypeDoc })

// IsChat reports whether the item is a chat record.
var IsChat = pred("is_chat", func(it item.Item) bool { return it.Type == item.TypeChat })

// IsAsset reports whether the item is an asset record.
var IsAsset = pred("is_asset", func(it item.Item) bool { return it.Type == item.TypeAsset })

// HasBody reports whether the item carries non-empty body content.
var HasBody = pred("has_body", func(it item.Item) bool { return strings.TrimSpace(it.Body) != "" })

// IsURLItem reports whether the item is a resource with a URL.
var IsURLItem = pred("is_url_item", func(it item.Item) bool {
	return it.Type == item.TypeResource && it.URL != ""
})

// IsAudioResource reports whether the item is a resource whose format is
// audio.
var IsAudioResource = pred("is_audio_resource", func(it item.Item) bool {
	return it.Type == item.TypeResource && format.Format(it.Format).IsAudio()
})

// IsVideoResource reports whether the item is a resource whose format is
// video.
var IsVideoResource = pred("is_video_resource", func(it item.Item) bool {
	return it.Type == item.TypeResource && format.Format(it.Format).IsVideo()
})

func hasBody(it item.Item) bool { return strings.TrimSpace(it.Body) != "" }

// IsPlaintext reports whether the item has a non-empty plaintext body.
var IsPlaintext = pred("is_plaintext", func(it item.Item) bool {
	return hasBody(it) && format.Format(it.Format) == format.Plaintext
})

// IsMarkdown reports whether the item has a non-empty markdown (or
// markdown-with-embedded-html) body.
var IsMarkdown = pred("is_markdown", func(it item.Item) bool {
	if !hasBody(it) {
		return false
	}
	f := format.Format(it.Format)
	return f == format.Markdown || f == format.MdHTML
})

// IsHTML reports whether the item has a non-empty HTML body.
var IsHTML = pred("is_html", func(it item.Item) bool {
	return hasBody(it) && format.Format(it.Format) == format.HTML
})

// HasTextBody reports whether the item's body is one of the plain-text-ish
// formats (plaintext, markdown, md_html).
var HasTextBody = pred("has_text_body", func(it item.Item) bool {
	if !hasBody(it) {
		return false
	}
	switch format.Format(it.Format) {
	case format.Plaintext, format.Markdown, format.MdHTML:
		return true
	default:
		return false
	}
})

// HasHTMLBody reports whether the item's body is HTML or markdown with
// embedded HTML.
var HasHTMLBody = pred("has_html_body", func(it item.Item) bool {
	if !hasBody(it) {
		return false
	}
	f := format.Format(it.Format)
	return f == format.HTML || f == format.MdHTML
})

// IsTextDoc reports whether the item is a document processable by LLMs and
// other plaintext tools: plaintext or markdown, with a body.
var IsTextDoc = pred("is_text_doc", func(it item.Item) bool {
	return testOf(IsPlaintext, it) || testOf(IsMarkdown, it)
})

// testOf evaluates a predicate known not to return an error (all
// predicates in this package are pure functions of the item).
func testOf(p precondition.Precondition, it item.Item) bool {
	ok, _ := p.Test(it)
	return ok
}

var curlyVarRe = regexp.MustCompile(`\{(\w+)\}`)

// ContainsCurlyVars reports whether the item's body contains {var}-style
// template placeholders.
var ContainsCurlyVars = pred("contains_curly_vars", func(it item.Item) bool {
	return it.Body != "" && curlyVarRe.MatchString(it.Body)
})

// IsMarkdownTemplate reports whether the item is markdown containing
// {var}-style placeholders.
var IsMarkdownTemplate = pred("is_markdown_template", func(it item.Item) bool {
	return testOf(IsMarkdown, it) && testOf(ContainsCurlyVars, it)
})

// ContainsFencedCode reports whether any line of the item's body starts a
// fenced code block.
var ContainsFencedCode = pred("contains_fenced_code", func(it item.Item) bool {
	if it.Body == "" {
		return false
	}
	for _, line := range strings.Split(it.Body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			return true
		}
	}
	return false
})

var bulletRe = regexp.MustCompile(`(?m)^\s*[-*+]\s+\S`)

// IsMarkdownList reports whether the item is markdown whose body contains
// at least two bullet-point lines.
var IsMarkdownList = pred("is_markdown_list", func(it item.Item) bool {
	if !testOf(IsMarkdown, it) {
		return false
	}
	return len(bulletRe.FindAllString(it.Body, -1)) >= 2
})

// HasThumbnailURL reports whether the item has a thumbnail URL set.
var HasThumbnailURL = pred("has_thumbnail_url", func(it item.Item) bool { return it.ThumbnailURL != "" })

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// HasLotsOfHTMLTags reports whether more than 10% of the item's body bytes
// (and at least 5) are consumed by HTML tags — a heuristic for detecting
// unconverted HTML masquerading as plaintext.
var HasLotsOfHTMLTags = pred("has_lots_of_html_tags", func(it item.Item) bool {
	if it.Body == "" {
		return false
	}
	tagFree := htmlTagRe.ReplaceAllString(it.Body, "")
	tagChars := len(it.Body) - len(tagFree)
	threshold := float64(len(it.Body)) * 0.1
	if threshold < 5 {
		threshold = 5
	}
	return float64(tagChars) > threshold
})

// HasManyParagraphs reports whether the item's body contains more than
// four blank-line-separated paragraph breaks.
var HasManyParagraphs = pred("has_many_paragraphs", func(it item.Item) bool {
	return it.Body != "" && strings.Count(it.Body, "\n\n") > 4
})

// All is the full set of built-in preconditions, keyed by name, for
// lookup by actions declared via config rather than Go source (e.g. the
// MCP tool surface's JSON precondition references).
var All = map[string]precondition.Precondition{
	IsResource.Name():          IsResource,
	IsConcept.Name():           IsConcept,
	IsConfig.Name():            IsConfig,
	IsDoc.Name():               IsDoc,
	IsChat.Name():              IsChat,
	IsAsset.Name():             IsAsset,
	HasBody.Name():             HasBody,
	IsURLItem.Name():           IsURLItem,
	IsAudioResource.Name():     IsAudioResource,
	IsVideoResource.Name():     IsVideoResource,
	IsPlaintext.Name():         IsPlaintext,
	IsMarkdown.Name():          IsMarkdown,
	IsHTML.Name():              IsHTML,
	HasTextBody.Name():         HasTextBody,
	HasHTMLBody.Name():         HasHTMLBody,
	IsTextDoc.Name():           IsTextDoc,
	ContainsCurlyVars.Name():   ContainsCurlyVars,
	IsMarkdownTemplate.Name():  IsMarkdownTemplate,
	ContainsFencedCode.Name():  ContainsFencedCode,
	IsMarkdownList.Name():      IsMarkdownList,
	HasThumbnailURL.Name():     HasThumbnailURL,
	HasLotsOfHTMLTags.Name():   HasLotsOfHTMLTags,
	HasManyParagraphs.Name():   HasManyParagraphs,
}


// Register adds every builtin precondition to r, in a fixed order, so a
// startup log of registrations is deterministic across runs.
func Register(r *precondition.Registry) {
	for _, name := range []string{
		"is_resource", "is_concept", "is_config", "is_doc", "is_chat", "is_asset",
		"has_body", "is_url_item", "is_audio_resource", "is_video_resource",
		"is_plaintext", "is_markdown", "is_html", "has_text_body", "has_html_body",
		"is_text_doc", "contains_curly_vars", "is_markdown_template",
		"contains_fenced_code", "is_markdown_list", "has_thumbnail_url",
		"has_lots_of_html_tags", "has_many_paragraphs",
	} {
		r.Register(All[name])
	}
}
