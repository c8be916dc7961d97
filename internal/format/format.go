// Package format implements the closed file-format taxonomy used to
// classify an item's body or resource content: format detection (extension
// first, then content sniffing), the predicates each format exposes, and
// the format/extension/MIME-type lookup tables.
package format

import (
	"regexp"
	"strings"
)

// Format is the closed taxonomy of recognized content formats.
type Format string

const (
	URL         Format = "url"
	Plaintext   Format = "plaintext"
	Markdown    Format = "markdown"
	MdHTML      Format = "md_html"
	HTML        Format = "html"
	YAML        Format = "yaml"
	Diff        Format = "diff"
	Python      Format = "python"
	Shellscript Format = "shellscript"
	Xonsh       Format = "xonsh"
	JSON        Format = "json"
	CSV         Format = "csv"
	NPZ         Format = "npz"
	Log         Format = "log"
	PDF         Format = "pdf"
	DOCX        Format = "docx"
	JPEG        Format = "jpeg"
	PNG         Format = "png"
	GIF         Format = "gif"
	SVG         Format = "svg"
	MP3         Format = "mp3"
	M4A         Format = "m4a"
	MP4         Format = "mp4"
	Binary      Format = "binary"
)

// MediaType is a broad content category used to decide what processing is
// possible on an item.
type MediaType string

const (
	MediaText    MediaType = "text"
	MediaImage   MediaType = "image"
	MediaAudio   MediaType = "audio"
	MediaVideo   MediaType = "video"
	MediaWebpage MediaType = "webpage"
	MediaBinary  MediaType = "binary"
)

// FileExt is a recognized file extension, without the leading dot.
type FileExt string

const (
	ExtTxt    FileExt = "txt"
	ExtMd     FileExt = "md"
	ExtHTML   FileExt = "html"
	ExtYml    FileExt = "yml"
	ExtDiff   FileExt = "diff"
	ExtJSON   FileExt = "json"
	ExtCSV    FileExt = "csv"
	ExtNPZ    FileExt = "npz"
	ExtLog    FileExt = "log"
	ExtPy     FileExt = "py"
	ExtSh     FileExt = "sh"
	ExtXsh    FileExt = "xsh"
	ExtPDF    FileExt = "pdf"
	ExtDocx   FileExt = "docx"
	ExtJpg    FileExt = "jpg"
	ExtPng    FileExt = "png"
	ExtGif    FileExt = "gif"
	ExtSvg    FileExt = "svg"
	ExtMp3    FileExt = "mp3"
	ExtM4a    FileExt = "m4a"
	ExtMp4    FileExt = "mp4"
	ExtBinary FileExt = "bin"
)

// HasBody reports whether items of this format carry body content, as
// opposed to storing everything in frontmatter metadata (url only).
func (f Format) HasBody() bool { return f != URL }

var textFormats = map[Format]bool{
	Plaintext: true, Markdown: true, MdHTML: true, HTML: true, SVG: true,
	YAML: true, Diff: true, Python: true, JSON: true, Shellscript: true,
	Xonsh: true, CSV: true, Log: true,
}

// IsText reports whether the format can be read into a string and
// processed by text tools.
func (f Format) IsText() bool { return textFormats[f] }

var docFormats = map[Format]bool{
	Markdown: true, MdHTML: true, HTML: true, PDF: true, DOCX: true,
}

func (f Format) IsDoc() bool { return docFormats[f] }

var imageFormats = map[Format]bool{JPEG: true, PNG: true, GIF: true, SVG: true}

func (f Format) IsImage() bool { return imageFormats[f] }

var audioFormats = map[Format]bool{MP3: true, M4A: true}

func (f Format) IsAudio() bool { return audioFormats[f] }

func (f Format) IsVideo() bool { return f == MP4 }

var codeFormats = map[Format]bool{Python: true, Shellscript: true, Xonsh: true, JSON: true, YAML: true}

func (f Format) IsCode() bool { return codeFormats[f] }

var dataFormats = map[Format]bool{CSV: true, NPZ: true}

func (f Format) IsData() bool { return dataFormats[f] }

// IsBinary reports whether the format has a body but is not text.
func (f Format) IsBinary() bool { return f.HasBody() && !f.IsText() }

var frontmatterFormats = map[Format]bool{
	URL: true, Plaintext: true, Markdown: true, MdHTML: true, HTML: true,
	YAML: true, Diff: true, Python: true, Shellscript: true, Xonsh: true,
	CSV: true, Log: true,
}

// SupportsFrontmatter reports whether this format is compatible with YAML
// frontmatter metadata. PDF and docx are not; JSON is deliberately excluded
// (it would need JSON5 to host comments/metadata cleanly).
func (f Format) SupportsFrontmatter() bool { return frontmatterFormats[f] }

var formatToMediaType = map[Format]MediaType{
	URL: MediaWebpage, Plaintext: MediaText, Markdown: MediaText, MdHTML: MediaText,
	HTML: MediaWebpage, YAML: MediaText, Diff: MediaText, Python: MediaText,
	Shellscript: MediaText, Xonsh: MediaText, JSON: MediaText, CSV: MediaText,
	Log: MediaText, PDF: MediaText, JPEG: MediaImage, PNG: MediaImage, GIF: MediaImage,
	SVG: MediaImage, DOCX: MediaText, MP3: MediaAudio, M4A: MediaAudio, MP4: MediaVideo,
}

// MediaType returns the broad media category for the format, defaulting to
// binary for anything not in the explicit lookup table.
func (f Format) MediaType() MediaType {
	if mt, ok := formatToMediaType[f]; ok {
		return mt
	}
	return MediaBinary
}

var extToFormat = map[FileExt]Format{
	ExtTxt: Plaintext, ExtMd: Markdown, ExtHTML: HTML, ExtYml: YAML, ExtDiff: Diff,
	ExtJSON: JSON, ExtCSV: CSV, ExtNPZ: NPZ, ExtLog: Log, ExtPy: Python, ExtSh: Shellscript,
	ExtXsh: Xonsh, ExtPDF: PDF, ExtDocx: DOCX, ExtJpg: JPEG, ExtPng: PNG, ExtGif: GIF,
	ExtSvg: SVG, ExtMp3: MP3, ExtM4a: M4A, ExtMp4: MP4,
}

// GuessByFileExt returns the format the extension unambiguously implies, or
// ok=false if the extension does not determine a format.
func GuessByFileExt(ext FileExt) (f Format, ok bool) {
	f, ok = extToFormat[ext]
	return f, ok
}

// formatToFileExt deliberately differs from extToFormat's inverse in one
// case: Format.url saves as YAML (a url item is a YAML resource stub), so
// extToFormat[yml] == plaintext... no: yaml maps to Format.yaml, and url has
// no reverse entry in extToFormat at all. This asymmetry is intentional and
// matches the original source.
var formatToFileExt = map[Format]FileExt{
	URL: ExtYml, Markdown: ExtMd, MdHTML: ExtMd, HTML: ExtHTML, Plaintext: ExtTxt,
	YAML: ExtYml, Diff: ExtDiff, JSON: ExtJSON, CSV: ExtCSV, NPZ: ExtNPZ, Log: ExtLog,
	Python: ExtPy, Shellscript: ExtSh, Xonsh: ExtXsh, PDF: ExtPDF, DOCX: ExtDocx,
	JPEG: ExtJpg, PNG: ExtPng, GIF: ExtGif, SVG: ExtSvg, MP3: ExtMp3, M4A: ExtM4a, MP4: ExtMp4,
}

// FileExt returns the file extension to use when saving an item of this
// format, or ok=false if the format has no canonical extension (Binary).
func (f Format) FileExt() (ext FileExt, ok bool) {
	ext, ok = formatToFileExt[f]
	return ext, ok
}

var formatToMime = map[Format]string{
	Plaintext: "text/plain", Markdown: "text/markdown", MdHTML: "text/markdown",
	HTML: "text/html", YAML: "application/yaml", Diff: "text/x-diff", JSON: "application/json",
	CSV: "text/csv", Log: "text/plain", Python: "text/x-python", Shellscript: "text/x-shellscript",
	Xonsh: "text/x-shellscript", PDF: "application/pdf", DOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	JPEG: "image/jpeg", PNG: "image/png", GIF: "image/gif", SVG: "image/svg+xml",
	MP3: "audio/mpeg", M4A: "audio/mp4", MP4: "video/mp4", URL: "text/yaml",
}

// MimeType returns the MIME type associated with the format, or the
// generic octet-stream type if none is known.
func (f Format) MimeType() string {
	if m, ok := formatToMime[f]; ok {
		return m
	}
	return "application/octet-stream"
}

var yamlFrontmatterRe = regexp.MustCompile(`(?m)^---\s*\n\w+:`)

var markdownHeadingRe = regexp.MustCompile(`(?m)^#{1,6}\s+\S`)

// DetectFormat determines the format of a file, trusting a known extension
// first and falling back to content sniffing for html/markdown/multi-part
// YAML when the extension is absent or ambiguous.
func DetectFormat(filename string, content []byte) Format {
	ext := extractExt(filename)
	if f, ok := GuessByFileExt(ext); ok {
		return f
	}
	return sniffContent(content)
}

func extractExt(filename string) FileExt {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 || i == len(filename)-1 {
		return ""
	}
	return FileExt(strings.ToLower(filename[i+1:]))
}

func sniffContent(content []byte) Format {
	s := string(content)
	trimmed := strings.TrimSpace(s)

	if strings.HasPrefix(trimmed, "<!DOCTYPE html") || strings.HasPrefix(trimmed, "<html") {
		return HTML
	}
	if matches := yamlFrontmatterRe.FindAllString(s, -1); len(matches) >= 2 {
		return YAML
	}
	if markdownHeadingRe.MatchString(s) || strings.Contains(s, "](") {
		return Markdown
	}
	if isMostlyPrintableText(content) {
		return Plaintext
	}
	return Binary
}

func isMostlyPrintableText(content []byte) bool {
	if len(content) == 0 {
		return true
	}
	nonPrintable := 0
	for _, b := range content {
		if b == 0 {
			return false
		}
		if b < 9 || (b > 13 && b < 32) {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(len(content)) < 0.05
}
