// Package parser turns Markdown files into note fields: YAML frontmatter,
// body, title, tags, category and creation date.
package parser

import (
	"bytes"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// frontmatter lists the keys notekeep understands; others are ignored.
type frontmatter struct {
	Title    string   `yaml:"title"`
	Category string   `yaml:"category"`
	Tags     []string `yaml:"tags"`
	Created  string   `yaml:"created"`
}

// Result holds the output of parsing a Markdown file.
type Result struct {
	HasFrontmatter bool
	Body           string
	Title          string
	Category       string
	Tags           []string
	Created        time.Time // zero when absent or unparseable
}

// Parse extracts frontmatter and derives note fields from raw Markdown.
func Parse(data []byte) *Result {
	fm, body, ok := splitFrontmatter(data)

	r := &Result{
		HasFrontmatter: ok,
		Body:           body,
		Title:          deriveTitle(fm, body),
		Tags:           extractTags(body, fm),
		Created:        parseCreated(fm.Created),
	}
	r.Category = strings.TrimSpace(fm.Category)
	if r.Category == "" && len(r.Tags) > 0 {
		r.Category = r.Tags[0]
	}
	return r
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. Without valid frontmatter the entire content is body.
func splitFrontmatter(data []byte) (frontmatter, string, bool) {
	const delim = "---"
	var fm frontmatter
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return fm, string(data), false
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return fm, string(data), false
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return frontmatter{}, string(data), false
	}
	return fm, body, true
}

// extractTags collects frontmatter tags followed by inline #tags, deduplicated.
func extractTags(body string, fm frontmatter) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	for _, t := range fm.Tags {
		add(t)
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle returns the frontmatter title if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm frontmatter, body string) string {
	if t := strings.TrimSpace(fm.Title); t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

func parseCreated(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
