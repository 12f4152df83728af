// Package parser post-processes raw provider output into documentation text.
package parser

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// CleanDocumentation trims the text and removes a markdown fence that wraps
// the whole document. Fences inside the document are kept.
func CleanDocumentation(raw string) string {
	if inner, ok := unwrapFence(raw, "", "markdown", "md"); ok {
		return inner
	}
	return strings.TrimSpace(raw)
}

// CleanCode removes a single fence of any language around returned source
// code, as produced for inline documentation comments.
func CleanCode(raw string) string {
	if inner, ok := unwrapFence(raw); ok {
		return inner
	}
	return strings.TrimSpace(raw)
}

// CleanOpenAPI unwraps a yaml or json fence and checks that the result is an
// OpenAPI document. On error the trimmed raw text is returned with it so the
// caller can still use the output.
func CleanOpenAPI(raw string) (string, error) {
	doc := strings.TrimSpace(raw)
	if inner, ok := unwrapFence(raw, "", "yaml", "yml", "json"); ok {
		doc = inner
	}

	var spec map[string]any
	if err := yaml.Unmarshal([]byte(doc), &spec); err != nil {
		return doc, fmt.Errorf("openapi document is not valid YAML: %w", err)
	}
	if _, ok := spec["openapi"]; !ok {
		if _, ok := spec["swagger"]; !ok {
			return doc, fmt.Errorf("openapi document has no openapi version field")
		}
	}
	return doc, nil
}

// unwrapFence returns the body of a fenced block spanning all of text. With
// no infos any info string is accepted. Text made of several blocks is left
// alone.
func unwrapFence(text string, infos ...string) (string, bool) {
	t := strings.TrimSpace(text)
	nl := strings.IndexByte(t, '\n')
	if nl < 0 {
		return "", false
	}

	open := strings.TrimSpace(t[:nl])
	ticks := len(open) - len(strings.TrimLeft(open, "`"))
	if ticks < 3 {
		return "", false
	}
	fence := strings.Repeat("`", ticks)

	info := strings.ToLower(strings.TrimSpace(open[ticks:]))
	if len(infos) > 0 && !contains(infos, info) {
		return "", false
	}

	body := t[nl+1:]
	last := strings.LastIndexByte(body, '\n')
	if strings.TrimSpace(body[last+1:]) != fence {
		return "", false
	}
	inner := ""
	if last > 0 {
		inner = body[:last]
	}

	// Inner blocks open with an info string and close with a bare fence. A
	// bare fence that closes nothing ends the outer block early, so the text
	// holds more than one block.
	depth := 0
	for _, l := range strings.Split(inner, "\n") {
		l = strings.TrimSpace(l)
		switch {
		case l == fence && depth > 0:
			depth--
		case l == fence:
			return "", false
		case strings.HasPrefix(l, fence) && strings.TrimLeft(l, "`") != "":
			depth++
		}
	}
	return strings.TrimSpace(inner), true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
