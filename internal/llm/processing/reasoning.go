// Package processing post-processes model output.
package processing

import "strings"

// DefaultTag is the tag reasoning models wrap their chain of thought in.
const DefaultTag = "think"

func tags(name string) (start, end string) {
	return "<" + name + ">", "</" + name + ">"
}

// ExtractTagged separates every <tag>...</tag> block of text from the rest.
// An unclosed block runs to the end of text.
func ExtractTagged(text, tag string) (content string, reasoning string) {
	start, end := tags(tag)

	var contentBuilder strings.Builder
	var reasoningBuilder strings.Builder

	cursor := 0
	length := len(text)

	for cursor < length {
		startIdx := strings.Index(text[cursor:], start)
		if startIdx == -1 {
			contentBuilder.WriteString(text[cursor:])
			break
		}

		realStart := cursor + startIdx
		contentBuilder.WriteString(text[cursor:realStart])
		cursor = realStart + len(start)

		endIdx := strings.Index(text[cursor:], end)
		if endIdx == -1 {
			reasoningBuilder.WriteString(text[cursor:])
			break
		}

		realEnd := cursor + endIdx
		reasoningBuilder.WriteString(text[cursor:realEnd])
		cursor = realEnd + len(end)
	}

	return contentBuilder.String(), reasoningBuilder.String()
}

// StreamParser is the incremental form of ExtractTagged. Tags split across
// chunks are held back until they can be decided.
type StreamParser struct {
	start   string
	end     string
	inBlock bool
	buffer  string
}

func NewStreamParser(tag string) *StreamParser {
	if tag == "" {
		tag = DefaultTag
	}
	start, end := tags(tag)
	return &StreamParser{start: start, end: end}
}

// Process takes a chunk of text and returns the separated content and reasoning parts.
func (p *StreamParser) Process(input string) (content string, reasoning string) {
	text := p.buffer + input
	p.buffer = ""

	var contentBuilder strings.Builder
	var reasoningBuilder strings.Builder

	for len(text) > 0 {
		marker, out := p.start, &contentBuilder
		if p.inBlock {
			marker, out = p.end, &reasoningBuilder
		}

		if idx := strings.Index(text, marker); idx != -1 {
			out.WriteString(text[:idx])
			text = text[idx+len(marker):]
			p.inBlock = !p.inBlock
			continue
		}

		// hold back a suffix that could be the beginning of marker
		keep := partialSuffix(text, marker)
		out.WriteString(text[:len(text)-keep])
		p.buffer = text[len(text)-keep:]
		break
	}

	return contentBuilder.String(), reasoningBuilder.String()
}

// Flush releases text held back at the end of the stream. A dangling partial
// tag is emitted verbatim on the side it was found.
func (p *StreamParser) Flush() (content string, reasoning string) {
	rest := p.buffer
	p.buffer = ""
	if p.inBlock {
		return "", rest
	}
	return rest, ""
}

func partialSuffix(text, marker string) int {
	maxPartial := len(marker) - 1
	if len(text) < maxPartial {
		maxPartial = len(text)
	}
	for i := maxPartial; i > 0; i-- {
		if strings.HasPrefix(marker, text[len(text)-i:]) {
			return i
		}
	}
	return 0
}
