package search

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	matchedLineMarker = "> "
	contextLineMarker = "  "
	highlightOpen     = "[["
	highlightClose    = "]]"
)

// buildSnippet centers a window of maxLines lines on the line holding
// offset. Each line is rendered as "<marker><lineNo>: <text>" with matches
// of highlight wrapped in [[...]]. When found is false the first maxLines
// lines are returned without markers.
func buildSnippet(content string, offset int, highlight *regexp.Regexp, found bool, maxLines int) string {
	if maxLines <= 0 || content == "" {
		return ""
	}
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")

	if !found {
		end := min(len(lines), maxLines)
		var sb strings.Builder
		for i := 0; i < end; i++ {
			writeSnippetLine(&sb, contextLineMarker, i+1, lines[i])
		}
		return strings.TrimSuffix(sb.String(), "\n")
	}

	lineIdx := strings.Count(content[:min(offset, len(content))], "\n")
	lineIdx = min(lineIdx, len(lines)-1)
	start := max(0, lineIdx-maxLines/2)
	end := min(len(lines), start+maxLines)
	start = max(0, end-maxLines)

	var sb strings.Builder
	for i := start; i < end; i++ {
		marker := contextLineMarker
		if i == lineIdx {
			marker = matchedLineMarker
		}
		writeSnippetLine(&sb, marker, i+1, highlightLine(lines[i], highlight))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func writeSnippetLine(sb *strings.Builder, marker string, lineNo int, text string) {
	fmt.Fprintf(sb, "%s%d: %s\n", marker, lineNo, strings.TrimSuffix(text, "\r"))
}

func highlightLine(line string, highlight *regexp.Regexp) string {
	if highlight == nil {
		return line
	}
	spans := highlight.FindAllStringIndex(line, -1)
	if len(spans) == 0 {
		return line
	}
	var sb strings.Builder
	last := 0
	for _, span := range spans {
		if span[0] == span[1] {
			continue
		}
		sb.WriteString(line[last:span[0]])
		sb.WriteString(highlightOpen)
		sb.WriteString(line[span[0]:span[1]])
		sb.WriteString(highlightClose)
		last = span[1]
	}
	sb.WriteString(line[last:])
	return sb.String()
}

// firstMatchingLine returns the trimmed line holding offset.
func firstMatchingLine(content string, offset int) string {
	offset = min(offset, len(content))
	start := strings.LastIndexByte(content[:offset], '\n') + 1
	end := strings.IndexByte(content[offset:], '\n')
	if end < 0 {
		return strings.TrimSpace(content[start:])
	}
	return strings.TrimSpace(content[start : offset+end])
}
