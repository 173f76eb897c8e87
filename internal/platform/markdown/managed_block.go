package markdown

import "strings"

// UpsertBlock replaces the text between start and end markers, or appends a
// new marked block when the markers are absent. Text outside the markers is
// left as the user wrote it.
func UpsertBlock(doc, start, end, generated string) string {
	block := start + "\n" + strings.TrimRight(generated, "\n") + "\n" + end
	from := strings.Index(doc, start)
	to := strings.Index(doc, end)
	if from >= 0 && to > from {
		return doc[:from] + block + doc[to+len(end):]
	}
	switch {
	case strings.TrimSpace(doc) == "":
		return block + "\n"
	case strings.HasSuffix(doc, "\n"):
		return doc + "\n" + block + "\n"
	default:
		return doc + "\n\n" + block + "\n"
	}
}
