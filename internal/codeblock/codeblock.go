// Package codeblock splits assistant message content into alternating
// text and fenced-code segments for rendering and export.
package codeblock

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind distinguishes the two segment types.
type Kind int

const (
	Text Kind = iota
	Code
)

func (k Kind) String() string {
	if k == Code {
		return "code"
	}
	return "text"
}

// MarshalJSON emits the kind name so API clients see "text"/"code"
// rather than enum ordinals.
func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// Segment is one contiguous run of a message, in original order.
type Segment struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
	// ID is stable across re-parses of the same message: the message
	// ID joined with the byte offset of the opening fence. Empty for
	// text segments.
	ID string `json:"id,omitempty"`
}

var fenceRe = regexp.MustCompile("(?s)```[a-zA-Z0-9+-]*\\n?(.*?)```")

// Parse splits content around triple-backtick fences. The language tag
// and the fences themselves are dropped and the code body is trimmed of
// leading and trailing whitespace. Content without fences comes back as
// a single text segment.
func Parse(content, msgID string) []Segment {
	matches := fenceRe.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return []Segment{{Kind: Text, Value: content}}
	}

	var segments []Segment
	last := 0
	for _, m := range matches {
		if m[0] > last {
			segments = append(segments, Segment{Kind: Text, Value: content[last:m[0]]})
		}
		body := strings.TrimSpace(content[m[2]:m[3]])
		segments = append(segments, Segment{
			Kind:  Code,
			Value: body,
			ID:    fmt.Sprintf("%s-%d", msgID, m[0]),
		})
		last = m[1]
	}
	if last < len(content) {
		segments = append(segments, Segment{Kind: Text, Value: content[last:]})
	}
	return segments
}

// FirstCode returns the first code segment's body, or the trimmed
// content when no fence is present. Used when a reply is expected to
// be a single machine-readable block.
func FirstCode(content string) string {
	for _, seg := range Parse(content, "") {
		if seg.Kind == Code {
			return seg.Value
		}
	}
	return strings.TrimSpace(content)
}
