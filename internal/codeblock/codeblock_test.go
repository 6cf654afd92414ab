package codeblock

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePlainText(t *testing.T) {
	segs := Parse("no fences here", "m1")
	require.Len(t, segs, 1)
	require.Equal(t, Text, segs[0].Kind)
	require.Equal(t, "no fences here", segs[0].Value)
}

func TestParseInterleaved(t *testing.T) {
	content := "intro\n```python\nprint(1)\n```\nmiddle\n```\nraw\n```\ntail"
	segs := Parse(content, "m7")

	require.Len(t, segs, 5)
	require.Equal(t, Text, segs[0].Kind)
	require.Equal(t, "intro\n", segs[0].Value)
	require.Equal(t, Code, segs[1].Kind)
	require.Equal(t, "print(1)", segs[1].Value)
	require.Equal(t, Text, segs[2].Kind)
	require.Equal(t, "\nmiddle\n", segs[2].Value)
	require.Equal(t, Code, segs[3].Kind)
	require.Equal(t, "raw", segs[3].Value)
	require.Equal(t, Text, segs[4].Kind)
	require.Equal(t, "\ntail", segs[4].Value)
}

func TestParseIDsStableAndDistinct(t *testing.T) {
	content := "a\n```go\nx\n```\nb\n```go\ny\n```"
	first := Parse(content, "m3")
	second := Parse(content, "m3")

	var ids []string
	for i, seg := range first {
		require.Equal(t, seg, second[i])
		if seg.Kind == Code {
			require.True(t, strings.HasPrefix(seg.ID, "m3-"))
			ids = append(ids, seg.ID)
		}
	}
	require.Len(t, ids, 2)
	require.NotEqual(t, ids[0], ids[1])
}

func TestParseTrimsCodeBody(t *testing.T) {
	content := "before\n```\n  indented  \n\n```\nafter"
	segs := Parse(content, "m2")

	require.Len(t, segs, 3)
	require.Equal(t, Code, segs[1].Kind)
	require.Equal(t, "indented", segs[1].Value)

	segs = Parse("```json\n\n\t{\"a\": 1}\n\n```", "m2")
	require.Len(t, segs, 1)
	require.Equal(t, `{"a": 1}`, segs[0].Value)
}

func TestParseUnterminatedFenceIsText(t *testing.T) {
	content := "start ```python\nnever closed"
	segs := Parse(content, "m1")
	require.Len(t, segs, 1)
	require.Equal(t, Text, segs[0].Kind)
	require.Equal(t, content, segs[0].Value)
}

func TestParseReconstructsContent(t *testing.T) {
	content := "a\n```go\nfmt.Println()\n```\nz"
	var joined strings.Builder
	for _, seg := range Parse(content, "m1") {
		joined.WriteString(seg.Value)
	}
	// Fences and language tags are gone, the payloads survive in order.
	require.Equal(t, "a\nfmt.Println()\nz", joined.String())
}

func TestFirstCode(t *testing.T) {
	require.Equal(t, "0\nSECTION", FirstCode("here:\n```dxf\n0\nSECTION\n```\ndone"))
	require.Equal(t, "0\nSECTION", FirstCode("  0\nSECTION  \n"))
}
