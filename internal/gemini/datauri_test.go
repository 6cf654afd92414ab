package gemini

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDataURIRoundTrip(t *testing.T) {
	orig := &DataURI{MIME: "image/jpeg", Data: []byte("raster bytes")}
	parsed, err := ParseDataURI(orig.String())
	require.NoError(t, err)
	require.Equal(t, orig.MIME, parsed.MIME)
	require.Equal(t, orig.Data, parsed.Data)
}

func TestParseDataURIDefaultsMIME(t *testing.T) {
	parsed, err := ParseDataURI("data:;base64,aGk=")
	require.NoError(t, err)
	require.Equal(t, "image/png", parsed.MIME)
	require.Equal(t, []byte("hi"), parsed.Data)
}

func TestParseDataURIRejectsMalformed(t *testing.T) {
	for _, in := range []string{
		"http://example.com/a.png",
		"data:image/png;base64",
		"data:image/png,plain-text",
		"data:image/png;base64,!!!not-base64!!!",
	} {
		_, err := ParseDataURI(in)
		require.True(t, IsKind(err, KindMalformedInput), "input %q", in)
	}
}
