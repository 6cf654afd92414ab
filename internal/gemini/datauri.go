package gemini

import (
	"encoding/base64"
	"strings"
)

// DataURI is a decoded data: URI payload with its MIME type.
type DataURI struct {
	MIME string
	Data []byte
}

// ParseDataURI decodes a base64 data: URI of the form
// data:<mime>;base64,<payload>. Anything else is a malformed input.
func ParseDataURI(s string) (*DataURI, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, newError(KindMalformedInput, "image must be a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, newError(KindMalformedInput, "data URI has no payload")
	}
	mime, encoded := strings.CutSuffix(meta, ";base64")
	if !encoded {
		return nil, newError(KindMalformedInput, "data URI must be base64 encoded")
	}
	if mime == "" {
		mime = "image/png"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, wrapError(KindMalformedInput, "decode data URI payload", err)
	}
	return &DataURI{MIME: mime, Data: data}, nil
}

func base64Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func base64Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// String re-encodes the payload as a data: URI.
func (d *DataURI) String() string {
	mime := d.MIME
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(d.Data)
}
