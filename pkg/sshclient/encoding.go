package sshclient

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// newDecoder resolves an encoding name ("utf-8", "latin-1", ...) through the
// IANA registry and returns a decoder to UTF-8.
func newDecoder(name string) (*encoding.Decoder, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		// The index maps a few names (including UTF-8) to nil, meaning
		// no transformation is needed.
		return encoding.Nop.NewDecoder(), nil
	}
	return enc.NewDecoder(), nil
}

// decodeText decodes raw remote bytes with dec, falling back to the raw
// bytes when the decoder reports an error partway through.
func decodeText(dec *encoding.Decoder, raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	out, err := dec.Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
