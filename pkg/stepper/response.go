package stepper

import (
	"strings"
	"unicode/utf8"

	pkgerrors "github.com/pkg/errors"
)

// Response is a decoded firmware reply.
type Response struct {
	// Text is the whole reply with surrounding whitespace removed.
	Text string
	// Lines is Text split on CRLF.
	Lines []string
}

// DecodeResponse trims raw, decodes it as UTF-8 and splits it on CRLF.
func DecodeResponse(raw []byte) (Response, error) {
	if !utf8.Valid(raw) {
		return Response{}, pkgerrors.Errorf("response is not valid utf-8: %q", raw)
	}

	text := strings.TrimSpace(string(raw))
	return Response{
		Text:  text,
		Lines: strings.Split(text, "\r\n"),
	}, nil
}

// Last returns the final line of the reply, which carries the completion word.
func (r Response) Last() string {
	if len(r.Lines) == 0 {
		return ""
	}
	return r.Lines[len(r.Lines)-1]
}
