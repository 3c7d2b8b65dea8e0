package errs

import (
	"errors"
	"io/fs"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestMessagesNameTheStage(t *testing.T) {
	c := qt.New(t)
	cause := errors.New("boom")

	tests := []struct {
		err  error
		want string
	}{
		{&ContainerError{Op: "open", Err: cause}, "container open: boom"},
		{&ContainerError{Op: "missing", Entry: "word/document.xml", Err: fs.ErrNotExist}, "container missing word/document.xml: file does not exist"},
		{&DocumentParseError{Part: "word/document.xml", Err: cause}, "document parse word/document.xml: boom"},
		{&SlideParseError{Slide: 3, Entry: "ppt/slides/slide3.xml", Err: cause}, "slide 3 (ppt/slides/slide3.xml): boom"},
		{&IOError{Path: "img/a.png", Err: cause}, "io img/a.png: boom"},
		{&UnsupportedFormatError{MIME: "text/plain"}, `unsupported format "text/plain"`},
		{&UnsupportedFormatError{MIME: "audio/wav", Reason: "no recognizer"}, `unsupported format "audio/wav": no recognizer`},
		{&NamingError{Err: cause}, "image naming: boom"},
	}
	for _, test := range tests {
		c.Assert(test.err.Error(), qt.Equals, test.want)
	}
}

func TestUnwrap(t *testing.T) {
	c := qt.New(t)

	err := error(&ContainerError{Op: "missing", Entry: "x", Err: fs.ErrNotExist})
	c.Assert(errors.Is(err, fs.ErrNotExist), qt.Equals, true)

	var cerr *ContainerError
	c.Assert(errors.As(&SlideParseError{Slide: 1, Err: err}, &cerr), qt.Equals, true)
}
