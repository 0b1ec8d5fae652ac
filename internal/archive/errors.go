package archive

import (
	"errors"
	"strings"
)

// Kind classifies why an archive could not be loaded.
type Kind uint8

const (
	// KindUnreadable: the path is missing or cannot be read. Fix the path.
	KindUnreadable Kind = iota + 1
	// KindCorrupt: the archive was read but its contents are invalid.
	KindCorrupt
	// KindUnpack: the work directory could not be written or mapped.
	KindUnpack
)

func (k Kind) String() string {
	switch k {
	case KindUnreadable:
		return "unreadable"
	case KindCorrupt:
		return "corrupt"
	case KindUnpack:
		return "unpack"
	}
	return "unknown"
}

// Code is the stable numeric value used across the C boundary.
func (k Kind) Code() uint8 { return uint8(k) }

var (
	ErrUnreadable = &LoadError{Kind: KindUnreadable}
	ErrCorrupt    = &LoadError{Kind: KindCorrupt}
	ErrUnpack     = &LoadError{Kind: KindUnpack}

	ErrClosed = errors.New("archive: already closed")
)

// LoadError is returned by Open. errors.Is matches it against ErrUnreadable,
// ErrCorrupt and ErrUnpack by kind.
type LoadError struct {
	Cause   error
	Path    string
	Message string
	Kind    Kind
}

func (e *LoadError) Error() string {
	var b strings.Builder
	b.WriteString("archive ")
	b.WriteString(e.Kind.String())
	if e.Path != "" {
		b.WriteString(": ")
		b.WriteString(e.Path)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

func (e *LoadError) Is(target error) bool {
	if t, ok := target.(*LoadError); ok {
		return e.Kind == t.Kind
	}
	return false
}

func loadError(kind Kind, path, msg string, cause error) *LoadError {
	return &LoadError{Kind: kind, Path: path, Message: msg, Cause: cause}
}
