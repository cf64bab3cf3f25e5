package domain

import (
	"fmt"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ErrorKind classifies failures surfaced by the lifecycle engine
type ErrorKind int

const (
	KindNetwork ErrorKind = iota + 1
	KindFilesystem
	KindExtract
	KindIntegrity
	KindCorruptSettings
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network error"
	case KindFilesystem:
		return "filesystem error"
	case KindExtract:
		return "extract error"
	case KindIntegrity:
		return "integrity error"
	case KindCorruptSettings:
		return "corrupt settings"
	case KindNotFound:
		return "not found"
	default:
		return "error"
	}
}

// Sentinels for errors.Is matching against *Error kinds
var (
	ErrNetwork         = errors.New("network error")
	ErrFilesystem      = errors.New("filesystem error")
	ErrExtract         = errors.New("extract error")
	ErrIntegrity       = errors.New("integrity error")
	ErrCorruptSettings = errors.New("corrupt settings")
	ErrNotFound        = errors.New("not found")

	ErrModsRootMissing = errors.New("mods root does not exist")
	ErrProfileExists   = errors.New("profile already exists")
	ErrDependencyLoop  = errors.New("circular dependency detected")
	ErrInvalidModName  = errors.New("invalid mod name")
)

var kindSentinels = map[ErrorKind]error{
	KindNetwork:         ErrNetwork,
	KindFilesystem:      ErrFilesystem,
	KindExtract:         ErrExtract,
	KindIntegrity:       ErrIntegrity,
	KindCorruptSettings: ErrCorruptSettings,
	KindNotFound:        ErrNotFound,
}

// Error is a classified failure carrying the mod name and the offending path or URL
type Error struct {
	Kind ErrorKind
	Mod  string
	Path string
	URL  string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Mod != "" {
		fmt.Fprintf(&b, " for mod %q", e.Mod)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " at %s", e.Path)
	}
	if e.URL != "" {
		fmt.Fprintf(&b, " fetching %s", e.URL)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind
func (e *Error) Is(target error) bool {
	if s, ok := kindSentinels[e.Kind]; ok && s == target {
		return true
	}
	return false
}

// NetworkError wraps err as a network failure for url
func NetworkError(mod, url string, err error) error {
	return &Error{Kind: KindNetwork, Mod: mod, URL: url, Err: err}
}

// FilesystemError wraps err as a filesystem failure at path
func FilesystemError(mod, path string, err error) error {
	return &Error{Kind: KindFilesystem, Mod: mod, Path: path, Err: err}
}

// ExtractError wraps err as an archive failure for path
func ExtractError(mod, path string, err error) error {
	return &Error{Kind: KindExtract, Mod: mod, Path: path, Err: err}
}

// IntegrityError reports a content hash mismatch for path
func IntegrityError(mod, path, want, got string) error {
	return &Error{
		Kind: KindIntegrity,
		Mod:  mod,
		Path: path,
		Err:  errors.Errorf("sha256 mismatch: want %s, got %s", want, got),
	}
}

// CorruptSettingsError wraps err as an unparseable settings file at path
func CorruptSettingsError(path string, err error) error {
	return &Error{Kind: KindCorruptSettings, Path: path, Err: err}
}

// NotFoundError reports a mod or profile name missing from local state
func NotFoundError(what, name string) error {
	return &Error{Kind: KindNotFound, Err: errors.Errorf("%s %q not in local state", what, name)}
}

// ErrorKindOf returns the kind of the first *Error in err's chain, or 0
func ErrorKindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

// WithMod attaches mod to err when err is an *Error that does not name one yet
func WithMod(err error, mod string) error {
	de, ok := err.(*Error)
	if !ok || de.Mod != "" {
		return err
	}
	cp := *de
	cp.Mod = mod
	return &cp
}
