package merge

// SourceKind classifies how a source's bytes become key/value pairs.
type SourceKind int

const (
	// PlainFile is a dotenv-formatted file read directly.
	PlainFile SourceKind = iota
	// VaultFile is a flat file of sealed blobs, one per environment,
	// opened with out-of-band key material before parsing.
	VaultFile
)

func (k SourceKind) String() string {
	switch k {
	case PlainFile:
		return "plain"
	case VaultFile:
		return "vault"
	default:
		return "unknown"
	}
}

// Source is one ordered input to a run. Immutable once built.
type Source struct {
	Kind    SourceKind
	Locator string
}

// SourceReader supplies the decoded text of a source. Implementations own
// encoding detection; the engine only sees strings.
type SourceReader interface {
	ReadSource(locator string) (string, error)
}

// ReaderFunc adapts a function to the SourceReader interface.
type ReaderFunc func(locator string) (string, error)

func (f ReaderFunc) ReadSource(locator string) (string, error) { return f(locator) }
