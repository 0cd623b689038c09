// Package guard holds the checks applied at the boundary between callers
// and the engine: size and count limits, path safety and identifier
// validation. Every failure is reported before any state is touched.
package guard

import (
	"path"
	"regexp"
	"strings"

	"github.com/ValentinKolb/rsnDB/lib/errs"
)

// --------------------------------------------------------------------------
// Limits
// --------------------------------------------------------------------------

const (
	MaxCommandBytes = 4096     // a single textual request
	MaxBatchOps     = 512      // queued operations per batch
	MaxIngestBytes  = 2 << 20  // a single insert/update/put payload
	MaxImportBytes  = 10 << 20 // an import file
	MaxImportLines  = 100_000  // rows per import
	MaxDepth        = 64       // value nesting and alias expansion
)

func limitErr(what string, limit, actual int) *errs.Error {
	return errs.New(errs.LimitExceeded, "%s exceeds limit of %d", what, limit).
		With("limit", limit).
		With("actual", actual)
}

// CheckCommand rejects request text longer than MaxCommandBytes.
func CheckCommand(text string) error {
	if len(text) > MaxCommandBytes {
		return limitErr("command text", MaxCommandBytes, len(text))
	}
	return nil
}

// capped returns limit bounded by ceiling; zero or negative means ceiling.
func capped(limit, ceiling int) int {
	if limit <= 0 || limit > ceiling {
		return ceiling
	}
	return limit
}

// CheckBatch rejects a batch that would hold more than limit operations.
// The limit never exceeds MaxBatchOps.
func CheckBatch(n, limit int) error {
	limit = capped(limit, MaxBatchOps)
	if n > limit {
		return limitErr("batch", limit, n)
	}
	return nil
}

// CheckIngest rejects a single payload larger than MaxIngestBytes.
func CheckIngest(n int) error {
	if n > MaxIngestBytes {
		return limitErr("payload", MaxIngestBytes, n)
	}
	return nil
}

// CheckImportSize rejects import files larger than MaxImportBytes.
func CheckImportSize(n int64) error {
	if n > MaxImportBytes {
		return limitErr("import file", MaxImportBytes, int(n))
	}
	return nil
}

// CheckImportLines rejects imports with more than MaxImportLines rows.
func CheckImportLines(n int) error {
	if n > MaxImportLines {
		return limitErr("import line count", MaxImportLines, n)
	}
	return nil
}

// CheckDepth rejects recursion (alias expansion) beyond limit, which never
// exceeds MaxDepth.
func CheckDepth(depth, limit int) error {
	limit = capped(limit, MaxDepth)
	if depth > limit {
		return limitErr("recursion depth", limit, depth)
	}
	return nil
}

// --------------------------------------------------------------------------
// Paths
// --------------------------------------------------------------------------

// SafePath accepts only relative, traversal-free paths that name a file.
// It returns the cleaned, slash-separated form.
func SafePath(p string) (string, error) {
	reject := func(reason string) (string, error) {
		return "", errs.New(errs.PathRejected, "path %q rejected: %s", p, reason).With("path", p)
	}

	if p == "" {
		return reject("empty path")
	}
	if strings.ContainsRune(p, 0) {
		return reject("contains NUL byte")
	}

	norm := strings.ReplaceAll(p, `\`, "/")
	switch {
	case strings.HasPrefix(norm, "/"):
		return reject("absolute path")
	case strings.HasPrefix(norm, "~"):
		return reject("home directory prefix")
	case len(norm) >= 2 && norm[1] == ':' && isLetter(norm[0]):
		return reject("volume prefix")
	}

	for _, seg := range strings.Split(norm, "/") {
		if seg == ".." {
			return reject("parent directory traversal")
		}
	}

	if strings.HasSuffix(norm, "/") {
		return reject("no file name")
	}
	cleaned := path.Clean(norm)
	if base := path.Base(cleaned); base == "." || base == "/" {
		return reject("no file name")
	}
	return cleaned, nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// --------------------------------------------------------------------------
// Identifiers
// --------------------------------------------------------------------------

var identRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Identifier validates a name that may end up in generated statements.
func Identifier(kind, name string) error {
	if !identRe.MatchString(name) {
		return errs.New(errs.IdentifierInvalid, "invalid %s name %q: only [A-Za-z0-9_] allowed", kind, name).
			With(kind, name)
	}
	return nil
}
