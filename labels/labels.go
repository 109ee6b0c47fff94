// Package labels reads the sidecar file that maps ImageNet label prefixes (WordNet ids such as
// "n02708093") to dense class ids and display names, and parses label prefixes out of image
// filenames.
//
// The sidecar has one class per line:
//
//	n01440764 tench Tinca tinca
//	n01443537 goldfish
//
// The first token is the prefix, the remaining tokens are concatenated (without separator) into
// the display name, and ids are assigned in line order starting at 0.
package labels

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	// ErrMalformedLine is returned for a sidecar line with no tokens.
	ErrMalformedLine = errors.New("malformed label line")

	// ErrDuplicatePrefix is returned when a prefix appears twice in the sidecar.
	ErrDuplicatePrefix = errors.New("duplicate label prefix")

	// ErrUnknownPrefix is returned when a prefix is not in the index.
	ErrUnknownPrefix = errors.New("unknown label prefix")

	// ErrNoPrefix is returned for filenames that carry no "<prefix>_" part.
	ErrNoPrefix = errors.New("filename has no label prefix")

	// ErrUnknownID is returned for class ids outside [0, Len()).
	ErrUnknownID = errors.New("unknown class id")
)

// Index maps label prefixes to class ids and class ids to display names.
// It is immutable once built, and safe for concurrent use.
type Index struct {
	prefixToID map[string]int
	prefixes   []string
	names      []string
}

// Load reads the sidecar file at path.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open labels file %q", path)
	}
	defer f.Close()

	idx, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "labels file %q", path)
	}
	klog.V(1).Infof("labels: loaded %d classes from %q", idx.Len(), path)
	return idx, nil
}

// Parse reads the sidecar content from r.
func Parse(r io.Reader) (*Index, error) {
	idx := &Index{prefixToID: make(map[string]int)}
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			return nil, errors.Wrapf(ErrMalformedLine, "line %d is empty", lineNum)
		}
		parts := strings.Split(line, " ")
		prefix := parts[0]
		if prev, found := idx.prefixToID[prefix]; found {
			return nil, errors.Wrapf(ErrDuplicatePrefix, "line %d: prefix %q already assigned to class %d",
				lineNum, prefix, prev)
		}
		idx.prefixToID[prefix] = len(idx.prefixes)
		idx.prefixes = append(idx.prefixes, prefix)
		idx.names = append(idx.names, strings.Join(parts[1:], ""))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed reading line %d", lineNum+1)
	}
	return idx, nil
}

// Len returns the number of classes.
func (idx *Index) Len() int { return len(idx.prefixes) }

// ID returns the class id of the given prefix.
func (idx *Index) ID(prefix string) (int, error) {
	id, found := idx.prefixToID[prefix]
	if !found {
		return 0, errors.Wrapf(ErrUnknownPrefix, "%q", prefix)
	}
	return id, nil
}

// Name returns the display name of class id.
func (idx *Index) Name(id int) (string, error) {
	if id < 0 || id >= len(idx.names) {
		return "", errors.Wrapf(ErrUnknownID, "%d not in [0, %d)", id, len(idx.names))
	}
	return idx.names[id], nil
}

// Prefix returns the label prefix of class id.
func (idx *Index) Prefix(id int) (string, error) {
	if id < 0 || id >= len(idx.prefixes) {
		return "", errors.Wrapf(ErrUnknownID, "%d not in [0, %d)", id, len(idx.prefixes))
	}
	return idx.prefixes[id], nil
}

// Prefixes returns a copy of all prefixes, ordered by class id.
func (idx *Index) Prefixes() []string {
	return append([]string(nil), idx.prefixes...)
}

// Lookup returns the class id for an image filename, e.g. "n02708093_7537.JPEG".
func (idx *Index) Lookup(filename string) (int, error) {
	prefix, err := PrefixFromFilename(filename)
	if err != nil {
		return 0, err
	}
	id, err := idx.ID(prefix)
	if err != nil {
		return 0, errors.WithMessagef(err, "file %q", filename)
	}
	return id, nil
}

// PrefixFromFilename returns the part of filename before the first underscore.
//
// Both the training ("n02708093_7537.JPEG") and the validation
// ("n15075141_ILSVRC2012_val_00047144.JPEG") naming schemes are supported.
func PrefixFromFilename(filename string) (string, error) {
	prefix, _, found := strings.Cut(filename, "_")
	if !found || prefix == "" {
		return "", errors.Wrapf(ErrNoPrefix, "%q", filename)
	}
	return prefix, nil
}
