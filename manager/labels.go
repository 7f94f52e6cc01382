package manager

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

var labelPattern = regexp.MustCompile(`^(\S+)\s*=\s*\$(\S+)`)

// LookupLabel scans an assembler label listing for "name = $hex" and returns
// the address of label.
func LookupLabel(r io.Reader, label string) (uint32, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		match := labelPattern.FindStringSubmatch(sc.Text())
		if match == nil || match[1] != label {
			continue
		}
		addr, err := parseHex(match[2])
		if err != nil {
			return 0, errors.Wrapf(err, "label %s", label)
		}
		return addr, nil
	}
	if err := sc.Err(); err != nil {
		return 0, errors.Wrap(err, "read label file")
	}
	return 0, &LabelNotFoundError{Label: label}
}

// LookupLabelFile is LookupLabel on the named file.
func LookupLabelFile(path, label string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open label file")
	}
	defer f.Close()
	return LookupLabel(f, label)
}

func parseHex(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, errors.Errorf("bad address %q", s)
	}
	return uint32(v), nil
}
