package workload

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
	"github.com/pkg/errors"
)

// ParseTrace reads a page trace with one access per line:
//
//	page<TAB>length<TAB>isWrite<TAB># comment
//
// length consecutive pages starting at page are expanded into requests and
// isWrite is 0 or 1. Lines whose leading fields are empty (non-file I/O),
// blank lines and lines starting with # are skipped.
func ParseTrace(r io.Reader) ([]Request, error) {
	var reqs []Request
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if strings.TrimSpace(text) == "" || strings.HasPrefix(strings.TrimSpace(text), "#") {
			continue
		}
		if i := strings.Index(text, "#"); i >= 0 {
			text = text[:i]
		}

		fields := strings.Split(text, "\t")
		if len(fields) < 3 {
			return nil, errors.Errorf("trace line %d: want 3 tab separated fields, got %d", line, len(fields))
		}
		pageField := strings.TrimSpace(fields[0])
		lenField := strings.TrimSpace(fields[1])
		writeField := strings.TrimSpace(fields[2])
		if pageField == "" && lenField == "" && writeField == "" {
			continue
		}

		start, err := strconv.ParseUint(pageField, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "trace line %d: page", line)
		}
		n, err := strconv.ParseUint(lenField, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "trace line %d: length", line)
		}
		var write bool
		switch writeField {
		case "0":
		case "1":
			write = true
		default:
			return nil, errors.Errorf("trace line %d: isWrite must be 0 or 1, got %q", line, writeField)
		}

		if n > 0 && start+n-1 < start {
			return nil, errors.Errorf("trace line %d: %d pages from page %d overflow the page id range", line, n, start)
		}
		for i := uint64(0); i < n; i++ {
			reqs = append(reqs, Request{PageID: util.PageID(start + i), Write: write})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read trace")
	}
	return reqs, nil
}
