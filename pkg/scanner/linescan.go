package scanner

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// maxScannableFileSize skips files too large to be hand-written source.
const maxScannableFileSize = 1 << 20

// matcher reports whether a line matches and returns the matched fragment.
type matcher func(line string) (string, bool)

// newMatcher builds a matcher for the query's needles. Fixed strings are
// checked individually; regex needles compile into one alternation.
func newMatcher(q Query) (matcher, error) {
	if !q.Regex {
		needles := q.Needles
		return func(line string) (string, bool) {
			for _, needle := range needles {
				if strings.Contains(line, needle) {
					return needle, true
				}
			}
			return "", false
		}, nil
	}

	re, err := regexp.Compile("(" + strings.Join(q.Needles, ")|(") + ")")
	if err != nil {
		return nil, fmt.Errorf("compiling needle alternation: %w", err)
	}
	return func(line string) (string, bool) {
		if m := re.FindString(line); m != "" {
			return m, true
		}
		return "", false
	}, nil
}

// matchesGlobs reports whether the relative path matches any glob; an empty
// glob list matches everything.
func matchesGlobs(globs []string, rel string) bool {
	if len(globs) == 0 {
		return true
	}
	rel = filepath.ToSlash(rel)
	for _, glob := range globs {
		if ok, err := doublestar.Match(glob, rel); err == nil && ok {
			return true
		}
		// rg-style globs match against the basename too
		if ok, err := doublestar.Match(glob, filepath.Base(rel)); err == nil && ok {
			return true
		}
	}
	return false
}

// scanFiles line-scans the given relative paths under root.
func scanFiles(root string, rels []string, q Query) ([]Signal, error) {
	match, err := newMatcher(q)
	if err != nil {
		return nil, err
	}

	var signals []Signal
	for _, rel := range rels {
		if !matchesGlobs(q.Globs, rel) {
			continue
		}
		signals = append(signals, scanFile(root, rel, match)...)
		if len(signals) >= maxSignals {
			return signals[:maxSignals], nil
		}
	}
	return signals, nil
}

func scanFile(root, rel string, match matcher) []Signal {
	path := filepath.Join(root, rel)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() > maxScannableFileSize {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var signals []Signal
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		if matched, ok := match(sc.Text()); ok {
			signals = append(signals, Signal{
				File:        filepath.ToSlash(rel),
				Line:        lineNum,
				MatchedText: matched,
			})
			if len(signals) >= 5 {
				break
			}
		}
	}
	return signals
}
