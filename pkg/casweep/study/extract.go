package study

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/gobwas/glob"
)

// ErrNoMatch is returned when an extractor finds no value.
var ErrNoMatch = errors.New("no value found")

// extract runs every output extractor of the model against a finished case
// directory. Failed extractors leave a nil output and are reported in the
// returned map of errors.
func extract(ctx context.Context, m *Model, dir string) (map[string]*float64, map[string]error) {
	outputs := make(map[string]*float64, len(m.OutputOrder))
	var failures map[string]error

	for _, name := range m.OutputOrder {
		v, err := m.Output[name].Extract(ctx, dir)
		if err != nil {
			if failures == nil {
				failures = make(map[string]error)
			}
			failures[name] = err
			outputs[name] = nil
			continue
		}
		outputs[name] = &v
	}
	return outputs, failures
}

// Extract reads the value from a case directory.
func (e Extractor) Extract(ctx context.Context, dir string) (float64, error) {
	if e.Command != "" {
		return e.fromCommand(ctx, dir)
	}
	return e.fromFiles(dir)
}

// fromCommand runs the command in dir and parses the last non-empty line
// of its stdout.
func (e Extractor) fromCommand(ctx context.Context, dir string) (float64, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", e.Command)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("running %q: %w", e.Command, err)
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return 0, fmt.Errorf("%w: %q printed nothing", ErrNoMatch, e.Command)
	}
	return parseNumber(last)
}

// fromFiles scans the files under dir matching the glob and returns the
// first capture group of the last (or first) regex match.
func (e Extractor) fromFiles(dir string) (float64, error) {
	re, err := regexp.Compile(e.Regex)
	if err != nil {
		return 0, fmt.Errorf("invalid regex %q: %w", e.Regex, err)
	}
	files, err := matchFiles(dir, e.File)
	if err != nil {
		return 0, err
	}

	var found string
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, err
		}
		matches := re.FindAllSubmatch(data, -1)
		if len(matches) == 0 {
			continue
		}
		m := matches[len(matches)-1]
		if e.First {
			m = matches[0]
		}
		found = string(m[0])
		if len(m) > 1 {
			found = string(m[1])
		}
		if e.First {
			break
		}
	}

	if found == "" {
		return 0, fmt.Errorf("%w: /%s/ in %s", ErrNoMatch, e.Regex, e.File)
	}
	return parseNumber(found)
}

// matchFiles returns the regular files below dir whose slash-separated
// relative path matches pattern, sorted by path.
func matchFiles(dir, pattern string) ([]string, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
	}

	var (
		mu    sync.Mutex
		files []string
	)
	conf := fastwalk.Config{Follow: false}
	walkErr := fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		if g.Match(filepath.ToSlash(rel)) {
			mu.Lock()
			files = append(files, path)
			mu.Unlock()
		}
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, fastwalk.ErrSkipFiles) {
		return nil, walkErr
	}

	sort.Strings(files)
	return files, nil
}

// fortranExponent accepts 1.0D+00 style exponents.
var fortranExponent = strings.NewReplacer("D", "E", "d", "e")

// parseNumber parses a solver value. NaN and Inf are rejected so that a
// diverged case yields a null output rather than an unencodable row.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var ferr error
		if v, ferr = strconv.ParseFloat(fortranExponent.Replace(s), 64); ferr != nil {
			return 0, fmt.Errorf("parsing %q as a number: %w", s, err)
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("parsing %q as a number: not finite", s)
	}
	return v, nil
}
