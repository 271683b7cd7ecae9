package watchlist

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Entry is a single watched offer with its alert threshold.
type Entry struct {
	// Product is the watchlist file name without extension.
	Product string

	// OfferID is the numeric marketplace offer identifier.
	OfferID string

	// MinPrice is the alert threshold in PLN.
	MinPrice float64

	// File and Line locate the entry in its source file.
	File string
	Line int
}

// Options controls which files are loaded and how.
type Options struct {
	// Dir is the directory scanned for watchlist files.
	Dir string

	// TargetFile restricts loading to a single file. It matches either the
	// full file name or the name without extension, case-insensitively.
	TargetFile string

	// Include is a glob over file names. Empty means "*.txt".
	Include string
}

var (
	reHeader  = regexp.MustCompile(`(?i)cena\s*minimalna\s*:\s*([0-9][0-9 .,\t]*[0-9])\s*z?ł?`)
	reOfferID = regexp.MustCompile(`(?:/oferta/)?(\d{8,})`)
)

// Load reads all matching watchlist files under opts.Dir and returns the
// deduplicated entries. Files that fail to parse are reported in errs; a
// bad file never prevents the others from loading.
func Load(opts Options) (entries []Entry, errs []error, err error) {
	files, err := findFiles(opts)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]bool)
	for _, path := range files {
		fileEntries, ferr := parseFile(path)
		if ferr != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(path), ferr))
			continue
		}
		for _, e := range fileEntries {
			key := e.Product + "\x00" + e.OfferID
			if seen[key] {
				continue
			}
			seen[key] = true
			entries = append(entries, e)
		}
	}
	return entries, errs, nil
}

// findFiles resolves the set of watchlist files to load, sorted by name.
func findFiles(opts Options) ([]string, error) {
	pattern := opts.Include
	if pattern == "" {
		pattern = "*.txt"
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
	}

	dirEntries, err := os.ReadDir(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading watchlist dir: %w", err)
	}

	var files []string
	for _, de := range dirEntries {
		if de.IsDir() || !g.Match(de.Name()) {
			continue
		}
		files = append(files, filepath.Join(opts.Dir, de.Name()))
	}
	sort.Strings(files)

	if opts.TargetFile == "" {
		return files, nil
	}

	target := strings.ToLower(opts.TargetFile)
	for _, f := range files {
		name := strings.ToLower(filepath.Base(f))
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if name == target || stem == target {
			return []string{f}, nil
		}
	}
	return nil, fmt.Errorf("target file %q not found in %s", opts.TargetFile, opts.Dir)
}

// parseFile parses one watchlist file in either format.
func parseFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	product := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var lines []rawLine
	scanner := bufio.NewScanner(f)
	num := 0
	for scanner.Scan() {
		num++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		lines = append(lines, rawLine{text: text, num: num})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}

	// Format B: any line with a semicolon makes the whole file ID;MIN_PRICE.
	for _, ln := range lines {
		if strings.Contains(ln.text, ";") {
			return parsePairs(product, path, lines)
		}
	}
	return parseHeaderList(product, path, lines)
}

// rawLine is a non-empty, non-comment line with its 1-based line number.
type rawLine struct {
	text string
	num  int
}

// parsePairs handles "ID;MIN_PRICE" lines. Lines without a semicolon are
// skipped, matching the original loader's tolerance.
func parsePairs(product, path string, lines []rawLine) ([]Entry, error) {
	var entries []Entry
	for _, ln := range lines {
		id, priceText, ok := strings.Cut(ln.text, ";")
		if !ok {
			continue
		}
		offerID, err := extractOfferID(id)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", ln.num, err)
		}
		price, err := ParsePrice(priceText)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", ln.num, err)
		}
		entries = append(entries, Entry{
			Product:  product,
			OfferID:  offerID,
			MinPrice: price,
			File:     filepath.Base(path),
			Line:     ln.num,
		})
	}
	return entries, nil
}

// parseHeaderList handles the threshold-header format: the first line sets
// the threshold, every later line is an offer ID or URL.
func parseHeaderList(product, path string, lines []rawLine) ([]Entry, error) {
	m := reHeader.FindStringSubmatch(lines[0].text)
	if m == nil {
		return nil, fmt.Errorf("line %d: expected 'cena minimalna: ...' header", lines[0].num)
	}
	threshold, err := ParsePrice(m[1])
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", lines[0].num, err)
	}

	var entries []Entry
	for _, ln := range lines[1:] {
		if reHeader.MatchString(ln.text) {
			continue
		}
		offerID, err := extractOfferID(ln.text)
		if err != nil {
			// Non-ID lines (stray notes) are skipped, not fatal.
			continue
		}
		entries = append(entries, Entry{
			Product:  product,
			OfferID:  offerID,
			MinPrice: threshold,
			File:     filepath.Base(path),
			Line:     ln.num,
		})
	}
	return entries, nil
}

// extractOfferID pulls the numeric offer ID out of a bare ID or a full
// offer URL.
func extractOfferID(s string) (string, error) {
	m := reOfferID.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", fmt.Errorf("no offer ID in %q", s)
	}
	return m[1], nil
}
