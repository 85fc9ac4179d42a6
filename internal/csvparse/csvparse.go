// Package csvparse turns raw bank CSV exports into header tokens and
// string-keyed rows. All "stringly typed" access to statement data starts
// and ends here; downstream packages work with typed rows.
package csvparse

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Result holds the parsed shape of one CSV file.
type Result struct {
	// Headers are the original header cells, in column order.
	Headers []string
	// Tokens are the normalized header tokens, aligned with Headers.
	Tokens []string
	// Rows map normalized header token -> cell value, one map per data line.
	Rows []map[string]string
	// Errors carries one message per unparseable line, with line number.
	Errors []string
	// Delimiter is the sniffed field separator.
	Delimiter rune
}

// Parse reads an entire CSV export. The first non-blank line is treated as
// the header. Lines that fail CSV parsing are reported in Result.Errors and
// skipped; they never abort the file.
func Parse(r io.Reader) (Result, error) {
	data, err := io.ReadAll(bufio.NewReader(r))
	if err != nil {
		return Result{}, fmt.Errorf("read csv input: %w", err)
	}
	text := strings.TrimPrefix(string(data), "﻿")
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("empty csv input")
	}

	res := Result{Delimiter: sniffDelimiter(text)}

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = res.Delimiter
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	line := 0
	for {
		line++
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if isBlank(rec) {
			continue
		}
		if res.Headers == nil {
			res.Headers = rec
			res.Tokens = make([]string, len(rec))
			for i, h := range rec {
				res.Tokens[i] = NormalizeHeader(h)
			}
			continue
		}
		row := make(map[string]string, len(res.Tokens))
		for i, tok := range res.Tokens {
			if i < len(rec) {
				row[tok] = strings.TrimSpace(rec[i])
			} else {
				row[tok] = ""
			}
		}
		res.Rows = append(res.Rows, row)
	}

	if res.Headers == nil {
		return res, fmt.Errorf("csv input has no header line")
	}
	return res, nil
}

// NormalizeHeader lower-cases a header cell and strips whitespace,
// underscores and dashes so that "Posted Date", "posted_date" and
// "POSTED-DATE" all yield the same token.
func NormalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		switch r {
		case ' ', '\t', '_', '-', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sniffDelimiter counts candidate separators on the first line and picks the
// most frequent one. Comma wins ties.
func sniffDelimiter(text string) rune {
	first := text
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		first = text[:idx]
	}
	best, bestCount := ',', strings.Count(first, ",")
	for _, cand := range []rune{';', '\t', '|'} {
		if n := strings.Count(first, string(cand)); n > bestCount {
			best, bestCount = cand, n
		}
	}
	return best
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
