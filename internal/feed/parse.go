package feed

import (
	"strconv"
	"strings"
)

// normalizeCol lowercases, trims, and strips accents/spacing variants for
// cross-export header matching. Government exports of the same dataset are
// not consistent about case, diacritics, or separators.
// "AÑO_EJE" -> "ano_eje", "Sec Ejec" -> "sec_ejec"
func normalizeCol(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	replacer := strings.NewReplacer(
		"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n", "ü", "u",
	)
	return replacer.Replace(s)
}

// mapColumnsNormalized builds a normalized column name -> index map.
func mapColumnsNormalized(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[normalizeCol(col)] = i
	}
	return m
}

// getColN gets a column value by normalized name.
func getColN(record []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[normalizeCol(name)]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// firstNonEmpty returns the first non-empty value from the named columns.
// Used for columns renamed between schema versions (e.g., "ano_eje" vs "anno").
func firstNonEmpty(record []string, colIdx map[string]int, names ...string) string {
	for _, name := range names {
		if v := getColN(record, colIdx, name); v != "" {
			return v
		}
	}
	return ""
}

// hasAnyColumn reports whether the header contains at least one of the names.
func hasAnyColumn(colIdx map[string]int, names ...string) bool {
	for _, name := range names {
		if _, ok := colIdx[normalizeCol(name)]; ok {
			return true
		}
	}
	return false
}

// parseIntOr parses a string as an integer, returning def on empty or garbage.
func parseIntOr(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// parseFloat64Or parses a string as a float64, returning def if parsing fails.
// Handles the thousands separators some exports carry.
func parseFloat64Or(s string, def float64) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

// sanitizeUTF8 replaces invalid UTF-8 byte sequences with empty strings so
// Postgres doesn't reject the row.
func sanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, "")
}
