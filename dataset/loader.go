package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// columnAliases maps the column spellings seen across scraper exports to
// the canonical names the rest of the pipeline uses.
var columnAliases = map[string]string{
	"baths":         "bathrooms",
	"bath":          "bathrooms",
	"bedroom":       "bedrooms",
	"type":          "property_type",
	"area":          "area_marla",
	"area_size":     "area_marla",
	"area_in_marla": "area_marla",
}

var (
	titleCaser = cases.Title(language.Und)
	spaceRe    = regexp.MustCompile(`\s+`)
	numberRe   = regexp.MustCompile(`[\d.]+`)
)

// NormalizeColumn lowercases a header and collapses whitespace to
// underscores, then resolves known aliases.
func NormalizeColumn(name string) string {
	col := strings.ToLower(strings.TrimSpace(name))
	col = spaceRe.ReplaceAllString(col, "_")
	if canonical, ok := columnAliases[col]; ok {
		return canonical
	}
	return col
}

// CanonicalLocation normalizes free-form location text so the same place
// scraped with different casing or Unicode forms maps to one encoder key.
func CanonicalLocation(s string) string {
	s = norm.NFKC.String(strings.TrimSpace(s))
	s = spaceRe.ReplaceAllString(s, " ")
	if s == "" {
		return OtherLocation
	}
	return titleCaser.String(s)
}

// ParsePrice converts scraped price text to PKR. Handles "PKR", comma
// separators, and the Crore/Lakh shorthand used by listing sites.
func ParsePrice(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	s = strings.TrimSpace(strings.TrimPrefix(s, "PKR"))
	if s == "" {
		return 0
	}

	multiplier := 1.0
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "crore"):
		multiplier = 1e7
	case strings.Contains(lower, "lakh"):
		multiplier = 1e5
	}

	match := numberRe.FindString(s)
	if match == "" {
		return 0
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return value * multiplier
}

// ParseArea converts scraped area text to Marla. 1 Kanal = 20 Marla.
func ParseArea(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	multiplier := 1.0
	if strings.Contains(strings.ToLower(s), "kanal") {
		multiplier = 20
	}

	match := numberRe.FindString(s)
	if match == "" {
		return 0
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return value * multiplier
}

// LoadCSV reads a listing export. Rows missing the essential numeric
// fields are skipped rather than failing the whole load; the caller gets
// the count of skipped rows for auditing.
func LoadCSV(path string) ([]PropertyRecord, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()
	return ReadRecords(file)
}

func ReadRecords(r io.Reader) ([]PropertyRecord, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[NormalizeColumn(name)] = i
	}
	for _, required := range []string{"city", "property_type", "price", "area_marla"} {
		if _, ok := cols[required]; !ok {
			return nil, 0, fmt.Errorf("missing required column %q", required)
		}
	}

	field := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var records []PropertyRecord
	skipped := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read row: %w", err)
		}

		record := PropertyRecord{
			City:         titleCaser.String(strings.ToLower(field(row, "city"))),
			Location:     CanonicalLocation(field(row, "location")),
			PropertyType: titleCaser.String(strings.ToLower(field(row, "property_type"))),
			Purpose:      field(row, "purpose"),
			Price:        ParsePrice(field(row, "price")),
			AreaMarla:    ParseArea(field(row, "area_marla")),
		}
		record.Bedrooms, _ = strconv.Atoi(field(row, "bedrooms"))
		record.Bathrooms, _ = strconv.Atoi(field(row, "bathrooms"))
		record.YearBuilt, _ = strconv.Atoi(field(row, "year_built"))
		record.Latitude, _ = strconv.ParseFloat(field(row, "latitude"), 64)
		record.Longitude, _ = strconv.ParseFloat(field(row, "longitude"), 64)
		if date := field(row, "date_added"); date != "" {
			record.DateAdded, _ = time.Parse("01-02-2006", date)
		}
		if record.Purpose == "" {
			record.Purpose = PurposeForSale
		}

		if record.Price <= 0 || record.AreaMarla <= 0 || record.City == "" {
			skipped++
			continue
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, skipped, errors.New("no usable rows in input")
	}
	return records, skipped, nil
}
