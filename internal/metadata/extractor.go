// Package metadata recognizes the bibliographic header of a Russian legal act:
// act type, number, adoption date, title and issuing authority.
package metadata

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/kplus/internal/models"
	"go.uber.org/zap"
)

// DefaultPrefixLimit is how many leading characters of a text are examined.
// Header data of an act always sits at its top.
const DefaultPrefixLimit = 3000

var months = map[string]time.Month{
	"января": time.January, "февраля": time.February, "марта": time.March,
	"апреля": time.April, "мая": time.May, "июня": time.June,
	"июля": time.July, "августа": time.August, "сентября": time.September,
	"октября": time.October, "ноября": time.November, "декабря": time.December,
}

const numberPattern = `(?:N|№)\s*([\d-]+[\p{L}\p{N}_-]*)`

var (
	docTypeRe = regexp.MustCompile(`(?i)(ФЕДЕРАЛЬНЫЙ ЗАКОН|ПОСТАНОВЛЕНИЕ ПРАВИТЕЛЬСТВА РФ|ПОСТАНОВЛЕНИЕ|ПРИКАЗ|УКАЗ ПРЕЗИДЕНТА РФ|УКАЗ|РАСПОРЯЖЕНИЕ)`)
	// от 5 апреля 2013 г. N 44-ФЗ
	textDateRe = regexp.MustCompile(`(?is)от\s+(\d{1,2})\s+(января|февраля|марта|апреля|мая|июня|июля|августа|сентября|октября|ноября|декабря)\s+(\d{4})\s*г?\.*\s*` + numberPattern)
	// от 05.04.2013 N 44-ФЗ
	numericDateRe = regexp.MustCompile(`(?is)от\s+(\d{2})\.(\d{2})\.(\d{4})\s*` + numberPattern)
	titleRe       = regexp.MustCompile(`(?is)(?:ФЕДЕРАЛЬНЫЙ ЗАКОН|ПОСТАНОВЛЕНИЕ|ПРИКАЗ|УКАЗ|РАСПОРЯЖЕНИЕ).*?\n\n(.+?)(?:\n\n|$)`)
	authorityRe   = regexp.MustCompile(`(?i)(Государственная Дума|Правительство Российской Федерации|Правительство РФ|Президент Российской Федерации|Президент РФ)`)
	spacesRe      = regexp.MustCompile(`\s+`)
)

// Extractor derives models.Metadata from raw act text. It is safe for concurrent use.
type Extractor struct {
	logger      *zap.Logger
	clock       func() time.Time
	policy      models.StatusPolicy
	prefixLimit int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// WithClock sets the time source used for the date of acts whose date is not found.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.clock = now }
}

// WithStatusPolicy sets how ExtractFromMap treats unknown status values.
func WithStatusPolicy(p models.StatusPolicy) Option {
	return func(e *Extractor) { e.policy = p }
}

// WithPrefixLimit sets how many leading characters Extract examines. Values <= 0 keep the default.
func WithPrefixLimit(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.prefixLimit = n
		}
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		clock:       time.Now,
		policy:      models.StatusPolicyCoerce,
		prefixLimit: DefaultPrefixLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// Extract never fails: every field that cannot be recognized gets its default.
// fallbackTitle is used when no title block is found; empty means models.DefaultTitle.
func (e *Extractor) Extract(text, fallbackTitle string) models.Metadata {
	text = prefix(text, e.prefixLimit)

	in := models.MetadataInput{
		DocType:   e.docType(text),
		Title:     e.title(text),
		Authority: e.authority(text),
	}
	if in.Title == "" {
		in.Title = fallbackTitle
	}
	number, date, ok := e.numberAndDate(text)
	if ok {
		in.Number, in.Date = number, date
	} else {
		in.Date, in.DateUnknown = e.clock(), true
	}

	// Coerce never fails and status is empty here.
	m, _ := models.NewMetadata(in, models.StatusPolicyCoerce)
	e.logger.Debug("metadata extracted",
		zap.String("doc_type", m.DocType),
		zap.String("number", m.Number),
		zap.Bool("date_unknown", m.DateUnknown))
	return m
}

func (e *Extractor) docType(text string) string {
	if m := docTypeRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// numberAndDate looks at the first textual date match, then the first numeric one.
// A match naming an impossible calendar date counts as no match.
func (e *Extractor) numberAndDate(text string) (string, time.Time, bool) {
	if m := textDateRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		month := months[strings.ToLower(m[2])]
		if d, ok := makeDate(year, month, day); ok {
			return m[4], d, true
		}
	}
	if m := numericDateRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if d, ok := makeDate(year, time.Month(month), day); ok {
			return m[4], d, true
		}
	}
	return "", time.Time{}, false
}

func (e *Extractor) title(text string) string {
	m := titleRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	title := spacesRe.ReplaceAllString(strings.TrimSpace(m[1]), " ")
	return strings.Trim(title, `"«»“”`)
}

func (e *Extractor) authority(text string) string {
	if m := authorityRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// ExtractFromMap builds metadata from loosely typed key/value input such as a
// decoded JSON object. Recognized keys: doc_type, number, date, title, authority,
// status, version_date, categories, references, source. Dates may be time.Time,
// "YYYY-MM-DD" or "DD.MM.YYYY". Unknown status values follow the configured policy.
func (e *Extractor) ExtractFromMap(data map[string]any) (models.Metadata, error) {
	in := models.MetadataInput{
		DocType:    stringValue(data["doc_type"]),
		Number:     stringValue(data["number"]),
		Title:      stringValue(data["title"]),
		Authority:  stringValue(data["authority"]),
		Status:     stringValue(data["status"]),
		Source:     stringValue(data["source"]),
		Categories: stringList(data["categories"]),
		References: stringList(data["references"]),
	}

	date, err := dateValue(data["date"])
	if err != nil {
		return models.Metadata{}, fmt.Errorf("date: %w", err)
	}
	if date.IsZero() {
		in.Date, in.DateUnknown = e.clock(), true
	} else {
		in.Date = date
	}

	version, err := dateValue(data["version_date"])
	if err != nil {
		return models.Metadata{}, fmt.Errorf("version_date: %w", err)
	}
	if !version.IsZero() {
		in.VersionDate = &version
	}

	return models.NewMetadata(in, e.policy)
}

// ParseDate accepts "YYYY-MM-DD" and "DD.MM.YYYY".
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "02.01.2006"} {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func makeDate(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day || d.Month() != month {
		return time.Time{}, false
	}
	return d, true
}

func prefix(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	n := 0
	for i := range text {
		if n == limit {
			return text[:i]
		}
		n++
	}
	return text
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}

func stringList(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if l == "" {
			return nil
		}
		return []string{l}
	}
	return nil
}

func dateValue(v any) (time.Time, error) {
	switch d := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return d, nil
	case *time.Time:
		if d == nil {
			return time.Time{}, nil
		}
		return *d, nil
	case string:
		if strings.TrimSpace(d) == "" {
			return time.Time{}, nil
		}
		return ParseDate(d)
	}
	return time.Time{}, fmt.Errorf("unsupported date value %T", v)
}
