package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// DefaultDocType is used when no act type phrase is recognized.
	DefaultDocType = "ДОКУМЕНТ"
	// NumberNotAvailable marks a document whose number could not be extracted.
	NumberNotAvailable = "N/A"
	// DefaultTitle is the last-resort title when neither the text nor the caller provides one.
	DefaultTitle = "Без названия"
	// DefaultSource names the legal reference system the texts come from.
	DefaultSource = "КонсультантПлюс"
)

// Status is the legal force of an act. Only the three constants below are valid.
type Status string

const (
	StatusActive   Status = "действующий"
	StatusRepealed Status = "утративший силу"
	StatusDraft    Status = "проект"
)

// DefaultStatus is assigned at extraction time and on coercion.
const DefaultStatus = StatusActive

// ErrInvalidStatus is returned by ParseStatus under StatusPolicyReject.
var ErrInvalidStatus = errors.New("invalid document status")

// StatusPolicy decides what happens to a status value outside the closed set.
type StatusPolicy int

const (
	// StatusPolicyCoerce replaces unknown values with DefaultStatus.
	StatusPolicyCoerce StatusPolicy = iota
	// StatusPolicyReject fails with ErrInvalidStatus.
	StatusPolicyReject
)

// ParseStatusPolicy maps a config value ("coerce", "reject") to a StatusPolicy.
// Empty means coerce.
func ParseStatusPolicy(s string) (StatusPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "coerce":
		return StatusPolicyCoerce, nil
	case "reject":
		return StatusPolicyReject, nil
	default:
		return StatusPolicyCoerce, fmt.Errorf("unknown status policy %q", s)
	}
}

func (p StatusPolicy) String() string {
	if p == StatusPolicyReject {
		return "reject"
	}
	return "coerce"
}

// ParseStatus normalizes s (trimmed, lower-cased) against the closed status set.
// An empty string always yields DefaultStatus.
func ParseStatus(s string, policy StatusPolicy) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return DefaultStatus, nil
	}
	switch st := Status(v); st {
	case StatusActive, StatusRepealed, StatusDraft:
		return st, nil
	}
	if policy == StatusPolicyReject {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return DefaultStatus, nil
}

// Metadata is the bibliographic description of a legal act.
// It is a value: derive a changed copy with WithStatus rather than mutating a shared one.
type Metadata struct {
	DocType     string     `json:"doc_type"`
	Number      string     `json:"number"`
	Date        time.Time  `json:"date"`
	DateUnknown bool       `json:"date_unknown,omitempty"`
	Title       string     `json:"title"`
	Authority   string     `json:"authority,omitempty"`
	Status      Status     `json:"status"`
	VersionDate *time.Time `json:"version_date,omitempty"`
	Categories  []string   `json:"categories"`
	References  []string   `json:"references"`
	Source      string     `json:"source"`
}

// MetadataInput carries raw, unvalidated field values for NewMetadata.
type MetadataInput struct {
	DocType     string
	Number      string
	Date        time.Time
	DateUnknown bool
	Title       string
	Authority   string
	Status      string
	VersionDate *time.Time
	Categories  []string
	References  []string
	Source      string
}

var upperRU = cases.Upper(language.Russian)

// NormalizeDocType trims and upper-cases an act type, falling back to DefaultDocType.
func NormalizeDocType(s string) string {
	s = strings.TrimSpace(upperRU.String(s))
	if s == "" {
		return DefaultDocType
	}
	return s
}

// NewMetadata validates in and applies defaults. The only possible error is
// ErrInvalidStatus under StatusPolicyReject.
func NewMetadata(in MetadataInput, policy StatusPolicy) (Metadata, error) {
	status, err := ParseStatus(in.Status, policy)
	if err != nil {
		return Metadata{}, err
	}
	m := Metadata{
		DocType:     NormalizeDocType(in.DocType),
		Number:      strings.TrimSpace(in.Number),
		Date:        in.Date,
		DateUnknown: in.DateUnknown,
		Title:       strings.TrimSpace(in.Title),
		Authority:   strings.TrimSpace(in.Authority),
		Status:      status,
		VersionDate: in.VersionDate,
		Categories:  append([]string{}, in.Categories...),
		References:  append([]string{}, in.References...),
		Source:      strings.TrimSpace(in.Source),
	}
	if m.Number == "" {
		m.Number = NumberNotAvailable
	}
	if m.Title == "" {
		m.Title = DefaultTitle
	}
	if m.Source == "" {
		m.Source = DefaultSource
	}
	if m.Date.IsZero() {
		m.DateUnknown = true
	}
	return m, nil
}

// WithStatus returns a copy of m with its status recomputed from s under policy.
func (m Metadata) WithStatus(s string, policy StatusPolicy) (Metadata, error) {
	status, err := ParseStatus(s, policy)
	if err != nil {
		return m, err
	}
	out := m
	out.Status = status
	out.Categories = append([]string{}, m.Categories...)
	out.References = append([]string{}, m.References...)
	return out, nil
}

// DateString formats Date as YYYY-MM-DD.
func (m Metadata) DateString() string {
	return m.Date.Format("2006-01-02")
}
