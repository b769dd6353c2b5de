package document

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/frahmantamala/policy-register/internal"
)

var typeCodes = map[string]string{
	TypePolicy:    "P",
	TypeProcedure: "PR",
	TypeGuideline: "G",
	TypeMemo:      "M",
	TypeNotice:    "N",
	TypeDocument:  "D",
}

// TypeCode is the numbering code used when no policy type is referenced.
func TypeCode(documentType string) string {
	if c, ok := typeCodes[documentType]; ok {
		return c
	}
	return typeCodes[TypeDocument]
}

// FormatNumber renders {category}-{type}-{seq:03d}-{year}-v1.
func FormatNumber(categoryCode, typeCode string, seq, year int) string {
	return fmt.Sprintf("%s-%s-%03d-%d-v1", categoryCode, typeCode, seq, year)
}

// ParseDateIssued accepts ISO-8601 dates and date-times. A trailing Z means UTC and
// values without an offset are taken as UTC. The result keeps the offset as written,
// so Year reports the numbering year; callers normalise with UTC before storing.
func ParseDateIssued(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, internal.NewValidationFieldError("date_issued", "Invalid date format", internal.ErrCodeInvalidDate)
}

// CheckExtension validates the upload name against allowed and returns its lower-cased extension.
func CheckExtension(fileName string, allowed []string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" || !slices.Contains(allowed, ext) {
		return "", internal.NewValidationFieldError("file",
			fmt.Sprintf("Only %s files are allowed", strings.ToUpper(strings.Join(trimDots(allowed), ", "))),
			internal.ErrCodeInvalidFileType)
	}
	return ext, nil
}

func trimDots(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		out = append(out, strings.TrimPrefix(e, "."))
	}
	return out
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFileName reduces a client-supplied name to a safe base name.
func SanitizeFileName(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "file"
	}
	return base
}

// PolicyBlobKey stamps the policy number and version into the stored name.
func PolicyBlobKey(number string, version int, ext string) string {
	return fmt.Sprintf("%s_v%d%s", strings.ReplaceAll(number, "-", "_"), version, ext)
}

// DocumentBlobKey keeps the original name, prefixed with the id and version.
func DocumentBlobKey(documentID string, version int, fileName string) string {
	return fmt.Sprintf("%s_v%d_%s", documentID, version, SanitizeFileName(fileName))
}

func FileURL(key string) string {
	return "/uploads/" + key
}

// ParseTags splits a comma-separated form value, dropping blanks and duplicates.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t != "" && !slices.Contains(tags, t) {
			tags = append(tags, t)
		}
	}
	return tags
}
