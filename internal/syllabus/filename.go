package syllabus

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/hyperjump/silabo/internal/models"
)

// filenamePattern matches UG-<period:5><subterm:1>_<id:8>-<nrc:4>.pdf, e.g. UG-202520_1AEL0244-8281.pdf.
var filenamePattern = regexp.MustCompile(`^UG-(?P<period>\d{5})(?P<subterm>\d)_(?P<id>[A-Z0-9_\-]{8})-(?P<nrc>\d{4})\.pdf$`)

// MatchesFilename reports whether name (a base name, not a path) follows the syllabus pattern.
func MatchesFilename(name string) bool {
	return filenamePattern.MatchString(name)
}

// ParseFilename decodes course metadata from a syllabus file name or path.
// Names that do not match return ErrUnrecognizedFilename; nothing is guessed.
func ParseFilename(path string) (models.CourseMetadata, error) {
	name := filepath.Base(path)
	m := filenamePattern.FindStringSubmatch(name)
	if m == nil {
		return models.CourseMetadata{}, fmt.Errorf("%w: %q", ErrUnrecognizedFilename, name)
	}
	period := m[filenamePattern.SubexpIndex("period")]
	return models.CourseMetadata{
		CourseID: m[filenamePattern.SubexpIndex("id")],
		NRC:      m[filenamePattern.SubexpIndex("nrc")],
		Period:   period[:4] + "-" + period[4:],
	}, nil
}
