package ai

import (
	"regexp"
	"strconv"
	"strings"
)

// gradePattern matches the bolded grade marker the prompt demands, e.g.
// **NOTA_RETROALIMENTACION: [7.5]**. Brackets are optional and the
// decimal separator may be "." or ",".
var gradePattern = regexp.MustCompile(`(?i)\*{2}NOTA_RETROALIMENTACION:\s*\[?\s*(\d+(?:[.,]\d+)?)\s*\]?\*{2}`)

// ExtractGrade parses the numeric grade out of a feedback text. The
// second return value reports whether the marker was present, so callers
// can tell "ungraded" apart from a legitimate zero.
func ExtractGrade(feedback string) (float64, bool) {
	match := gradePattern.FindStringSubmatch(feedback)
	if match == nil {
		return 0, false
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", "."), 64)
	if err != nil {
		return 0, false
	}

	return value, true
}

// GradeOrZero returns the extracted grade, or 0 when no marker is found.
func GradeOrZero(feedback string) float64 {
	grade, _ := ExtractGrade(feedback)
	return grade
}
