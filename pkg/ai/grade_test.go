package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractGradeDecimal(t *testing.T) {
	grade, ok := ExtractGrade("Buen trabajo.\n\n**NOTA_RETROALIMENTACION: [7.5]**\n")
	require.True(t, ok)
	require.Equal(t, 7.5, grade)
}

func TestExtractGradeCommaSeparator(t *testing.T) {
	grade, ok := ExtractGrade("**NOTA_RETROALIMENTACION: [8,0]**")
	require.True(t, ok)
	require.Equal(t, 8.0, grade)
}

func TestExtractGradeWithoutBrackets(t *testing.T) {
	grade, ok := ExtractGrade("**NOTA_RETROALIMENTACION: 9**")
	require.True(t, ok)
	require.Equal(t, 9.0, grade)
}

func TestExtractGradeCaseInsensitive(t *testing.T) {
	grade, ok := ExtractGrade("**nota_retroalimentacion: [6]**")
	require.True(t, ok)
	require.Equal(t, 6.0, grade)
}

func TestExtractGradeAbsentMarker(t *testing.T) {
	grade, ok := ExtractGrade("Sin nota en este texto.")
	require.False(t, ok)
	require.Zero(t, grade)

	require.Zero(t, GradeOrZero("Sin nota en este texto."))
}

func TestExtractGradeIgnoresUnboldedMarker(t *testing.T) {
	_, ok := ExtractGrade("NOTA_RETROALIMENTACION: [7.5]")
	require.False(t, ok)
}
