package legacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		roll      string
		holder    string
		ambiguous bool
	}{
		{
			name:   "labeled fields",
			text:   "UNIVERSITY OF TESTING\nRoll No: R100\nName: Jane Doe\nCourse: Physics",
			roll:   "R100",
			holder: "Jane Doe",
		},
		{
			name:   "case insensitive labels without colon",
			text:   "roll no   CS-2019-07\nNAME   Alan Turing  ",
			roll:   "CS-2019-07",
			holder: "Alan Turing",
		},
		{
			name:   "name stops at line end",
			text:   "Name: Jane Doe\nRoll No: R1",
			roll:   "R1",
			holder: "Jane Doe",
		},
		{
			name:   "no identifier",
			text:   "Certificate of Merit\nName: Jane Doe",
			holder: "Jane Doe",
		},
		{
			name:      "first match wins on conflict",
			text:      "Roll No: R1\nName: Jane Doe\nRoll No: R2",
			roll:      "R1",
			holder:    "Jane Doe",
			ambiguous: true,
		},
		{
			name:   "repeated identical values are not ambiguous",
			text:   "Roll No: R1\nName: Jane Doe\nRoll No: R1\nname: JANE  DOE",
			roll:   "R1",
			holder: "Jane Doe",
		},
		{
			name: "empty text",
			text: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.text)
			assert.Equal(t, tt.roll, got.RollNumber)
			assert.Equal(t, tt.holder, got.Name)
			assert.Equal(t, tt.ambiguous, got.Ambiguous)
			assert.Equal(t, tt.text, got.FullText)
		})
	}
}

func TestNamesMatch(t *testing.T) {
	assert.True(t, namesMatch("Jane Doe", "jane doe"))
	assert.True(t, namesMatch("Jane  Doe ", "JANE DOE"))
	assert.False(t, namesMatch("Jane Doe", "John Smith"))
}
