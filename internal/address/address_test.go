package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Parsed
	}{
		{
			"three segments",
			"123 Main St, Anytown, CA",
			Parsed{Street: "123 Main St", City: "Anytown", State: "CA"},
		},
		{
			"three segments with zip in state segment",
			"123 Main St, Anytown, CA 94107",
			Parsed{Street: "123 Main St", City: "Anytown", State: "CA", Zip: "94107"},
		},
		{
			"zip as fourth segment",
			"123 Main St, Anytown, CA, 94107",
			Parsed{Street: "123 Main St", City: "Anytown", State: "CA", Zip: "94107"},
		},
		{
			"two segments, city and state share one",
			"123 Main St, Anytown CA",
			Parsed{Street: "123 Main St", City: "Anytown", State: "CA"},
		},
		{
			"two segments with zip",
			"123 Main St, Anytown CA 94107",
			Parsed{Street: "123 Main St", City: "Anytown", State: "CA", Zip: "94107"},
		},
		{
			"multi-word city in two segments",
			"500 Market St, San Francisco CA 94105",
			Parsed{Street: "500 Market St", City: "San Francisco", State: "CA", Zip: "94105"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFormatError(t *testing.T) {
	for _, in := range []string{"123 Main St", "", "just a city"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrFormat, "input %q", in)
	}
}

func TestKeyEquivalence(t *testing.T) {
	tests := []struct {
		name string
		a, b [3]string
	}{
		{
			"directional and street type",
			[3]string{"123 North Main Street", "Anytown", "CA"},
			[3]string{"123 Main St", "Anytown", "CA"},
		},
		{
			"case and punctuation",
			[3]string{"456 Oak Ave.", "SPRINGFIELD", "IL"},
			[3]string{"456 oak avenue", "Springfield", "il"},
		},
		{
			"unit fragment stripped",
			[3]string{"789 Elm Dr Apt 4B", "Austin", "TX"},
			[3]string{"789 Elm Drive", "Austin", "TX"},
		},
		{
			"hash unit stripped",
			[3]string{"789 Elm Dr #12", "Austin", "TX"},
			[3]string{"789 Elm Dr", "Austin", "TX"},
		},
		{
			"repeated whitespace",
			[3]string{"12  Birch   Ln", "Boise", "ID"},
			[3]string{"12 Birch Lane", "Boise", "ID"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t,
				Key(tt.a[0], tt.a[1], tt.a[2]),
				Key(tt.b[0], tt.b[1], tt.b[2]))
		})
	}
}

func TestKeyDistinct(t *testing.T) {
	assert.NotEqual(t,
		Key("123 Main St", "Anytown", "CA"),
		Key("125 Main St", "Anytown", "CA"))
	assert.NotEqual(t,
		Key("123 Main St", "Anytown", "CA"),
		Key("123 Main St", "Othertown", "CA"))
}

func TestKeyShape(t *testing.T) {
	assert.Equal(t, "123 main st|anytown|ca", Key("123 N. Main Street", "Anytown", "CA"))
}
