package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type row struct {
	combo   string
	vaccine string
}

func TestGroupBy(t *testing.T) {
	rows := []row{
		{"hexa", "dtap"},
		{"mmr", "measles"},
		{"hexa", "hib"},
		{"mmr", "rubella"},
		{"single", "bcg"},
	}

	keys, groups := GroupBy(rows, func(r row) string { return r.combo })

	assert.Equal(t, []string{"hexa", "mmr", "single"}, keys)
	assert.Equal(t, []row{{"hexa", "dtap"}, {"hexa", "hib"}}, groups["hexa"])
	assert.Len(t, groups["mmr"], 2)
	assert.Len(t, groups["single"], 1)
}

func TestGroupBy_Empty(t *testing.T) {
	keys, groups := GroupBy([]row(nil), func(r row) string { return r.combo })
	assert.Empty(t, keys)
	assert.Empty(t, groups)
}
