package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentStringTrimsAndTreatsEmptyAsAbsent(t *testing.T) {
	doc := Document{"a": "  value ", "b": "   ", "c": 12}
	assert.Equal(t, "value", doc.String("a"))
	assert.Equal(t, "", doc.String("b"))
	assert.Equal(t, "", doc.String("c"))
	assert.Equal(t, "value", doc.FirstString("b", "missing", "a"))
}

func TestDocumentTimeCoercion(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	ts := time.Date(2024, 1, 5, 15, 30, 0, 0, time.UTC)
	doc := Document{
		"native":  ts,
		"day":     "2024-01-05",
		"rfc":     "2024-01-05T15:30:00Z",
		"garbage": "next tuesday",
	}

	require.NotNil(t, doc.Time("native", loc))
	assert.True(t, doc.Time("native", loc).Equal(ts))

	day := doc.Time("day", loc)
	require.NotNil(t, day)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, loc), *day)

	assert.True(t, doc.Time("rfc", loc).Equal(ts))
	assert.Nil(t, doc.Time("garbage", loc))
	assert.Nil(t, doc.Time("missing", loc))
	assert.True(t, doc.FirstTime(loc, "garbage", "missing", "native").Equal(ts))
}

func TestDocumentListsAndMaps(t *testing.T) {
	doc := Document{
		"items":       []any{"TV", 3, "Mount"},
		"typed":       []string{"a", "b"},
		"assignments": []any{map[string]any{"type": "team"}, "skip"},
		"nested":      map[string]any{"inner": map[string]any{"flag": true}},
	}
	assert.Equal(t, []string{"TV", "Mount"}, doc.Strings("items"))
	assert.Equal(t, []string{"a", "b"}, doc.Strings("typed"))
	assert.Nil(t, doc.Strings("missing"))
	require.Len(t, doc.Maps("assignments"), 1)
	assert.Equal(t, "team", doc.Maps("assignments")[0].String("type"))
	require.NotNil(t, doc.Bool("nested.inner.flag"))
	assert.True(t, *doc.Bool("nested.inner.flag"))
	assert.Nil(t, doc.Bool("nested.inner.flag.deeper"))
}
