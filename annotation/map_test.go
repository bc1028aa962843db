package annotation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultAuthor(t *testing.T) {
	a := New(NewRange(0, 0, 0, 1), "", "")
	assert.Equal(t, DefaultAuthor, a.Author)
	assert.Equal(t, "", a.Text)

	b := New(NewRange(0, 0, 0, 1), "note", "ada")
	assert.Equal(t, "ada", b.Author)
}

func TestEncodeDecode(t *testing.T) {
	r1 := NewRange(1, 0, 1, 10)
	r2 := NewRange(3, 2, 5, 0)
	m := Map{
		r1.Key(): {New(r1, "first", "ada"), New(r1, "second", "")},
		r2.Key(): {New(r2, "", "bob")},
	}

	data, err := Encode(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"1:0-1:10\"")

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestDecode_LegacyShapes(t *testing.T) {
	data := []byte(`{
		"2:0-2:5": ["bare string", {"text": "obj"}, {"author": "ada"}, 42, null, {"text": 7, "author": "eve"}]
	}`)
	m, err := Decode(data)
	require.NoError(t, err)

	r := NewRange(2, 0, 2, 5)
	want := []Annotation{
		New(r, "bare string", DefaultAuthor),
		New(r, "obj", DefaultAuthor),
		New(r, "", "ada"),
		New(r, "", DefaultAuthor),
		New(r, "", DefaultAuthor),
		New(r, "", "eve"),
	}
	assert.Equal(t, want, m[r.Key()])
}

func TestDecode_NonArrayValue(t *testing.T) {
	m, err := Decode([]byte(`{"0:0-0:1": "lonely", "1:0-1:1": {"text": "obj"}}`))
	require.NoError(t, err)
	require.Len(t, m[Key("0:0-0:1")], 1)
	assert.Equal(t, "lonely", m[Key("0:0-0:1")][0].Text)
	assert.Equal(t, "obj", m[Key("1:0-1:1")][0].Text)
}

func TestDecode_CorruptKeyIsolated(t *testing.T) {
	m, err := Decode([]byte(`{"garbage": [{"text": "lost"}], "4:1-4:3": [{"text": "kept", "author": "ada"}]}`))
	require.NoError(t, err)

	list, ok := m[Key("garbage")]
	require.True(t, ok, "corrupt key should be retained")
	assert.Empty(t, list)

	r := NewRange(4, 1, 4, 3)
	assert.Equal(t, []Annotation{New(r, "kept", "ada")}, m[r.Key()])
}

func TestDecode_Malformed(t *testing.T) {
	for _, in := range []string{``, `not json`, `[]`, `null`, `"x"`, `{"a": `} {
		_, err := Decode([]byte(in))
		assert.Truef(t, errors.Is(err, ErrMalformedMap), "Decode(%q) err = %v", in, err)
	}
}

func TestMap_GetAndClone(t *testing.T) {
	r := NewRange(0, 0, 0, 3)
	m := Map{r.Key(): {New(r, "a", "")}}

	assert.NotNil(t, m.Get(Key("9:9-9:9")))
	assert.Empty(t, m.Get(Key("9:9-9:9")))

	cp := m.Clone()
	cp[r.Key()][0].Text = "changed"
	assert.Equal(t, "a", m[r.Key()][0].Text)
	assert.Equal(t, 1, m.Count())
}
