package blog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Go":             "go",
		"Web Dev":        "web-dev",
		"  C++ / Rust  ": "c-rust",
		"déjà vu":        "déjà-vu",
		"--":             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestTagListUnmarshal(t *testing.T) {
	var in PostInput
	require.NoError(t, json.Unmarshal([]byte(`{"tags": ["go", "web"]}`), &in))
	assert.Equal(t, TagList{"go", "web"}, *in.Tags)

	in = PostInput{}
	require.NoError(t, json.Unmarshal([]byte(`{"tags": "go, web ,"}`), &in))
	assert.Equal(t, TagList{"go", " web ", ""}, *in.Tags)

	in = PostInput{}
	assert.Error(t, json.Unmarshal([]byte(`{"tags": 3}`), &in))
}

func TestNormalizeTags(t *testing.T) {
	got, problems := NormalizeTags([]string{" Go ", "go", "GO!", "", "Web Dev", "web-dev"})
	assert.Empty(t, problems)
	assert.Equal(t, []string{"Go", "Web Dev"}, got)

	got, problems = NormalizeTags(nil)
	assert.Empty(t, problems)
	assert.Equal(t, []string{}, got)
}
