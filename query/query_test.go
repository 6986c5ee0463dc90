package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milare/google-instance-id/instanceid"
)

func testInfo() *instanceid.DeviceInfo {
	return instanceid.NewDeviceInfo(map[string]any{
		"application":    "com.iid.example",
		"platform":       "ANDROID",
		"attestStatus":   "ROOTED",
		"connectionType": "WIFI",
		"rel": map[string]any{
			"topics": map[string]any{
				"news":    map[string]any{"addDate": "2015-07-30"},
				"weather": map[string]any{"addDate": "2015-08-01"},
			},
		},
	})
}

func TestCompile(t *testing.T) {
	t.Run("empty expression", func(t *testing.T) {
		_, err := Compile("   ")
		require.Error(t, err)
		var compErr *CompilationError
		require.ErrorAs(t, err, &compErr)
		assert.Equal(t, "empty expression", compErr.Reason)
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := Compile("platform ==")
		require.Error(t, err)
		var compErr *CompilationError
		require.ErrorAs(t, err, &compErr)
		assert.NotNil(t, compErr.Unwrap())
	})

	t.Run("cached", func(t *testing.T) {
		c := NewCompiler(WithCache(2))
		q1, err := c.Compile("platform")
		require.NoError(t, err)
		q2, err := c.Compile(" platform ")
		require.NoError(t, err)
		assert.Same(t, q1, q2)

		_, err = c.Compile("application")
		require.NoError(t, err)
		_, err = c.Compile("attestStatus")
		require.NoError(t, err)
		assert.Equal(t, 2, c.cache.len())
	})

	t.Run("without cache", func(t *testing.T) {
		c := NewCompiler()
		q1, err := c.Compile("platform")
		require.NoError(t, err)
		q2, err := c.Compile("platform")
		require.NoError(t, err)
		assert.NotSame(t, q1, q2)
	})
}

func TestRun(t *testing.T) {
	info := testInfo()

	tests := []struct {
		name       string
		expression string
		expected   any
	}{
		{"top level field", "application", "com.iid.example"},
		{"nested field", "rel.topics.news.addDate", "2015-07-30"},
		{"comparison", `platform == "ANDROID" && attestStatus == "ROOTED"`, true},
		{"topic names", "topics()", []string{"news", "weather"}},
		{"topic count", "topicCount()", 2},
		{"subscribed", `subscribed("news")`, true},
		{"not subscribed", `subscribed("sports")`, false},
		{"string helper", `hasText(application, "IID")`, true},
		{"string helper miss", `hasText(platform, "ios")`, false},
		{"contains operator", `lower(application) contains "iid"`, true},
		{"missing field", "connectDate", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Compile(tt.expression)
			require.NoError(t, err)

			result, err := q.Run(info)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestMatch(t *testing.T) {
	info := testInfo()

	q, err := Compile(`subscribed("weather") && connectionType == "WIFI"`)
	require.NoError(t, err)
	ok, err := q.Match(info)
	require.NoError(t, err)
	assert.True(t, ok)

	q, err = Compile("application")
	require.NoError(t, err)
	ok, err = q.Match(info)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = q.Match(nil)
	assert.ErrorIs(t, err, ErrNoInfo)
}
