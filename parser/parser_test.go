package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			"plain body",
			"<html><body><p>Hello</p><p>world</p></body></html>",
			"Helloworld",
		},
		{
			"whitespace collapsed",
			"<html><body>\n  <h1>Title</h1>\n\n  <p>Some   text\there</p>\n</body></html>",
			"Title Some text here",
		},
		{
			"script and style removed",
			`<html><head><style>body { color: red; }</style><script>var x = 1;</script></head>
			<body><p>Visible</p><script>document.write("hidden")</script><noscript>Enable JS</noscript></body></html>`,
			"Visible",
		},
		{
			"title is kept",
			"<html><head><title>Main Page</title></head><body> <p>News</p></body></html>",
			"Main Page News",
		},
		{
			"empty document",
			"",
			"",
		},
	}

	p := NewParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ExtractText(tt.html)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExtractTextDeterministic(t *testing.T) {
	html := "<html><body><div>a <b>b</b>\n c</div><script>Math.random()</script></body></html>"
	p := NewParser()

	first, err := p.ExtractText(html)
	require.NoError(t, err)
	second, err := p.ExtractText(html)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "a b c", first)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a b c", Normalize("  a\n\tb   c \r\n"))
	assert.Equal(t, "", Normalize(" \n\t "))
}
