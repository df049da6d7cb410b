package mailtext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToText(t *testing.T) {
	html := `<html><head><title>x</title><style>p{color:red}</style></head>
<body><p>Your   flight</p><script>var a = 1;</script><div>is confirmed</div></body></html>`

	assert.Equal(t, "Your flight is confirmed", HTMLToText(html))
	assert.Equal(t, "", HTMLToText("   "))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "hello world", Preview("  hello\n\tworld ", "<p>ignored</p>", 0))
	assert.Equal(t, "from html", Preview("", "<p>from html</p>", 0))

	long := strings.Repeat("a", 300)
	preview := Preview(long, "", 0)
	assert.Equal(t, DefaultPreviewLength+3, len(preview))
	assert.True(t, strings.HasSuffix(preview, "..."))

	assert.Equal(t, "ab...", Preview("abcdef", "", 2))
}
