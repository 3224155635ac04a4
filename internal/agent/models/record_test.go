package models

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/webtrail/internal/common"
)

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "https://a.test/page", want: "https://a.test/page"},
		{name: "uppercase host", input: "https://A.Test/page", want: "https://a.test/page"},
		{name: "fragment stripped", input: "https://a.test/page#section-2", want: "https://a.test/page"},
		{name: "utm params stripped", input: "https://a.test/page?utm_source=x&id=7", want: "https://a.test/page?id=7"},
		{name: "fbclid stripped", input: "https://a.test/page?fbclid=abc", want: "https://a.test/page"},
		{name: "bare root slash removed", input: "https://a.test/", want: "https://a.test"},
		{name: "http kept", input: "http://a.test/x", want: "http://a.test/x"},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace", input: "   ", wantErr: true},
		{name: "relative", input: "/just/a/path", wantErr: true},
		{name: "unsupported scheme", input: "chrome://settings", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CanonicalURL(tc.input)
			if tc.wantErr {
				require.ErrorIs(t, err, common.ErrorMissingURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCanonicalURL_StableMergeKey(t *testing.T) {
	a, err := CanonicalURL("https://a.test/article?utm_campaign=x#top")
	require.NoError(t, err)
	b, err := CanonicalURL("https://A.TEST/article")
	require.NoError(t, err)

	assert.Equal(t, a, b, "variants of the same page must share one merge key")
}

func TestMakePreview(t *testing.T) {
	assert.Equal(t, "short", MakePreview("  short  "))

	long := strings.Repeat("x", 500)
	preview := MakePreview(long)
	assert.Len(t, preview, 120)
}

func TestMakePreview_DoesNotSplitRunes(t *testing.T) {
	// One ASCII byte followed by 3-byte runes puts the cut mid-rune.
	long := "x" + strings.Repeat("世", 100)
	preview := MakePreview(long)

	assert.True(t, utf8.ValidString(preview), "preview must stay valid UTF-8")
	assert.LessOrEqual(t, len(preview), 120)
	assert.Equal(t, "x"+strings.Repeat("世", 39), preview)
}

func TestItem_Pending(t *testing.T) {
	item := &Item{Synced: false, PendingData: json.RawMessage(`{"url":"https://a.test"}`)}
	assert.True(t, item.Pending())

	item.Synced = true
	assert.False(t, item.Pending(), "synced items are not pending even with payload")

	visit := &Item{Synced: false}
	assert.False(t, visit.Pending(), "items without payload are never pending")
}
