package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_itemString(t *testing.T) {
	it := &Item{Path: "example.com/m.Add", Kind: "func", File: "m.go", Line: 7}
	assert.Equal(t, "func    \033[36mexample.com/m.Add\033[0m (\033[33mm.go:7\033[0m)", it.String())

	it = &Item{Path: "example.com/m.init", Kind: "func"}
	assert.Equal(t, "func    \033[36mexample.com/m.init\033[0m", it.String())
}

func Test_sortPrint(t *testing.T) {
	items := []*Item{
		{Path: "m.b", Kind: "func"},
		{Path: "m.a", Kind: "var"},
		{Path: "m.a", Kind: "func"},
	}
	Sort(items)
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, items))
	assert.Equal(t, "func    \033[36mm.a\033[0m\n"+
		"var     \033[36mm.a\033[0m\n"+
		"func    \033[36mm.b\033[0m\n", buf.String())
}
