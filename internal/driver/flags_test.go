package driver

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_parseFlags(t *testing.T) {
	f, err := ParseFlags([]string{
		"-o", "$WORK/b001/_pkg_.a", "-trimpath", "\"$WORK/b001=>\"", "-e", "-p", "main",
		"-lang=go1.22", "-complete", "-c=4", "-importcfg", "$WORK/b001/importcfg", "-pack",
		"./cmd/tool", "--", "-notaflag",
	})
	require.NoError(t, err)
	assert.Equal(t, "main", f.Package)
	assert.Equal(t, "go1.22", f.Lang)
	if diff := cmp.Diff([]string{"./cmd/tool", "-notaflag"}, f.Patterns); diff != "" {
		t.Errorf("patterns (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{
		"-o=$WORK/b001/_pkg_.a", "-trimpath=\"$WORK/b001=>\"", "-e", "-complete", "-c=4",
		"-importcfg=$WORK/b001/importcfg", "-pack",
	}, f.Ignored); diff != "" {
		t.Errorf("ignored (-want +got):\n%s", diff)
	}
}

func Test_parseFlagsMissingValue(t *testing.T) {
	_, err := ParseFlags([]string{".", "-p"})
	assert.Error(t, err)
}

func Test_parseFlagsSingleDash(t *testing.T) {
	f, err := ParseFlags([]string{"-", "--p=x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"-"}, f.Patterns)
	assert.Equal(t, "x", f.Package)
}

func Test_parseFlagsCoverage(t *testing.T) {
	f, err := ParseFlags([]string{"-coveragecfg", "$WORK/b001/cover.cfg", "-p", "example.com/m", "."})
	require.NoError(t, err)
	assert.Equal(t, []string{"."}, f.Patterns)
	assert.Equal(t, []string{"-coveragecfg=$WORK/b001/cover.cfg"}, f.Ignored)
}
