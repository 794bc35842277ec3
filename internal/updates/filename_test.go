package updates

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name    string
		project string
		sha     string
		suffix  string
	}{
		{"ProjA_sha0123_uniqueExtra4578.lift.update", "ProjA", "sha0123", "uniqueExtra4578"},
		{"ProjC_sha45863_time587.lift.update", "ProjC", "sha45863", "time587"},
		{"ProjC_sha45_four_partsToName.lift.update", "ProjC", "sha45", "four_partsToName"},
		{"p_s_x", "p", "s", "x"},
		{"..proj_sha_x.lift.update", "..proj", "sha", "x"},
		{"p_s_...lift.update", "p", "s", ".."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ParseFilename(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.project, info.Project)
			assert.Equal(t, tt.sha, info.Sha)
			assert.Equal(t, tt.suffix, info.Suffix)
		})
	}
}

func TestParseFilenameMalformed(t *testing.T) {
	names := []string{
		"BlahBlahsha45863time.lift.update",
		"BlahBlah_sha45863time587.lift.update",
		"_sha_x.lift.update",
		"proj__x.lift.update",
		"proj_sha_.lift.update",
		".lift.update",
		"._sha_x.lift.update",
		".._sha_x.lift.update",
		"proj_.._x.lift.update",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFilename(name)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedFilename))

			var mf *MalformedFilenameError
			require.True(t, errors.As(err, &mf))
			assert.Equal(t, name, mf.Name)
		})
	}
}

func TestParseFilenameNormalizesNFC(t *testing.T) {
	composed, err := ParseFilename("caf\u00e9_sha1_a.lift.update")
	require.NoError(t, err)
	decomposed, err := ParseFilename("cafe\u0301_sha1_b.lift.update")
	require.NoError(t, err)

	assert.Equal(t, composed.Project, decomposed.Project)
}

func TestFormatFilenameRoundTrip(t *testing.T) {
	name, err := FormatFilename("ProjC", "sha45", "four_partsToName")
	require.NoError(t, err)
	assert.Equal(t, "ProjC_sha45_four_partsToName.lift.update", name)

	info, err := ParseFilename(name)
	require.NoError(t, err)
	assert.Equal(t, "ProjC", info.Project)
	assert.Equal(t, "sha45", info.Sha)
	assert.Equal(t, "four_partsToName", info.Suffix)
}

func TestFormatFilenameRejectsInvalidParts(t *testing.T) {
	_, err := FormatFilename("Proj_C", "sha", "x")
	assert.Error(t, err)
	_, err = FormatFilename("ProjC", "s_ha", "x")
	assert.Error(t, err)
	_, err = FormatFilename("..", "sha", "x")
	assert.Error(t, err)
	_, err = FormatFilename("ProjC", ".", "x")
	assert.Error(t, err)
	_, err = FormatFilename("ProjC", "sha", "")
	assert.Error(t, err)
}
