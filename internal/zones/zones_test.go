package zones

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanathkumar-crypto/issue-tracker/internal/models"
)

func TestRatio(t *testing.T) {
	assert.Equal(t, 1.0, Ratio("Apollo", "apollo"), "normalization ignores case")
	assert.Equal(t, 1.0, Ratio("", ""))
	assert.Equal(t, 0.0, Ratio("abc", "xyz"))

	// 2*M/T with M=5 common runes ("apple"), T=10+5
	assert.InDelta(t, 2.0*5/15, Ratio("apple pies", "apple"), 1e-9)

	// similar hospital names score above the default threshold
	assert.Greater(t, Ratio("Apollo Hospital Chennai", "Apollo Chennai"), DefaultThreshold)
	assert.Less(t, Ratio("Apollo Hospital", "Fortis Bangalore"), DefaultThreshold)
}

func TestBestMatch(t *testing.T) {
	mapping := []Mapping{
		{Name: "Apollo Hospital Chennai", Zone: "South"},
		{Name: "Fortis Bangalore", Zone: "South"},
		{Name: "Max Delhi", Zone: "North"},
	}

	m := BestMatch("Apollo Chennai", mapping, DefaultThreshold)
	require.NotNil(t, m)
	assert.Equal(t, "South", m.Zone)

	assert.Nil(t, BestMatch("Completely Different", mapping, DefaultThreshold))
}

func TestUpdateZones(t *testing.T) {
	hospitals := []models.Hospital{
		{Name: "Apollo Chennai", Zone: ""},
		{Name: "Unrelated Clinic Xyz", Zone: "Old"},
		{Name: ""},
	}
	mapping := []Mapping{{Name: "Apollo Hospital Chennai", Zone: "South"}}

	res := UpdateZones(hospitals, mapping, DefaultThreshold)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, []string{"Unrelated Clinic Xyz"}, res.Unmatched)
	assert.Equal(t, "South", hospitals[0].Zone)
	assert.Equal(t, "Old", hospitals[1].Zone, "unmatched hospitals keep their zone")
}

func TestLoadMapping(t *testing.T) {
	dir := t.TempDir()

	t.Run("reads radar_name and cp_zone columns", func(t *testing.T) {
		path := filepath.Join(dir, "map.csv")
		require.NoError(t, os.WriteFile(path, []byte(
			"extra,radar_name,cp_zone\nx,Apollo Chennai,South\ny, Fortis Bangalore ,South\nz,,ignored\n",
		), 0o644))

		got, err := LoadMapping(path)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, Mapping{Name: "Apollo Chennai", Zone: "South"}, got[0])
		assert.Equal(t, Mapping{Name: "Fortis Bangalore", Zone: "South"}, got[1])
	})

	t.Run("missing columns", func(t *testing.T) {
		path := filepath.Join(dir, "bad.csv")
		require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))
		_, err := LoadMapping(path)
		assert.ErrorContains(t, err, "radar_name")
	})
}
