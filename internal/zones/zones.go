// Package zones backfills hospital zones by fuzzy-matching hospital names
// against an externally produced name→zone mapping CSV.
package zones

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/sanathkumar-crypto/issue-tracker/internal/models"
)

// DefaultThreshold is the minimum similarity for a mapping row to win.
const DefaultThreshold = 0.7

type Mapping struct {
	Name string // radar_name column
	Zone string // cp_zone column
}

// LoadMapping reads a mapping CSV with radar_name and cp_zone columns.
func LoadMapping(path string) ([]Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty mapping file", path)
	}

	nameIdx, zoneIdx := -1, -1
	for i, col := range records[0] {
		switch strings.TrimSpace(col) {
		case "radar_name":
			nameIdx = i
		case "cp_zone":
			zoneIdx = i
		}
	}
	if nameIdx < 0 || zoneIdx < 0 {
		return nil, fmt.Errorf("%s: missing radar_name/cp_zone columns", path)
	}

	var out []Mapping
	for _, rec := range records[1:] {
		if nameIdx >= len(rec) || zoneIdx >= len(rec) {
			continue
		}
		if name := strings.TrimSpace(rec[nameIdx]); name != "" {
			out = append(out, Mapping{Name: name, Zone: strings.TrimSpace(rec[zoneIdx])})
		}
	}
	return out, nil
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Ratio is the Ratcliff/Obershelp similarity over the normalized strings,
// i.e. 2*matches/(len(a)+len(b)), the same measure difflib's SequenceMatcher
// produced for the original matching run.
func Ratio(a, b string) float64 {
	ra := []rune(normalize(a))
	rb := []rune(normalize(b))
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(ra, rb)) / float64(total)
}

// matchingRunes counts matched characters: the longest common substring, then
// recursively the pieces to its left and right.
func matchingRunes(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ai, bi, size := longestCommonRun(a, b)
	if size == 0 {
		return 0
	}
	return matchingRunes(a[:ai], b[:bi]) + size + matchingRunes(a[ai+size:], b[bi+size:])
}

func longestCommonRun(a, b []rune) (ai, bi, size int) {
	// lengths[j] is the common-run length ending at a[i-1], b[j-1]
	lengths := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		prev := 0
		for j := 1; j <= len(b); j++ {
			cur := lengths[j]
			if a[i-1] == b[j-1] {
				lengths[j] = prev + 1
				if lengths[j] > size {
					size = lengths[j]
					ai = i - size
					bi = j - size
				}
			} else {
				lengths[j] = 0
			}
			prev = cur
		}
	}
	return ai, bi, size
}

// BestMatch returns the highest-scoring mapping at or above threshold, or nil.
func BestMatch(name string, mapping []Mapping, threshold float64) *Mapping {
	var best *Mapping
	bestScore := 0.0
	for i := range mapping {
		score := Ratio(name, mapping[i].Name)
		if score > bestScore && score >= threshold {
			bestScore = score
			best = &mapping[i]
		}
	}
	return best
}

type UpdateResult struct {
	Matched   int
	Unmatched []string
}

// UpdateZones rewrites each hospital's zone from the best mapping match;
// unmatched hospitals keep their current zone.
func UpdateZones(hospitals []models.Hospital, mapping []Mapping, threshold float64) UpdateResult {
	var res UpdateResult
	for i := range hospitals {
		if hospitals[i].Name == "" {
			continue
		}
		if m := BestMatch(hospitals[i].Name, mapping, threshold); m != nil {
			hospitals[i].Zone = m.Zone
			res.Matched++
		} else {
			res.Unmatched = append(res.Unmatched, hospitals[i].Name)
		}
	}
	return res
}
