// Package export maps a finished set of recorded samples onto
// instrument zones and packages them as a Bitwig .multisample archive,
// an SFZ instrument, or a plain zip.
package export

import (
	"github.com/james-see/multisampler/pkg/capture"
)

// Zone is one sample file placed on the keyboard. Key and velocity
// bounds tile the full 0-127 range without gaps or overlap; round
// robins at the same position share bounds and are distinguished by
// their sequence slot.
type Zone struct {
	File       string
	Pitch      uint8
	Velocity   uint8
	RoundRobin uint8

	KeyLow  uint8
	KeyHigh uint8
	VelLow  uint8
	VelHigh uint8

	// SeqPosition is the 1-based round-robin slot; SeqLength is the
	// number of slots at this key and velocity position.
	SeqPosition int
	SeqLength   int
}

// HasVelocityRange reports whether the zone is restricted to part of
// the velocity range.
func (z Zone) HasVelocityRange() bool {
	return z.VelLow != 0 || z.VelHigh != 127
}

// BuildZones computes zone bounds for the recorded files. Files are
// expected in recording order: ascending pitch, descending velocity
// within a pitch, round robins innermost.
func BuildZones(files []capture.RecordedFile) []Zone {
	zones := make([]Zone, len(files))
	for i, f := range files {
		zones[i] = Zone{
			File:       f.Path,
			Pitch:      f.Pitch,
			Velocity:   f.Velocity,
			RoundRobin: f.RoundRobin,
		}
	}
	assignKeyRanges(zones)
	assignVelocityRanges(zones)
	assignSequenceSlots(zones)
	return zones
}

// assignKeyRanges splits the keyboard at the midpoints between
// adjacent distinct pitches. Each boundary zone extends to the end of
// the range.
func assignKeyRanges(zones []Zone) {
	pitches := distinct(zones, func(z Zone) uint8 { return z.Pitch })

	low := make(map[uint8]uint8, len(pitches))
	high := make(map[uint8]uint8, len(pitches))
	prevHigh := -1
	for i, p := range pitches {
		low[p] = uint8(prevHigh + 1)
		if i == len(pitches)-1 {
			high[p] = 127
		} else {
			h := (int(p) + int(pitches[i+1])) / 2
			if h > int(p) {
				h--
			}
			if h < int(p) {
				h = int(p)
			}
			high[p] = uint8(h)
		}
		prevHigh = int(high[p])
	}

	for i := range zones {
		zones[i].KeyLow = low[zones[i].Pitch]
		zones[i].KeyHigh = high[zones[i].Pitch]
	}
}

// assignVelocityRanges splits 0-127 at the midpoints between the
// distinct velocities recorded for each pitch.
func assignVelocityRanges(zones []Zone) {
	byPitch := make(map[uint8][]int)
	for i, z := range zones {
		byPitch[z.Pitch] = append(byPitch[z.Pitch], i)
	}

	for _, idxs := range byPitch {
		group := make([]Zone, len(idxs))
		for j, i := range idxs {
			group[j] = zones[i]
		}
		velocities := distinct(group, func(z Zone) uint8 { return z.Velocity })

		low := make(map[uint8]uint8, len(velocities))
		high := make(map[uint8]uint8, len(velocities))
		prevHigh := -1
		for j, v := range velocities {
			low[v] = uint8(prevHigh + 1)
			if j == len(velocities)-1 {
				high[v] = 127
			} else {
				high[v] = uint8((int(v) + int(velocities[j+1])) / 2)
			}
			prevHigh = int(high[v])
		}

		for _, i := range idxs {
			zones[i].VelLow = low[zones[i].Velocity]
			zones[i].VelHigh = high[zones[i].Velocity]
		}
	}
}

// assignSequenceSlots numbers round robins within each key and
// velocity position.
func assignSequenceSlots(zones []Zone) {
	type position struct{ pitch, velocity uint8 }
	counts := make(map[position]int)
	for _, z := range zones {
		counts[position{z.Pitch, z.Velocity}]++
	}
	for i := range zones {
		zones[i].SeqPosition = int(zones[i].RoundRobin) + 1
		zones[i].SeqLength = counts[position{zones[i].Pitch, zones[i].Velocity}]
	}
}

// distinct returns the sorted distinct values of key over the zones.
func distinct(zones []Zone, key func(Zone) uint8) []uint8 {
	seen := make(map[uint8]bool)
	var out []uint8
	for _, z := range zones {
		v := key(z)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
