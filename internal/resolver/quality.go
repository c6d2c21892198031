package resolver

import (
	"strconv"

	"github.com/tubevault/tubevault/internal/domain/model"
)

// SelectBest picks the highest-quality rendition of the given kind: maximum
// vertical resolution for video, maximum bitrate for audio. Ties keep the
// first-encountered rendition. When no rendition of the kind exists, the
// caller-configured fallback is returned. Pure function, no I/O.
func SelectBest(meta *Metadata, kind model.Kind, fallback string) string {
	best := -1
	for _, r := range meta.Formats {
		if r.Kind != kind.String() {
			continue
		}
		if v := qualityOf(r, kind); v > best {
			best = v
		}
	}
	if best < 0 {
		return fallback
	}
	return strconv.Itoa(best)
}

// HasQuality reports whether a rendition of the given kind advertises
// exactly the requested quality descriptor.
func HasQuality(meta *Metadata, kind model.Kind, quality string) bool {
	want, err := strconv.Atoi(quality)
	if err != nil {
		return false
	}
	for _, r := range meta.Formats {
		if r.Kind == kind.String() && qualityOf(r, kind) == want {
			return true
		}
	}
	return false
}

func qualityOf(r Rendition, kind model.Kind) int {
	if kind == model.KindAudio {
		return r.Bitrate
	}
	return r.Height
}
