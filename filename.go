package peertube_dl

import (
	"strings"
	"unicode"
)

const (
	maxBaseNameLength    = 120
	fallbackBaseName     = "video"
	defaultVideoExt      = ".mp4"
	defaultAudioExt      = ".m4a"
	unsafeNameCharacters = `/\:*?"<>|`
)

// DeriveOutputName builds a safe output filename from the video metadata and
// the chosen candidate. The base name comes from the title (falling back to
// the unique ID, then to "video"); the extension from the candidate's URL
// path, or a per-kind default.
func DeriveOutputName(meta VideoMetadata, chosen *Candidate) string {
	base := sanitizeBaseName(meta.Title())
	if base == "" {
		base = sanitizeBaseName(meta.UniqueID())
	}
	if base == "" {
		base = fallbackBaseName
	}
	return base + outputExt(chosen)
}

// sanitizeBaseName strips characters that are unsafe in filenames, collapses
// whitespace, and truncates to a sane length.
func sanitizeBaseName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(unsafeNameCharacters, r) || unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	collapsed := strings.Join(strings.Fields(b.String()), " ")
	runes := []rune(collapsed)
	if len(runes) > maxBaseNameLength {
		collapsed = strings.TrimSpace(string(runes[:maxBaseNameLength]))
	}
	return collapsed
}

func outputExt(chosen *Candidate) string {
	if chosen != nil {
		if ext := chosen.urlExt(); ext != "" {
			return ext
		}
		if chosen.Kind == KindAudio {
			return defaultAudioExt
		}
	}
	return defaultVideoExt
}
