package peertube_dl

import (
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
)

// Kind distinguishes the track type of a Candidate. It is assigned once at
// flattening time and never re-inferred later.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// A Candidate is one downloadable rendition of a video, normalized from
// whichever list of the metadata it was found in.
type Candidate struct {
	Kind     Kind
	FileURL  string
	MimeType string
	// SizeBytes is 0 when the metadata does not declare a size.
	SizeBytes int64
	// Height is 0 when unknown (audio tracks, incomplete metadata).
	Height int
	FPS    float64
}

// SelectionConstraints is the caller's intent; it is not negotiated with the
// remote side.
type SelectionConstraints struct {
	// MaxHeight caps the video height in pixels; 0 means unconstrained.
	MaxHeight int
	AudioOnly bool
}

// Field tables for reading descriptors across PeerTube versions; first
// present value wins.
var (
	fileURLFields  = []string{"fileUrl", "fileDownloadUrl", "url"}
	mimeTypeFields = []string{"mimeType", "mimetype"}
)

// Metadata locations that contribute candidates: the flat top-level file
// list, per-playlist file and audio-file lists, and a secondary top-level
// fallback list.
func FlattenCandidates(meta VideoMetadata) []Candidate {
	var candidates []Candidate
	candidates = appendDescriptors(candidates, meta["files"], KindVideo)
	if playlists, ok := meta["streamingPlaylists"].([]any); ok {
		for _, p := range playlists {
			playlist, ok := p.(map[string]any)
			if !ok {
				continue
			}
			candidates = appendDescriptors(candidates, playlist["files"], KindVideo)
			candidates = appendDescriptors(candidates, playlist["audioFiles"], KindAudio)
		}
	}
	candidates = appendDescriptors(candidates, meta["videoFiles"], KindVideo)
	return candidates
}

func appendDescriptors(candidates []Candidate, list any, kind Kind) []Candidate {
	entries, ok := list.([]any)
	if !ok {
		return candidates
	}
	for _, entry := range entries {
		descriptor, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if c, ok := candidateFromDescriptor(descriptor, kind); ok {
			candidates = append(candidates, c)
		}
	}
	return candidates
}

// candidateFromDescriptor normalizes one file descriptor. Descriptors without
// a resolvable URL are dropped; incomplete metadata is expected, not an error.
func candidateFromDescriptor(descriptor map[string]any, kind Kind) (Candidate, bool) {
	var fileURL string
	for _, field := range fileURLFields {
		if s, ok := descriptor[field].(string); ok && s != "" {
			fileURL = s
			break
		}
	}
	if fileURL == "" {
		return Candidate{}, false
	}
	if flag, ok := descriptor["audioOnly"].(bool); ok && flag {
		kind = KindAudio
	}
	c := Candidate{
		Kind:    kind,
		FileURL: fileURL,
		Height:  descriptorHeight(descriptor),
	}
	for _, field := range mimeTypeFields {
		if s, ok := descriptor[field].(string); ok && s != "" {
			c.MimeType = s
			break
		}
	}
	if n, ok := asNumber(descriptor["size"]); ok {
		c.SizeBytes = int64(n)
	}
	if n, ok := asNumber(descriptor["fps"]); ok {
		c.FPS = n
	}
	return c, true
}

// descriptorHeight reads the height from a nested resolution object (numeric
// id, or a label like "720p") or a flat height field.
func descriptorHeight(descriptor map[string]any) int {
	if resolution, ok := descriptor["resolution"].(map[string]any); ok {
		if n, ok := asNumber(resolution["id"]); ok {
			return int(n)
		}
		if label, ok := resolution["label"].(string); ok {
			if h := parseHeightLabel(label); h > 0 {
				return h
			}
		}
	}
	if n, ok := asNumber(descriptor["height"]); ok {
		return int(n)
	}
	return 0
}

func parseHeightLabel(label string) int {
	digits := label
	for i, r := range label {
		if r < '0' || r > '9' {
			digits = label[:i]
			break
		}
	}
	h, _ := strconv.Atoi(digits)
	return h
}

// Score ranks a candidate for selection: secure transport counts 2, an MP4
// container counts 3, and height only breaks ties. Transport and container are
// deliberately worth more than raw resolution.
func (c Candidate) Score() float64 {
	score := 0.0
	if strings.HasPrefix(c.FileURL, "https://") {
		score += 2
	}
	if c.isMP4() {
		score += 3
	}
	return score + float64(c.Height)/10000
}

func (c Candidate) isMP4() bool {
	if strings.Contains(strings.ToLower(c.MimeType), "mp4") {
		return true
	}
	return strings.EqualFold(c.urlExt(), ".mp4")
}

// urlExt returns the file extension of the candidate's URL path, or "".
func (c Candidate) urlExt() string {
	if parsedURL, err := url.Parse(c.FileURL); err == nil {
		return path.Ext(parsedURL.Path)
	}
	return path.Ext(c.FileURL)
}

func sortByScore(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score() > candidates[j].Score()
	})
}

// SelectFile flattens and ranks the renditions in meta, then picks the one
// best matching the constraints. It returns nil, not an error, when no
// candidate matches: that is an expected outcome for metadata with no
// downloadable files of the requested kind.
func SelectFile(meta VideoMetadata, constraints SelectionConstraints) *Candidate {
	candidates := FlattenCandidates(meta)
	sortByScore(candidates)

	kind := KindVideo
	if constraints.AudioOnly {
		kind = KindAudio
	}
	var filtered []Candidate
	for _, c := range candidates {
		if c.Kind == kind {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	// No height constraint applies to audio.
	if constraints.AudioOnly || constraints.MaxHeight <= 0 {
		return &filtered[0]
	}
	return selectByHeight(filtered, constraints.MaxHeight)
}

// selectByHeight picks the tallest candidate at or under the cap, falling
// back to the closest overshoot, and finally to the top-scored candidate.
// Ties keep the pre-existing score order.
func selectByHeight(candidates []Candidate, maxHeight int) *Candidate {
	var best *Candidate
	for i := range candidates {
		c := &candidates[i]
		if c.Height == 0 || c.Height > maxHeight {
			continue
		}
		if best == nil || c.Height > best.Height {
			best = c
		}
	}
	if best != nil {
		return best
	}
	for i := range candidates {
		c := &candidates[i]
		if c.Height <= maxHeight {
			continue
		}
		if best == nil || c.Height < best.Height {
			best = c
		}
	}
	if best != nil {
		return best
	}
	return &candidates[0]
}
