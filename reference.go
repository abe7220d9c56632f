package peertube_dl

import "fmt"

// A Reference identifies a single video on a remote PeerTube instance. Host
// always carries a scheme when set. A Reference with either field empty is
// unresolved and must not be passed to the metadata API.
type Reference struct {
	Host string
	ID   string
}

// IsResolved reports whether both the host and the video ID are known.
func (r Reference) IsResolved() bool {
	return r.Host != "" && r.ID != ""
}

func (r Reference) String() string {
	if !r.IsResolved() {
		return "<unresolved>"
	}
	return fmt.Sprintf("%s [%s]", r.Host, r.ID)
}
