// Package resolvers registers every built-in resolver with the default
// registry; import it for side effects.
package resolvers

import (
	_ "github.com/alanbriolat/peertube-dl/resolver/bastyon"
	_ "github.com/alanbriolat/peertube-dl/resolver/peertube"
)
