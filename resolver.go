package peertube_dl

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/alanbriolat/peertube-dl/generic"
)

// ErrNotApplicable is returned by a ResolveFunc that does not recognize the
// input at all; the registry moves on to the next resolver. Any other error
// aborts resolution immediately, because it means the resolver claimed the
// input and then failed on it.
var ErrNotApplicable = errors.New("resolver not applicable")

var (
	PriorityHighest int16 = math.MinInt16
	PriorityDefault int16 = 0
	PriorityLowest  int16 = math.MaxInt16
)

type ResolveFunc = func(ctx context.Context, raw string) (Reference, error)

// A Resolver turns raw user input it recognizes into a resolved Reference.
type Resolver struct {
	Name    string
	Resolve ResolveFunc
	// Priority of the resolver, lower (including negative) means trying earlier.
	Priority int16
}

func (r Resolver) WithName(name string) Resolver {
	r.Name = name
	return r
}

func (r Resolver) WithPriority(priority int16) Resolver {
	r.Priority = priority
	return r
}

// A ResolverRegistry is a collection of Resolver instances which can be used to
// try to resolve raw input strings.
type ResolverRegistry struct {
	resolvers   []*Resolver
	resolverMap map[string]*Resolver
}

// Add registers a Resolver with the ResolverRegistry. Resolver.Name and
// Resolver.Resolve must be set, and Resolver.Name must be unique within the
// ResolverRegistry.
func (r *ResolverRegistry) Add(res Resolver) error {
	if r.resolverMap == nil {
		r.resolverMap = make(map[string]*Resolver)
	}
	if res.Name == "" || res.Resolve == nil {
		return ErrInvalidResolver
	}
	if _, ok := r.resolverMap[res.Name]; ok {
		return ErrDuplicateResolver
	}
	r.resolverMap[res.Name] = &res
	r.resolvers = append(r.resolvers, r.resolverMap[res.Name])
	r.sortByPriority()
	return nil
}

// Create is a shortcut for Add(Resolver{Name: ..., Resolve: ...}).
func (r *ResolverRegistry) Create(name string, f ResolveFunc) error {
	return r.Add(Resolver{Name: name, Resolve: f})
}

// CreatePriority is a shortcut for Add(Resolver{Name: ..., Resolve: ..., Priority: ...}).
func (r *ResolverRegistry) CreatePriority(name string, f ResolveFunc, priority int16) error {
	return r.Add(Resolver{Name: name, Resolve: f, Priority: priority})
}

// List returns the names of registered resolvers in priority order.
func (r *ResolverRegistry) List() []string {
	names := make([]string, 0, len(r.resolvers))
	for _, res := range r.resolvers {
		names = append(names, res.Name)
	}
	return names
}

// MustAdd wraps Add but panics if there is an error.
func (r *ResolverRegistry) MustAdd(res Resolver) {
	generic.Unwrap_(r.Add(res))
}

// MustCreate wraps Create but panics if there is an error.
func (r *ResolverRegistry) MustCreate(name string, f ResolveFunc) {
	generic.Unwrap_(r.Create(name, f))
}

// MustCreatePriority wraps CreatePriority but panics if there is an error.
func (r *ResolverRegistry) MustCreatePriority(name string, f ResolveFunc, priority int16) {
	generic.Unwrap_(r.CreatePriority(name, f, priority))
}

// SetPriority adjusts the priority of a named Resolver.
func (r *ResolverRegistry) SetPriority(name string, priority int16) error {
	if res, ok := r.resolverMap[name]; ok {
		res.Priority = priority
		r.sortByPriority()
		return nil
	}
	return ErrUnknownResolver
}

// Resolve tries each Resolver in priority order until one produces a resolved
// Reference. A resolver signalling ErrNotApplicable is skipped; any other
// resolver error is terminal. If every resolver was skipped the accumulated
// reasons are returned.
func (r *ResolverRegistry) Resolve(ctx context.Context, raw string) (Reference, error) {
	var result error
	for _, res := range r.resolvers {
		ref, err := res.Resolve(ctx, raw)
		if err == nil {
			if ref.IsResolved() {
				return ref, nil
			}
			err = ErrUnresolvedReference
		}
		if !errors.Is(err, ErrNotApplicable) {
			return Reference{}, fmt.Errorf("[%v]: %w", res.Name, err)
		}
		result = multierror.Append(result, multierror.Prefix(err, fmt.Sprintf("[%v]", res.Name)))
	}
	if result == nil {
		result = ErrNoMatch
	}
	return Reference{}, result
}

// ResolveWith will attempt to resolve a string with a specific resolver.
func (r *ResolverRegistry) ResolveWith(ctx context.Context, name string, raw string) (Reference, error) {
	res, ok := r.resolverMap[name]
	if !ok {
		return Reference{}, ErrUnknownResolver
	}
	ref, err := res.Resolve(ctx, raw)
	if err != nil {
		return Reference{}, err
	}
	if !ref.IsResolved() {
		return Reference{}, ErrUnresolvedReference
	}
	return ref, nil
}

func (r *ResolverRegistry) sortByPriority() {
	sort.SliceStable(r.resolvers, func(i, j int) bool {
		return r.resolvers[i].Priority < r.resolvers[j].Priority
	})
}

var DefaultResolverRegistry ResolverRegistry

// ResolveInput resolves raw user input (a peertube:// link, a PeerTube URL, or
// a social post URL embedding one) against the default resolver registry.
func ResolveInput(ctx context.Context, raw string) (Reference, error) {
	return DefaultResolverRegistry.Resolve(ctx, raw)
}
