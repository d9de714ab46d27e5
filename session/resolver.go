// ABOUTME: Resolves user-supplied session references: full id, id prefix, or title substring.
// ABOUTME: Also picks the startup session: last used, else most recent, else new.

package session

import "strings"

// Resolver maps loose user input onto a concrete session id.
type Resolver struct {
	store *Store
}

// NewResolver creates a resolver over the given store.
func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve finds a session by, in order: exact id (32+ chars), id prefix,
// then case-insensitive title substring for inputs longer than 2 chars.
// Prefix and title matches prefer the most recently updated session.
func (r *Resolver) Resolve(input string) (*Meta, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, &StoreError{Op: "resolve", Err: ErrSessionNotFound}
	}

	if len(input) >= 32 {
		if r.store.Exists(input) {
			return r.store.GetMeta(input)
		}
		return nil, &StoreError{Op: "resolve", SessionID: input, Err: ErrSessionNotFound}
	}

	metas, err := r.store.ListSessions()
	if err != nil {
		return nil, err
	}

	for _, m := range metas {
		if strings.HasPrefix(m.ID, input) {
			return m, nil
		}
	}

	if len(input) > 2 {
		needle := strings.ToLower(input)
		for _, m := range metas {
			if strings.Contains(strings.ToLower(m.Title), needle) {
				return m, nil
			}
		}
	}

	return nil, &StoreError{Op: "resolve", SessionID: input, Err: ErrSessionNotFound}
}

// PickStartup chooses the session to open at startup: the recorded last
// session when it still exists, else the most recently updated, else none.
func (r *Resolver) PickStartup() (*Meta, error) {
	if last, err := r.store.GetLastSession(); err == nil && last != "" && r.store.Exists(last) {
		if meta, err := r.store.GetMeta(last); err == nil {
			return meta, nil
		}
	}
	metas, err := r.store.ListSessions()
	if err != nil {
		return nil, err
	}
	if len(metas) > 0 {
		return metas[0], nil
	}
	return nil, nil
}
