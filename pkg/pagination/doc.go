// Package pagination loads a remotely paged collection into a UI list on
// demand, one page at a time, without blocking the caller.
//
// Two pieces cooperate:
//
//   - Accumulator fetches the first page synchronously in New and every later
//     page through Next, appending into a shared Content container.
//   - Controller runs a continuation closure on a background goroutine when
//     the UI asks for more, and drops further requests while one is in flight.
//
// Example usage:
//
//	fetch := client.PageSource[Track](c, "/v1/playlists/42/tracks", 50)
//	acc, err := pagination.New(ctx, 0, 50, fetch)
//	if err != nil {
//		// errors.Is(err, pagination.ErrFetchUnavailable)
//	}
//
//	ctrl := pagination.NewController[Track]()
//	acc.Attach(ctx, ctrl)
//
//	// on every cursor move in the list view:
//	ctrl.ScrolledTo(acc.Content(), selected)
//
// Failures are collapsed into a single kind: New returns an error wrapping
// ErrFetchUnavailable and Next returns false. Callers tell "exhausted" from
// "transient failure" by checking AtEnd.
//
// Continuations cannot be cancelled once dispatched, and nothing is retried
// automatically.
package pagination
