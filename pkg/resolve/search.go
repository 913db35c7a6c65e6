// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"context"
	"errors"
	"log/slog"

	"pkgkit/pkg/metadata"
	"pkgkit/pkg/restrict"
)

// Search returns every package matched by q, by repository priority and then
// in listing order. Keyword acceptance does not apply; q can test keywords
// itself. Packages with unparsable metadata are skipped.
func (r *Resolver) Search(ctx context.Context, q restrict.Package) ([]*metadata.Package, error) {
	var found []*metadata.Package
	for _, snap := range r.repos.Snapshots() {
		for cpv := range snap.List() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			pkg, err := snap.Metadata(ctx, cpv)
			if errors.Is(err, metadata.ErrParse) {
				slog.Debug("search skipping package with invalid metadata", "cpv", cpv.String(), "repo", snap.Name(), "error", err)
				continue
			}
			if err != nil {
				return nil, err
			}
			if q.Matches(pkg) {
				found = append(found, pkg)
			}
		}
	}
	return found, nil
}
