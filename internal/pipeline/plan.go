// Package pipeline wires loading, key normalisation, linking, clip
// resolution and sequencing into plan and run operations.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"pitchsync/internal/clips"
	"pitchsync/internal/config"
	"pitchsync/internal/keys"
	"pitchsync/internal/link"
	"pitchsync/internal/logx"
	"pitchsync/internal/paths"
	"pitchsync/internal/render"
	"pitchsync/internal/sequence"
	"pitchsync/pkg/pitchtab"
)

// Linkage is the validated linked table and what was lost on the way.
type Linkage struct {
	Mode     keys.Mode
	Warnings []string
	Dropped  []keys.Dropped
	Result   link.Result
	// Incomplete is set when some tagged rows found no tracking counterpart
	// and the run was configured to continue regardless.
	Incomplete *link.LinkageIncompleteError
}

// Summary reports joined versus tagged counts.
func (l *Linkage) Summary() link.Summary {
	return l.Result.Summary()
}

// Plan is everything a run will do, computed without touching video.
type Plan struct {
	*Linkage

	Paths       paths.ProjectPaths
	Config      config.Config
	Listing     clips.Listing
	Unnumbered  []clips.File
	Resolutions []clips.Resolution
	Extras      []clips.Listing
	// Sequence lists the planned annotated outputs followed by bonus footage.
	Sequence []sequence.Entry
}

// Resolved returns the resolutions that have a linked record.
func (p *Plan) Resolved() []clips.Resolution {
	var out []clips.Resolution
	for _, r := range p.Resolutions {
		if r.Resolved() {
			out = append(out, r)
		}
	}
	return out
}

// Unresolved returns the resolutions that failed.
func (p *Plan) Unresolved() []clips.Resolution {
	var out []clips.Resolution
	for _, r := range p.Resolutions {
		if !r.Resolved() {
			out = append(out, r)
		}
	}
	return out
}

// OutputPath returns where the annotated copy of source is written.
func (p *Plan) OutputPath(source string) string {
	return filepath.Join(p.Paths.OutputDir, render.OutputName(source, p.Config.Output.Suffix))
}

// Link loads both exports, normalises keys and joins them. Normalisation
// errors abort. An incomplete join is returned as a *link.LinkageIncompleteError
// alongside the Linkage unless cfg.Link.ProceedOnIncomplete is set.
func Link(ctx context.Context, cfg config.Config, pp paths.ProjectPaths, logger *slog.Logger) (*Linkage, error) {
	log := logx.Component(logger, "link")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	mode, err := cfg.KeyMode()
	if err != nil {
		return nil, err
	}

	linkage := &Linkage{Mode: mode}
	opts := pitchtab.Options{HeaderAliases: headerAliases(cfg.Inputs.HeaderAliases)}

	trackingRows, err := pitchtab.LoadTracking(pp.TrackingFile, opts)
	if err = linkage.absorb(err); err != nil {
		return nil, fmt.Errorf("load tracking %s: %w", pp.Rel(pp.TrackingFile), err)
	}
	taggedRows, err := pitchtab.LoadTagged(pp.TaggedFile, opts)
	if err = linkage.absorb(err); err != nil {
		return nil, fmt.Errorf("load tagged %s: %w", pp.Rel(pp.TaggedFile), err)
	}
	log.Info("tables loaded", "tracking_rows", len(trackingRows), "tagged_rows", len(taggedRows), "mode", mode.String())
	for _, w := range linkage.Warnings {
		log.Warn("cell coercion failed", "detail", w)
	}

	normOpts := keys.Options{DateLayouts: cfg.Link.DateLayouts}
	tracking, err := keys.NormalizeTracking(trackingRows, mode, normOpts)
	if err != nil {
		log.Error("tracking normalisation failed", "error", err)
		return nil, err
	}
	linkage.Dropped = tracking.Dropped
	for _, d := range tracking.Dropped {
		log.Info("tracking row dropped", "line", d.Line, "reason", d.Reason)
	}

	tagged, err := keys.NormalizeTagged(taggedRows, mode, normOpts)
	if err != nil {
		log.Error("tagged normalisation failed", "error", err)
		return nil, err
	}

	result, err := link.Link(tracking.Records, tagged)
	linkage.Result = result
	summary := result.Summary()
	log.Info("join complete", "joined", summary.Joined, "tagged", summary.Tagged, "complete", summary.Complete)

	var incomplete *link.LinkageIncompleteError
	switch {
	case err == nil:
	case errors.As(err, &incomplete):
		for _, tag := range incomplete.Unmatched {
			if a, ok := result.AmbiguityFor(tag.Clip); ok {
				log.Warn("tagged row ambiguous", "clip", tag.Clip, "line", tag.Row.Line, "key", tag.BaseKey, "tracking", a.Tracking, "tagged", a.Tagged)
				continue
			}
			log.Warn("tagged row unmatched", "clip", tag.Clip, "line", tag.Row.Line, "key", tag.Key)
		}
		if !cfg.Link.ProceedOnIncomplete {
			return linkage, err
		}
		linkage.Incomplete = incomplete
	default:
		return nil, err
	}
	return linkage, nil
}

// BuildPlan links the tables, lists the clip directories and resolves every
// numbered clip. It performs no video I/O.
func BuildPlan(ctx context.Context, cfg config.Config, pp paths.ProjectPaths, logger *slog.Logger) (*Plan, error) {
	linkage, err := Link(ctx, cfg, pp, logger)
	if err != nil {
		return nil, err
	}
	log := logx.Component(logger, "plan")

	plan := &Plan{Linkage: linkage, Paths: pp, Config: cfg}

	listing, err := clips.Discover(pp.ClipsDir, cfg.Clips.Extensions)
	if err != nil {
		return nil, err
	}
	plan.Listing = listing
	plan.Unnumbered = clips.Unnumbered(listing.Files)
	for _, skip := range listing.Skipped {
		log.Debug("skipping non-media entry", "detail", skip.Error())
	}
	for _, f := range plan.Unnumbered {
		log.Info("ignoring clip without a leading number", "file", f.Name)
	}

	plan.Resolutions = clips.Resolve(linkage.Result, listing.Files)
	for _, res := range plan.Resolutions {
		if res.Err != nil {
			log.Warn("clip unresolved", "file", res.File.Name, "error", res.Err)
		}
	}

	for _, dir := range pp.ExtraDirs {
		extra, err := clips.Discover(dir, cfg.Clips.Extensions)
		if err != nil {
			return nil, fmt.Errorf("extra footage: %w", err)
		}
		plan.Extras = append(plan.Extras, extra)
	}

	plan.Sequence = sequence.Build(plan.plannedPrimary(), plan.extraGroups()...)
	log.Info("plan ready",
		"clips", len(listing.Files),
		"resolved", len(plan.Resolved()),
		"unresolved", len(plan.Unresolved()),
		"sequence", len(plan.Sequence),
	)
	return plan, nil
}

func (p *Plan) plannedPrimary() []sequence.Clip {
	var primary []sequence.Clip
	for _, res := range p.Resolutions {
		switch {
		case res.Resolved():
			primary = append(primary, sequence.Clip{Number: res.Number, Path: p.OutputPath(res.File.Path)})
		case p.Config.Output.IncludeUnannotated:
			primary = append(primary, sequence.Clip{Number: res.Number, Path: res.File.Path})
		}
	}
	return primary
}

func (p *Plan) extraGroups() []sequence.Group {
	groups := make([]sequence.Group, 0, len(p.Extras))
	for _, extra := range p.Extras {
		groups = append(groups, sequence.Group{Name: filepath.Base(extra.Dir), Paths: extra.Paths()})
	}
	return groups
}

func (l *Linkage) absorb(err error) error {
	var verrs pitchtab.ValidationErrors
	if errors.As(err, &verrs) {
		for _, issue := range verrs.Issues() {
			l.Warnings = append(l.Warnings, issue.Error())
		}
		return nil
	}
	return err
}

func headerAliases(extra map[string]string) map[string]string {
	aliases := pitchtab.DefaultAliases()
	for from, to := range extra {
		from = strings.ToLower(strings.TrimSpace(from))
		to = strings.ToLower(strings.TrimSpace(to))
		if from == "" || to == "" {
			continue
		}
		aliases[from] = to
	}
	return aliases
}
