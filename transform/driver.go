package transform

import (
	"context"
	"strconv"

	"github.com/embedml/graphc/internal/errkind"
	"github.com/embedml/graphc/internal/telemetry"
	"github.com/embedml/graphc/ir/model"
)

// Apply runs every registered Transformation once, in registration order,
// skipping Refine (which is driven separately via RunRefineLoop since it
// needs to iterate to a fixed point rather than run exactly once).
func Apply(ctx context.Context, source *model.Model, tctx *Context) (*model.Model, error) {
	current := source
	for _, t := range Registered() {
		if t.Name() == "Refine" {
			continue
		}
		next, err := runPass(ctx, t, current, tctx)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// RefineAndOptimize implements the compile-time pipeline's outer loop
// (spec §4.3, §4.2): Refine is alternated with the rest of the registry at
// least twice, since a refinement can expose new fusion/elimination
// opportunities and a fusion can in turn make a previously-unrefinable
// combination refinable. Stops early once a full round leaves the model
// unchanged in size and every node compilable.
func RefineAndOptimize(ctx context.Context, source *model.Model, tctx *Context) (*model.Model, error) {
	current := source
	const minRounds = 2
	const maxRounds = 8
	for round := 0; round < maxRounds; round++ {
		refined, err := RunRefineLoop(current, tctx, tctx.RefineLimit)
		if err != nil {
			return nil, err
		}
		optimized, err := Apply(ctx, refined, tctx)
		if err != nil {
			return nil, err
		}
		settled := round >= minRounds-1 && optimized.Len() == current.Len() && allReady(optimized)
		current = optimized
		if settled {
			return current, nil
		}
	}
	if !allReady(current) {
		return nil, errkind.Newf(errkind.RefinementLoop, "model still contains non-compilable nodes after %d refine/optimize rounds", maxRounds)
	}
	return current, nil
}

func runPass(ctx context.Context, t Transformation, source *model.Model, tctx *Context) (*model.Model, error) {
	_, span := telemetry.StartSpan(ctx, "transform.pass",
		telemetry.WithAttributes(telemetry.BuildAttributes(
			telemetry.PA.PassName(), t.Name(),
			telemetry.PA.NodeCount(), strconv.Itoa(source.Len()),
		)))
	defer span.End()

	out, err := t.Apply(source, tctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(telemetry.StatusError, err.Error())
		return nil, err
	}
	span.SetStatus(telemetry.StatusOK, "")
	return out, nil
}
