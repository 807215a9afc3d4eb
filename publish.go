package neuriovars

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/varbridge/neuriovars/internal/sensor"
	"github.com/varbridge/neuriovars/internal/varstore"
)

// binding ties one published variable to the reading value it carries.
// The pick function may assume the readings hold all three channels;
// [sensor.Extract] guarantees that.
type binding struct {
	suffix string
	kind   varstore.Kind
	pick   func(r sensor.Readings) varstore.Value
}

// bindings is the publication table: the eleven variables written each
// cycle, ordered L1, L2, TOTAL. The totals channel has no voltage entry.
var bindings = []binding{
	{"/L1/V", varstore.KindFloat, func(r sensor.Readings) varstore.Value { return varstore.Float(r.Channels[0].Voltage) }},
	{"/L1/P", varstore.KindUint16, func(r sensor.Readings) varstore.Value { return varstore.Uint16(r.Channels[0].RealPower) }},
	{"/L1/Q", varstore.KindInt16, func(r sensor.Readings) varstore.Value { return varstore.Int16(r.Channels[0].ReactivePower) }},
	{"/L1/ENERGY_IMP", varstore.KindUint64, func(r sensor.Readings) varstore.Value { return varstore.Uint64(r.Channels[0].EnergyImported) }},
	{"/L2/V", varstore.KindFloat, func(r sensor.Readings) varstore.Value { return varstore.Float(r.Channels[1].Voltage) }},
	{"/L2/P", varstore.KindUint16, func(r sensor.Readings) varstore.Value { return varstore.Uint16(r.Channels[1].RealPower) }},
	{"/L2/Q", varstore.KindInt16, func(r sensor.Readings) varstore.Value { return varstore.Int16(r.Channels[1].ReactivePower) }},
	{"/L2/ENERGY_IMP", varstore.KindUint64, func(r sensor.Readings) varstore.Value { return varstore.Uint64(r.Channels[1].EnergyImported) }},
	{"/TOTAL/P", varstore.KindUint16, func(r sensor.Readings) varstore.Value { return varstore.Uint16(r.Channels[2].RealPower) }},
	{"/TOTAL/Q", varstore.KindInt16, func(r sensor.Readings) varstore.Value { return varstore.Int16(r.Channels[2].ReactivePower) }},
	{"/TOTAL/ENERGY_IMP", varstore.KindUint64, func(r sensor.Readings) varstore.Value { return varstore.Uint64(r.Channels[2].EnergyImported) }},
}

// publication is a binding resolved against the store. An unresolved
// publication keeps the invalid handle and is skipped on publish.
type publication struct {
	binding
	name   string
	handle varstore.Handle
}

// resolvePublications looks up the store handle for every binding under
// the given prefix.
//
// Resolution is best-effort: a failed lookup is logged and the binding
// stays unresolved, so a store with a partial variable set still receives
// the variables it declares.
func resolvePublications(ctx context.Context, store varstore.Client, prefix string, logger *slog.Logger) []publication {
	pubs := make([]publication, 0, len(bindings))
	for _, b := range bindings {
		name := prefix + b.suffix
		p := publication{binding: b, name: name, handle: varstore.InvalidHandle}

		h, err := store.FindByName(ctx, name)
		if err != nil {
			logger.Warn("variable not resolved", "name", name, "error", err)
		} else {
			p.handle = h
		}
		pubs = append(pubs, p)
	}
	return pubs
}

// publishReadings writes one cycle's readings to the store.
//
// Unresolved publications are skipped with a warning; a failed write is
// logged and the remaining variables are still written (there is no
// transaction across variables). Returns the number of variables written
// and the first write error, if any.
func publishReadings(ctx context.Context, store varstore.Client, pubs []publication, r sensor.Readings, logger *slog.Logger) (int, error) {
	published := 0
	var firstErr error

	for _, p := range pubs {
		if p.handle == varstore.InvalidHandle {
			logger.Warn("skipping unresolved variable", "name", p.name)
			continue
		}

		if err := store.Set(ctx, p.handle, p.pick(r)); err != nil {
			logger.Warn("failed to publish variable", "name", p.name, "handle", p.handle, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("publishing %s: %w", p.name, err)
			}
			continue
		}
		published++
	}

	return published, firstErr
}
