package chat

import "context"

// probeFunc reports whether selector is present in whatever sense the
// caller needs (visible, attached, non-empty text).
type probeFunc func(ctx context.Context, selector string) bool

// firstMatch walks selectors in order and stops at the first hit. Selectors
// after the hit are never probed.
func firstMatch(ctx context.Context, selectors []string, probe probeFunc) (string, bool) {
	for _, sel := range selectors {
		if ctx.Err() != nil {
			return "", false
		}
		if probe(ctx, sel) {
			return sel, true
		}
	}
	return "", false
}

// raceAny probes all selectors concurrently and returns as soon as one hits.
// Outstanding probes are cancelled through their context; the result channel
// is buffered so late finishers never block.
func raceAny(ctx context.Context, selectors []string, probe probeFunc) (string, bool) {
	if len(selectors) == 0 {
		return "", false
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		selector string
		ok       bool
	}
	results := make(chan result, len(selectors))
	for _, sel := range selectors {
		go func(sel string) {
			results <- result{selector: sel, ok: probe(ctx, sel)}
		}(sel)
	}

	for range selectors {
		select {
		case r := <-results:
			if r.ok {
				return r.selector, true
			}
		case <-ctx.Done():
			return "", false
		}
	}
	return "", false
}
