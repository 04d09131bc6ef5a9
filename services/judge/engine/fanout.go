// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"sync"

	"github.com/AleutianAI/AleutianVerdict/services/judge/datatypes"
)

// runEngines executes all four reasoning roles concurrently against the
// same prompt.
//
// # Description
//
// Each role completion emits an engine_result event as it finishes, so the
// stream shows engines in completion order while the returned map is
// keyed by role and order-free. The call returns only when all four roles
// are done.
//
// # Outputs
//
//   - EngineOutputs with exactly four entries on success.
//   - An error only on cancellation or a terminal adapter configuration
//     problem; per-provider failures are absorbed below this layer.
func runEngines(ctx context.Context, complete CompleteFunc, em *Emitter, runID, prompt string) (datatypes.EngineOutputs, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outputs  = make(datatypes.EngineOutputs, len(roleSpecs))
		firstErr error
	)

	for _, spec := range roleSpecs {
		wg.Add(1)
		go func(spec roleSpec) {
			defer wg.Done()

			out, err := runRole(ctx, complete, spec, prompt)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			outputs[spec.Key] = out

			emit(em, runID, datatypes.EventEngineResult, map[string]any{
				"role":     out.Role,
				"provider": out.Provider,
				"result":   out.Result,
			})
		}(spec)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return outputs, nil
}
