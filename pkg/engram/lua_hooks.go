package engram

import (
	"context"

	"github.com/engramkit/engram/pkg/errors"
	"github.com/engramkit/engram/pkg/log"
	"github.com/engramkit/engram/pkg/scripting"
	"github.com/engramkit/engram/pkg/search"
)

const (
	// beforeAddFuncName is the name of the Lua function to call before a memory is stored
	beforeAddFuncName = "before_add"

	// afterSearchFuncName is the name of the Lua function to call after a search completes
	afterSearchFuncName = "after_search"
)

// callBeforeAddHook calls the before_add Lua hook if available. The hook
// receives {text, tags} and may veto the add by returning false, or
// return a table with replacement text and tags. Hook errors are logged
// and never fail the operation.
func callBeforeAddHook(
	ctx context.Context,
	engine scripting.Engine,
	text string,
	tags []string,
) (string, []string, bool) {
	if engine == nil {
		return text, tags, false
	}

	input := map[string]interface{}{
		"text": text,
		"tags": tags,
	}

	result, err := engine.ExecuteFunction(ctx, beforeAddFuncName, input)
	if err != nil {
		// If the function doesn't exist, that's ok - just continue
		if errors.Is(err, scripting.ErrFunctionNotFound) {
			return text, tags, false
		}
		// Log the error but don't fail the operation
		log.WarnContext(ctx, "Error calling Lua hook",
			"hook", beforeAddFuncName,
			"error", err)
		return text, tags, false
	}

	// Returning false vetoes the add
	if vetoed, ok := result.(bool); ok && !vetoed {
		return text, tags, true
	}

	// If the function returned nil or not a table, keep the input as-is
	resultMap, ok := result.(map[string]interface{})
	if !ok {
		return text, tags, false
	}

	// Apply replacements from the returned table
	if replacement, ok := resultMap["text"].(string); ok {
		text = replacement
	}

	if rawTags, ok := resultMap["tags"].([]interface{}); ok {
		replaced := make([]string, 0, len(rawTags))
		for _, raw := range rawTags {
			if tag, ok := raw.(string); ok {
				replaced = append(replaced, tag)
			}
		}
		tags = replaced
	}

	return text, tags, false
}

// callAfterSearchHook calls the after_search Lua hook if available. The
// hook observes the ranked hits; its return value is ignored. Hook
// errors are logged and never fail the operation.
func callAfterSearchHook(
	ctx context.Context,
	engine scripting.Engine,
	hits []search.Hit,
) {
	// Always attempt to call the hook, even with no hits, so observers
	// see empty result sets too
	if engine == nil {
		return
	}

	luaHits := make([]interface{}, len(hits))
	for i, hit := range hits {
		luaHits[i] = map[string]interface{}{
			"id":         hit.Record.ID,
			"text":       hit.Record.Text,
			"tags":       hit.Record.Tags,
			"keywords":   hit.Record.Keywords,
			"score":      hit.Score,
			"created_at": hit.Record.CreatedAt.Unix(),
			"updated_at": hit.Record.UpdatedAt.Unix(),
		}
	}

	_, err := engine.ExecuteFunction(ctx, afterSearchFuncName, luaHits)
	if err != nil {
		// If the function doesn't exist, that's ok - just continue
		if errors.Is(err, scripting.ErrFunctionNotFound) {
			return
		}
		// Log the error but don't fail the operation
		log.WarnContext(ctx, "Error calling Lua hook",
			"hook", afterSearchFuncName,
			"error", err)
	}
}
