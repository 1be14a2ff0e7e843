package flow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ResolveError identifies the specific unresolved {{...}} reference that
// failed resolution, per §4.2's failure policy: a resolver error fails the
// owning node's execution.
type ResolveError struct {
	Reference string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("flow: unresolved variable reference %q", e.Reference)
}

// ResolveContext carries every namespace the variable resolver can read
// from (§4.2's reference table) for a single node's resolution pass.
type ResolveContext struct {
	Question            string
	FileAttachmentText  string
	ChatHistory         []ChatMessage
	Form                map[string]any
	Vars                map[string]any // static vars overlaid by per-request overrides
	FlowConfig          map[string]any // chatflowid, chatId, sessionId, apiMessageId; the engine adds no state, chatHistory or override-config keys
	Checkpoint          ExecutedData

	// DisableHTMLNormalization gates the HTML-to-text step per SPEC_FULL
	// §14.2; default false preserves the original always-on behavior.
	DisableHTMLNormalization bool
}

var refPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// ResolveValue recursively walks v (array/mapping/scalar) and substitutes
// every {{...}} reference found in string leaves, per §4.2.
func (ctx *ResolveContext) ResolveValue(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return ctx.ResolveString(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			r, err := ctx.ResolveValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			r, err := ctx.ResolveValue(item)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

// ResolveString normalizes s via HTML-to-text (unless disabled), then
// resolves every {{reference}} left to right. A reference that does not
// resolve (a node id with no checkpoint entry yet, or a missing $form.,
// $vars. or $flow. path) is left in place verbatim, matching §4.2's policy.
// The one error case is a $-prefixed reference outside those three
// namespaces, which returns a *ResolveError naming it. See resolveReference.
func (ctx *ResolveContext) ResolveString(s string) (string, error) {
	if !ctx.DisableHTMLNormalization {
		s = HTMLToText(s)
	}
	// Strip the stray backslash artifact that HTML-to-text normalization
	// can leave directly before a node-id reference.
	s = strings.ReplaceAll(s, `\{{`, "{{")

	var resolveErr error
	result := refPattern.ReplaceAllStringFunc(s, func(match string) string {
		if resolveErr != nil {
			return match
		}
		groups := refPattern.FindStringSubmatch(match)
		ref := strings.TrimSpace(groups[1])
		resolved, found := ctx.resolveReference(ref)
		if !found {
			if strings.HasPrefix(ref, "$") && !isKnownDollarNamespace(ref) {
				resolveErr = &ResolveError{Reference: ref}
				return match
			}
			return match // leave {{...}} in place
		}
		return resolved
	})
	return result, resolveErr
}

// isKnownDollarNamespace reports whether ref starts with one of the three
// $-prefixed namespaces §4.2 defines. A "$"-prefixed reference that isn't
// one of these is almost certainly a mistyped namespace (e.g. "$var." for
// "$vars."), not a node id, so resolveReference can never match it as one;
// ResolveString treats that case as a hard failure instead of leaving the
// placeholder in place.
func isKnownDollarNamespace(ref string) bool {
	return strings.HasPrefix(ref, "$form.") || strings.HasPrefix(ref, "$vars.") || strings.HasPrefix(ref, "$flow.")
}

// resolveReference dispatches a single trimmed reference body (without the
// surrounding {{ }}) to the table of §4.2.
func (ctx *ResolveContext) resolveReference(ref string) (string, bool) {
	switch {
	case ref == "question":
		if ctx.FileAttachmentText != "" {
			return ctx.FileAttachmentText + "\n" + ctx.Question, true
		}
		return ctx.Question, true

	case ref == "file_attachment":
		return ctx.FileAttachmentText, true

	case ref == "chat_history":
		return FlattenChatHistory(ctx.ChatHistory), true

	case strings.HasPrefix(ref, "$form."):
		return dottedLookupString(ctx.Form, strings.TrimPrefix(ref, "$form."))

	case strings.HasPrefix(ref, "$vars."):
		return dottedLookupString(ctx.Vars, strings.TrimPrefix(ref, "$vars."))

	case strings.HasPrefix(ref, "$flow."):
		return dottedLookupString(ctx.FlowConfig, strings.TrimPrefix(ref, "$flow."))

	default:
		// <nodeId> reference: the output.content field of the matching
		// checkpoint entry.
		idx := ctx.Checkpoint.FindByNodeID(ref)
		if idx < 0 {
			return "", false
		}
		content, ok := ctx.Checkpoint[idx].ContentOf()
		if !ok {
			return "", false
		}
		return content, true
	}
}

// dottedLookupString evaluates a small dotted path against nested
// map[string]any/[]any values — deliberately not a general template
// engine, per the design note in §9.
func dottedLookupString(root map[string]any, path string) (string, bool) {
	v, ok := dottedLookup(root, path)
	if !ok {
		return "", false
	}
	return stringify(v), true
}

func dottedLookup(root map[string]any, path string) (any, bool) {
	if root == nil || path == "" {
		return nil, false
	}
	var cur any = root
	for _, segment := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[segment]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
