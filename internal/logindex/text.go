package logindex

import "github.com/cogmem/cogmem/internal/block"

// ContentText extracts the searchable text from a block's content. Exported
// for callers outside the index family (internal/retrieval's token-budget
// costing) that need the same text a caller would see without reaching
// into each content variant themselves.
func ContentText(c block.Content) string {
	return contentText(c)
}

// contentText extracts the searchable text from a block's content, used by
// the semantic index's text fallback and by the exported ContentText.
func contentText(c block.Content) string {
	switch v := c.(type) {
	case block.Text:
		return v.Text
	case block.File:
		return v.Path + " " + v.Content
	case block.Tool:
		return v.ToolName + " " + v.Args + " " + v.Result
	case block.Decision:
		return v.Decision + " " + v.Rationale
	case block.Session:
		return v.ID
	case block.Boundary:
		return ""
	default:
		return ""
	}
}
