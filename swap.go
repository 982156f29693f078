package hyper

// PatchMode defines how patched elements are merged into the page.
//
// Each mode corresponds to a Datastar patch-elements mode. The default is
// PatchOuter, which morphs the target element including its tag.
type PatchMode string

const (
	// PatchOuter morphs the target element, including its tag.
	// This is the default mode and is omitted on the wire.
	PatchOuter PatchMode = "outer"

	// PatchInner morphs only the target's children.
	PatchInner PatchMode = "inner"

	// PatchReplace replaces the target element without morphing.
	PatchReplace PatchMode = "replace"

	// PatchPrepend inserts the elements as the target's first children.
	PatchPrepend PatchMode = "prepend"

	// PatchAppend inserts the elements as the target's last children.
	// Useful for adding items to lists.
	PatchAppend PatchMode = "append"

	// PatchBefore inserts the elements before the target.
	PatchBefore PatchMode = "before"

	// PatchAfter inserts the elements after the target.
	PatchAfter PatchMode = "after"

	// PatchRemove removes the target element. No elements are sent.
	PatchRemove PatchMode = "remove"
)

// Valid reports whether m is a known mode.
func (m PatchMode) Valid() bool {
	switch m {
	case PatchOuter, PatchInner, PatchReplace, PatchPrepend, PatchAppend, PatchBefore, PatchAfter, PatchRemove:
		return true
	}
	return false
}
