package editor

// EditCursor tracks the single item of a list that is in edit mode.
// The list itself does not enforce it; callers that render lists do.
type EditCursor struct {
	index  int
	active bool
}

// Begin puts index into edit mode, ending any previous edit
func (c *EditCursor) Begin(index int) {
	c.index = index
	c.active = true
}

// End leaves edit mode
func (c *EditCursor) End() {
	c.active = false
}

// Editing returns the index being edited, if any
func (c *EditCursor) Editing() (int, bool) {
	return c.index, c.active
}

// Removed keeps the cursor on the same item after the item at index is removed
func (c *EditCursor) Removed(index int) {
	if !c.active {
		return
	}
	switch {
	case index == c.index:
		c.active = false
	case index < c.index:
		c.index--
	}
}
