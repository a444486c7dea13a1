package survey

// Wizard is the linear state machine over the ordered theme pages. No
// skip-ahead, no branching; advancing past the last page marks the wizard
// complete.
type Wizard struct {
	pages []*Page
	idx   int
	done  bool
}

func NewWizard(pages []*Page) *Wizard {
	return &Wizard{pages: pages}
}

func (w *Wizard) Len() int   { return len(w.pages) }
func (w *Wizard) Index() int { return w.idx }

// Current returns the active theme page, or nil once the wizard completed or
// when it has no pages.
func (w *Wizard) Current() *Page {
	if w.done || len(w.pages) == 0 {
		return nil
	}
	return w.pages[w.idx]
}

// Next advances one page. Advancing from the last page completes the wizard
// and returns true.
func (w *Wizard) Next() bool {
	if w.done {
		return true
	}
	if w.idx >= len(w.pages)-1 {
		w.done = true
		return true
	}
	w.idx++
	return false
}

// Back steps one page, floored at the first.
func (w *Wizard) Back() {
	if w.done {
		return
	}
	if w.idx > 0 {
		w.idx--
	}
}

func (w *Wizard) Done() bool { return w.done }
