package ui

import (
	"github.com/sahilm/fuzzy"

	"github.com/pkarlsen/vaultview/pkg/model"
)

// dropdown is the shared single-choice overlay used by the cell editor,
// the column-filter picker, and the bulk action. Typing fuzzy-filters
// the option labels.
type dropdown struct {
	title    string
	options  []model.Option
	query    string
	filtered []int
	cursor   int
}

func newDropdown(title string, options []model.Option) *dropdown {
	d := &dropdown{title: title, options: options}
	d.refilter()
	return d
}

func (d *dropdown) refilter() {
	d.cursor = 0
	if d.query == "" {
		d.filtered = make([]int, len(d.options))
		for i := range d.options {
			d.filtered[i] = i
		}
		return
	}
	labels := make([]string, len(d.options))
	for i, opt := range d.options {
		labels[i] = opt.Label
	}
	matches := fuzzy.Find(d.query, labels)
	d.filtered = make([]int, len(matches))
	for i, match := range matches {
		d.filtered[i] = match.Index
	}
}

func (d *dropdown) typeRune(r rune) {
	d.query += string(r)
	d.refilter()
}

func (d *dropdown) backspace() {
	if d.query == "" {
		return
	}
	runes := []rune(d.query)
	d.query = string(runes[:len(runes)-1])
	d.refilter()
}

func (d *dropdown) move(delta int) {
	d.cursor += delta
	if d.cursor < 0 {
		d.cursor = 0
	}
	if d.cursor >= len(d.filtered) {
		d.cursor = len(d.filtered) - 1
	}
}

// current returns the highlighted option.
func (d *dropdown) current() (model.Option, bool) {
	if d.cursor < 0 || d.cursor >= len(d.filtered) {
		return model.Option{}, false
	}
	return d.options[d.filtered[d.cursor]], true
}
