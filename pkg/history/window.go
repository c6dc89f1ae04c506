// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package history

// window is a FIFO holding at most size items. Pushing into a full window
// evicts the oldest item first.
type window[T any] struct {
	items []T
	size  int
}

func newWindow[T any](size int) *window[T] {
	if size < 1 {
		size = 1
	}
	return &window[T]{items: make([]T, 0, size), size: size}
}

func (w *window[T]) push(item T) {
	if len(w.items) == w.size {
		var zero T
		w.items[0] = zero
		w.items = w.items[1:]
	}
	w.items = append(w.items, item)
}

func (w *window[T]) resize(size int) {
	if size < 1 {
		size = 1
	}
	w.size = size
	for len(w.items) > w.size {
		var zero T
		w.items[0] = zero
		w.items = w.items[1:]
	}
}

func (w *window[T]) each(fn func(T)) {
	for _, item := range w.items {
		fn(item)
	}
}

func (w *window[T]) len() int {
	return len(w.items)
}

func (w *window[T]) last() (T, bool) {
	if len(w.items) == 0 {
		var zero T
		return zero, false
	}
	return w.items[len(w.items)-1], true
}
