package runtime

import "reflect"

type sliceIterator struct {
	items func() []any
	pos   int
}

func (it *sliceIterator) HasNext() bool { return it.pos < len(it.items()) }

func (it *sliceIterator) Next() (any, error) {
	items := it.items()
	if it.pos >= len(items) {
		return nil, Raise(StopIteration, "")
	}
	v := items[it.pos]
	it.pos++
	return v, nil
}

type rangeIterator struct {
	r   *Range
	pos int64
}

func (it *rangeIterator) HasNext() bool { return it.pos < it.r.Len() }

func (it *rangeIterator) Next() (any, error) {
	if !it.HasNext() {
		return nil, Raise(StopIteration, "")
	}
	v := it.r.At(it.pos)
	it.pos++
	return v, nil
}

type reflectIterator struct {
	v   reflect.Value
	pos int
}

func (it *reflectIterator) HasNext() bool { return it.pos < it.v.Len() }

func (it *reflectIterator) Next() (any, error) {
	if !it.HasNext() {
		return nil, Raise(StopIteration, "")
	}
	v := fromHost(it.v.Index(it.pos))
	it.pos++
	return v, nil
}

// Iterate returns an iterator over v. Lists are iterated live, so items
// appended during the loop are visited.
func Iterate(v any) (Iterator, error) {
	switch x := v.(type) {
	case Iterator:
		return x, nil
	case *List:
		return &sliceIterator{items: func() []any { return x.Items }}, nil
	case Tuple:
		return &sliceIterator{items: func() []any { return x }}, nil
	case string:
		runes := []rune(x)
		items := make([]any, len(runes))
		for i, r := range runes {
			items[i] = string(r)
		}
		return &sliceIterator{items: func() []any { return items }}, nil
	case *Dict:
		keys := x.Keys()
		return &sliceIterator{items: func() []any { return keys }}, nil
	case *Range:
		return &rangeIterator{r: x}, nil
	case nil:
		return nil, Raise(TypeError, "'NoneType' object is not iterable")
	}

	rv := reflect.ValueOf(v)
	if k := rv.Kind(); k == reflect.Slice || k == reflect.Array {
		return &reflectIterator{v: rv}, nil
	}
	return nil, Raise(TypeError, "'%s' object is not iterable", TypeName(v))
}

// Collect drains an iterable into a slice.
func Collect(v any) ([]any, error) {
	switch x := v.(type) {
	case *List:
		return x.Items, nil
	case Tuple:
		return x, nil
	}
	it, err := Iterate(v)
	if err != nil {
		return nil, err
	}
	var out []any
	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
