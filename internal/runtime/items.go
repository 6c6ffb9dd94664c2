package runtime

// ItemGetter lets host values support subscripting.
type ItemGetter interface {
	GetItem(key any) (any, error)
}

// ItemSetter lets host values support item assignment.
type ItemSetter interface {
	SetItem(key, value any) error
}

// ItemDeleter lets host values support item deletion.
type ItemDeleter interface {
	DelItem(key any) error
}

func normalizeIndex(kind string, key any, n int) (int64, error) {
	i, ok := toInt(key)
	if !ok || isFloat(key) {
		return 0, Raise(TypeError, "%s indices must be integers, not %s", kind, TypeName(key))
	}
	if i < 0 {
		i += int64(n)
	}
	if i < 0 || i >= int64(n) {
		return 0, Raise(IndexError, "%s index out of range", kind)
	}
	return i, nil
}

// GetItem implements obj[key].
func GetItem(obj, key any) (any, error) {
	switch x := obj.(type) {
	case *List:
		i, err := normalizeIndex("list", key, len(x.Items))
		if err != nil {
			return nil, err
		}
		return x.Items[i], nil
	case Tuple:
		i, err := normalizeIndex("tuple", key, len(x))
		if err != nil {
			return nil, err
		}
		return x[i], nil
	case string:
		runes := []rune(x)
		i, err := normalizeIndex("string", key, len(runes))
		if err != nil {
			return nil, err
		}
		return string(runes[i]), nil
	case *Range:
		i, err := normalizeIndex("range object", key, int(x.Len()))
		if err != nil {
			return nil, err
		}
		return x.At(i), nil
	case *Dict:
		v, ok, err := x.Get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, Raise(KeyError, "%s", Repr(key))
		}
		return v, nil
	case ItemGetter:
		return x.GetItem(key)
	}
	return nil, Raise(TypeError, "'%s' object is not subscriptable", TypeName(obj))
}

// SetItem implements obj[key] = value.
func SetItem(obj, key, value any) error {
	switch x := obj.(type) {
	case *List:
		i, err := normalizeIndex("list assignment", key, len(x.Items))
		if err != nil {
			return err
		}
		x.Items[i] = value
		return nil
	case *Dict:
		return x.Set(key, value)
	case ItemSetter:
		return x.SetItem(key, value)
	}
	return Raise(TypeError, "'%s' object does not support item assignment", TypeName(obj))
}

// DelItem implements del obj[key].
func DelItem(obj, key any) error {
	switch x := obj.(type) {
	case *List:
		i, err := normalizeIndex("list assignment", key, len(x.Items))
		if err != nil {
			return err
		}
		x.Items = append(x.Items[:i], x.Items[i+1:]...)
		return nil
	case *Dict:
		return x.Delete(key)
	case ItemDeleter:
		return x.DelItem(key)
	}
	return Raise(TypeError, "'%s' object does not support item deletion", TypeName(obj))
}
