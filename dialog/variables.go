package dialog

// valuesKey is the metadata key under which the variable store lives
// (spec §3, "Variable store. Lives under metadata.values").
const valuesKey = "values"

// getValues returns the mutable values map inside metadata, creating it
// if absent.
func getValues(metadata map[string]any) map[string]any {
	raw, ok := metadata[valuesKey]
	if !ok {
		values := map[string]any{}
		metadata[valuesKey] = values
		return values
	}
	values, ok := raw.(map[string]any)
	if !ok {
		values = map[string]any{}
		metadata[valuesKey] = values
	}
	return values
}

// getVariable reads key from metadata.values, returning nil if absent.
func getVariable(metadata map[string]any, key string) any {
	values, ok := metadata[valuesKey].(map[string]any)
	if !ok {
		return nil
	}
	return values[key]
}

// putVariable stores value under key in metadata.values. Storing nil
// deletes the key (spec §3).
func putVariable(metadata map[string]any, key string, value any) {
	values := getValues(metadata)
	if value == nil {
		delete(values, key)
		return
	}
	values[key] = value
}

// pushVariable treats the slot at key as a list, lifting a scalar into a
// singleton list on first push, and appends value.
func pushVariable(metadata map[string]any, key string, value any) {
	values := getValues(metadata)
	existing, ok := values[key]
	if !ok || existing == nil {
		values[key] = []any{value}
		return
	}
	list, ok := existing.([]any)
	if !ok {
		list = []any{existing}
	}
	values[key] = append(list, value)
}

// popVariable pops the last element from the list at key. When the list
// empties, the key is removed. For a scalar value, pop deletes it and
// returns it. Returns (nil, false) if key is absent.
func popVariable(metadata map[string]any, key string) (any, bool) {
	values, ok := metadata[valuesKey].(map[string]any)
	if !ok {
		return nil, false
	}
	existing, ok := values[key]
	if !ok {
		return nil, false
	}
	list, ok := existing.([]any)
	if !ok {
		delete(values, key)
		return existing, true
	}
	if len(list) == 0 {
		delete(values, key)
		return nil, false
	}
	last := list[len(list)-1]
	rest := list[:len(list)-1]
	if len(rest) == 0 {
		delete(values, key)
	} else {
		values[key] = rest
	}
	return last, true
}
