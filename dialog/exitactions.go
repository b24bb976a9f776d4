package dialog

import "context"

// ApplyAction interprets one of the variable-store exit actions a node
// can emit (store-value, push-value, update-value) against d, using
// Dialog.PutValue/PushValue/PopValue. Actions of any other type (echo,
// wait-for-input, raise-alert, ...) are left for the host to render and
// are no-ops here.
//
// This is a convenience, not a requirement: spec §4.3 deliberately
// leaves "the action sink interprets the operation" unspecified beyond
// naming pop_n (InterruptResume), so a host with its own variable-store
// semantics is free to ignore this and walk transition.Actions itself.
func ApplyAction(ctx context.Context, d *Dialog, a Action) error {
	switch a.Type {
	case "store-value":
		key, _ := a.Data["key"].(string)
		return d.PutValue(ctx, key, a.Data["value"])
	case "push-value":
		key, _ := a.Data["key"].(string)
		return d.PushValue(ctx, key, a.Data["value"])
	case "update-value":
		return applyUpdateValue(ctx, d, a.Data)
	default:
		return nil
	}
}

func applyUpdateValue(ctx context.Context, d *Dialog, data map[string]any) error {
	key, _ := data["key"].(string)
	operation, _ := data["operation"].(string)

	switch operation {
	case "pop_n":
		n := 1
		if f, ok := data["replacement"].(int); ok {
			n = f
		} else if f, ok := data["replacement"].(float64); ok {
			n = int(f)
		}
		for i := 0; i < n; i++ {
			if _, err := d.PopValue(ctx, key); err != nil {
				return err
			}
		}
		return nil
	case "increment":
		current, err := d.GetValue(ctx, key)
		if err != nil {
			return err
		}
		delta, _ := data["value"].(float64)
		base, _ := toFloat(current)
		return d.PutValue(ctx, key, base+delta)
	case "append":
		return d.PushValue(ctx, key, data["value"])
	case "replace":
		if v, ok := data["replacement"]; ok {
			return d.PutValue(ctx, key, v)
		}
		return d.PutValue(ctx, key, data["value"])
	default:
		return d.PutValue(ctx, key, data["value"])
	}
}
