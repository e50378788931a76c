package config

import (
	"fmt"
	"reflect"
)

// StructConvertMapByTag flattens obj's fields into a map keyed by each
// field's tagName struct tag, skipping fields with no tag or a "-" tag.
// Adapted from the teacher's convert.go helper of the same name; used here
// to turn a typed Config-like struct into the flat string map the
// configuration publisher (component D) writes to DIR, so adding a field
// to a struct is enough to have it published — no parallel key list to
// maintain.
func StructConvertMapByTag(obj interface{}, tagName string) map[string]interface{} {
	o := reflect.TypeOf(obj)
	v := reflect.ValueOf(obj)
	if o.Kind() == reflect.Ptr {
		o = o.Elem()
		v = v.Elem()
	}

	data := make(map[string]interface{})
	for i := 0; i < o.NumField(); i++ {
		tag := o.Field(i).Tag.Get(tagName)
		if tag == "" || tag == "-" {
			continue
		}
		data[tag] = v.Field(i).Interface()
	}
	return data
}

// ServiceAttributeStrings renders cfg's tagged fields as the string-keyed,
// string-valued map the DIR configuration record expects, merging in any
// operator-supplied ServiceAttributes last so explicit overrides win.
func ServiceAttributeStrings(cfg *Config) map[string]string {
	raw := StructConvertMapByTag(cfg, "mapstructure")
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = toDisplayString(v)
	}
	for k, v := range cfg.ServiceAttributes {
		out[k] = v
	}
	return out
}

func toDisplayString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]string:
		return "" // nested maps are merged separately, not rendered
	default:
		return fmt.Sprint(t)
	}
}
