package plugincfg

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vk/ifgrid/internal/ctxlog"
	"github.com/vk/ifgrid/internal/errs"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

var validate = validator.New()

// Decode fills target, a pointer to a struct whose fields carry `cty:"name"`
// tags, from raw. Attributes without a matching field are ignored. After
// decoding, `validate` struct tags are checked. Every failure wraps
// errs.ErrGlobalConfig.
func Decode(ctx context.Context, raw map[string]any, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: decode target must be a non-nil pointer, got %T", errs.ErrGlobalConfig, target)
	}

	val, err := ToValue(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrGlobalConfig, err)
	}
	if err := decode(ctx, val, target); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrGlobalConfig, err)
	}
	if rv.Elem().Kind() == reflect.Struct {
		if err := validate.Struct(target); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrGlobalConfig, err)
		}
	}
	return nil
}

// Merge returns global overlaid with the keys of node. Neither input is
// modified.
func Merge(global map[string]any, node any) map[string]any {
	out := make(map[string]any, len(global))
	for k, v := range global {
		out[k] = v
	}
	if m, ok := node.(map[string]any); ok {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// decode populates the value goVal points to from val.
func decode(ctx context.Context, val cty.Value, goVal any) error {
	goPtr := reflect.ValueOf(goVal).Elem()
	goType := goPtr.Type()
	logger := ctxlog.FromContext(ctx).With("go_kind", goType.Kind().String())

	if goType == reflect.TypeOf(cty.Value{}) {
		if val.IsKnown() {
			goPtr.Set(reflect.ValueOf(val))
		}
		return nil
	}

	if !val.IsKnown() || val.IsNull() {
		logger.Debug("Skipping decode for null or unknown value.")
		return nil
	}

	switch goType.Kind() {
	case reflect.Struct:
		if !val.Type().IsObjectType() && !val.Type().IsMapType() {
			return fmt.Errorf("type mismatch: cannot decode %s into %s", val.Type().FriendlyName(), goType.String())
		}
		attrs := val.AsValueMap()

		for i := 0; i < goType.NumField(); i++ {
			fieldDef := goType.Field(i)
			fieldVal := goPtr.Field(i)
			if !fieldDef.IsExported() || !fieldVal.CanSet() {
				continue
			}

			tagName := strings.Split(fieldDef.Tag.Get("cty"), ",")[0]
			if tagName == "" || tagName == "-" {
				continue
			}
			attrVal, ok := attrs[tagName]
			if !ok {
				continue
			}
			if err := decode(ctx, attrVal, fieldVal.Addr().Interface()); err != nil {
				return fmt.Errorf("in attribute '%s': %w", tagName, err)
			}
		}
		return nil

	case reflect.Interface:
		nativeVal, err := ToNative(val)
		if err != nil {
			return err
		}
		if nativeVal != nil {
			goPtr.Set(reflect.ValueOf(nativeVal))
		}
		return nil

	case reflect.Map:
		if goType.Key().Kind() != reflect.String {
			return fmt.Errorf("unsupported map key type %s", goType.Key().String())
		}
		if !val.Type().IsObjectType() && !val.Type().IsMapType() {
			return fmt.Errorf("type mismatch: cannot decode %s into %s", val.Type().FriendlyName(), goType.String())
		}
		newMap := reflect.MakeMap(goType)
		it := val.ElementIterator()
		for it.Next() {
			key, elemVal := it.Element()
			keyStr := key.AsString()
			elemPtr := reflect.New(goType.Elem())
			if err := decode(ctx, elemVal, elemPtr.Interface()); err != nil {
				return fmt.Errorf("failed to decode map element '%s': %w", keyStr, err)
			}
			newMap.SetMapIndex(reflect.ValueOf(keyStr).Convert(goType.Key()), elemPtr.Elem())
		}
		goPtr.Set(newMap)
		return nil

	case reflect.Slice:
		ty := val.Type()
		if !ty.IsListType() && !ty.IsTupleType() && !ty.IsSetType() {
			return fmt.Errorf("type mismatch: cannot decode %s into %s", ty.FriendlyName(), goType.String())
		}
		newSlice := reflect.MakeSlice(goType, val.LengthInt(), val.LengthInt())
		it := val.ElementIterator()
		for i := 0; it.Next(); i++ {
			_, elemVal := it.Element()
			if err := decode(ctx, elemVal, newSlice.Index(i).Addr().Interface()); err != nil {
				return fmt.Errorf("in element %d: %w", i, err)
			}
		}
		goPtr.Set(newSlice)
		return nil

	default:
		want, err := gocty.ImpliedType(reflect.Zero(goType).Interface())
		if err != nil {
			return fmt.Errorf("cannot imply cty type for %s: %w", goType.String(), err)
		}
		converted, err := convert.Convert(val, want)
		if err != nil {
			return fmt.Errorf("cannot convert %s to %s: %w", val.Type().FriendlyName(), want.FriendlyName(), err)
		}
		return gocty.FromCtyValue(converted, goVal)
	}
}
