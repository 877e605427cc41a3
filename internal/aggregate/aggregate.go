// Package aggregate reduces selected numeric metrics over a leaf's outputs
// (vertical) and across sibling nodes (horizontal).
package aggregate

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/vk/ifgrid/internal/ctxlog"
	"github.com/vk/ifgrid/internal/errs"
	"github.com/vk/ifgrid/internal/manifest"
)

// Method is the reducer applied to a metric.
type Method string

const (
	MethodSum Method = "sum"
	MethodAvg Method = "avg"
)

// Type selects which nodes receive aggregated values.
type Type string

const (
	TypeHorizontal Type = "horizontal"
	TypeVertical   Type = "vertical"
	TypeBoth       Type = "both"
)

// KeyPrefix is prepended to a metric name in an aggregated record.
const KeyPrefix = "aggregated-"

// Params configures Tree.
type Params struct {
	Metrics []string `validate:"required,min=1,dive,required"`
	Type    Type     `validate:"required,oneof=horizontal vertical both"`
	Method  Method   `validate:"omitempty,oneof=sum avg"`
}

var validate = validator.New()

// Validate checks p against its struct tags.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: aggregation: %v", errs.ErrInvalidAggregationParams, err)
	}
	return nil
}

// FromManifest converts the manifest aggregation section. A nil section
// yields ok == false.
func FromManifest(a *manifest.Aggregation) (Params, bool) {
	if a == nil {
		return Params{}, false
	}
	return Params{
		Metrics: append([]string(nil), a.Metrics...),
		Type:    Type(a.Type),
		Method:  Method(a.Method),
	}, true
}

// Key returns the aggregated record key for metric.
func Key(metric string) string { return KeyPrefix + metric }

// Records reduces items in a single pass. Every item must carry every metric.
// With MethodAvg the running total of each metric is divided by the item
// count once, while the last item is processed. An empty method means sum.
func Records(items []manifest.Record, metrics []string, method Method) (manifest.Record, error) {
	if method == "" {
		method = MethodSum
	}
	if method != MethodSum && method != MethodAvg {
		return nil, errs.New(errs.ErrInvalidAggregationParams, "unknown aggregation method %q", method)
	}

	acc := make(manifest.Record, len(metrics))
	for index, item := range items {
		for _, metric := range metrics {
			raw, ok := item[metric]
			if !ok {
				return nil, errs.New(errs.ErrMissingAggregationParam, "Aggregation metric %s is not found in inputs[%d].", metric, index)
			}
			value, ok := manifest.Float(raw)
			if !ok {
				return nil, errs.New(errs.ErrInvalidAggregationParams, "Aggregation metric %s in inputs[%d] is not numeric: %v", metric, index, raw)
			}

			key := Key(metric)
			total, _ := acc[key].(float64)
			total += value
			if index == len(items)-1 && method == MethodAvg {
				total /= float64(len(items))
			}
			acc[key] = total
		}
	}
	return acc, nil
}

// Tree returns a copy of root with aggregated values filled in bottom-up.
// Vertical stores each leaf's reduction over its outputs. Horizontal stores,
// on each group, the reduction over its children's own aggregates; a child
// aggregate that is not stored is computed on the fly. Both does the two.
func Tree(ctx context.Context, root manifest.Node, p Params) (manifest.Node, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Aggregating outputs.", "type", p.Type, "method", p.Method, "metrics", p.Metrics)

	out := root.Clone()
	if _, err := aggregateNode(ctx, out, "", p); err != nil {
		return nil, err
	}
	return out, nil
}

func aggregateNode(ctx context.Context, node manifest.Node, name string, p Params) (manifest.Record, error) {
	switch n := node.(type) {
	case *manifest.LeafNode:
		agg, err := Records(n.Outputs, p.Metrics, p.Method)
		if err != nil {
			return nil, fmt.Errorf("aggregating node %q: %w", name, err)
		}
		if p.Type == TypeVertical || p.Type == TypeBoth {
			n.SetAggregated(agg)
		}
		return agg, nil

	case *manifest.GroupNode:
		ctxlog.FromContext(ctx).Debug("Aggregating node.", "node", name)
		childAggs := make([]manifest.Record, 0, n.Children.Len())
		for _, childName := range n.Children.Names() {
			child, _ := n.Children.Get(childName)
			agg, err := aggregateNode(ctx, child, childName, p)
			if err != nil {
				return nil, err
			}
			childAggs = append(childAggs, unprefix(agg, p.Metrics))
		}
		if p.Type == TypeVertical {
			return nil, nil
		}
		agg, err := Records(childAggs, p.Metrics, p.Method)
		if err != nil {
			return nil, fmt.Errorf("aggregating children of %q: %w", name, err)
		}
		n.SetAggregated(agg)
		return agg, nil

	default:
		return nil, fmt.Errorf("aggregating node %q: unexpected node type %T", name, node)
	}
}

// unprefix maps an aggregated record back to plain metric keys so it can be
// reduced again. Metrics the record lacks stay absent.
func unprefix(agg manifest.Record, metrics []string) manifest.Record {
	out := make(manifest.Record, len(metrics))
	for _, metric := range metrics {
		if v, ok := agg[Key(metric)]; ok {
			out[metric] = v
		}
	}
	return out
}
