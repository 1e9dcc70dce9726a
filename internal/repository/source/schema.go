package source

import (
	"fmt"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/shopassist/internal/domain/record"
)

type shape uint8

const (
	shapeScalar shape = iota
	shapeGroup
	shapeList
	shapeMap
)

// node is a compiled schema field with its maximum definition and repetition
// levels and the range of leaf columns below it.
type node struct {
	name     string
	leaf     bool
	repeated bool
	def      int
	rep      int
	first    int
	last     int
	shape    shape
	children []*node
	// element is the repeated child of a list or map group.
	element *node
	// unwrap marks a repeated list child whose single field is the element itself.
	unwrap bool
}

// reconstructor turns flat parquet rows into records, driven by the file schema.
type reconstructor struct {
	fields  []*node
	columns int
	scratch [][]parquet.Value
}

func newReconstructor(schema *parquet.Schema) (*reconstructor, error) {
	next := 0
	fields := compileFields(schema.Fields(), 0, 0, &next)
	if next != len(schema.Columns()) {
		return nil, fmt.Errorf("schema has %d leaf columns, compiled %d", len(schema.Columns()), next)
	}
	return &reconstructor{
		fields:  fields,
		columns: next,
		scratch: make([][]parquet.Value, next),
	}, nil
}

func compileFields(fields []parquet.Field, parentDef, parentRep int, next *int) []*node {
	nodes := make([]*node, len(fields))
	for i, f := range fields {
		nodes[i] = compileNode(f, parentDef, parentRep, next)
	}
	return nodes
}

func compileNode(f parquet.Field, parentDef, parentRep int, next *int) *node {
	n := &node{
		name:     f.Name(),
		leaf:     f.Leaf(),
		repeated: f.Repeated(),
		def:      parentDef,
		rep:      parentRep,
		first:    *next,
	}
	if f.Optional() || f.Repeated() {
		n.def++
	}
	if f.Repeated() {
		n.rep++
	}

	if n.leaf {
		*next++
		n.last = n.first
		n.shape = shapeScalar
		return n
	}

	n.children = compileFields(f.Fields(), n.def, n.rep, next)
	n.last = *next - 1
	n.shape = shapeGroup

	if len(n.children) == 1 && n.children[0].repeated {
		child := n.children[0]
		n.element = child
		switch {
		case isKeyValue(child):
			n.shape = shapeMap
		default:
			n.shape = shapeList
			child.unwrap = !child.leaf && len(child.children) == 1
		}
	}
	return n
}

func isKeyValue(n *node) bool {
	return !n.leaf && len(n.children) == 2 &&
		n.children[0].name == "key" && n.children[1].name == "value"
}

// record reconstructs one row. The returned record does not reference row memory.
func (rc *reconstructor) record(row parquet.Row) (record.Record, error) {
	cols := rc.scratch
	for i := range cols {
		cols[i] = cols[i][:0]
	}
	for _, v := range row {
		c := v.Column()
		if c < 0 || c >= rc.columns {
			return record.Record{}, fmt.Errorf("value references column %d of %d", c, rc.columns)
		}
		cols[c] = append(cols[c], v)
	}

	fields := make([]record.Field, len(rc.fields))
	for i, n := range rc.fields {
		v, err := rc.value(n, cols)
		if err != nil {
			return record.Record{}, fmt.Errorf("field %q: %w", n.name, err)
		}
		fields[i] = record.Field{Name: n.name, Value: v}
	}
	return record.New(fields...), nil
}

func (rc *reconstructor) value(n *node, cols [][]parquet.Value) (record.Value, error) {
	if n.repeated {
		items, err := rc.elements(n, cols)
		if err != nil {
			return record.Value{}, err
		}
		return record.List(items...), nil
	}
	return rc.single(n, cols)
}

// single reconstructs a non-repeated node for one instance of its parent.
func (rc *reconstructor) single(n *node, cols [][]parquet.Value) (record.Value, error) {
	vals := cols[n.first]
	if len(vals) == 0 || vals[0].DefinitionLevel() < n.def {
		return record.Null(), nil
	}

	switch n.shape {
	case shapeScalar:
		return scalar(vals[0]), nil
	case shapeList:
		items, err := rc.elements(n.element, cols)
		if err != nil {
			return record.Value{}, err
		}
		return record.List(items...), nil
	case shapeMap:
		return rc.mapping(n.element, cols)
	default:
		return rc.group(n, cols)
	}
}

func (rc *reconstructor) group(n *node, cols [][]parquet.Value) (record.Value, error) {
	fields := make([]record.Field, len(n.children))
	for i, child := range n.children {
		v, err := rc.value(child, cols)
		if err != nil {
			return record.Value{}, fmt.Errorf("%s: %w", child.name, err)
		}
		fields[i] = record.Field{Name: child.name, Value: v}
	}
	return record.Object(fields...), nil
}

func (rc *reconstructor) elements(n *node, cols [][]parquet.Value) ([]record.Value, error) {
	instances, err := split(n, cols)
	if err != nil {
		return nil, err
	}
	items := make([]record.Value, len(instances))
	for i, inst := range instances {
		switch {
		case n.leaf:
			items[i] = scalar(inst[n.first][0])
		case n.unwrap:
			items[i], err = rc.value(n.children[0], inst)
		default:
			items[i], err = rc.group(n, inst)
		}
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return items, nil
}

func (rc *reconstructor) mapping(kv *node, cols [][]parquet.Value) (record.Value, error) {
	instances, err := split(kv, cols)
	if err != nil {
		return record.Value{}, err
	}
	fields := make([]record.Field, len(instances))
	for i, inst := range instances {
		key, err := rc.value(kv.children[0], inst)
		if err != nil {
			return record.Value{}, fmt.Errorf("key %d: %w", i, err)
		}
		val, err := rc.value(kv.children[1], inst)
		if err != nil {
			return record.Value{}, fmt.Errorf("value %d: %w", i, err)
		}
		fields[i] = record.Field{Name: keyString(key), Value: val}
	}
	return record.Object(fields...), nil
}

// split partitions the column values below the repeated node n into one
// column set per repetition. A new instance starts at every value whose
// repetition level is at or above n's own level.
func split(n *node, cols [][]parquet.Value) ([][][]parquet.Value, error) {
	lead := cols[n.first]
	if len(lead) == 0 || lead[0].DefinitionLevel() < n.def {
		return nil, nil
	}

	count := 1
	for _, v := range lead[1:] {
		if v.RepetitionLevel() <= n.rep {
			count++
		}
	}

	instances := make([][][]parquet.Value, count)
	for i := range instances {
		instances[i] = make([][]parquet.Value, len(cols))
	}

	for c := n.first; c <= n.last; c++ {
		vals := cols[c]
		idx, start := 0, 0
		for i := 1; i < len(vals); i++ {
			if vals[i].RepetitionLevel() > n.rep {
				continue
			}
			if idx+1 >= count {
				return nil, fmt.Errorf("column %d has more repetitions than column %d", c, n.first)
			}
			instances[idx][c] = vals[start:i]
			idx++
			start = i
		}
		if idx != count-1 {
			return nil, fmt.Errorf("column %d has %d repetitions, want %d", c, idx+1, count)
		}
		instances[idx][c] = vals[start:]
	}
	return instances, nil
}

func scalar(v parquet.Value) record.Value {
	if v.IsNull() {
		return record.Null()
	}
	switch v.Kind() {
	case parquet.Boolean:
		return record.Bool(v.Boolean())
	case parquet.Int32:
		return record.Int32(v.Int32())
	case parquet.Int64:
		return record.Int64(v.Int64())
	case parquet.Float:
		return record.Float(float64(v.Float()))
	case parquet.Double:
		return record.Float(v.Double())
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return record.Text(string(v.ByteArray()))
	default:
		return record.Text(v.String())
	}
}

func keyString(v record.Value) string {
	switch v.Kind() {
	case record.KindText:
		s, _ := v.AsText()
		return s
	case record.KindInt32, record.KindInt64:
		return strconv.FormatInt(v.AsInt(), 10)
	case record.KindBool:
		return strconv.FormatBool(v.AsBool())
	case record.KindNull:
		return "null"
	default:
		b, err := v.MarshalJSON()
		if err != nil {
			return v.Kind().String()
		}
		return string(b)
	}
}
