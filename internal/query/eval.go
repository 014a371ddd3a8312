package query

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Match reports whether rec satisfies every condition in f.
func Match(rec Record, f Filter) bool {
	for _, c := range f {
		v, ok := rec.Field(c.Field)
		switch c.Op {
		case OpPresent:
			if !ok || v == nil {
				return false
			}
			if s, isStr := v.(string); isStr && s == "" {
				return false
			}
		case OpEq:
			if !ok {
				return false
			}
			if n, cmp := compare(v, c.Value); !cmp || n != 0 {
				return false
			}
		case OpGte:
			if !ok {
				return false
			}
			if n, cmp := compare(v, c.Value); !cmp || n < 0 {
				return false
			}
		case OpLte:
			if !ok {
				return false
			}
			if n, cmp := compare(v, c.Value); !cmp || n > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

type accState struct {
	n     int64
	sum   float64
	max   float64
	set   map[string]struct{}
	valid bool
}

type group struct {
	keys map[string]any
	accs []accState
}

// Evaluate runs p over records in their stored order. It is the reference
// semantics the SQL compilers must reproduce.
func Evaluate(records []Record, p Pipeline) []Row {
	var (
		order  []*group
		byKey  = make(map[string]*group)
		keyBuf strings.Builder
	)
	for _, rec := range records {
		if !Match(rec, p.Match) {
			continue
		}
		keys := make(map[string]any, len(p.GroupBy))
		keyBuf.Reset()
		for _, k := range p.GroupBy {
			kv := groupKey(rec, k)
			keys[k.Name] = kv
			keyBuf.WriteString(keyString(kv))
			keyBuf.WriteByte(0)
		}
		g, ok := byKey[keyBuf.String()]
		if !ok {
			g = &group{keys: keys, accs: make([]accState, len(p.Accumulators))}
			byKey[keyBuf.String()] = g
			order = append(order, g)
		}
		for i, a := range p.Accumulators {
			accumulate(&g.accs[i], a, rec)
		}
	}

	rows := make([]Row, 0, len(order))
	for _, g := range order {
		row := Row{Keys: g.keys, Values: make(map[string]any, len(p.Accumulators)+len(p.Ratios))}
		for i, a := range p.Accumulators {
			row.Values[a.Name] = finish(g.accs[i], a)
		}
		if p.Having != nil {
			if n, _ := AsInt64(row.Values[p.Having.Name]); n < p.Having.Min {
				continue
			}
		}
		for _, r := range p.Ratios {
			row.Values[r.Name] = ratio(row, r)
		}
		rows = append(rows, row)
	}

	if len(p.Sort) > 0 {
		sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j], p.Sort) })
	}
	if p.Limit > 0 && len(rows) > p.Limit {
		rows = rows[:p.Limit]
	}
	return rows
}

func groupKey(rec Record, k Key) any {
	v, ok := rec.Field(k.Field)
	if !ok {
		return nil
	}
	switch k.Kind {
	case KeyHour:
		if t, isTime := v.(time.Time); isTime {
			return t.UTC().Hour()
		}
		return nil
	case KeyMinute:
		if t, isTime := v.(time.Time); isTime {
			return t.UTC().Format(MinuteLayout)
		}
		return nil
	}
	return v
}

func keyString(v any) string {
	switch x := v.(type) {
	case nil:
		return "\x01nil"
	case string:
		return "s" + x
	case int:
		return "i" + strconv.Itoa(x)
	case bool:
		return "b" + strconv.FormatBool(x)
	}
	if s, ok := AsString(v); ok {
		return "s" + s
	}
	if f, ok := AsFloat64(v); ok {
		return "f" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	return "?"
}

func accumulate(st *accState, a Accumulator, rec Record) {
	switch a.Kind {
	case AccCount:
		st.n++
	case AccAvg, AccMax:
		v, ok := rec.Field(a.Field)
		if !ok {
			return
		}
		f, ok := AsFloat64(v)
		if !ok {
			return
		}
		if !st.valid || f > st.max {
			st.max = f
		}
		st.valid = true
		st.sum += f
		st.n++
	case AccCountTrue:
		if v, ok := rec.Field(a.Field); ok && v == true {
			st.n++
		}
	case AccCountFalse:
		if v, ok := rec.Field(a.Field); !ok || v != true {
			st.n++
		}
	case AccDistinct:
		v, ok := rec.Field(a.Field)
		if !ok {
			return
		}
		s, ok := AsString(v)
		if !ok {
			return
		}
		if st.set == nil {
			st.set = make(map[string]struct{})
		}
		st.set[s] = struct{}{}
	case AccAvgMinutes:
		from, ok1 := rec.Field(a.Field)
		until, ok2 := rec.Field(a.Until)
		if !ok1 || !ok2 {
			return
		}
		ft, ok1 := from.(time.Time)
		ut, ok2 := until.(time.Time)
		if !ok1 || !ok2 {
			return
		}
		st.sum += ut.Sub(ft).Minutes()
		st.n++
		st.valid = true
	}
}

func finish(st accState, a Accumulator) any {
	switch a.Kind {
	case AccCount, AccCountTrue, AccCountFalse:
		return st.n
	case AccAvg, AccAvgMinutes:
		if !st.valid || st.n == 0 {
			return nil
		}
		return st.sum / float64(st.n)
	case AccMax:
		if !st.valid {
			return nil
		}
		return st.max
	case AccDistinct:
		out := make([]string, 0, len(st.set))
		for s := range st.set {
			out = append(out, s)
		}
		sort.Strings(out)
		return out
	}
	return nil
}

func ratio(row Row, r Ratio) any {
	num, ok1 := AsFloat64(row.Values[r.Numerator])
	den, ok2 := AsFloat64(row.Values[r.Denominator])
	if !ok1 || !ok2 || den == 0 {
		return nil
	}
	scale := r.Scale
	if scale == 0 {
		scale = 1
	}
	return Round(scale*num/den, r.Places)
}

func less(a, b Row, keys []SortKey) bool {
	for _, k := range keys {
		av, _ := a.Lookup(k.Name)
		bv, _ := b.Lookup(k.Name)
		switch {
		case av == nil && bv == nil:
			continue
		case av == nil:
			return false
		case bv == nil:
			return true
		}
		n, ok := compare(av, bv)
		if !ok || n == 0 {
			continue
		}
		if k.Desc {
			return n > 0
		}
		return n < 0
	}
	return false
}
