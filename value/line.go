package value

import (
	"fmt"
	"strconv"
	"strings"
)

// lineBuilder assembles a line-format object or array, eliding a trailing
// comma whenever a container closes. It mirrors the C original's approach
// of appending "<item>," unconditionally and trimming the last comma off
// before writing the closing brace or bracket.
type lineBuilder struct {
	sb strings.Builder
}

func (b *lineBuilder) writeRaw(s string) { b.sb.WriteString(s) }

func (b *lineBuilder) trimTrailingComma() {
	s := b.sb.String()
	if strings.HasSuffix(s, ",") {
		b.sb.Reset()
		b.sb.WriteString(s[:len(s)-1])
	}
}

func (b *lineBuilder) String() string { return b.sb.String() }

// EncodeValue renders a single scalar per §4.A's printable forms: integers
// decimal, floats decimal, bool as a true/false literal, strings quoted.
func EncodeValue(v Value) string {
	switch v.Tag {
	case I32, I16, I8:
		return strconv.FormatInt(v.I, 10)
	case U32, U16, U8:
		return strconv.FormatUint(v.U, 10)
	case F32, F64:
		return strconv.FormatFloat(v.F, 'f', -1, 64)
	case Bool:
		if v.B {
			return "true"
		}
		return "false"
	case Str:
		return quoteString(v.S)
	default:
		return "null"
	}
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// EncodeNamedValue renders name:value for Dim==1 or name:[v1,v2,...] for
// Dim>1, matching LO_json_add_item.
func EncodeNamedValue(nv NamedValue) (string, error) {
	values := nv.Get()
	if len(values) != nv.Dim {
		return "", fmt.Errorf("value: %s: Get returned %d values, want %d", nv.Name, len(values), nv.Dim)
	}

	if nv.Dim == 1 {
		return fmt.Sprintf("\"%s\":%s", nv.Name, EncodeValue(values[0])), nil
	}

	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = EncodeValue(v)
	}
	return fmt.Sprintf("\"%s\":[%s]", nv.Name, strings.Join(parts, ",")), nil
}

// EncodeParam renders the extended parameter form {"name":{"t":tag,"v":value}}
// used on dev/cfg, matching LO_json_add_param.
func EncodeParam(nv NamedValue) (string, error) {
	values := nv.Get()
	if len(values) == 0 {
		return "", fmt.Errorf("value: %s: no value to encode", nv.Name)
	}
	return fmt.Sprintf(`"%s":{"t":"%s","v":%s}`, nv.Name, nv.Tag.WireName(), EncodeValue(values[0])), nil
}

// EncodeCollection renders a whole collection as a line-format object,
// {"name1":v1,"name2":v2}, applying trailing-comma elision.
func EncodeCollection(c *Collection) (string, error) {
	var b lineBuilder
	b.writeRaw("{")
	for _, nv := range c.All() {
		part, err := EncodeNamedValue(nv)
		if err != nil {
			return "", err
		}
		b.writeRaw(part)
		b.writeRaw(",")
	}
	b.trimTrailingComma()
	b.writeRaw("}")
	return b.String(), nil
}

// EncodeParamCollection renders a collection in the extended {t,v} form used
// for dev/cfg, optionally restricted to a subset of names (nil means all).
func EncodeParamCollection(c *Collection, only map[string]bool) (string, error) {
	var b lineBuilder
	b.writeRaw("{")
	for _, nv := range c.All() {
		if only != nil && !only[nv.Name] {
			continue
		}
		part, err := EncodeParam(nv)
		if err != nil {
			return "", err
		}
		b.writeRaw(part)
		b.writeRaw(",")
	}
	b.trimTrailingComma()
	b.writeRaw("}")
	return b.String(), nil
}
