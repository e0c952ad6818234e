package core

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteObject serializes obj in PDF syntax. Dictionary keys are written in
// sorted order so that equal values always produce equal bytes. A nil object
// is written as null. Values nested deeper than MaxNesting fail with
// ErrNestingTooDeep, as they could not be parsed back.
func WriteObject(w io.Writer, obj Object) error {
	bw, ok := w.(*bufio.Writer)
	if !ok {
		bw = bufio.NewWriter(w)
	}
	if err := writeValue(bw, obj, 0); err != nil {
		return err
	}
	return bw.Flush()
}

func writeValue(w *bufio.Writer, obj Object, depth int) error {
	switch v := obj.(type) {
	case nil, Null:
		w.WriteString("null")
	case Bool:
		w.WriteString(v.String())
	case Int:
		w.WriteString(strconv.FormatInt(int64(v), 10))
	case Real:
		s := strconv.FormatFloat(float64(v), 'f', -1, 64)
		if !strings.ContainsRune(s, '.') {
			s += ".0"
		}
		w.WriteString(s)
	case String:
		writeString(w, v)
	case Name:
		writeName(w, v)
	case Reference:
		fmt.Fprintf(w, "%d %d R", v.Number, v.Generation)
	case Array:
		if depth >= MaxNesting {
			return ErrNestingTooDeep
		}
		w.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				w.WriteByte(' ')
			}
			if err := writeValue(w, elem, depth+1); err != nil {
				return err
			}
		}
		w.WriteByte(']')
	case Dict:
		if depth >= MaxNesting {
			return ErrNestingTooDeep
		}
		w.WriteString("<<")
		for _, key := range v.SortedKeys() {
			writeName(w, Name(key))
			w.WriteByte(' ')
			if err := writeValue(w, v[key], depth+1); err != nil {
				return err
			}
		}
		w.WriteString(">>")
	case *Stream:
		dict := Clone(v.Dict).(Dict)
		if dict == nil {
			dict = make(Dict)
		}
		dict.Set("Length", Int(len(v.Data)))
		if err := writeValue(w, dict, depth); err != nil {
			return err
		}
		w.WriteString("\nstream\n")
		w.Write(v.Data)
		w.WriteString("\nendstream")
	default:
		return fmt.Errorf("cannot serialize %T", obj)
	}
	return nil
}

// writeString writes a literal string, escaping delimiters and control bytes.
func writeString(w *bufio.Writer, s String) {
	w.WriteByte('(')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '(', ')', '\\':
			w.WriteByte('\\')
			w.WriteByte(c)
		case '\n':
			w.WriteString(`\n`)
		case '\r':
			w.WriteString(`\r`)
		default:
			if c < 0x20 || c >= 0x7F {
				fmt.Fprintf(w, "\\%03o", c)
			} else {
				w.WriteByte(c)
			}
		}
	}
	w.WriteByte(')')
}

// writeName writes /Name, escaping irregular bytes as #xx.
func writeName(w *bufio.Writer, n Name) {
	w.WriteByte('/')
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c < '!' || c > '~' || c == '#' || isDelimiter(c) {
			fmt.Fprintf(w, "#%02X", c)
			continue
		}
		w.WriteByte(c)
	}
}
