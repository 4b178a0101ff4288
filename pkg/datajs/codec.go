package datajs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/benchboard/benchboard/pkg/types"
)

// Prefix is the assignment every data file starts with.
const Prefix = "window.BENCHMARK_DATA = "

const globalName = "window.BENCHMARK_DATA"

// ErrMalformed is returned when the content is neither the script form nor
// bare JSON.
var ErrMalformed = errors.New("datajs: malformed data file")

// Decode parses a data file from r.
func Decode(r io.Reader) (*types.Data, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("datajs: read: %w", err)
	}
	return Unmarshal(raw)
}

// Unmarshal parses the content of a data file.
func Unmarshal(raw []byte) (*types.Data, error) {
	body, err := stripScript(raw)
	if err != nil {
		return nil, err
	}

	d := &types.Data{}
	if err := json.Unmarshal(body, d); err != nil {
		return nil, fmt.Errorf("datajs: parse json: %w", err)
	}
	if d.Entries == nil {
		d.Entries = make(map[string][]types.Entry)
	}
	return d, nil
}

// stripScript removes the window.BENCHMARK_DATA assignment and any trailing
// semicolon, returning the JSON object text.
func stripScript(raw []byte) ([]byte, error) {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty content", ErrMalformed)
	}
	if b[0] == '{' {
		return b, nil
	}
	if !bytes.HasPrefix(b, []byte(globalName)) {
		return nil, fmt.Errorf("%w: missing %s assignment", ErrMalformed, globalName)
	}
	b = bytes.TrimSpace(b[len(globalName):])
	if len(b) == 0 || b[0] != '=' {
		return nil, fmt.Errorf("%w: expected '=' after %s", ErrMalformed, globalName)
	}
	b = bytes.TrimSpace(b[1:])
	b = bytes.TrimSpace(bytes.TrimSuffix(b, []byte(";")))
	if len(b) == 0 || b[0] != '{' {
		return nil, fmt.Errorf("%w: assigned value is not an object", ErrMalformed)
	}
	return b, nil
}

// Encode writes d to w in script form.
func Encode(w io.Writer, d *types.Data) error {
	b, err := Marshal(d)
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("datajs: write: %w", err)
	}
	return nil
}

// Marshal returns the script-form encoding of d. HTML characters and the
// U+2028/U+2029 separators in commit messages are written verbatim, as
// JSON.stringify does.
func Marshal(d *types.Data) ([]byte, error) {
	if d.Entries == nil {
		cp := *d
		cp.Entries = map[string][]types.Entry{}
		d = &cp
	}

	var buf bytes.Buffer
	buf.WriteString(Prefix)
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("datajs: encode json: %w", err)
	}
	return unescapeSeparators(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// unescapeSeparators rewrites the \u2028 and \u2029 escapes encoding/json
// always emits back into the raw characters. Other escapes are copied whole
// so an escaped backslash is never taken as the start of one.
func unescapeSeparators(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u202`)) {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' {
			out = append(out, b[i])
			continue
		}
		if i+5 < len(b) && string(b[i+1:i+5]) == "u202" && (b[i+5] == '8' || b[i+5] == '9') {
			if b[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		out = append(out, b[i])
		if i+1 < len(b) {
			i++
			out = append(out, b[i])
		}
	}
	return out
}
