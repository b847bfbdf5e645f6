package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"loyalty/internal/client/config"
	"loyalty/internal/client/resource"
)

// render writes v as indented JSON or as YAML. YAML keys follow the JSON field
// names because the document is converted from the JSON encoding.
func render(w io.Writer, format string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if format != config.OutputYAML {
		_, err = fmt.Fprintf(w, "%s\n", raw)
		return err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	blockStyle(&doc)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

// blockStyle drops the flow and quoting styles a JSON document parses with.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" && looksNonString(n.Value) {
		n.Style = yaml.DoubleQuotedStyle
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// looksNonString reports whether a plain scalar would be read back as
// something other than a string, as with decimal amounts like "100".
func looksNonString(v string) bool {
	var probe any
	if err := yaml.Unmarshal([]byte(v), &probe); err != nil {
		return true
	}
	_, isString := probe.(string)
	return !isString
}

// renderResource prints the data of a settled resource. An Error resource is
// returned as an error carrying a hint for retrying.
func renderResource[T any](w io.Writer, format string, r resource.Resource[T], retry string) error {
	return resource.Match(r,
		func() error { return fmt.Errorf("still loading; retry with `%s`", retry) },
		func(data T) error { return render(w, format, data) },
		func(msg string) error { return fmt.Errorf("%s; retry with `%s`", msg, retry) },
	)
}
