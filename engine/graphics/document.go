package graphics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spaghettifunk/anima/engine/core"
)

// Node is the raw JSON of a single component configuration.
type Node = json.RawMessage

// Document is a render configuration: for every registered type name, the
// list of component nodes in declaration order.
type Document struct {
	nodes map[string][]Node
}

func NewDocument() *Document {
	return &Document{nodes: make(map[string][]Node)}
}

func ParseDocument(data []byte) (*Document, error) {
	raw := make(map[string][]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: render document: %v", core.ErrConfig, err)
	}
	doc := NewDocument()
	for typeName, nodes := range raw {
		for _, n := range nodes {
			doc.Append(typeName, Node(n))
		}
	}
	return doc, nil
}

func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConfig, err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func (d *Document) Append(typeName string, node Node) {
	d.nodes[typeName] = append(d.nodes[typeName], node)
}

// AppendValue encodes v and appends it under typeName.
func (d *Document) AppendValue(typeName string, v any) error {
	node, err := encodeNode(v)
	if err != nil {
		return err
	}
	d.Append(typeName, node)
	return nil
}

func encodeNode(v any) (Node, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Node(data), nil
}

func (d *Document) Nodes(typeName string) []Node {
	return d.nodes[typeName]
}

func (d *Document) TypeNames() []string {
	names := make([]string, 0, len(d.nodes))
	for name := range d.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.nodes)
}

// Bytes returns the indented document.
func (d *Document) Bytes() ([]byte, error) {
	data, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func decodeStrict(node Node, v any) error {
	dec := json.NewDecoder(bytes.NewReader(node))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after node")
	}
	return nil
}
