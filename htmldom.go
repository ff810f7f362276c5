package htmldom

import (
	"fmt"
	"io"
)

// Parse parses HTML bytes with a fresh parser and returns the root node.
func Parse(data []byte) *Node {
	return NewParser().Parse(data)
}

// ParseString parses an HTML string with a fresh parser.
func ParseString(s string) *Node {
	return NewParser().Parse([]byte(s))
}

// ParseReader reads r to the end and parses the content.
func ParseReader(r io.Reader) (*Node, error) {
	return NewParser().ParseReader(r)
}

// ParseFile reads and parses an HTML file.
func ParseFile(name string) (*Node, error) {
	return NewParser().ParseFile(name)
}

// ParseReader reads r to the end and parses the content.
func (p *Parser) ParseReader(r io.Reader) (*Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return p.Parse(data), nil
}
