package bpx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kirillkom/bpx-import-service/internal/core/domain"
)

const (
	toolsetElementName = "BluebeamRevuToolSet"
	titleElementName   = "Title"
	itemElementName    = "ToolChestItem"
	rawElementName     = "Raw"
)

// Document is the toolset/tool tree of a BPX export in document order.
// Payloads are still hex-encoded.
type Document struct {
	Toolsets []ToolsetElement
}

type ToolsetElement struct {
	TitleHex string
	Items    []ToolItemElement
}

type ToolItemElement struct {
	RawHex string
}

type xmlNode struct {
	XMLName  xml.Name
	Text     string    `xml:",chardata"`
	Children []xmlNode `xml:",any"`
}

// ParseDocument reads a BPX export. Toolsets are collected wherever they appear
// in the tree, tools anywhere below their toolset.
func ParseDocument(text string) (*Document, error) {
	root, err := decodeTree(text)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDocumentParse, "parse bpx xml", err)
	}

	var toolsetNodes []*xmlNode
	collect(root, toolsetElementName, true, &toolsetNodes)

	doc := &Document{Toolsets: make([]ToolsetElement, 0, len(toolsetNodes))}
	for _, tsNode := range toolsetNodes {
		var itemNodes []*xmlNode
		collect(tsNode, itemElementName, false, &itemNodes)

		toolset := ToolsetElement{
			TitleHex: childText(tsNode, titleElementName),
			Items:    make([]ToolItemElement, 0, len(itemNodes)),
		}
		for _, itemNode := range itemNodes {
			toolset.Items = append(toolset.Items, ToolItemElement{RawHex: childText(itemNode, rawElementName)})
		}
		doc.Toolsets = append(doc.Toolsets, toolset)
	}
	return doc, nil
}

func decodeTree(text string) (*xmlNode, error) {
	dec := xml.NewDecoder(strings.NewReader(text))

	var root xmlNode
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("document has no root element")
		}
		return nil, err
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return &root, nil
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return nil, fmt.Errorf("unexpected element <%s> after root element", t.Name.Local)
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return nil, errors.New("unexpected text after root element")
			}
		}
	}
}

// collect appends matching nodes in pre-order. The starting node itself is a
// candidate only when includeSelf is set.
func collect(node *xmlNode, name string, includeSelf bool, out *[]*xmlNode) {
	if includeSelf && node.XMLName.Local == name {
		*out = append(*out, node)
	}
	for i := range node.Children {
		collect(&node.Children[i], name, true, out)
	}
}

func childText(node *xmlNode, name string) string {
	for i := range node.Children {
		if node.Children[i].XMLName.Local == name {
			return node.Children[i].Text
		}
	}
	return ""
}
