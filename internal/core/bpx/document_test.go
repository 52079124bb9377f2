package bpx

import (
	"testing"

	"github.com/kirillkom/bpx-import-service/internal/core/domain"
)

func TestParseDocumentOrder(t *testing.T) {
	doc, err := ParseDocument(`<?xml version="1.0" encoding="utf-8"?>
<BluebeamRevuToolChest>
  <BluebeamRevuToolSet Version="1">
    <Title>aa</Title>
    <ToolChestItem Version="1"><Raw>01</Raw></ToolChestItem>
    <ToolChestItem Version="1"><Name>x</Name></ToolChestItem>
    <Group><ToolChestItem><Raw> 02 </Raw></ToolChestItem></Group>
  </BluebeamRevuToolSet>
  <BluebeamRevuToolSet>
    <ToolChestItem><Raw>03</Raw></ToolChestItem>
  </BluebeamRevuToolSet>
</BluebeamRevuToolChest>`)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	if len(doc.Toolsets) != 2 {
		t.Fatalf("expected 2 toolsets, got %d", len(doc.Toolsets))
	}

	first := doc.Toolsets[0]
	if first.TitleHex != "aa" {
		t.Fatalf("unexpected title %q", first.TitleHex)
	}
	if len(first.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(first.Items))
	}
	if first.Items[0].RawHex != "01" || first.Items[1].RawHex != "" || first.Items[2].RawHex != " 02 " {
		t.Fatalf("unexpected raw payloads: %+v", first.Items)
	}

	second := doc.Toolsets[1]
	if second.TitleHex != "" || len(second.Items) != 1 || second.Items[0].RawHex != "03" {
		t.Fatalf("unexpected second toolset: %+v", second)
	}
}

func TestParseDocumentRootToolset(t *testing.T) {
	doc, err := ParseDocument(`<BluebeamRevuToolSet><Title>ab</Title><ToolChestItem><Raw>cd</Raw></ToolChestItem></BluebeamRevuToolSet>`)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	if len(doc.Toolsets) != 1 || doc.Toolsets[0].TitleHex != "ab" {
		t.Fatalf("expected root toolset, got %+v", doc.Toolsets)
	}
}

func TestParseDocumentMalformed(t *testing.T) {
	for _, in := range []string{
		"",
		"not xml at all",
		"<BluebeamRevuToolChest><BluebeamRevuToolSet></BluebeamRevuToolChest>",
		"<a></a><b></b>",
	} {
		_, err := ParseDocument(in)
		if !domain.IsKind(err, domain.ErrDocumentParse) {
			t.Fatalf("ParseDocument(%q) expected ErrDocumentParse, got %v", in, err)
		}
	}
}
