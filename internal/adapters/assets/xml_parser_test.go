package assets

import "testing"

func TestParseAssetDocument(t *testing.T) {
	body := `<CuttingTool assetId="T100.1" type="CuttingTool" serialNumber="100">
  <CuttingToolLifeCycle>
    <ToolLife type="MINUTES" countDirection="UP">160</ToolLife>
  </CuttingToolLifeCycle>
</CuttingTool>`

	doc, err := NewXMLParser().Parse(body)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Root != "CuttingTool" {
		t.Fatalf("root = %q, want CuttingTool", doc.Root)
	}
	if doc.AssetID != "T100.1" {
		t.Fatalf("assetId = %q, want T100.1", doc.AssetID)
	}
	if doc.Type != "CuttingTool" {
		t.Fatalf("type = %q, want CuttingTool", doc.Type)
	}
	if doc.Raw != body {
		t.Fatalf("raw body not preserved")
	}
}

func TestParseAssetLeadingDeclaration(t *testing.T) {
	body := `<?xml version="1.0"?><Fixture assetId="F1"/>`
	doc, err := NewXMLParser().Parse(body)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Root != "Fixture" || doc.AssetID != "F1" {
		t.Fatalf("doc = %+v", doc)
	}
}

func TestParseAssetMalformed(t *testing.T) {
	cases := []string{
		"",
		"not xml at all",
		"<CuttingTool assetId='T1'>",
		"<a><b></a></b>",
	}
	for _, body := range cases {
		if _, err := NewXMLParser().Parse(body); err == nil {
			t.Fatalf("Parse(%q) succeeded, want error", body)
		}
	}
}
