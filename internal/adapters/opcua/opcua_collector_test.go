package opcua

import (
	"testing"
	"time"

	"github.com/gopcua/opcua/ua"

	"github.com/masonhieb/shdredge/internal/domain"
)

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{
		Endpoint: "opc.tcp://localhost:4840",
		Nodes:    []NodeConfig{{NodeID: "ns=2;s=Demo.Temp"}},
	}
	cfg.ApplyDefaults()

	if cfg.SecurityMode != "None" || cfg.SecurityPolicy != "None" {
		t.Fatalf("security defaults = %q/%q", cfg.SecurityMode, cfg.SecurityPolicy)
	}
	if cfg.PublishInterval != 250*time.Millisecond {
		t.Fatalf("publish interval = %v", cfg.PublishInterval)
	}
	if cfg.Nodes[0].DataItemID != "ns=2;s=Demo.Temp" {
		t.Fatalf("data item default = %q", cfg.Nodes[0].DataItemID)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (&Config{}).Validate(); err == nil {
		t.Fatalf("expected error for missing endpoint")
	}
	if err := (&Config{Endpoint: "opc.tcp://x"}).Validate(); err == nil {
		t.Fatalf("expected error for missing nodes")
	}
	cfg := &Config{Endpoint: "opc.tcp://x", Nodes: []NodeConfig{{NodeID: "ns=2;s=a"}}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVariantToValue(t *testing.T) {
	fv := ua.MustVariant(float64(3.5))
	v, ok := variantToValue(fv)
	if !ok || v.Kind() != domain.KindDouble || v.Double() != 3.5 {
		t.Fatalf("float variant = %v ok=%v", v, ok)
	}

	iv := ua.MustVariant(int32(7))
	v, ok = variantToValue(iv)
	if !ok || v.Kind() != domain.KindInt || v.Int() != 7 {
		t.Fatalf("int variant = %v ok=%v", v, ok)
	}

	sv := ua.MustVariant("ACTIVE")
	v, ok = variantToValue(sv)
	if !ok || v.Str() != "ACTIVE" {
		t.Fatalf("string variant = %v ok=%v", v, ok)
	}

	if _, ok := variantToValue(nil); ok {
		t.Fatalf("nil variant should not convert")
	}
}

func TestNormalizeSecurityMode(t *testing.T) {
	if got := normalizeSecurityMode("sign_and_encrypt"); got != "SignAndEncrypt" {
		t.Fatalf("got %q", got)
	}
	if got := normalizeSecurityMode("sign"); got != "Sign" {
		t.Fatalf("got %q", got)
	}
	if got := normalizeSecurityMode("whatever"); got != "None" {
		t.Fatalf("got %q", got)
	}
}
