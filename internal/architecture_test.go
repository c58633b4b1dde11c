package internal

import (
	"testing"

	"github.com/kcmvp/archunit"
)

func TestArchitecture(t *testing.T) {
	domain := archunit.Packages("domain", []string{".../internal/core/domain/..."})
	entity := archunit.Packages("entity", []string{".../internal/core/entity/..."})
	configflow := archunit.Packages("configflow", []string{".../internal/core/configflow/..."})
	adapters := archunit.Packages("adapters", []string{".../internal/adapter/..."})
	transport := archunit.Packages("transport", []string{".../internal/mqtt/...", ".../internal/server/..."})

	if err := domain.ShouldNotReferLayers(adapters, transport, entity); err != nil {
		t.Errorf("domain depends on outer layers: %v", err)
	}
	if err := entity.ShouldNotReferLayers(adapters, transport); err != nil {
		t.Errorf("entities depend on outer layers: %v", err)
	}
	if err := configflow.ShouldNotReferLayers(adapters, transport); err != nil {
		t.Errorf("config flow depends on outer layers: %v", err)
	}
}

func TestVendorClientIsStandalone(t *testing.T) {
	vendor := archunit.Packages("melcloud", []string{".../pkg/melcloud/..."})
	internal := archunit.Packages("internal", []string{".../internal/..."})

	if len(vendor.Packages()) == 0 {
		t.Fatal("no vendor client package found")
	}
	if err := vendor.ShouldNotReferLayers(internal); err != nil {
		t.Errorf("vendor client depends on internal packages: %v", err)
	}
}
