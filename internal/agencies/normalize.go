package agencies

import (
	"strings"

	"github.com/topsevenstore/checkout-api/pkg/content"
	"github.com/topsevenstore/checkout-api/pkg/types"
)

const missingField = "No disponible"

// normalizeAgency flattens either backend field layout into one record,
// substituting a visible placeholder for anything the backend omitted.
func normalizeAgency(raw content.RawAgency) types.Agency {
	name := raw.Nombre
	location := raw.Ubicacion
	address := raw.Direccion

	if raw.Attributes != nil {
		if name == "" {
			name = raw.Attributes.Nombre
		}
		if location == "" {
			location = raw.Attributes.Ubicacion
		}
		if address == "" {
			address = raw.Attributes.Direccion
		}
	}

	return types.Agency{
		ID:       string(raw.ID),
		Name:     orPlaceholder(name),
		Location: orPlaceholder(location),
		Address:  orPlaceholder(address),
	}
}

func orPlaceholder(value string) string {
	if strings.TrimSpace(value) == "" {
		return missingField
	}
	return value
}
