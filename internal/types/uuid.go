package types

import (
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/teris-io/shortid"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex usage_01HGXW2N8Y4R5T6V7W8X9Y0Z1A
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

var (
	sidGenerator *shortid.Shortid
	once         sync.Once
)

func initializeSID() {
	var err error
	sidGenerator, err = shortid.New(1, shortid.DefaultABC, 2342)
	if err != nil {
		panic("failed to initialize shortid generator: " + err.Error())
	}
}

// GenerateTenantInvoiceCode returns a short upper-case code used inside
// invoice numbers, e.g. `ACME7QX2`. Total length is capped at 8 characters.
func GenerateTenantInvoiceCode() string {
	once.Do(initializeSID)

	id, err := sidGenerator.Generate()
	if err != nil {
		return ""
	}
	id = strings.ReplaceAll(id, "-", "")
	id = strings.ReplaceAll(id, "_", "")

	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

const (
	// Prefixes for all domains and entities

	UUID_PREFIX_TENANT            = "tenant"
	UUID_PREFIX_RESOURCE          = "res"
	UUID_PREFIX_USAGE_RECORD      = "usage"
	UUID_PREFIX_INVOICE           = "inv"
	UUID_PREFIX_INVOICE_LINE_ITEM = "inv_line"
)
