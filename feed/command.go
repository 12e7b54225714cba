package feed

// Command types understood by the order service.
const (
	CmdCreateProductType = "create_product_type"
	CmdListProductTypes  = "list_product_types"
	CmdRun               = "run"
)

// Command is an outbound control message. Its payload is opaque to this program.
type Command struct {
	Auth    string      `json:"auth"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// ProductType describes a kind of goods stocked in the warehouse.
type ProductType struct {
	SKU         int    `json:"sku"`
	Name        string `json:"name"`
	ProductType string `json:"product_type"`
}

// CreateProductTypes registers product types with the order service.
func CreateProductTypes(auth string, types []ProductType) Command {
	if types == nil {
		types = []ProductType{}
	}
	return Command{Auth: auth, Type: CmdCreateProductType, Payload: types}
}

// ListProductTypes asks the order service for the registered product types.
func ListProductTypes(auth string) Command {
	return Command{Auth: auth, Type: CmdListProductTypes}
}

// Run asks the order service to solve and dispatch the pending work.
func Run(auth string) Command {
	return Command{Auth: auth, Type: CmdRun}
}
