package log

// Common field names for structured logging.
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldBasketID  = "basket_id"
	FieldProductID = "product_id"
	FieldStoreID   = "store_id"
	FieldCategory  = "category"
	FieldPrice     = "price"
	FieldIndex     = "index"
	FieldDuration  = "duration_ms"
)

// Components defines standard component names.
const (
	ComponentApp       = "app"
	ComponentCLI       = "cli"
	ComponentStorage   = "storage"
	ComponentBasket    = "basket"
	ComponentInflation = "inflation"
	ComponentCatalog   = "catalog"
	ComponentKroger    = "kroger"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentScheduler = "scheduler"
)
