package validation

// ValidOrderStatuses lists every order status the API accepts.
// Processing is transient and never persisted as a final status.
var ValidOrderStatuses = []string{
	"Processing",
	"Awaiting Purchase",
	"Partially Fulfilled",
	"Ready for Issuance",
	"Fulfilled",
	"Shipped",
	"Cancelled",
}

// ValidPOStatuses lists purchase order statuses. Received is terminal.
var ValidPOStatuses = []string{"Pending", "Shipped", "Received"}

// ValidBackorderStatuses lists backorder statuses.
var ValidBackorderStatuses = []string{"Pending", "Fulfilled"}

// ValidUserRoles lists user roles.
var ValidUserRoles = []string{"admin", "user"}
