package domain

import "time"

// Normative limits for the auth subsystem. These are compiled defaults;
// none of them are configurable per call.
const (
	// OTP configuration
	OTPDigits           = 6               // OTP codes are always 6 digits, zero-padded
	OTPValidityDuration = 5 * time.Minute // freshness window, checked lazily at verify time

	// Session token configuration
	SessionTokenLifetime = 24 * time.Hour // fixed lifetime, no refresh and no revocation

	// PIN configuration
	PinMinDigits = 4
	PinMaxDigits = 6

	// Timeout contracts
	DynamoDBTimeout = 5 * time.Second  // Max time for DynamoDB operations
	NotifierTimeout = 10 * time.Second // Max time for OTP dispatch to the notifier

	// Graceful shutdown
	ShutdownDrainDelay  = 2 * time.Second  // let load balancer propagate endpoint removal
	ShutdownHTTPTimeout = 10 * time.Second // drain in-flight HTTP requests
	ShutdownOTELTimeout = 5 * time.Second  // flush telemetry
)

// Table is the name of a user-owned table reachable through the data gateway.
type Table string

// The fixed allow-list. Any other table name is rejected before storage
// is touched.
const (
	TableCards   Table = "cards"
	TableFolders Table = "folders"
	TableTags    Table = "tags"
)

// AllowedTables lists every table the data gateway may touch.
var AllowedTables = []Table{TableCards, TableFolders, TableTags}

// IsAllowedTable checks membership in the table allow-list.
func IsAllowedTable(t Table) bool {
	for _, allowed := range AllowedTables {
		if t == allowed {
			return true
		}
	}
	return false
}
