package collection

// Error types reported in the ErrorSets returned by Collection mutations.
const (
	DataMissingError         = "collections.errors.data_missing"
	DataInvalidError         = "collections.errors.data_invalid"
	DataEmptyError           = "collections.errors.data_empty"
	PrimaryKeyMissingError   = "collections.errors.primary_key_missing"
	PrimaryKeyInvalidError   = "collections.errors.primary_key_invalid"
	PrimaryKeyEmptyError     = "collections.errors.primary_key_empty"
	PrimaryKeyChangedError   = "collections.errors.primary_key_changed"
	NoPrimaryKeyError        = "collections.errors.no_primary_key"
	RecordNotFoundError      = "collections.errors.not_found"
	RecordAlreadyExistsError = "collections.errors.already_exists"
	SelectorMissingError     = "collections.errors.selector_missing"
	SelectorInvalidError     = "collections.errors.selector_invalid"
)
