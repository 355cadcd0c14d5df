package payments

import "github.com/xraph/payments/id"

// ID is the identifier type for engine-minted identifiers.
type ID = id.ID

// Prefix identifies the kind of identifier encoded in a TypeID.
type Prefix = id.Prefix
