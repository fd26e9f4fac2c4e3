package repository

import "errors"

// ErrAlreadyCountersigned reports that a guarded countersignature update
// matched no row: a countersignature is already on record for the document.
var ErrAlreadyCountersigned = errors.New("countersignature already recorded")
