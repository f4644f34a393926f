package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrorMissingHandoff marks an absent staged flow blob; handlers translate it
// into a silent dashboard redirect rather than an error banner.
var ErrorMissingHandoff = errors.New("staged flow data not found")
