package text

import "errors"

// ErrUnknownHandle is returned by Lookup for a handle the Store never issued.
var ErrUnknownHandle = errors.New("text: unknown handle")
