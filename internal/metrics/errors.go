package metrics

import "errors"

var ErrReadLog = errors.New("read improvement log")
