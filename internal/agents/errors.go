package agents

import "errors"

var ErrGenerateFailed = errors.New("generate failed")
