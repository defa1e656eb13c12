package skills

import "errors"

var (
	ErrSeeds      = errors.New("load seed skills")
	ErrExtraction = errors.New("skill extraction failed")
	ErrSave       = errors.New("save skills")
)
