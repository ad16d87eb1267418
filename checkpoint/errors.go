package checkpoint

import "errors"

var (
	ErrKeyNotFound  = errors.New("key not found")
	ErrLoadFailed   = errors.New("load failed")
	ErrSaveFailed   = errors.New("save failed")
	ErrDeleteFailed = errors.New("delete failed")
	ErrUnknownStore = errors.New("unknown checkpoint store")
	ErrUnknownCodec = errors.New("unknown checkpoint codec")
)
