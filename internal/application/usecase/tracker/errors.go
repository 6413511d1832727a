package tracker

import "errors"

var (
	ErrNoExchange      = errors.New("tracker: no exchange client configured")
	ErrMappingNotFound = errors.New("tracker: symbol mapping not found")
	ErrEmptyAsset      = errors.New("tracker: asset is empty")
)
