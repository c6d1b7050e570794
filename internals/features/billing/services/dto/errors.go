package dto

import "errors"

var errNegativePrice = errors.New("service_unit_price must be >= 0")
